package ws

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropx/internal/delivery-service/core/domain/model"
	websocketdto "dropx/internal/delivery-service/core/domain/websocket_dto"
	"dropx/internal/mylogger"
)

func relayEnv(t *testing.T) (*Dispatcher, *Client, uuid.UUID) {
	t.Helper()

	log, err := mylogger.New(mylogger.LevelError)
	require.NoError(t, err)

	d := NewDispatcher(log, nil)
	deliveryID := uuid.New()
	client := NewClient(nil, d, uuid.New(), deliveryID)
	d.addClient(client)
	return d, client, deliveryID
}

func receive(t *testing.T, c *Client) websocketdto.ChatMessage {
	t.Helper()
	select {
	case msg := <-c.egress:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame reached the room")
		return websocketdto.ChatMessage{}
	}
}

func TestRelayBroadcastsBrokerEvents(t *testing.T) {
	d, client, deliveryID := relayEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan model.Event, 2)
	go d.Relay(ctx, events)

	events <- model.Event{
		Kind:       model.EventPaymentCompleted,
		DeliveryID: &deliveryID,
		OccurredAt: time.Now(),
		Recipients: []model.Recipient{{
			UserID:  client.userID,
			Type:    model.NotifPaymentCompleted,
			Message: "Payment of 135.00 completed.",
		}},
	}

	msg := receive(t, client)
	assert.Equal(t, websocketdto.TypeSystem, msg.Type)
	assert.Equal(t, deliveryID, msg.DeliveryID)
	assert.Equal(t, "Payment of 135.00 completed.", msg.Body)
	assert.Nil(t, msg.SenderID)

	// Without a recipient message the kind is the frame body.
	events <- model.Event{
		Kind:       model.EventDeliveryInTransit,
		DeliveryID: &deliveryID,
		OccurredAt: time.Now(),
	}
	assert.Equal(t, string(model.EventDeliveryInTransit), receive(t, client).Body)
}

func TestRelaySkipsEventsWithoutDelivery(t *testing.T) {
	d, client, deliveryID := relayEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan model.Event, 2)
	go d.Relay(ctx, events)

	// No delivery, no room to address.
	events <- model.Event{Kind: model.EventPostMatched, OccurredAt: time.Now()}

	// The next addressed event arrives first: the unaddressed one was dropped.
	events <- model.Event{Kind: model.EventChatOpened, DeliveryID: &deliveryID, OccurredAt: time.Now()}
	assert.Equal(t, string(model.EventChatOpened), receive(t, client).Body)

	select {
	case msg := <-client.egress:
		t.Fatalf("unexpected extra frame %q", msg.Body)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelayStopsWhenStreamCloses(t *testing.T) {
	d, _, _ := relayEnv(t)

	events := make(chan model.Event)
	done := make(chan struct{})
	go func() {
		d.Relay(context.Background(), events)
		close(done)
	}()

	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop on stream close")
	}
}

package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dropx/internal/delivery-service/core/domain/model"
	websocketdto "dropx/internal/delivery-service/core/domain/websocket_dto"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

var websocketUpgrader = websocket.Upgrader{
	// TODO: add checkOrigin once the web client origin is fixed
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ClientList is a map used to help manage a map of clients
type ClientList map[*Client]bool

// Dispatcher keeps one chat room per delivery. Only the delivery's
// participants (sender, receiver, resolved driver) may join.
type Dispatcher struct {
	rooms map[uuid.UUID]ClientList
	sync.RWMutex
	log        mylogger.Logger
	deliveries ports.IDeliveryService
}

func NewDispatcher(log mylogger.Logger, deliveries ports.IDeliveryService) *Dispatcher {
	return &Dispatcher{
		rooms:      make(map[uuid.UUID]ClientList),
		log:        log,
		deliveries: deliveries,
	}
}

// ChatHandler upgrades a participant's connection into the delivery's room.
// It must sit behind the auth middleware.
func (d *Dispatcher) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := d.log.Action("chatHandler")

		userID, err := uuid.Parse(r.Header.Get("X-UserId"))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		deliveryID, err := uuid.Parse(r.PathValue("delivery_id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		principal := model.Principal{
			ID:       userID,
			Role:     model.Role(r.Header.Get("X-Role")),
			Verified: r.Header.Get("X-Verified") == "true",
		}

		// GetDelivery enforces participant-only access.
		delivery, err := d.deliveries.GetDelivery(r.Context(), principal, deliveryID)
		if err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade", err)
			return
		}

		client := NewClient(conn, d, userID, deliveryID)
		d.addClient(client)
		go client.readPump()
		go client.writePump()

		client.egress <- websocketdto.ChatMessage{
			Type:       websocketdto.TypeSystem,
			DeliveryID: deliveryID,
			Body:       fmt.Sprintf("Chat opened for delivery %s (total cost %.2f)", delivery.ID, delivery.TotalCost),
			SentAt:     time.Now().UTC(),
		}
	}
}

func (d *Dispatcher) addClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	room, ok := d.rooms[client.deliveryID]
	if !ok {
		room = make(ClientList)
		d.rooms[client.deliveryID] = room
	}
	room[client] = true
}

func (d *Dispatcher) removeClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	if room, ok := d.rooms[client.deliveryID]; ok {
		if room[client] {
			client.conn.Close()
			delete(room, client)
		}
		if len(room) == 0 {
			delete(d.rooms, client.deliveryID)
		}
	}
}

// Relay feeds broker events into the chat rooms: every event naming a
// delivery surfaces to that room's participants as a system frame. It returns
// when ctx ends or the event stream closes.
func (d *Dispatcher) Relay(ctx context.Context, events <-chan model.Event) {
	log := d.log.Action("chatRelay")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				log.Warn("chat event stream closed")
				return
			}
			if ev.DeliveryID == nil {
				continue
			}
			body := string(ev.Kind)
			if len(ev.Recipients) > 0 {
				body = ev.Recipients[0].Message
			}
			d.Broadcast(*ev.DeliveryID, websocketdto.ChatMessage{
				Type:       websocketdto.TypeSystem,
				DeliveryID: *ev.DeliveryID,
				Body:       body,
				SentAt:     time.Now().UTC(),
			})
		}
	}
}

// Broadcast fans a message out to every participant in the delivery's room.
func (d *Dispatcher) Broadcast(deliveryID uuid.UUID, msg websocketdto.ChatMessage) {
	d.RLock()
	defer d.RUnlock()

	for client := range d.rooms[deliveryID] {
		select {
		case client.egress <- msg:
		default:
			d.log.Warn("chat client egress full, dropping frame", "delivery_id", deliveryID.String())
		}
	}
}

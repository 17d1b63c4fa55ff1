package model

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventDeliveryCreated   EventKind = "delivery.created"
	EventDeliveryAssigned  EventKind = "delivery.assigned"
	EventDeliveryInTransit EventKind = "delivery.in_transit"
	EventDeliveryDelivered EventKind = "delivery.delivered"
	EventDeliveryCancelled EventKind = "delivery.cancelled"
	EventPaymentInitiated  EventKind = "payment.initiated"
	EventPaymentCompleted  EventKind = "payment.completed"
	EventPaymentRefunded   EventKind = "payment.refunded"
	EventPostMatched       EventKind = "post.matched"
	EventChatOpened        EventKind = "chat.opened"
)

// Recipient is one notification the event wants delivered. Type/Message map
// straight onto a Notification row, deduplicated by (user, delivery, type).
type Recipient struct {
	UserID  uuid.UUID
	Type    string
	Message string
}

// Event is an explicit domain event emitted by a state transition and handed
// to the dispatcher. There is no hidden save-hook control flow: whatever a
// transition wants to happen afterwards is listed here.
type Event struct {
	Kind       EventKind
	DeliveryID *uuid.UUID
	PostID     *uuid.UUID
	OccurredAt time.Time
	Recipients []Recipient
}

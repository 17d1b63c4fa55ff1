package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the dispatcher. At most one notification of a
// given (user, delivery, type) triple ever exists.
const (
	NotifDeliveryCreated   = "Delivery Created"
	NotifDeliveryAccepted  = "Delivery Accepted"
	NotifDeliveryInTransit = "Delivery In Transit"
	NotifDeliveryCompleted = "Delivery Completed"
	NotifDeliveryCancelled = "Delivery Cancelled"
	NotifPaymentInitiated  = "Payment Initiated"
	NotifPaymentCompleted  = "Payment Completed"
	NotifPaymentRefunded   = "Payment Refunded"
	NotifPaymentPending    = "Payment Pending"
	NotifChatOpened        = "Chat Opened"
	NotifPostMatched       = "Post Matched"
)

type Notification struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	DeliveryID *uuid.UUID
	Type       string
	Message    string
	IsRead     bool
	CreatedAt  time.Time
}

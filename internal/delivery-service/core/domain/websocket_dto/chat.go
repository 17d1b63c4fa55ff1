package websocketdto

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeChatMessage = "chat_message"
	TypeSystem      = "system"
)

// ChatMessage is one frame on a delivery's chat channel. System frames carry
// a nil sender.
type ChatMessage struct {
	Type       string     `json:"type"`
	DeliveryID uuid.UUID  `json:"delivery_id"`
	SenderID   *uuid.UUID `json:"sender_id,omitempty"`
	Body       string     `json:"body"`
	SentAt     time.Time  `json:"sent_at"`
}

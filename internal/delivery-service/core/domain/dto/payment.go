package dto

import "github.com/google/uuid"

type ConfirmPaymentDto struct {
	TransactionID string `json:"transaction_id,omitempty"`
}

type RefundPaymentDto struct {
	Amount *float64 `json:"amount"`
}

type PaymentResponseDto struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	DeliveryID   uuid.UUID `json:"delivery_id"`
	Amount       float64   `json:"amount"`
	Method       string    `json:"method"`
	Status       string    `json:"status"`
	RefundStatus string    `json:"refund_status"`
	RefundAmount float64   `json:"refund_amount,omitempty"`
}

type NotificationResponseDto struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	DeliveryID     *uuid.UUID `json:"delivery_id,omitempty"`
	Type           string     `json:"type"`
	Message        string     `json:"message"`
	IsRead         bool       `json:"is_read"`
}

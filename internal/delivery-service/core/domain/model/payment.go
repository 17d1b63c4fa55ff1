package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "Cash"
	PaymentEasyPaisa PaymentMethod = "EasyPaisa"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentRefunded  PaymentStatus = "Refunded"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = "None"
	RefundRequested RefundStatus = "Requested"
	RefundProcessed RefundStatus = "Processed"
	RefundDenied    RefundStatus = "Denied"
)

// Payment is created automatically when a costed delivery is created and
// gates the Assigned→InTransit transition until Completed.
type Payment struct {
	ID                   uuid.UUID
	DeliveryID           uuid.UUID
	UserID               uuid.UUID
	Amount               float64
	Method               PaymentMethod
	Status               PaymentStatus
	TransactionID        string
	FailureReason        string
	RetryCount           int
	RefundStatus         RefundStatus
	RefundAmount         float64
	DriverEasyPaisaPhone string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

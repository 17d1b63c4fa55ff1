package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "Pending"
	DeliveryAssigned  DeliveryStatus = "Assigned"
	DeliveryInTransit DeliveryStatus = "InTransit"
	DeliveryDelivered DeliveryStatus = "Delivered"
	DeliveryCancelled DeliveryStatus = "Cancelled"
)

// allowedTransitions is the delivery state flow as code. Assigned→Cancelled is
// allowed: the sender may cancel until the driver marks InTransit.
var allowedTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:   {DeliveryAssigned, DeliveryCancelled},
	DeliveryAssigned:  {DeliveryInTransit, DeliveryCancelled},
	DeliveryInTransit: {DeliveryDelivered},
}

func CanTransition(from, to DeliveryStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(s DeliveryStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// Address is a free-form delivery address. City is the only field matching
// cares about; the rest travels opaquely to the driver.
type Address struct {
	City    string  `json:"city"`
	Street  string  `json:"street,omitempty"`
	Details string  `json:"details,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// Delivery is one sender's shipment request, optionally bound to a driver
// post (route-bound) or a driver directly.
type Delivery struct {
	ID             uuid.UUID
	SenderID       uuid.UUID
	ReceiverID     *uuid.UUID
	DriverID       *uuid.UUID
	DriverPostID   *uuid.UUID
	PostOwnerID    *uuid.UUID
	Pickup         Address
	Dropoff        Address
	DeliveryDate   time.Time
	TotalCost      float64
	Status         DeliveryStatus
	StatusVersion  int
	ReviewEligible bool
	Packages       []Package
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TotalWeight sums the package weights of the delivery.
func (d *Delivery) TotalWeight() float64 {
	var w float64
	for _, p := range d.Packages {
		w += p.Weight
	}
	return w
}

// ResolvedDriver encapsulates the driver fallback order once: an explicitly
// assigned driver wins, otherwise the owner of the bound post.
func (d *Delivery) ResolvedDriver() (uuid.UUID, bool) {
	if d.DriverID != nil {
		return *d.DriverID, true
	}
	if d.PostOwnerID != nil {
		return *d.PostOwnerID, true
	}
	return uuid.Nil, false
}

// Committed reports whether the delivery holds capacity on its bound post.
func (d *Delivery) Committed() bool {
	return d.Status == DeliveryAssigned || d.Status == DeliveryInTransit
}

// Package is one parcel inside a delivery. Immutable after creation.
type Package struct {
	ID          uuid.UUID
	DeliveryID  uuid.UUID
	Description string
	Weight      float64
	Dimensions  string
	IsFragile   bool
	CreatedAt   time.Time
}

// DeliveryLog is an append-only audit entry for a delivery.
type DeliveryLog struct {
	ID         uuid.UUID
	DeliveryID uuid.UUID
	Action     string
	Comments   string
	Timestamp  time.Time
}

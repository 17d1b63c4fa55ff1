package dto

import "github.com/google/uuid"

type AddressDto struct {
	City    string  `json:"city"`
	Street  string  `json:"street,omitempty"`
	Details string  `json:"details,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

type PackageDto struct {
	Description string   `json:"description"`
	Weight      *float64 `json:"weight"`
	Dimensions  string   `json:"dimensions,omitempty"`
	IsFragile   bool     `json:"is_fragile"`
}

type CreateDeliveryDto struct {
	ReceiverID   *uuid.UUID   `json:"receiver_id,omitempty"`
	DriverPostID *uuid.UUID   `json:"driver_post_id,omitempty"`
	Pickup       *AddressDto  `json:"pickup_address"`
	Dropoff      *AddressDto  `json:"dropoff_address"`
	DeliveryDate *string      `json:"delivery_date"` // YYYY-MM-DD
	Packages     []PackageDto `json:"packages"`
}

type TransitionDto struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

type DeliveryResponseDto struct {
	DeliveryID   uuid.UUID  `json:"delivery_id"`
	SenderID     uuid.UUID  `json:"sender_id"`
	ReceiverID   *uuid.UUID `json:"receiver_id,omitempty"`
	DriverID     *uuid.UUID `json:"driver_id,omitempty"`
	DriverPostID *uuid.UUID `json:"driver_post_id,omitempty"`
	PickupCity   string     `json:"pickup_city"`
	DropoffCity  string     `json:"dropoff_city"`
	TotalCost    float64    `json:"total_cost"`
	Status       string     `json:"status"`
	TotalWeight  float64    `json:"total_weight"`
}

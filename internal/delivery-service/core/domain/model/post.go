package model

import (
	"time"

	"github.com/google/uuid"
)

type PostStatus string

const (
	PostActive   PostStatus = "Active"
	PostInactive PostStatus = "Inactive"
	PostExpired  PostStatus = "Expired"
	PostBooked   PostStatus = "Booked"
)

// DriverPost is a driver's advertised route: start/end city, departure
// schedule and a weight ceiling for everything committed to the trip.
type DriverPost struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	VehicleID     uuid.UUID
	StartCity     City
	EndCity       City
	DepartureDate time.Time
	DepartureTime string
	MaxWeight     float64
	Status        PostStatus
	// MatchRequests counts coarse sender match-requests against this post
	// (the non-weight-bound matching mode).
	MatchRequests int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open reports whether the post can still take deliveries.
func (p *DriverPost) Open() bool {
	return p.Status == PostActive || p.Status == PostBooked
}

// Departed reports whether the departure date is in the past relative to now.
func (p *DriverPost) Departed(now time.Time) bool {
	y1, m1, d1 := p.DepartureDate.Date()
	y2, m2, d2 := now.Date()
	departure := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return departure.Before(today)
}

// PostLog is an append-only audit entry for a driver post.
type PostLog struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	Action    string
	Comments  string
	Timestamp time.Time
}

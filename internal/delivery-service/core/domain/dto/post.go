package dto

import "github.com/google/uuid"

type CityDto struct {
	Name      string   `json:"name"`
	State     string   `json:"state,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type CreatePostDto struct {
	VehicleID     *uuid.UUID `json:"vehicle_id"`
	StartCity     *CityDto   `json:"start_city"`
	EndCity       *CityDto   `json:"end_city"`
	DepartureDate *string    `json:"departure_date"` // YYYY-MM-DD
	DepartureTime *string    `json:"departure_time"` // HH:MM
	MaxWeight     *float64   `json:"max_weight"`
}

type UpdatePostDto struct {
	DepartureDate *string  `json:"departure_date,omitempty"`
	DepartureTime *string  `json:"departure_time,omitempty"`
	MaxWeight     *float64 `json:"max_weight,omitempty"`
	Status        *string  `json:"status,omitempty"`
}

type MatchResultDto struct {
	PostID        uuid.UUID `json:"post_id"`
	MatchRequests int       `json:"match_requests"`
	PostStatus    string    `json:"post_status"`
	Message       string    `json:"message"`
}

type PostResponseDto struct {
	PostID        uuid.UUID `json:"post_id"`
	UserID        uuid.UUID `json:"user_id"`
	StartCity     string    `json:"start_city"`
	EndCity       string    `json:"end_city"`
	DepartureDate string    `json:"departure_date"`
	DepartureTime string    `json:"departure_time"`
	MaxWeight     float64   `json:"max_weight"`
	Status        string    `json:"status"`
	RemainingKg   *float64  `json:"remaining_capacity_kg,omitempty"`
}

package model

import "time"

// Venue is a restaurant or hotel owned by one user. Tables and rooms
// belong to a venue, and so do whole-venue reservations.
type Venue struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"-"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

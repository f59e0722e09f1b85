package model

import "time"

// ResourceKind distinguishes the bookable assets of a venue.
type ResourceKind string

const (
	ResourceTable ResourceKind = "TABLE"
	ResourceRoom  ResourceKind = "ROOM"
)

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	return k == ResourceTable || k == ResourceRoom
}

// ResourceStatus is the denormalized "current state" flag of a resource.
// Only the booking orchestrator writes it; DISABLED is set by venue
// management and takes the resource out of availability entirely.
type ResourceStatus string

const (
	ResourceAvailable ResourceStatus = "AVAILABLE"
	ResourceReserved  ResourceStatus = "RESERVED"
	ResourceOccupied  ResourceStatus = "OCCUPIED"
	ResourceDisabled  ResourceStatus = "DISABLED"
)

// Resource is a table or a room belonging to a venue.
//
// Fields:
//
//	ID                 – resources.id
//	VenueID            – owning venue
//	Kind               – TABLE or ROOM
//	Name               – table number or room name, unique per venue and kind
//	Capacity           – maximum number of guests
//	Status             – denormalized occupancy flag
//	Location           – table location tag (indoor, terrace, VIP…)
//	MinimumChargeCents – table minimum spend, zero when unset
//	PricePerNightCents – room nightly price
//	Amenities          – room amenity list, stored as JSON
type Resource struct {
	ID                 uint64         `json:"id"`
	VenueID            uint64         `json:"venue_id"`
	Kind               ResourceKind   `json:"kind"`
	Name               string         `json:"name"`
	Capacity           int            `json:"capacity"`
	Status             ResourceStatus `json:"status"`
	Location           string         `json:"location,omitempty"`
	MinimumChargeCents int64          `json:"minimum_charge_cents,omitempty"`
	PricePerNightCents int64          `json:"price_per_night_cents,omitempty"`
	Amenities          []string       `json:"amenities,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

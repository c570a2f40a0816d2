package model

import "time"

// Theme is an escape room scenario that can be booked.
type Theme struct {
	ID          uint64 // theme.id
	Name        string // theme.name
	Description string // theme.description
	Thumbnail   string // theme.thumbnail
}

// ReservationTime is a start time offered every day for every theme.
type ReservationTime struct {
	ID      uint64        // reservation_time.id
	StartAt time.Duration // reservation_time.start_at as offset from midnight
}

// AvailableTime reports whether a start time is still free on a date for a
// theme.
type AvailableTime struct {
	Time          ReservationTime
	AlreadyBooked bool
}

// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and the audit consumer.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// EventType names a reservation lifecycle change.
type EventType string

const (
	EventBooked     EventType = "BOOKED"
	EventWaitlisted EventType = "WAITLISTED"
	EventCanceled   EventType = "CANCELED"
	EventPromoted   EventType = "PROMOTED"
	EventDeleted    EventType = "DELETED"
)

// ReservationEventsQueue is the durable queue reservation events go to.
const ReservationEventsQueue = "reservation.events"

// ReservationEvent is published after a reservation change commits.  It
// carries enough of the reservation for consumers to log or notify without
// querying the primary database.
type ReservationEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	MemberID      uint64    `json:"member_id"`
	Date          string    `json:"date"`
	StartAt       string    `json:"start_at"`
	ThemeID       uint64    `json:"theme_id"`
	Status        string    `json:"status"`
	OccurredAt    string    `json:"occurred_at"`
}

// NewReservationEvent snapshots r as an event of type typ.
func NewReservationEvent(typ EventType, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          typ,
		ReservationID: r.ID,
		MemberID:      r.MemberID,
		Date:          r.Slot.Date.Format(model.DateLayout),
		StartAt:       model.FormatClock(r.Slot.StartAt),
		ThemeID:       r.Slot.ThemeID,
		Status:        string(r.Status),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

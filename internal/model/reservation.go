package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	// StatusSuccess holds the slot.
	StatusSuccess Status = "SUCCESS"
	// StatusWait is queued behind the holder of the slot.
	StatusWait Status = "WAIT"
	// StatusCancel is terminal; the slot (or queue position) was released.
	StatusCancel Status = "CANCEL"
)

// ParseStatus maps a filter value to a Status.  Matching ignores case and
// surrounding spaces; unknown values fail with KindInvalidStatusFilter.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusSuccess:
		return StatusSuccess, nil
	case StatusWait:
		return StatusWait, nil
	case StatusCancel:
		return StatusCancel, nil
	}
	return "", Errorf(KindInvalidStatusFilter, "unknown reservation status %q", s)
}

// Active reports whether the status still claims the slot or a queue position.
func (s Status) Active() bool {
	return s == StatusSuccess || s == StatusWait
}

// Reservation records a member's claim on a Slot.
//
// Fields:
//
//	ID        – primary key assigned by the store on insert.
//	MemberID  – member who owns the claim.
//	Slot      – date, time and theme being claimed.
//	Status    – SUCCESS, WAIT or CANCEL.
//	CreatedAt – insert time; immutable, used as the FIFO tie-break.
type Reservation struct {
	ID        uint64
	MemberID  uint64
	Slot      Slot
	Status    Status
	CreatedAt time.Time
}

// Date is shorthand for r.Slot.Date.
func (r Reservation) Date() time.Time { return r.Slot.Date }

// StartAt is shorthand for r.Slot.StartAt.
func (r Reservation) StartAt() time.Duration { return r.Slot.StartAt }

// IsOn reports whether the reservation's date is the calendar day of today.
func (r Reservation) IsOn(today time.Time) bool {
	return r.Slot.Date.Equal(DateOf(today))
}

// IsOnOrAfter reports whether the reservation's date is today or later.
func (r Reservation) IsOnOrAfter(today time.Time) bool {
	return !r.Slot.Date.Before(DateOf(today))
}

// Cancel moves a SUCCESS or WAIT reservation to CANCEL.  A SUCCESS
// reservation dated today cannot be cancelled.
func (r *Reservation) Cancel(today time.Time) error {
	switch r.Status {
	case StatusSuccess:
		if r.IsOn(today) {
			return Errorf(KindSameDayCancellationForbidden, "reservation %d is for today and cannot be cancelled", r.ID)
		}
	case StatusWait:
	default:
		return Errorf(KindInvalidTransition, "reservation %d is %s and cannot be cancelled", r.ID, r.Status)
	}
	r.Status = StatusCancel
	return nil
}

// Promote moves a WAIT reservation to SUCCESS.  Only the waitlist promotion
// path calls it.
func (r *Reservation) Promote() error {
	if r.Status != StatusWait {
		return Errorf(KindInvalidTransition, "reservation %d is %s and cannot be promoted", r.ID, r.Status)
	}
	r.Status = StatusSuccess
	return nil
}

// Package waitlist ranks WAIT reservations.  The waitlist is never stored;
// it is rebuilt from the WAIT rows on every call, so the functions here are
// pure and safe for concurrent use.
package waitlist

import (
	"slices"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// Compare orders reservations by (date, start time, created_at, id).  The
// same ordering drives both rank reporting and promotion.
func Compare(a, b model.Reservation) int {
	if c := a.Slot.Date.Compare(b.Slot.Date); c != 0 {
		return c
	}
	if a.Slot.StartAt != b.Slot.StartAt {
		if a.Slot.StartAt < b.Slot.StartAt {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Sort orders rs in place by Compare.
func Sort(rs []model.Reservation) {
	slices.SortStableFunc(rs, Compare)
}

// Waitings is a snapshot of WAIT reservations in canonical order.
type Waitings struct {
	items []model.Reservation
}

// New copies rs, keeps only WAIT reservations and sorts them.
func New(rs []model.Reservation) Waitings {
	items := make([]model.Reservation, 0, len(rs))
	for _, r := range rs {
		if r.Status == model.StatusWait {
			items = append(items, r)
		}
	}
	Sort(items)
	return Waitings{items: items}
}

// Len returns the number of waiting reservations.
func (w Waitings) Len() int { return len(w.items) }

// All returns the waiting reservations in canonical order.
func (w Waitings) All() []model.Reservation {
	return slices.Clone(w.items)
}

// FindMemberRank returns the 1-based queue position of memberID on target's
// slot.  A member holding several WAIT entries on one slot is ranked by the
// earliest of them, so every entry reports the same position.
func (w Waitings) FindMemberRank(target model.Reservation, memberID uint64) int {
	anchor := target
	for _, r := range w.items {
		if r.MemberID == memberID && r.Slot.Same(target.Slot) {
			anchor = r
			break
		}
	}
	rank := 1
	for _, r := range w.items {
		if !r.Slot.Same(anchor.Slot) {
			continue
		}
		if Compare(r, anchor) < 0 {
			rank++
		}
	}
	return rank
}

// FindFirstWaitingReservationByCanceledReservation returns the head of the
// queue on canceled's slot, or false when nobody is waiting there.
func (w Waitings) FindFirstWaitingReservationByCanceledReservation(canceled model.Reservation) (model.Reservation, bool) {
	for _, r := range w.items {
		if r.Slot.Same(canceled.Slot) {
			return r, true
		}
	}
	return model.Reservation{}, false
}

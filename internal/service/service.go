// Package service holds the reservation lifecycle, the catalog of themes and
// times, and member authentication.  Services depend only on the storage
// port in package repository and on an EventPublisher; they never see HTTP
// types.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/queue"
	"github.com/iliyamo/escape-room-reservation/internal/repository"
)

// EventPublisher delivers reservation events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// NopPublisher discards events.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// Clock supplies the current instant and the zone in which "today" is
// evaluated.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock evaluates dates in loc (UTC when nil).
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today returns the current calendar date in the clock's zone.
func (c Clock) Today() time.Time {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(now().In(loc))
}

// storeErr converts repository sentinels into domain errors.  Errors that
// are already domain errors pass through.
func storeErr(err error, notFound, duplicate string) error {
	switch {
	case err == nil:
		return nil
	case model.KindOf(err) != "":
		return err
	case errors.Is(err, repository.ErrNotFound):
		return model.Errorf(model.KindNotFound, "%s", notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return model.Errorf(model.KindDuplicateBooking, "%s", duplicate)
	}
	return err
}

func publish(ctx context.Context, p EventPublisher, evs ...queue.ReservationEvent) {
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			log.Printf("reservation-events: publish %s for reservation %d failed: %v", ev.Type, ev.ReservationID, err)
		}
	}
}

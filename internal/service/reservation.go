package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/queue"
	"github.com/iliyamo/escape-room-reservation/internal/repository"
	"github.com/iliyamo/escape-room-reservation/internal/waitlist"
)

// BookingRequest names the slot a member wants.  MemberID must already be
// resolved through ResolveMemberID.
type BookingRequest struct {
	MemberID uint64
	Date     time.Time
	TimeID   uint64
	ThemeID  uint64
}

// MemberReservation is one of a member's reservations with its queue
// position.  Rank is zero unless Status is WAIT.
type MemberReservation struct {
	model.Reservation
	Rank int
}

// CancelResult reports the cancelled reservation and, when the slot was
// handed over, the reservation promoted from the waitlist.
type CancelResult struct {
	Canceled model.Reservation
	Promoted *model.Reservation
}

// ReservationService runs the reservation lifecycle.  Every mutation runs in
// one store transaction; events are published only after it commits.
type ReservationService struct {
	store  repository.Store
	events EventPublisher
	clock  Clock
}

// NewReservationService wires the lifecycle service.  A nil publisher
// discards events.
func NewReservationService(store repository.Store, events EventPublisher, clock Clock) *ReservationService {
	if events == nil {
		events = NopPublisher{}
	}
	if clock.Now == nil {
		clock.Now = time.Now
	}
	if clock.Location == nil {
		clock.Location = time.UTC
	}
	return &ReservationService{store: store, events: events, clock: clock}
}

func (s *ReservationService) event(typ queue.EventType, r model.Reservation) queue.ReservationEvent {
	return queue.NewReservationEvent(typ, r, s.clock.Now())
}

// resolveSlot checks that the time, theme and member exist and returns the
// slot with its start time filled in.
func resolveSlot(ctx context.Context, tx repository.Store, req BookingRequest) (model.Slot, error) {
	if req.Date.IsZero() {
		return model.Slot{}, model.Errorf(model.KindInvalidArgument, "reservation date is required")
	}
	tm, err := tx.Times().FindByID(ctx, req.TimeID)
	if err != nil {
		return model.Slot{}, storeErr(err, fmt.Sprintf("reservation time %d not found", req.TimeID), "")
	}
	if _, err := tx.Themes().FindByID(ctx, req.ThemeID); err != nil {
		return model.Slot{}, storeErr(err, fmt.Sprintf("theme %d not found", req.ThemeID), "")
	}
	if _, err := tx.Members().FindByID(ctx, req.MemberID); err != nil {
		return model.Slot{}, storeErr(err, fmt.Sprintf("member %d not found", req.MemberID), "")
	}
	return model.NewSlot(req.Date, tm.ID, tm.StartAt, req.ThemeID), nil
}

// checkNoActiveClaim fails with AlreadyClaimed when memberID already holds
// SUCCESS or WAIT on slot.
func checkNoActiveClaim(ctx context.Context, tx repository.Store, memberID uint64, slot model.Slot) error {
	statuses, err := tx.Reservations().FindStatusesByMemberIDAndSlot(ctx, memberID, slot)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(statuses, model.Status.Active) {
		return model.Errorf(model.KindAlreadyClaimed, "member %d already holds a claim on %s", memberID, slot)
	}
	return nil
}

// BookSuccess claims a free slot.  It fails with NotFound when a reference
// does not resolve and with DuplicateBooking when the slot is held, including
// when a concurrent booking wins the race.
func (s *ReservationService) BookSuccess(ctx context.Context, req BookingRequest) (model.Reservation, error) {
	var res model.Reservation
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		slot, err := resolveSlot(ctx, tx, req)
		if err != nil {
			return err
		}
		held, err := tx.Reservations().ExistsBySlotAndStatus(ctx, slot, model.StatusSuccess)
		if err != nil {
			return err
		}
		if held {
			return model.Errorf(model.KindDuplicateBooking, "slot %s is already booked", slot)
		}
		if err := checkNoActiveClaim(ctx, tx, req.MemberID, slot); err != nil {
			return err
		}
		res = model.Reservation{MemberID: req.MemberID, Slot: slot, Status: model.StatusSuccess}
		return tx.Reservations().Create(ctx, &res)
	})
	if err != nil {
		return model.Reservation{}, storeErr(err, "referenced slot not found", "slot is already booked")
	}
	publish(ctx, s.events, s.event(queue.EventBooked, res))
	return res, nil
}

// BookWaiting queues the member on a slot.  A member may hold at most one
// active claim per slot; other members' WAIT rows do not block.
func (s *ReservationService) BookWaiting(ctx context.Context, req BookingRequest) (model.Reservation, error) {
	var res model.Reservation
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		slot, err := resolveSlot(ctx, tx, req)
		if err != nil {
			return err
		}
		if err := checkNoActiveClaim(ctx, tx, req.MemberID, slot); err != nil {
			return err
		}
		res = model.Reservation{MemberID: req.MemberID, Slot: slot, Status: model.StatusWait}
		return tx.Reservations().Create(ctx, &res)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Only the one-active-claim-per-member index can reject a WAIT row.
		return model.Reservation{}, model.Errorf(model.KindAlreadyClaimed,
			"member %d already holds a claim on this slot", req.MemberID)
	}
	if err != nil {
		return model.Reservation{}, storeErr(err, "referenced slot not found", "")
	}
	publish(ctx, s.events, s.event(queue.EventWaitlisted, res))
	return res, nil
}

// Cancel moves reservation id to CANCEL on behalf of caller.  When that
// leaves the slot without a holder, the head of its waitlist is promoted in
// the same transaction.
func (s *ReservationService) Cancel(ctx context.Context, caller model.Caller, id uint64) (CancelResult, error) {
	var out CancelResult
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		out = CancelResult{}
		r, err := tx.Reservations().FindByID(ctx, id)
		if err != nil {
			return storeErr(err, fmt.Sprintf("reservation %d not found", id), "")
		}
		if err := AuthorizeOwner(caller, r); err != nil {
			return err
		}
		prev := r.Status
		if err := r.Cancel(s.clock.Today()); err != nil {
			return err
		}
		err = tx.Reservations().UpdateStatus(ctx, r.ID, prev, r.Status)
		if errors.Is(err, repository.ErrConflict) {
			return model.Errorf(model.KindInvalidTransition, "reservation %d changed while being cancelled", r.ID)
		}
		if err != nil {
			return err
		}
		out.Canceled = r

		held, err := tx.Reservations().ExistsBySlotAndStatus(ctx, r.Slot, model.StatusSuccess)
		if err != nil || held {
			return err
		}
		waits, err := tx.Reservations().FindAllBySlotAndStatus(ctx, r.Slot, model.StatusWait)
		if err != nil {
			return err
		}
		// A waiter that withdrew or was removed after the read above is
		// skipped in favour of the next one in line.
		for {
			head, ok := waitlist.New(waits).FindFirstWaitingReservationByCanceledReservation(r)
			if !ok {
				return nil
			}
			err := tx.Reservations().UpdateStatus(ctx, head.ID, model.StatusWait, model.StatusSuccess)
			if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
				waits = slices.DeleteFunc(waits, func(w model.Reservation) bool { return w.ID == head.ID })
				continue
			}
			if err != nil {
				return err
			}
			if err := head.Promote(); err != nil {
				return err
			}
			out.Promoted = &head
			return nil
		}
	})
	if err != nil {
		return CancelResult{}, storeErr(err, fmt.Sprintf("reservation %d not found", id), "slot was booked concurrently")
	}
	evs := []queue.ReservationEvent{s.event(queue.EventCanceled, out.Canceled)}
	if out.Promoted != nil {
		log.Printf("reservation-service: promoted reservation %d to SUCCESS on %s after cancel of %d",
			out.Promoted.ID, out.Promoted.Slot, out.Canceled.ID)
		evs = append(evs, s.event(queue.EventPromoted, *out.Promoted))
	}
	publish(ctx, s.events, evs...)
	return out, nil
}

// ListForMember returns the member's reservations in canonical order, with
// the member's queue position attached to WAIT entries.
func (s *ReservationService) ListForMember(ctx context.Context, memberID uint64) ([]MemberReservation, error) {
	mine, err := s.store.Reservations().FindAllByMemberID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	var waitings waitlist.Waitings
	if slices.ContainsFunc(mine, func(r model.Reservation) bool { return r.Status == model.StatusWait }) {
		all, err := s.store.Reservations().FindAllByStatus(ctx, model.StatusWait)
		if err != nil {
			return nil, err
		}
		waitings = waitlist.New(all)
	}
	waitlist.Sort(mine)
	out := make([]MemberReservation, 0, len(mine))
	for _, r := range mine {
		mr := MemberReservation{Reservation: r}
		if r.Status == model.StatusWait {
			mr.Rank = waitings.FindMemberRank(r, memberID)
		}
		out = append(out, mr)
	}
	return out, nil
}

// ListWaitlist returns every WAIT reservation dated today or later in
// canonical order.
func (s *ReservationService) ListWaitlist(ctx context.Context) ([]model.Reservation, error) {
	all, err := s.store.Reservations().FindAllByStatus(ctx, model.StatusWait)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	upcoming := slices.DeleteFunc(waitlist.New(all).All(), func(r model.Reservation) bool {
		return !r.IsOnOrAfter(today)
	})
	return upcoming, nil
}

// FindByID returns reservation id or NotFound.
func (s *ReservationService) FindByID(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := s.store.Reservations().FindByID(ctx, id)
	if err != nil {
		return model.Reservation{}, storeErr(err, fmt.Sprintf("reservation %d not found", id), "")
	}
	return r, nil
}

// ListAll returns every reservation in canonical order.
func (s *ReservationService) ListAll(ctx context.Context) ([]model.Reservation, error) {
	all, err := s.store.Reservations().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	waitlist.Sort(all)
	return all, nil
}

// ListByStatus returns the reservations with the given status sorted by date
// and start time.  Unknown values fail with InvalidStatusFilter.
func (s *ReservationService) ListByStatus(ctx context.Context, status string) ([]model.Reservation, error) {
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	rs, err := s.store.Reservations().FindAllByStatus(ctx, st)
	if err != nil {
		return nil, err
	}
	waitlist.Sort(rs)
	return rs, nil
}

// ListBySearchCondition filters by theme, member and an inclusive date
// range.  Zero values leave a bound open.
func (s *ReservationService) ListBySearchCondition(ctx context.Context, cond repository.SearchCondition) ([]model.Reservation, error) {
	if !cond.DateFrom.IsZero() && !cond.DateTo.IsZero() && cond.DateFrom.After(cond.DateTo) {
		return nil, model.Errorf(model.KindInvalidArgument, "date_from %s is after date_to %s",
			cond.DateFrom.Format(model.DateLayout), cond.DateTo.Format(model.DateLayout))
	}
	rs, err := s.store.Reservations().FindAllBySearchCondition(ctx, cond)
	if err != nil {
		return nil, err
	}
	waitlist.Sort(rs)
	return rs, nil
}

// Delete hard-deletes reservation id.  It never promotes, so a SUCCESS
// reservation with members waiting behind it is refused with InUse; cancel
// it instead to hand the slot over.
func (s *ReservationService) Delete(ctx context.Context, id uint64) error {
	var deleted model.Reservation
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		r, err := tx.Reservations().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == model.StatusSuccess {
			waiting, err := tx.Reservations().ExistsBySlotAndStatus(ctx, r.Slot, model.StatusWait)
			if err != nil {
				return err
			}
			if waiting {
				return model.Errorf(model.KindInUse, "reservation %d holds %s with members waiting; cancel it instead", r.ID, r.Slot)
			}
		}
		deleted = r
		return tx.Reservations().DeleteByID(ctx, id)
	})
	if err != nil {
		return storeErr(err, fmt.Sprintf("reservation %d not found", id), "")
	}
	publish(ctx, s.events, s.event(queue.EventDeleted, deleted))
	return nil
}

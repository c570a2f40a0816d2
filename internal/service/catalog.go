package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/repository"
)

// CatalogService manages themes and the daily start times.
type CatalogService struct {
	store repository.Store
}

func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) ListThemes(ctx context.Context) ([]model.Theme, error) {
	return s.store.Themes().FindAll(ctx)
}

func (s *CatalogService) ListTimes(ctx context.Context) ([]model.ReservationTime, error) {
	return s.store.Times().FindAll(ctx)
}

// CreateTheme stores a theme.  The name is required.
func (s *CatalogService) CreateTheme(ctx context.Context, t model.Theme) (model.Theme, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return model.Theme{}, model.Errorf(model.KindInvalidArgument, "theme name is required")
	}
	if err := s.store.Themes().Create(ctx, &t); err != nil {
		return model.Theme{}, err
	}
	return t, nil
}

// CreateTime registers a start time.  Start times are unique and lie within
// one day.
func (s *CatalogService) CreateTime(ctx context.Context, startAt time.Duration) (model.ReservationTime, error) {
	if startAt < 0 || startAt >= 24*time.Hour {
		return model.ReservationTime{}, model.Errorf(model.KindInvalidArgument, "start time %s is outside one day", startAt)
	}
	t := model.ReservationTime{StartAt: startAt.Truncate(time.Minute)}
	if err := s.store.Times().Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.ReservationTime{}, model.Errorf(model.KindInUse, "start time %s already exists", model.FormatClock(t.StartAt))
		}
		return model.ReservationTime{}, err
	}
	return t, nil
}

// DeleteTime removes a start time no reservation refers to.
func (s *CatalogService) DeleteTime(ctx context.Context, id uint64) error {
	inUse, err := s.store.Reservations().ExistsByTimeID(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return model.Errorf(model.KindInUse, "reservation time %d is referenced by reservations", id)
	}
	err = s.store.Times().DeleteByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return model.Errorf(model.KindInUse, "reservation time %d is referenced by reservations", id)
	case errors.Is(err, repository.ErrNotFound):
		return model.Errorf(model.KindNotFound, "reservation time %d not found", id)
	}
	return err
}

// ListAvailableTimes returns every start time with whether it is already
// held on date for themeID.
func (s *CatalogService) ListAvailableTimes(ctx context.Context, date time.Time, themeID uint64) ([]model.AvailableTime, error) {
	if _, err := s.store.Themes().FindByID(ctx, themeID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("theme %d not found", themeID), "")
	}
	times, err := s.store.Times().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.Reservations().FindTimeIDsByDateAndThemeID(ctx, model.DateOf(date), themeID)
	if err != nil {
		return nil, err
	}
	held := make(map[uint64]bool, len(booked))
	for _, id := range booked {
		held[id] = true
	}
	out := make([]model.AvailableTime, 0, len(times))
	for _, t := range times {
		out = append(out, model.AvailableTime{Time: t, AlreadyBooked: held[t.ID]})
	}
	return out, nil
}

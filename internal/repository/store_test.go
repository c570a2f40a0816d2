package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/escape-room-reservation/internal/database"
	"github.com/iliyamo/escape-room-reservation/internal/model"
)

func openTempStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "escape.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db)
}

// tickingClock returns strictly increasing instants one second apart.
func tickingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

type fixture struct {
	member model.Member
	other  model.Member
	third  model.Member
	theme  model.Theme
	time   model.ReservationTime
	slot   model.Slot
}

func seed(t *testing.T, s Store) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		member: model.Member{Name: "K", Email: "k@example.com", PasswordHash: "x"},
		other:  model.Member{Name: "J", Email: "j@example.com", PasswordHash: "x"},
		third:  model.Member{Name: "L", Email: "l@example.com", PasswordHash: "x"},
		theme:  model.Theme{Name: "Horror"},
		time:   model.ReservationTime{StartAt: 10 * time.Hour},
	}
	require.NoError(t, s.Members().Create(ctx, &f.member))
	require.NoError(t, s.Members().Create(ctx, &f.other))
	require.NoError(t, s.Members().Create(ctx, &f.third))
	require.NoError(t, s.Themes().Create(ctx, &f.theme))
	require.NoError(t, s.Times().Create(ctx, &f.time))
	f.slot = model.NewSlot(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), f.time.ID, f.time.StartAt, f.theme.ID)
	return f
}

func TestReservationCreateAndFind(t *testing.T) {
	s := openTempStore(t).WithClock(tickingClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)))
	f := seed(t, s)
	ctx := context.Background()

	r := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
	require.NoError(t, s.Reservations().Create(ctx, &r))
	require.NotZero(t, r.ID)
	require.False(t, r.CreatedAt.IsZero())

	got, err := s.Reservations().FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.MemberID, got.MemberID)
	assert.True(t, got.Slot.Same(f.slot))
	assert.Equal(t, 10*time.Hour, got.Slot.StartAt)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	_, err = s.Reservations().FindByID(ctx, r.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecondSuccessOnSlotIsDuplicate(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()

	first := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
	require.NoError(t, s.Reservations().Create(ctx, &first))

	second := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusSuccess}
	assert.ErrorIs(t, s.Reservations().Create(ctx, &second), ErrDuplicate)

	// WAIT rows from different members and CANCEL rows may repeat on the slot.
	for _, r := range []model.Reservation{
		{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait},
		{MemberID: f.third.ID, Slot: f.slot, Status: model.StatusWait},
		{MemberID: f.third.ID, Slot: f.slot, Status: model.StatusCancel},
		{MemberID: f.third.ID, Slot: f.slot, Status: model.StatusCancel},
	} {
		require.NoError(t, s.Reservations().Create(ctx, &r))
	}

	waits, err := s.Reservations().FindAllBySlotAndStatus(ctx, f.slot, model.StatusWait)
	require.NoError(t, err)
	require.Len(t, waits, 2)
	assert.ErrorIs(t, s.Reservations().UpdateStatus(ctx, waits[0].ID, model.StatusWait, model.StatusSuccess), ErrDuplicate)

	require.NoError(t, s.Reservations().UpdateStatus(ctx, first.ID, model.StatusSuccess, model.StatusCancel))
	require.NoError(t, s.Reservations().UpdateStatus(ctx, waits[0].ID, model.StatusWait, model.StatusSuccess))
}

func TestMemberHoldsOneActiveClaimPerSlot(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	wait := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &wait))

	again := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	assert.ErrorIs(t, repo.Create(ctx, &again), ErrDuplicate)
	held := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusSuccess}
	assert.ErrorIs(t, repo.Create(ctx, &held), ErrDuplicate)

	// Cancelling releases the claim.
	require.NoError(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusCancel))
	require.NoError(t, repo.Create(ctx, &again))

	other := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &other))
}

func TestUpdateStatusComparesCurrentStatus(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	wait := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &wait))
	require.NoError(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusCancel))

	// A cancelled waiter must never be promoted.
	assert.ErrorIs(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusSuccess), ErrConflict)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusCancel), ErrConflict)

	got, err := repo.FindByID(ctx, wait.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancel, got.Status)

	held, err := repo.ExistsBySlotAndStatus(ctx, f.slot, model.StatusSuccess)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestCreateWithUnknownReferenceIsNotFound(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()

	slot := f.slot
	slot.TimeID = 999
	r := model.Reservation{MemberID: f.member.ID, Slot: slot, Status: model.StatusSuccess}
	assert.ErrorIs(t, s.Reservations().Create(ctx, &r), ErrNotFound)

	all, err := s.Reservations().FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSlotQueries(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	exists, err := repo.ExistsBySlotAndStatus(ctx, f.slot, model.StatusSuccess)
	require.NoError(t, err)
	assert.False(t, exists)

	held := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
	require.NoError(t, repo.Create(ctx, &held))
	wait := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &wait))

	exists, err = repo.ExistsBySlotAndStatus(ctx, f.slot, model.StatusSuccess)
	require.NoError(t, err)
	assert.True(t, exists)

	statuses, err := repo.FindStatusesByMemberIDAndSlot(ctx, f.other.ID, f.slot)
	require.NoError(t, err)
	assert.Equal(t, []model.Status{model.StatusWait}, statuses)

	ids, err := repo.FindTimeIDsByDateAndThemeID(ctx, f.slot.Date, f.theme.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{f.time.ID}, ids)

	inUse, err := repo.ExistsByTimeID(ctx, f.time.ID)
	require.NoError(t, err)
	assert.True(t, inUse)

	byMember, err := repo.FindAllByMemberID(ctx, f.member.ID)
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, held.ID, byMember[0].ID)

	byStatus, err := repo.FindAllByStatus(ctx, model.StatusWait)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, wait.ID, byStatus[0].ID)
}

func TestFindAllBySearchCondition(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	day := func(d int) model.Slot {
		return model.NewSlot(time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC), f.time.ID, f.time.StartAt, f.theme.ID)
	}
	for d, member := range map[int]uint64{1: f.member.ID, 2: f.other.ID, 3: f.member.ID} {
		r := model.Reservation{MemberID: member, Slot: day(d), Status: model.StatusSuccess}
		require.NoError(t, repo.Create(ctx, &r))
	}

	all, err := repo.FindAllBySearchCondition(ctx, SearchCondition{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.FindAllBySearchCondition(ctx, SearchCondition{MemberID: f.member.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	inclusive, err := repo.FindAllBySearchCondition(ctx, SearchCondition{
		ThemeID:  f.theme.ID,
		DateFrom: day(2).Date,
		DateTo:   day(3).Date,
	})
	require.NoError(t, err)
	assert.Len(t, inclusive, 2)

	none, err := repo.FindAllBySearchCondition(ctx, SearchCondition{ThemeID: f.theme.ID + 1})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteByID(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()

	r := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
	require.NoError(t, s.Reservations().Create(ctx, &r))
	require.NoError(t, s.Reservations().DeleteByID(ctx, r.ID))
	assert.ErrorIs(t, s.Reservations().DeleteByID(ctx, r.ID), ErrNotFound)
	assert.ErrorIs(t, s.Reservations().UpdateStatus(ctx, r.ID, model.StatusSuccess, model.StatusCancel), ErrNotFound)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx Store) error {
		r := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
		if err := tx.Reservations().Create(ctx, &r); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := s.Reservations().FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.InTx(ctx, func(tx Store) error {
		r := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
		return tx.InTx(ctx, func(inner Store) error { return inner.Reservations().Create(ctx, &r) })
	}))
	all, err = s.Reservations().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTimeRepository(t *testing.T) {
	s := openTempStore(t)
	f := seed(t, s)
	ctx := context.Background()

	dup := model.ReservationTime{StartAt: 10 * time.Hour}
	assert.ErrorIs(t, s.Times().Create(ctx, &dup), ErrDuplicate)

	early := model.ReservationTime{StartAt: 9*time.Hour + 30*time.Minute}
	require.NoError(t, s.Times().Create(ctx, &early))
	times, err := s.Times().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.Equal(t, early.ID, times[0].ID)

	r := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
	require.NoError(t, s.Reservations().Create(ctx, &r))
	assert.ErrorIs(t, s.Times().DeleteByID(ctx, f.time.ID), ErrConflict)
	require.NoError(t, s.Times().DeleteByID(ctx, early.ID))
	assert.ErrorIs(t, s.Times().DeleteByID(ctx, early.ID), ErrNotFound)
	_, err = s.Times().FindByID(ctx, early.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemberRepository(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	m := model.Member{Name: "Admin", Email: "  Admin@Example.com ", PasswordHash: "h", Role: model.RoleAdmin}
	require.NoError(t, s.Members().Create(ctx, &m))
	assert.Equal(t, "admin@example.com", m.Email)

	got, err := s.Members().FindByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, model.RoleAdmin, got.Role)

	dup := model.Member{Name: "Other", Email: "admin@example.com", PasswordHash: "h"}
	assert.ErrorIs(t, s.Members().Create(ctx, &dup), ErrDuplicate)

	_, err = s.Members().FindByID(ctx, m.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s := openTempStore(t).WithClock(func() time.Time { return now })
	f := seed(t, s)
	ctx := context.Background()
	tokens := s.Tokens()

	require.NoError(t, tokens.StoreRefresh(ctx, f.member.ID, "live", now.Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, f.member.ID, "stale", now.Add(-time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, f.other.ID, "other", now.Add(time.Hour)))

	id, err := tokens.ValidateRefresh(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, id)

	_, err = tokens.ValidateRefresh(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tokens.ValidateRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tokens.RevokeByHash(ctx, "live"))
	_, err = tokens.ValidateRefresh(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tokens.RevokeAllForMember(ctx, f.other.ID))
	_, err = tokens.ValidateRefresh(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

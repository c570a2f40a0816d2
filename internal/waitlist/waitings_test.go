package waitlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

var (
	today    = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tomorrow = today.AddDate(0, 0, 1)
	base     = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
)

const (
	themeHorror = 1
	hourTen     = 1
	hourEleven  = 2
	kaki        = 1
	jojo        = 2
)

func wait(id, member uint64, date time.Time, timeID uint64, createdOffset time.Duration) model.Reservation {
	start := 10 * time.Hour
	if timeID == hourEleven {
		start = 11 * time.Hour
	}
	return model.Reservation{
		ID:        id,
		MemberID:  member,
		Slot:      model.NewSlot(date, timeID, start, themeHorror),
		Status:    model.StatusWait,
		CreatedAt: base.Add(createdOffset),
	}
}

func TestFindMemberRank(t *testing.T) {
	kaki1 := wait(1, kaki, today, hourTen, 0)
	kaki2 := wait(2, kaki, tomorrow, hourTen, time.Second)
	jojo1 := wait(3, jojo, today, hourTen, 2*time.Second)
	jojo2 := wait(4, jojo, today, hourEleven, 3*time.Second)

	w := New([]model.Reservation{kaki1, kaki2, jojo1, jojo2})

	assert.Equal(t, 1, w.FindMemberRank(kaki1, kaki))
	assert.Equal(t, 1, w.FindMemberRank(kaki2, kaki))
	assert.Equal(t, 2, w.FindMemberRank(jojo1, jojo))
	assert.Equal(t, 1, w.FindMemberRank(jojo2, jojo))
}

func TestFindMemberRankUsesEarliestEntryOfMember(t *testing.T) {
	first := wait(1, jojo, today, hourTen, 0)
	kakiEntry := wait(2, kaki, today, hourTen, time.Second)
	second := wait(3, jojo, today, hourTen, 2*time.Second)

	w := New([]model.Reservation{second, kakiEntry, first})

	assert.Equal(t, 1, w.FindMemberRank(first, jojo))
	assert.Equal(t, 1, w.FindMemberRank(second, jojo))
	assert.Equal(t, 2, w.FindMemberRank(kakiEntry, kaki))
}

func TestFindMemberRankIsMonotonicInCreationOrder(t *testing.T) {
	var rs []model.Reservation
	for i := 0; i < 6; i++ {
		rs = append(rs, wait(uint64(i+1), uint64(10+i), today, hourTen, time.Duration(i)*time.Millisecond))
	}
	w := New(rs)

	prev := 0
	for _, r := range rs {
		rank := w.FindMemberRank(r, r.MemberID)
		assert.GreaterOrEqual(t, rank, prev)
		prev = rank
	}
	assert.Equal(t, len(rs), prev)
}

func TestFindMemberRankBreaksTimestampTiesByID(t *testing.T) {
	a := wait(7, kaki, today, hourTen, 0)
	b := wait(8, jojo, today, hourTen, 0)

	w := New([]model.Reservation{b, a})

	assert.Equal(t, 1, w.FindMemberRank(a, kaki))
	assert.Equal(t, 2, w.FindMemberRank(b, jojo))
}

func TestFindFirstWaitingReservationByCanceledReservation(t *testing.T) {
	canceled := wait(1, kaki, today, hourTen, 0)
	canceled.Status = model.StatusCancel
	jojoEntry := wait(2, jojo, today, hourTen, 2*time.Second)
	kakiEntry := wait(3, kaki, today, hourTen, time.Second)
	otherSlot := wait(4, jojo, today, hourEleven, -time.Hour)

	w := New([]model.Reservation{jojoEntry, otherSlot, kakiEntry})

	got, ok := w.FindFirstWaitingReservationByCanceledReservation(canceled)
	require.True(t, ok)
	assert.Equal(t, kakiEntry.ID, got.ID)
}

func TestFindFirstWaitingReservationByCanceledReservationNoMatch(t *testing.T) {
	canceled := wait(1, kaki, tomorrow, hourTen, 0)
	canceled.Status = model.StatusCancel

	w := New([]model.Reservation{wait(2, jojo, today, hourTen, 0)})

	_, ok := w.FindFirstWaitingReservationByCanceledReservation(canceled)
	assert.False(t, ok)
}

func TestNewDropsNonWaitingAndSorts(t *testing.T) {
	late := wait(1, kaki, tomorrow, hourTen, 0)
	early := wait(2, jojo, today, hourEleven, time.Hour)
	earliest := wait(3, jojo, today, hourTen, 2*time.Hour)
	held := wait(4, kaki, today, hourTen, 0)
	held.Status = model.StatusSuccess

	w := New([]model.Reservation{late, held, early, earliest})

	ids := make([]uint64, 0, w.Len())
	for _, r := range w.All() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{3, 2, 1}, ids)
}

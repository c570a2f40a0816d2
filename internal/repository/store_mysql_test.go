//go:build mysql

package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/escape-room-reservation/internal/database"
	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// openMySQLStore connects to the throwaway database named by MYSQL_TEST_*,
// applies the MySQL migrations and empties every table.
//
//	MYSQL_TEST_HOST=127.0.0.1 MYSQL_TEST_USER=root MYSQL_TEST_NAME=escape_test \
//	    go test -tags mysql ./internal/repository/
func openMySQLStore(t *testing.T) *SQLStore {
	t.Helper()
	host := os.Getenv("MYSQL_TEST_HOST")
	if host == "" {
		t.Skip("MYSQL_TEST_HOST not set")
	}
	port := os.Getenv("MYSQL_TEST_PORT")
	if port == "" {
		port = "3306"
	}
	db, err := database.Open(database.Config{
		Driver: database.DriverMySQL,
		Host:   host,
		Port:   port,
		User:   os.Getenv("MYSQL_TEST_USER"),
		Pass:   os.Getenv("MYSQL_TEST_PASS"),
		Name:   os.Getenv("MYSQL_TEST_NAME"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"reservation", "refresh_token", "reservation_time", "theme", "member"} {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err, table)
	}
	return NewSQLStore(db)
}

func TestMySQLSuccessSlotKey(t *testing.T) {
	s := openMySQLStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	held := model.Reservation{MemberID: f.member.ID, Slot: f.slot, Status: model.StatusSuccess}
	require.NoError(t, repo.Create(ctx, &held))
	second := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusSuccess}
	assert.ErrorIs(t, repo.Create(ctx, &second), ErrDuplicate)

	wait := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &wait))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusSuccess), ErrDuplicate)

	require.NoError(t, repo.UpdateStatus(ctx, held.ID, model.StatusSuccess, model.StatusCancel))
	require.NoError(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusSuccess))
}

func TestMySQLActiveClaimKey(t *testing.T) {
	s := openMySQLStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	wait := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &wait))
	again := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	assert.ErrorIs(t, repo.Create(ctx, &again), ErrDuplicate)

	require.NoError(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusCancel))
	require.NoError(t, repo.Create(ctx, &again))
	cancelled := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusCancel}
	require.NoError(t, repo.Create(ctx, &cancelled))
}

func TestMySQLUpdateStatusComparesCurrentStatus(t *testing.T) {
	s := openMySQLStore(t)
	f := seed(t, s)
	ctx := context.Background()
	repo := s.Reservations()

	wait := model.Reservation{MemberID: f.other.ID, Slot: f.slot, Status: model.StatusWait}
	require.NoError(t, repo.Create(ctx, &wait))
	require.NoError(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusCancel))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, wait.ID, model.StatusWait, model.StatusSuccess), ErrConflict)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, wait.ID+1000, model.StatusWait, model.StatusSuccess), ErrNotFound)
}

func TestMySQLConcurrentSuccessHasOneWinner(t *testing.T) {
	s := openMySQLStore(t)
	f := seed(t, s)
	ctx := context.Background()

	members := []uint64{f.member.ID, f.other.ID, f.third.ID}
	errs := make([]error, len(members))
	var wg sync.WaitGroup
	for i, id := range members {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.InTx(ctx, func(tx Store) error {
				r := model.Reservation{MemberID: id, Slot: f.slot, Status: model.StatusSuccess}
				return tx.Reservations().Create(ctx, &r)
			})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.Equal(t, 1, wins)
}

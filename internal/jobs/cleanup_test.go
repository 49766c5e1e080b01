package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dutaksim/backend/internal/models"
	"github.com/dutaksim/backend/internal/storage/sqlite"
)

type fakeStore struct {
	mu         sync.Mutex
	expireAt   []time.Time
	purgeUntil []time.Time
	err        error
}

func (f *fakeStore) ExpireSessions(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireAt = append(f.expireAt, now)
	return 1, f.err
}

func (f *fakeStore) PurgeSessions(_ context.Context, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgeUntil = append(f.purgeUntil, before)
	return 0, f.err
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expireAt)
}

func TestRunOnce_Cutoffs(t *testing.T) {
	store := &fakeStore{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewSessionCleanup(store, time.Hour, 30*24*time.Hour)
	c.now = func() time.Time { return now }
	c.RunOnce(context.Background())

	require.Len(t, store.expireAt, 1)
	assert.Equal(t, now, store.expireAt[0])
	require.Len(t, store.purgeUntil, 1)
	assert.Equal(t, time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC), store.purgeUntil[0])
}

func TestRunOnce_ErrorsDoNotStopTheSweep(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}

	NewSessionCleanup(store, time.Hour, time.Hour).RunOnce(context.Background())

	assert.Len(t, store.expireAt, 1)
	assert.Len(t, store.purgeUntil, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	c := NewSessionCleanup(store, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunOnce_SQLite(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	overdue := &models.Session{
		Code:         "OVRDUE",
		Name:         "Old tab",
		CreatorID:    "Alice",
		Participants: []models.SessionParticipant{{UserID: "Alice", Role: models.RoleCreator}},
		CreatedAt:    now.Add(-2 * time.Hour).Unix(),
		ExpiresAt:    now.Add(-time.Hour).Unix(),
	}
	require.NoError(t, store.CreateSession(ctx, overdue))

	live := &models.Session{
		Code:      "LIVE22",
		Name:      "Open tab",
		CreatorID: "Bob",
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	require.NoError(t, store.CreateSession(ctx, live))

	c := NewSessionCleanup(store, time.Hour, 24*time.Hour)
	c.now = func() time.Time { return now }
	c.RunOnce(ctx)

	got, err := store.GetSession(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, got.Status)
	assert.Empty(t, got.Participants)

	got, err = store.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, got.Status)

	// Past the retention window the expired session is removed.
	c.now = func() time.Time { return now.Add(48 * time.Hour) }
	c.RunOnce(ctx)

	_, err = store.GetSession(ctx, overdue.ID)
	require.Error(t, err)
}

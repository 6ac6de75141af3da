package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/event-locator/backend/pkg/apperr"
)

type fakeStore struct {
	start time.Time
	users []int64
	err   error
}

func (f *fakeStore) EventStart(ctx context.Context, eventID int64) (time.Time, error) {
	return f.start, f.err
}

func (f *fakeStore) InterestedUserIDs(ctx context.Context, eventID int64) ([]int64, error) {
	return f.users, nil
}

type enqueued struct {
	userID  int64
	eventID int64
	fireAt  time.Time
}

type fakeQueue struct {
	entries   []enqueued
	cancelled []int64
	err       error
}

func (f *fakeQueue) Enqueue(ctx context.Context, userID, eventID int64, fireAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, enqueued{userID: userID, eventID: eventID, fireAt: fireAt})
	return nil
}

func (f *fakeQueue) CancelForEvent(ctx context.Context, eventID int64) (int64, error) {
	f.cancelled = append(f.cancelled, eventID)
	return int64(len(f.entries)), nil
}

func newTestScheduler(store Store, q Enqueuer, now time.Time) *Scheduler {
	s := NewScheduler(store, q, 24*time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestScheduleForEventTooClose(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	// starts in 10h, so the 24h-ahead fire time has already passed
	store := &fakeStore{start: now.Add(10 * time.Hour), users: []int64{1, 2}}
	q := &fakeQueue{}

	err := newTestScheduler(store, q, now).ScheduleForEvent(context.Background(), 42)

	require.NoError(t, err)
	assert.Empty(t, q.entries)
}

func TestScheduleForEventFarEnough(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	start := now.Add(48 * time.Hour)
	store := &fakeStore{start: start, users: []int64{7, 9, 11}}
	q := &fakeQueue{}

	err := newTestScheduler(store, q, now).ScheduleForEvent(context.Background(), 42)

	require.NoError(t, err)
	require.Len(t, q.entries, 3)
	wantFireAt := start.Add(-24 * time.Hour) // 24h from now
	for i, userID := range []int64{7, 9, 11} {
		assert.Equal(t, userID, q.entries[i].userID)
		assert.Equal(t, int64(42), q.entries[i].eventID)
		assert.Equal(t, wantFireAt, q.entries[i].fireAt)
	}
}

func TestScheduleForEventExactBoundaryNotEnqueued(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	// fire time equals now; not strictly in the future, so skipped
	store := &fakeStore{start: now.Add(24 * time.Hour), users: []int64{1}}
	q := &fakeQueue{}

	err := newTestScheduler(store, q, now).ScheduleForEvent(context.Background(), 42)

	require.NoError(t, err)
	assert.Empty(t, q.entries)
}

func TestScheduleForEventNoInterestedUsers(t *testing.T) {
	now := time.Now()
	store := &fakeStore{start: now.Add(48 * time.Hour)}
	q := &fakeQueue{}

	err := newTestScheduler(store, q, now).ScheduleForEvent(context.Background(), 42)

	require.NoError(t, err)
	assert.Empty(t, q.entries)
}

func TestScheduleForEventMissingEvent(t *testing.T) {
	store := &fakeStore{err: apperr.NotFound("event not found")}
	q := &fakeQueue{}

	err := newTestScheduler(store, q, time.Now()).ScheduleForEvent(context.Background(), 42)

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, q.entries)
}

func TestScheduleForEventEnqueueErrorsAreSkipped(t *testing.T) {
	now := time.Now()
	store := &fakeStore{start: now.Add(48 * time.Hour), users: []int64{1, 2}}
	q := &fakeQueue{err: assert.AnError}

	err := newTestScheduler(store, q, now).ScheduleForEvent(context.Background(), 42)

	// per-user failures are logged, not surfaced
	require.NoError(t, err)
	assert.Empty(t, q.entries)
}

func TestCancelForEvent(t *testing.T) {
	q := &fakeQueue{}
	s := newTestScheduler(&fakeStore{}, q, time.Now())

	require.NoError(t, s.CancelForEvent(context.Background(), 42))
	assert.Equal(t, []int64{42}, q.cancelled)
}

// Package notifications schedules and delivers event reminders. The
// scheduler fans an event out to every user whose category preferences
// intersect the event's categories; deliveries wait in a durable delayed
// queue until their fire time, then the worker persists a Notification row.
package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store is the subset of repository lookups the scheduler needs.
type Store interface {
	EventStart(ctx context.Context, eventID int64) (time.Time, error)
	InterestedUserIDs(ctx context.Context, eventID int64) ([]int64, error)
}

// Enqueuer hands deliveries off to the delayed queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID, eventID int64, fireAt time.Time) error
	CancelForEvent(ctx context.Context, eventID int64) (int64, error)
}

// Scheduler computes per-user fire times for an event and enqueues deliveries.
type Scheduler struct {
	store  Store
	queue  Enqueuer
	lead   time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a scheduler that fires reminders lead before event start.
func NewScheduler(store Store, queue Enqueuer, lead time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{store: store, queue: queue, lead: lead, now: time.Now, logger: logger}
}

// FireAt returns when the reminder for an event starting at start should fire.
func (s *Scheduler) FireAt(start time.Time) time.Time {
	return start.Add(-s.lead)
}

// ScheduleForEvent enqueues a delivery for every user whose preferences match
// the event's categories. Fire times already in the past are skipped: the
// event is too close for a reminder. Re-running for the same event replaces
// the pending fire times rather than duplicating deliveries. Per-user enqueue
// failures are logged and skipped; scheduling is best-effort background work.
func (s *Scheduler) ScheduleForEvent(ctx context.Context, eventID int64) error {
	start, err := s.store.EventStart(ctx, eventID)
	if err != nil {
		return err
	}
	userIDs, err := s.store.InterestedUserIDs(ctx, eventID)
	if err != nil {
		return err
	}

	fireAt := s.FireAt(start)
	if !fireAt.After(s.now()) {
		s.logger.Debug("reminder window already passed",
			zap.Int64("event_id", eventID),
			zap.Time("fire_at", fireAt),
		)
		return nil
	}

	scheduled := 0
	for _, userID := range userIDs {
		if err := s.queue.Enqueue(ctx, userID, eventID, fireAt); err != nil {
			s.logger.Warn("enqueue delivery failed",
				zap.Int64("user_id", userID),
				zap.Int64("event_id", eventID),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	s.logger.Info("event notifications scheduled",
		zap.Int64("event_id", eventID),
		zap.Int("users", scheduled),
		zap.Time("fire_at", fireAt),
	)
	return nil
}

// CancelForEvent removes every pending delivery for an event. Called when the
// event is deleted.
func (s *Scheduler) CancelForEvent(ctx context.Context, eventID int64) error {
	removed, err := s.queue.CancelForEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("pending deliveries cancelled",
			zap.Int64("event_id", eventID),
			zap.Int64("removed", removed),
		)
	}
	return nil
}

package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/event-locator/backend/internal/models"
	"github.com/event-locator/backend/pkg/queue"
)

// DeliveryStore is the subset of repository operations the worker needs.
type DeliveryStore interface {
	PairExists(ctx context.Context, userID, eventID int64) (bool, error)
	Insert(ctx context.Context, userID, eventID int64, messageKey string, scheduledAt time.Time) (*models.Notification, error)
}

// Dequeuer claims due deliveries from the delayed queue.
type Dequeuer interface {
	DequeueDue(ctx context.Context, now time.Time, limit int64) ([]queue.Entry, error)
	Retry(ctx context.Context, e queue.Entry) error
	Forget(ctx context.Context, userID, eventID int64) error
	Subscribe(ctx context.Context, handler func(queue.ScheduledMessage)) (cancel func(), err error)
}

const dequeueBatch = 100

// Worker delivers due notifications: it re-verifies the user and event still
// exist, then persists the Notification row. Entries pending in Redis survive
// restarts; the worker picks them up on its next poll.
type Worker struct {
	store  DeliveryStore
	queue  Dequeuer
	poll   time.Duration
	logger *zap.Logger
}

// NewWorker creates a delivery worker polling at the given interval.
func NewWorker(store DeliveryStore, q Dequeuer, poll time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{store: store, queue: q, poll: poll, logger: logger}
}

// Run polls for due deliveries until ctx is done. A pub/sub subscription
// triggers an extra drain when a short-delay entry is enqueued, so deliveries
// near the poll boundary are not held a full interval.
func (w *Worker) Run(ctx context.Context) {
	wake := make(chan struct{}, 1)
	cancel, err := w.queue.Subscribe(ctx, func(m queue.ScheduledMessage) {
		if m.DelayMS <= w.poll.Milliseconds() {
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		w.logger.Warn("subscribe failed, polling only", zap.Error(err))
	} else {
		defer cancel()
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker stopping")
			return
		case <-ticker.C:
		case <-wake:
		}
		w.drain(ctx)
	}
}

// drain claims and delivers every currently due entry.
func (w *Worker) drain(ctx context.Context) {
	for {
		due, err := w.queue.DequeueDue(ctx, time.Now(), dequeueBatch)
		if err != nil {
			w.logger.Warn("dequeue error", zap.Error(err))
			return
		}
		if len(due) == 0 {
			return
		}
		for _, entry := range due {
			if err := w.deliver(ctx, entry); err != nil {
				w.logger.Error("delivery failed",
					zap.Int64("user_id", entry.UserID),
					zap.Int64("event_id", entry.EventID),
					zap.Error(err),
				)
				if reErr := w.queue.Retry(ctx, entry); reErr != nil {
					w.logger.Error("retry enqueue failed", zap.Error(reErr))
				}
				continue
			}
			if err := w.queue.Forget(ctx, entry.UserID, entry.EventID); err != nil {
				w.logger.Warn("clear retry count failed", zap.Error(err))
			}
		}
	}
}

// deliver persists one notification. A missing user or event is not an
// error: the pair was deleted while the entry waited, so the delivery is
// silently dropped.
func (w *Worker) deliver(ctx context.Context, entry queue.Entry) error {
	exists, err := w.store.PairExists(ctx, entry.UserID, entry.EventID)
	if err != nil {
		return err
	}
	if !exists {
		w.logger.Info("user or event gone, dropping delivery",
			zap.Int64("user_id", entry.UserID),
			zap.Int64("event_id", entry.EventID),
		)
		return nil
	}

	n, err := w.store.Insert(ctx, entry.UserID, entry.EventID, models.MessageKeyUpcomingEvent, entry.FireAt)
	if err != nil {
		return err
	}
	w.logger.Info("notification delivered",
		zap.Int64("notification_id", n.ID),
		zap.Int64("user_id", n.UserID),
		zap.Int64("event_id", n.EventID),
	)
	return nil
}

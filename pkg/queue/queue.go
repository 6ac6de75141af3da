// Package queue implements the durable delayed-delivery queue behind the
// notification scheduler. Pending notifications live in a Redis sorted set
// scored by their fire time, so they survive process restarts; a pub/sub
// channel carries the (userId, eventId, delay) handoff so running workers
// wake without waiting for the next poll.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// KeyScheduled is the sorted set of pending notifications, scored by
	// fire time in unix milliseconds.
	KeyScheduled = "notifications:scheduled"
	// KeyAttempts is the hash of retry counts, keyed by member.
	KeyAttempts = "notifications:attempts"
	// KeyDLQ is the dead-letter list for entries that failed delivery after retries.
	KeyDLQ = "notifications:dlq"
	// ChannelScheduled is the pub/sub channel announcing newly enqueued deliveries.
	ChannelScheduled = "event_notifications"
	// MaxRetries is the number of delivery attempts before an entry moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay applied when re-enqueuing a failed delivery.
	RetryBackoff = 10 * time.Second
)

// ScheduledMessage is the payload published on ChannelScheduled when a
// delivery is enqueued.
type ScheduledMessage struct {
	UserID  int64 `json:"userId"`
	EventID int64 `json:"eventId"`
	DelayMS int64 `json:"delay"`
}

// Entry is one pending delivery claimed from the scheduled set.
type Entry struct {
	UserID  int64
	EventID int64
	FireAt  time.Time
}

// Member returns the sorted-set member for a (user, event) pair. The member
// is deterministic and stable across retries, so re-scheduling the same pair
// always replaces the single pending entry instead of duplicating it. Retry
// counts live in the KeyAttempts hash, never in the member.
func Member(userID, eventID int64) string {
	return strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(eventID, 10)
}

// ParseMember decodes a sorted-set member back into its (user, event) pair.
func ParseMember(member string) (userID, eventID int64, err error) {
	parts := strings.Split(member, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed member %q", member)
	}
	userID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed member %q: %w", member, err)
	}
	eventID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed member %q: %w", member, err)
	}
	return userID, eventID, nil
}

// Queue persists and hands off delayed notification deliveries via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a Redis-backed delayed delivery queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// Enqueue schedules a delivery for (userID, eventID) at fireAt. A pending
// entry for the same pair is replaced (the fire time is updated in place) and
// any leftover retry count is reset. The scheduled message is also published
// so live workers can re-arm early.
func (q *Queue) Enqueue(ctx context.Context, userID, eventID int64, fireAt time.Time) error {
	member := Member(userID, eventID)
	score := float64(fireAt.UnixMilli())
	if err := q.client.ZAdd(ctx, KeyScheduled, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	if err := q.client.HDel(ctx, KeyAttempts, member).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}

	msg := ScheduledMessage{
		UserID:  userID,
		EventID: eventID,
		DelayMS: time.Until(fireAt).Milliseconds(),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.Publish(ctx, ChannelScheduled, raw).Err(); err != nil {
		// the entry is already durable; a missed wakeup only delays delivery
		// until the next worker poll
		q.logger.Warn("publish scheduled message failed", zap.Error(err))
	}

	q.logger.Debug("delivery enqueued",
		zap.Int64("user_id", userID),
		zap.Int64("event_id", eventID),
		zap.Time("fire_at", fireAt),
	)
	return nil
}

// DequeueDue claims up to limit entries whose fire time has passed. An entry
// is returned only if this call removed it from the set, so concurrent
// workers never deliver the same entry twice.
func (q *Queue) DequeueDue(ctx context.Context, now time.Time, limit int64) ([]Entry, error) {
	res, err := q.client.ZRangeByScoreWithScores(ctx, KeyScheduled, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore: %w", err)
	}

	var due []Entry
	for _, z := range res {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		removed, err := q.client.ZRem(ctx, KeyScheduled, member).Result()
		if err != nil {
			return due, fmt.Errorf("zrem: %w", err)
		}
		if removed == 0 {
			// claimed by another worker
			continue
		}
		userID, eventID, err := ParseMember(member)
		if err != nil {
			q.logger.Warn("dropping malformed entry", zap.String("member", member), zap.Error(err))
			continue
		}
		due = append(due, Entry{
			UserID:  userID,
			EventID: eventID,
			FireAt:  time.UnixMilli(int64(z.Score)),
		})
	}
	return due, nil
}

// Retry re-enqueues a failed delivery with backoff under the same member, so
// the pair still has at most one pending entry. After MaxRetries attempts the
// entry moves to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, e Entry) error {
	member := Member(e.UserID, e.EventID)
	attempt, err := q.client.HIncrBy(ctx, KeyAttempts, member, 1).Result()
	if err != nil {
		return fmt.Errorf("count attempt: %w", err)
	}
	if attempt >= MaxRetries {
		if err := q.client.RPush(ctx, KeyDLQ, member).Err(); err != nil {
			return fmt.Errorf("dlq push: %w", err)
		}
		if err := q.client.HDel(ctx, KeyAttempts, member).Err(); err != nil {
			return fmt.Errorf("clear attempts: %w", err)
		}
		q.logger.Warn("delivery moved to DLQ",
			zap.Int64("user_id", e.UserID),
			zap.Int64("event_id", e.EventID),
			zap.Int64("attempt", attempt),
		)
		return nil
	}
	score := float64(time.Now().Add(RetryBackoff).UnixMilli())
	if err := q.client.ZAdd(ctx, KeyScheduled, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("zadd retry: %w", err)
	}
	q.logger.Info("delivery retried",
		zap.Int64("user_id", e.UserID),
		zap.Int64("event_id", e.EventID),
		zap.Int64("attempt", attempt),
	)
	return nil
}

// Forget clears the retry count for a pair once its delivery resolved, so a
// later schedule of the same pair starts its retry budget fresh.
func (q *Queue) Forget(ctx context.Context, userID, eventID int64) error {
	if err := q.client.HDel(ctx, KeyAttempts, Member(userID, eventID)).Err(); err != nil {
		return fmt.Errorf("clear attempts: %w", err)
	}
	return nil
}

// CancelForEvent removes every pending entry for the given event. Invoked
// from event deletion; best effort, the worker's existence re-check remains
// the backstop.
func (q *Queue) CancelForEvent(ctx context.Context, eventID int64) (int64, error) {
	suffix := ":" + strconv.FormatInt(eventID, 10)
	var cursor uint64
	var removed int64
	for {
		members, next, err := q.client.ZScan(ctx, KeyScheduled, cursor, "*"+suffix, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("zscan: %w", err)
		}
		// ZScan interleaves members and scores
		for i := 0; i < len(members); i += 2 {
			member := members[i]
			_, evID, err := ParseMember(member)
			if err != nil || evID != eventID {
				continue
			}
			n, err := q.client.ZRem(ctx, KeyScheduled, member).Result()
			if err != nil {
				return removed, fmt.Errorf("zrem: %w", err)
			}
			if err := q.client.HDel(ctx, KeyAttempts, member).Err(); err != nil {
				return removed, fmt.Errorf("clear attempts: %w", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Subscribe listens on ChannelScheduled and invokes handler for each scheduled
// message. Returns a cancel function that stops the subscription.
func (q *Queue) Subscribe(ctx context.Context, handler func(ScheduledMessage)) (cancel func(), err error) {
	subCtx, cancelCtx := context.WithCancel(ctx)
	pubsub := q.client.Subscribe(subCtx, ChannelScheduled)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m ScheduledMessage
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					q.logger.Warn("invalid scheduled message", zap.String("raw", msg.Payload), zap.Error(err))
					continue
				}
				handler(m)
			}
		}
	}()
	return cancelCtx, nil
}

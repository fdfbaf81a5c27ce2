package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

// PendingQueue keeps one Redis list of pending notification records per
// recipient. Mutations rewrite the whole list rather than patching in place;
// the races that allows are benign (the queue is advisory, the chat history
// is the durable record).
type PendingQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func New(rdb *redis.Client, log *slog.Logger) *PendingQueue {
	return &PendingQueue{rdb: rdb, log: log}
}

// Push appends a record for the recipient. The synthetic id encodes the
// recipient and a running counter so mark-read can find its way back to the
// right queue.
func (q *PendingQueue) Push(ctx context.Context, recipient, message, sender string) error {
	existing, err := q.rdb.LRange(ctx, recipient, 0, -1).Result()
	if err != nil {
		return errors.Wrap(err, "pendingQueue.Push.LRange")
	}

	record := models.PendingNotification{
		ID:       fmt.Sprintf("r_%s_%d", recipient, 1001+len(existing)),
		SenderID: sender,
		SendTime: time.Now().Format(models.SendTimeLayout),
		Message:  message,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "pendingQueue.Push.Marshal")
	}

	values := make([]any, 0, len(existing)+1)
	for _, v := range existing {
		values = append(values, v)
	}
	values = append(values, string(data))
	return q.rewrite(ctx, recipient, values)
}

// List reads the queue without consuming it. Unparseable entries are dropped
// from the result with a log line, not surfaced as errors.
func (q *PendingQueue) List(ctx context.Context, recipient string) ([]models.PendingNotification, error) {
	raw, err := q.rdb.LRange(ctx, recipient, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "pendingQueue.List.LRange")
	}
	out := make([]models.PendingNotification, 0, len(raw))
	for _, v := range raw {
		var record models.PendingNotification
		if err := json.Unmarshal([]byte(v), &record); err != nil {
			q.log.Warn("skipping bad pending notification", "recipient", recipient, "err", err)
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// RemoveForSender drops every queued record the given sender produced,
// keeping the rest in order.
func (q *PendingQueue) RemoveForSender(ctx context.Context, recipient, sender string) error {
	return q.filter(ctx, recipient, func(record models.PendingNotification) bool {
		return record.SenderID != sender
	})
}

// RemoveByID consumes a single record on read. The recipient key is embedded
// in the synthetic id.
func (q *PendingQueue) RemoveByID(ctx context.Context, notificationID string) error {
	parts := strings.SplitN(notificationID, "_", 3)
	if len(parts) != 3 || parts[0] != "r" {
		return errors.Errorf("pendingQueue.RemoveByID: bad id %q", notificationID)
	}
	recipient := parts[1]
	return q.filter(ctx, recipient, func(record models.PendingNotification) bool {
		return record.ID != notificationID
	})
}

// Clear drops the recipient's entire queue.
func (q *PendingQueue) Clear(ctx context.Context, recipient string) error {
	if err := q.rdb.Del(ctx, recipient).Err(); err != nil {
		return errors.Wrap(err, "pendingQueue.Clear.Del")
	}
	return nil
}

func (q *PendingQueue) filter(ctx context.Context, recipient string, keep func(models.PendingNotification) bool) error {
	raw, err := q.rdb.LRange(ctx, recipient, 0, -1).Result()
	if err != nil {
		return errors.Wrap(err, "pendingQueue.filter.LRange")
	}

	kept := make([]any, 0, len(raw))
	for _, v := range raw {
		var record models.PendingNotification
		if err := json.Unmarshal([]byte(v), &record); err != nil {
			continue
		}
		if keep(record) {
			kept = append(kept, v)
		}
	}
	return q.rewrite(ctx, recipient, kept)
}

func (q *PendingQueue) rewrite(ctx context.Context, recipient string, values []any) error {
	pipe := q.rdb.TxPipeline()
	pipe.Del(ctx, recipient)
	if len(values) > 0 {
		pipe.RPush(ctx, recipient, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "pendingQueue.rewrite")
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/pkg/config"
	"github.com/medtrack/medtrack-api/pkg/jobs"
)

// Notifier delivers a notification to a recipient. Delivery is
// fire-and-forget: implementations swallow and log failures, and callers must
// never treat a missing notification as a failed operation.
type Notifier interface {
	Notify(recipientID string, payload models.NotificationPayload)
}

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// QueueNotifier persists notifications asynchronously through a worker queue.
type QueueNotifier struct {
	store  notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewQueueNotifier builds the notifier with its backing queue.
func NewQueueNotifier(store notificationStore, cfg config.NotificationsConfig, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &QueueNotifier{store: store, logger: logger}
	n.queue = jobs.NewQueue("notifications", n.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return n
}

// Start boots the dispatch workers.
func (n *QueueNotifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the workers.
func (n *QueueNotifier) Stop() {
	n.queue.Stop()
}

// Notify enqueues a notification. The payload variant carries its own kind;
// this is the single place dispatching on it.
func (n *QueueNotifier) Notify(recipientID string, payload models.NotificationPayload) {
	if recipientID == "" || payload == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("notification payload marshal failed", zap.String("kind", string(payload.Kind())), zap.Error(err))
		return
	}

	notification := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Kind:        payload.Kind(),
		Payload:     raw,
		CreatedAt:   time.Now().UTC(),
	}

	if err := n.queue.Enqueue(jobs.Job{ID: notification.ID, Type: string(notification.Kind), Payload: notification}); err != nil {
		n.logger.Warn("notification enqueue failed",
			zap.String("recipient", recipientID),
			zap.String("kind", string(notification.Kind)),
			zap.Error(err))
	}
}

func (n *QueueNotifier) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(*models.Notification)
	if !ok {
		n.logger.Warn("unexpected notification job payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := n.store.Create(ctx, notification); err != nil {
		return err
	}
	n.logger.Debug("notification delivered",
		zap.String("recipient", notification.RecipientID),
		zap.String("kind", string(notification.Kind)))
	return nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type notificationReader interface {
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
}

// NotificationService exposes a user's notification feed.
type NotificationService struct {
	repo   notificationReader
	logger *zap.Logger
}

// NewNotificationService builds a NotificationService.
func NewNotificationService(repo notificationReader, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the caller's newest notifications.
func (s *NotificationService) List(ctx context.Context, claims *models.JWTClaims, limit int) ([]models.Notification, error) {
	notifications, err := s.repo.ListForRecipient(ctx, claims.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead stamps one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/chat"
	"github.com/hopeforeverybody/chat-service/internal/models"
)

// NotificationStore persists durable notification records.
type NotificationStore struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewNotificationStore(db *gorm.DB, log *slog.Logger) *NotificationStore {
	return &NotificationStore{db: db, log: log}
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(n).Error, "notificationStore.Create")
}

// ListForUser applies the role filter. Providers see incoming connection
// requests, clients see their accept/reject outcomes, admins and sub-admins
// see everything addressed to them.
func (s *NotificationStore) ListForUser(ctx context.Context, userID, roleType string) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	switch roleType {
	case models.RoleServiceProvider:
		q = q.Where("type IN ?", []string{chat.TypeSendRequest, chat.TypeBroadcast, chat.TypeChatRequest})
	case models.RoleClient:
		q = q.Where("type IN ?", []string{chat.TypeAcceptRequest, chat.TypeRejectRequest, chat.TypeBroadcast, chat.TypeChatRequest})
	}

	var notifications []models.Notification
	if err := q.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, errors.Wrap(err, "notificationStore.ListForUser")
	}
	return notifications, nil
}

// DeleteOnRead removes the record; reading a notification consumes it.
func (s *NotificationStore) DeleteOnRead(ctx context.Context, notificationID uint) error {
	res := s.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "notificationStore.DeleteOnRead")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotificationMissing
	}
	return nil
}

// DeleteAllExceptBroadcast clears the user's records but keeps broadcasts.
func (s *NotificationStore) DeleteAllExceptBroadcast(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type <> ?", userID, chat.TypeBroadcast).
		Delete(&models.Notification{}).Error
	return errors.Wrap(err, "notificationStore.DeleteAllExceptBroadcast")
}

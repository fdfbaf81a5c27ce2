package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/models"
)

// ChatStore is the gorm-backed persisted chat store.
type ChatStore struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewChatStore(db *gorm.DB, log *slog.Logger) *ChatStore {
	return &ChatStore{db: db, log: log}
}

func (s *ChatStore) CreateSession(ctx context.Context, sender, receiver, opening string) (*models.Chat, error) {
	session := &models.Chat{
		SenderID:   sender,
		ReceiverID: receiver,
		Message:    opening,
		DeletedBy:  datatypes.JSON([]byte("[]")),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, errors.Wrap(err, "chatStore.CreateSession")
	}
	return session, nil
}

// FindSession matches either orientation of the pair; the newest session wins
// so archived (ended/deleted) predecessors never shadow the active thread.
func (s *ChatStore) FindSession(ctx context.Context, a, b string) (*models.Chat, error) {
	var session models.Chat
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("chat_id DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.FindSession")
	}
	return &session, nil
}

func (s *ChatStore) SessionByID(ctx context.Context, chatID uint) (*models.Chat, error) {
	var session models.Chat
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.SessionByID")
	}
	return &session, nil
}

func (s *ChatStore) AppendMessage(ctx context.Context, chatID uint, sender, text string, atts []models.Attachment) (*models.Message, error) {
	if atts == nil {
		atts = []models.Attachment{}
	}
	attJSON, err := json.Marshal(atts)
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.AppendMessage.Marshal")
	}

	message := &models.Message{
		ChatID:     chatID,
		SenderID:   sender,
		Attachment: datatypes.JSON(attJSON),
	}
	if text != "" {
		message.Body = &text
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("chat_id = ?", chatID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.AppendMessage")
	}
	return message, nil
}

func (s *ChatStore) MarkRead(ctx context.Context, chatID uint, senderToMark string) error {
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_id = ?", chatID, senderToMark).
		Update("is_read", true).Error
	return errors.Wrap(err, "chatStore.MarkRead")
}

func (s *ChatStore) MarkMessageRead(ctx context.Context, messageID uint) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).Where("message_id = ?", messageID).First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrMessageNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.MarkMessageRead")
	}
	message.IsRead = true
	if err := s.db.WithContext(ctx).Model(&message).Update("is_read", true).Error; err != nil {
		return nil, errors.Wrap(err, "chatStore.MarkMessageRead.Update")
	}
	return &message, nil
}

func (s *ChatStore) MarkAllRead(ctx context.Context, chatID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ?", chatID).
		Update("is_read", true).Error
	return errors.Wrap(err, "chatStore.MarkAllRead")
}

func (s *ChatStore) EndSession(ctx context.Context, chatID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("chat_id = ?", chatID).
		Updates(map[string]any{"end_chat": true, "updated_at": time.Now()}).Error
	return errors.Wrap(err, "chatStore.EndSession")
}

// SoftDeleteSession flags the session and its messages deleted and records
// who deleted their view. Rows are never physically removed.
func (s *ChatStore) SoftDeleteSession(ctx context.Context, chatID uint, byUser string) error {
	session, err := s.SessionByID(ctx, chatID)
	if err != nil {
		return err
	}
	if session == nil {
		return apperr.ErrChatNotFound
	}

	deletedBy := session.DeletedByList()
	present := false
	for _, id := range deletedBy {
		if id == byUser {
			present = true
			break
		}
	}
	if !present {
		deletedBy = append(deletedBy, byUser)
	}
	deletedByJSON, err := json.Marshal(deletedBy)
	if err != nil {
		return errors.Wrap(err, "chatStore.SoftDeleteSession.Marshal")
	}

	now := time.Now()
	return errors.Wrap(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Chat{}).
			Where("chat_id = ?", chatID).
			Updates(map[string]any{
				"is_deleted": true,
				"deleted_at": now,
				"deleted_by": datatypes.JSON(deletedByJSON),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Message{}).
			Where("chat_id = ?", chatID).
			Updates(map[string]any{"is_deleted": true, "deleted_at": now}).Error
	}), "chatStore.SoftDeleteSession")
}

func (s *ChatStore) ListMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.ListMessages")
	}
	return messages, nil
}

// ListSessions returns the user's visible threads: not ended, not deleted by
// this user, newest activity first.
func (s *ChatStore) ListSessions(ctx context.Context, userID string) ([]models.Chat, error) {
	var sessions []models.Chat
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?)", userID, userID).
		Where("end_chat = ?", false).
		Where("deleted_by IS NULL OR NOT deleted_by @> ?", `["`+userID+`"]`).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.ListSessions")
	}
	return sessions, nil
}

func (s *ChatStore) UnreadCount(ctx context.Context, chatID uint, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		Count(&count).Error
	return count, errors.Wrap(err, "chatStore.UnreadCount")
}

func (s *ChatStore) LastMessage(ctx context.Context, chatID uint) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.LastMessage")
	}
	return &message, nil
}

// MediaMessages returns the session's non-deleted messages so callers can
// flatten out their attachment lists.
func (s *ChatStore) MediaMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("sent_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "chatStore.MediaMessages")
	}
	return messages, nil
}

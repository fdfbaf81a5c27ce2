package chat

import (
	"context"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

// Collaborator contracts the chat core consumes. The store and cache packages
// provide the production implementations; tests use in-memory fakes.

// SessionStore is the persisted chat store: sessions, messages, read and
// soft-delete flags.
type SessionStore interface {
	CreateSession(ctx context.Context, sender, receiver, opening string) (*models.Chat, error)
	// FindSession matches either orientation of the pair and returns the most
	// recent session, or nil when the pair has never talked.
	FindSession(ctx context.Context, a, b string) (*models.Chat, error)
	SessionByID(ctx context.Context, chatID uint) (*models.Chat, error)
	AppendMessage(ctx context.Context, chatID uint, sender, text string, atts []models.Attachment) (*models.Message, error)
	// MarkRead flips every message in the session sent by senderToMark.
	MarkRead(ctx context.Context, chatID uint, senderToMark string) error
	EndSession(ctx context.Context, chatID uint) error
	SoftDeleteSession(ctx context.Context, chatID uint, byUser string) error
	ListMessages(ctx context.Context, chatID uint) ([]models.Message, error)
}

// UserDirectory resolves identities, roles and the provider-side subscription
// flags the prospective-chat rule needs.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	// ActiveSubscription returns the plan behind the user's active or trial
	// membership; (nil, nil) means no membership, which the core treats as
	// no restriction.
	ActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	AdminIDs(ctx context.Context) ([]string, error)
}

// PendingCache is the offline notification queue: an ordered list per
// recipient, rewritten whole on every mutation.
type PendingCache interface {
	Push(ctx context.Context, recipient, message, sender string) error
	List(ctx context.Context, recipient string) ([]models.PendingNotification, error)
	RemoveForSender(ctx context.Context, recipient, sender string) error
	RemoveByID(ctx context.Context, notificationID string) error
	Clear(ctx context.Context, recipient string) error
}

// NotificationStore holds durable notification records (broadcasts and
// request-status events).
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	// ListForUser applies the role filter: providers see connection requests,
	// clients see accept/reject outcomes, broadcasts reach everyone addressed.
	ListForUser(ctx context.Context, userID, roleType string) ([]models.Notification, error)
	DeleteOnRead(ctx context.Context, notificationID uint) error
	DeleteAllExceptBroadcast(ctx context.Context, userID string) error
}

// TranscriptMailer delivers transcript emails. Failures are logged by the
// task queue, never propagated to the chat loop.
type TranscriptMailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

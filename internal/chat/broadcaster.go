package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/models"
)

// Notification event types. The duplex notification protocol and the durable
// store share this closed set.
const (
	TypeBroadcast      = "BROADCAST_NOTIFICATION_SEND"
	TypeSendRequest    = "SEND_REQUEST_NOTIFY"
	TypeAcceptRequest  = "ACCEPT_REQUEST"
	TypeRejectRequest  = "REJECT_REQUEST"
	TypeProviderSignup = "New_Provider_SignUp_Notification"
	TypeChatRequest    = "CHAT_REQUEST"
	TypeChatMessage    = "MESSAGE"
)

// Broadcaster fans one event out to many recipients and serves the merged
// notification inbox. Broadcasts are always durably recorded; the live push
// on top is best-effort UI sugar.
type Broadcaster struct {
	registry *Registry
	store    NotificationStore
	cache    PendingCache
	users    UserDirectory
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, store NotificationStore, cache PendingCache, users UserDirectory, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		store:    store,
		cache:    cache,
		users:    users,
		log:      log,
	}
}

// BroadcastEvent is the live payload for admin broadcasts.
type BroadcastEvent struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// RequestEvent carries connection-request status changes.
type RequestEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatRequestEvent announces a freshly started chat to its receiver.
type ChatRequestEvent struct {
	Type       string `json:"type"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Message    string `json:"message"`
}

// Broadcast persists one durable record per recipient and attempts a live
// push on top. Push failures are non-fatal; a store failure aborts, since the
// durable record is the contract.
func (b *Broadcaster) Broadcast(ctx context.Context, recipients []string, title, message, sender string) error {
	for _, recipient := range recipients {
		record := &models.Notification{
			UserID:  recipient,
			Title:   title,
			Message: message,
			Type:    TypeBroadcast,
		}
		if err := b.store.Create(ctx, record); err != nil {
			return errors.Wrapf(err, "broadcast: storing record for %s", recipient)
		}
		b.registry.Send(recipient, BroadcastEvent{
			Type:      TypeBroadcast,
			Recipient: recipient,
			Message:   message,
		})
	}
	b.log.Info("broadcast sent", "recipients", len(recipients), "sender", sender)
	return nil
}

// NotifyRequest pushes a connection-request status change to its
// counterparty: send goes to the provider, accept/reject go to the client.
// Push-only; the durable record for these comes in through the REST surface.
func (b *Broadcaster) NotifyRequest(ctx context.Context, kind, clientID, providerID string) error {
	switch kind {
	case TypeSendRequest:
		client, err := b.users.UserByID(ctx, clientID)
		if err != nil {
			return apperr.ErrSenderNotFound
		}
		b.registry.Send(providerID, RequestEvent{
			Type:    kind,
			Message: fmt.Sprintf("New Request: %s wants to connect with you.", client.DisplayName()),
		})
	case TypeAcceptRequest:
		provider, err := b.users.UserByID(ctx, providerID)
		if err != nil {
			return apperr.ErrSenderNotFound
		}
		b.registry.Send(clientID, RequestEvent{
			Type:    kind,
			Message: fmt.Sprintf("Your request has been accepted by %s.", provider.DisplayName()),
		})
	case TypeRejectRequest:
		provider, err := b.users.UserByID(ctx, providerID)
		if err != nil {
			return apperr.ErrSenderNotFound
		}
		b.registry.Send(clientID, RequestEvent{
			Type:    kind,
			Message: fmt.Sprintf("Your request was rejected by %s.", provider.DisplayName()),
		})
	default:
		return errors.Errorf("unknown request notification kind %q", kind)
	}
	return nil
}

// NotifyProviderSignup pings every connected admin about a new provider.
func (b *Broadcaster) NotifyProviderSignup(ctx context.Context) error {
	admins, err := b.users.AdminIDs(ctx)
	if err != nil {
		return err
	}
	for _, admin := range admins {
		b.registry.Send(admin, RequestEvent{Type: TypeProviderSignup})
	}
	return nil
}

// NotifyChatRequest durably records a start-chat notification for the
// receiver and pushes the event live.
func (b *Broadcaster) NotifyChatRequest(ctx context.Context, session *models.Chat, senderName, message string) error {
	record := &models.Notification{
		UserID:  session.ReceiverID,
		Title:   "Start Chat",
		Message: fmt.Sprintf("Start chat with %s", message),
		Type:    TypeChatRequest,
	}
	if err := b.store.Create(ctx, record); err != nil {
		return err
	}
	b.registry.Send(session.ReceiverID, ChatRequestEvent{
		Type:       TypeChatRequest,
		ChatID:     strconv.FormatUint(uint64(session.ChatID), 10),
		SenderID:   session.SenderID,
		SenderName: senderName,
		Message:    message,
	})
	return nil
}

// InboxItem is one entry of the merged notification feed. Durable records
// carry their numeric id; chat pending notifications keep their synthetic
// "r_" id so mark-read can route back to the cache.
type InboxItem struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
	SenderName     string    `json:"user_name"`
}

// Inbox merges the role-filtered durable records with the offline chat queue
// into one feed, newest first.
func (b *Broadcaster) Inbox(ctx context.Context, userID string) ([]InboxItem, error) {
	user, err := b.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	durable, err := b.store.ListForUser(ctx, userID, user.RoleType)
	if err != nil {
		return nil, err
	}
	pending, err := b.cache.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]InboxItem, 0, len(durable)+len(pending))
	for _, n := range durable {
		items = append(items, InboxItem{
			NotificationID: strconv.FormatUint(uint64(n.NotificationID), 10),
			UserID:         n.UserID,
			Title:          n.Title,
			Message:        n.Message,
			IsRead:         n.IsRead,
			Type:           n.Type,
			CreatedAt:      n.CreatedAt,
		})
	}
	for _, p := range pending {
		created, _ := time.ParseInLocation(models.SendTimeLayout, p.SendTime, time.Local)
		senderName := ""
		if sender, err := b.users.UserByID(ctx, p.SenderID); err == nil {
			senderName = sender.DisplayName()
		}
		items = append(items, InboxItem{
			NotificationID: p.ID,
			UserID:         p.SenderID,
			Message:        p.Message,
			Type:           TypeChatMessage,
			CreatedAt:      created,
			SenderName:     senderName,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// MarkRead consumes a notification: read and consumed are the same thing
// here, so both backends delete on read.
func (b *Broadcaster) MarkRead(ctx context.Context, notificationID string) error {
	if strings.HasPrefix(notificationID, "r_") {
		return b.cache.RemoveByID(ctx, notificationID)
	}
	id, err := strconv.ParseUint(notificationID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "markRead: bad notification id %q", notificationID)
	}
	return b.store.DeleteOnRead(ctx, uint(id))
}

// ClearAll wipes the user's offline queue and durable records. Broadcast
// records survive as an audit trail.
func (b *Broadcaster) ClearAll(ctx context.Context, userID string) error {
	if err := b.cache.Clear(ctx, userID); err != nil {
		return err
	}
	return b.store.DeleteAllExceptBroadcast(ctx, userID)
}

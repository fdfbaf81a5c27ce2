package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn captures writes and can be told to fail, standing in for a live
// websocket connection.
type fakeConn struct {
	mu        sync.Mutex
	writes    [][]byte
	failWrite bool
	closed    bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, io.EOF
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrite {
		return errors.New("write on broken pipe")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) lastWrite() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return ""
	}
	return string(c.writes[len(c.writes)-1])
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeSessionStore is an in-memory SessionStore.
type fakeSessionStore struct {
	mu       sync.Mutex
	nextChat uint
	nextMsg  uint
	sessions map[uint]*models.Chat
	messages []*models.Message

	failAppend bool
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uint]*models.Chat{}}
}

func (s *fakeSessionStore) CreateSession(_ context.Context, sender, receiver, opening string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChat++
	session := &models.Chat{
		ChatID:     s.nextChat,
		SenderID:   sender,
		ReceiverID: receiver,
		Message:    opening,
		CreatedAt:  time.Now(),
	}
	s.sessions[session.ChatID] = session
	return session, nil
}

func (s *fakeSessionStore) FindSession(_ context.Context, a, b string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Chat
	for _, session := range s.sessions {
		match := (session.SenderID == a && session.ReceiverID == b) ||
			(session.SenderID == b && session.ReceiverID == a)
		if match && (latest == nil || session.ChatID > latest.ChatID) {
			latest = session
		}
	}
	return latest, nil
}

func (s *fakeSessionStore) SessionByID(_ context.Context, chatID uint) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[chatID], nil
}

func (s *fakeSessionStore) AppendMessage(_ context.Context, chatID uint, sender, text string, atts []models.Attachment) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return nil, errors.New("storage down")
	}
	s.nextMsg++
	message := &models.Message{
		MessageID: s.nextMsg,
		ChatID:    chatID,
		SenderID:  sender,
		SentAt:    time.Now(),
	}
	if text != "" {
		message.Body = &text
	}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *fakeSessionStore) MarkRead(_ context.Context, chatID uint, senderToMark string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ChatID == chatID && m.SenderID == senderToMark {
			m.IsRead = true
		}
	}
	return nil
}

func (s *fakeSessionStore) EndSession(_ context.Context, chatID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[chatID]
	if !ok {
		return apperr.ErrChatNotFound
	}
	session.EndChat = true
	return nil
}

func (s *fakeSessionStore) SoftDeleteSession(_ context.Context, chatID uint, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[chatID]
	if !ok {
		return apperr.ErrChatNotFound
	}
	session.IsDeleted = true
	return nil
}

func (s *fakeSessionStore) ListMessages(_ context.Context, chatID uint) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeSessionStore) messagesFor(chatID uint) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, 0)
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	users  map[string]*models.User
	subs   map[string]*models.Subscription
	admins []string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users: map[string]*models.User{},
		subs:  map[string]*models.Subscription{},
	}
}

func (u *fakeUsers) add(user *models.User) { u.users[user.UUID] = user }

func (u *fakeUsers) UserByID(_ context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return user, nil
}

func (u *fakeUsers) ActiveSubscription(_ context.Context, userID string) (*models.Subscription, error) {
	return u.subs[userID], nil
}

func (u *fakeUsers) AdminIDs(_ context.Context) ([]string, error) {
	return u.admins, nil
}

// fakeCache is an in-memory PendingCache with the same list semantics as the
// Redis queue.
type fakeCache struct {
	mu       sync.Mutex
	queues   map[string][]models.PendingNotification
	failPush bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{queues: map[string][]models.PendingNotification{}}
}

func (c *fakeCache) Push(_ context.Context, recipient, message, sender string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPush {
		return errors.New("cache down")
	}
	record := models.PendingNotification{
		ID:       fmt.Sprintf("r_%s_%d", recipient, 1001+len(c.queues[recipient])),
		SenderID: sender,
		SendTime: time.Now().Format(models.SendTimeLayout),
		Message:  message,
	}
	c.queues[recipient] = append(c.queues[recipient], record)
	return nil
}

func (c *fakeCache) List(_ context.Context, recipient string) ([]models.PendingNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.PendingNotification(nil), c.queues[recipient]...), nil
}

func (c *fakeCache) RemoveForSender(_ context.Context, recipient, sender string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.queues[recipient][:0]
	for _, record := range c.queues[recipient] {
		if record.SenderID != sender {
			kept = append(kept, record)
		}
	}
	c.queues[recipient] = kept
	return nil
}

func (c *fakeCache) RemoveByID(_ context.Context, notificationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := strings.SplitN(notificationID, "_", 3)
	if len(parts) != 3 {
		return errors.Errorf("bad id %q", notificationID)
	}
	recipient := parts[1]
	kept := c.queues[recipient][:0]
	for _, record := range c.queues[recipient] {
		if record.ID != notificationID {
			kept = append(kept, record)
		}
	}
	c.queues[recipient] = kept
	return nil
}

func (c *fakeCache) Clear(_ context.Context, recipient string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.queues, recipient)
	return nil
}

func (c *fakeCache) queueFor(recipient string) []models.PendingNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.PendingNotification(nil), c.queues[recipient]...)
}

// fakeNotificationStore is an in-memory NotificationStore.
type fakeNotificationStore struct {
	mu      sync.Mutex
	nextID  uint
	records []*models.Notification
}

func (s *fakeNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.NotificationID = s.nextID
	n.CreatedAt = time.Now()
	s.records = append(s.records, n)
	return nil
}

func (s *fakeNotificationStore) ListForUser(_ context.Context, userID, roleType string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var allowed []string
	switch roleType {
	case models.RoleServiceProvider:
		allowed = []string{TypeSendRequest, TypeBroadcast, TypeChatRequest}
	case models.RoleClient:
		allowed = []string{TypeAcceptRequest, TypeRejectRequest, TypeBroadcast, TypeChatRequest}
	}
	out := make([]models.Notification, 0)
	for _, n := range s.records {
		if n.UserID != userID {
			continue
		}
		if allowed != nil {
			ok := false
			for _, t := range allowed {
				if n.Type == t {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *fakeNotificationStore) DeleteOnRead(_ context.Context, notificationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.records {
		if n.NotificationID == notificationID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotificationMissing
}

func (s *fakeNotificationStore) DeleteAllExceptBroadcast(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, n := range s.records {
		if n.UserID == userID && n.Type != TypeBroadcast {
			continue
		}
		kept = append(kept, n)
	}
	s.records = kept
	return nil
}

func (s *fakeNotificationStore) recordsFor(userID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range s.records {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

// fakeMailer records transcript sends.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) sentMails() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

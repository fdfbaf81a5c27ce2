package handlers

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/chat"
	"github.com/hopeforeverybody/chat-service/internal/models"
	"github.com/hopeforeverybody/chat-service/internal/store"
)

// ChatHandler is the REST surface over chat sessions and messages. Anything
// shared with the duplex protocol lives in the chat package; this layer only
// parses requests and shapes responses.
type ChatHandler struct {
	registry    *chat.Registry
	dispatcher  *chat.Dispatcher
	resolver    *chat.Resolver
	broadcaster *chat.Broadcaster
	store       *store.ChatStore
	users       *store.UserStore
	cache       chat.PendingCache
	attachments *chat.AttachmentProcessor
	log         *slog.Logger
}

func NewChatHandler(
	registry *chat.Registry,
	dispatcher *chat.Dispatcher,
	resolver *chat.Resolver,
	broadcaster *chat.Broadcaster,
	chatStore *store.ChatStore,
	users *store.UserStore,
	cache chat.PendingCache,
	attachments *chat.AttachmentProcessor,
	log *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		registry:    registry,
		dispatcher:  dispatcher,
		resolver:    resolver,
		broadcaster: broadcaster,
		store:       chatStore,
		users:       users,
		cache:       cache,
		attachments: attachments,
		log:         log,
	}
}

type startChatRequest struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}

// StartChat POST /api/chat/start
//
// Resolves the pair's active session or creates one; a fresh session also
// notifies the receiver with a chat request.
func (h *ChatHandler) StartChat(c *fiber.Ctx) error {
	var req startChatRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidArg("invalid request body"))
	}
	if req.ReceiverID == "" {
		return respondError(c, apperr.ErrRecipientMissing)
	}
	caller := callerID(c)

	session, created, err := h.resolver.ResolveOrCreate(c.Context(), caller, req.ReceiverID, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	if created {
		senderName := ""
		if sender, err := h.users.UserByID(c.Context(), caller); err == nil {
			senderName = sender.DisplayName()
		}
		if err := h.broadcaster.NotifyChatRequest(c.Context(), session, senderName, req.Message); err != nil {
			h.log.Error("chat request notification", "chat_id", session.ChatID, "err", err)
		}
	}

	return c.JSON(fiber.Map{
		"chat_id":  session.ChatID,
		"created":  created,
		"end_chat": session.EndChat,
	})
}

// SendMessage POST /api/chat/:chat_id/message
//
// Multipart alternative to the duplex frame: a text field plus zero or more
// already-binary file parts. Delivery follows the same single-path rule as
// the socket, live push or offline queue, never both.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	chatID, err := paramChatID(c)
	if err != nil {
		return respondError(c, err)
	}
	caller := callerID(c)

	session, err := h.store.SessionByID(c.Context(), chatID)
	if err != nil {
		return respondError(c, err)
	}
	if session == nil {
		return respondError(c, apperr.ErrChatNotFound)
	}
	recipient := session.ReceiverID
	if recipient == caller {
		recipient = session.SenderID
	}

	text := c.FormValue("message")
	var atts []models.Attachment
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				h.log.Warn("skipping unreadable upload", "name", fh.Filename, "err", err)
				continue
			}
			att, err := h.attachments.SaveUpload(fh.Filename, fh.Header.Get(fiber.HeaderContentType), f)
			f.Close()
			if err != nil {
				h.log.Warn("skipping failed upload", "name", fh.Filename, "err", err)
				continue
			}
			atts = append(atts, *att)
		}
	}
	if text == "" && len(atts) == 0 {
		return respondError(c, apperr.ErrEmptyMessage)
	}

	message, err := h.store.AppendMessage(c.Context(), chatID, caller, text, atts)
	if err != nil {
		return respondError(c, err)
	}

	payload := chat.DeliveredMessage{
		Sender:      caller,
		Receiver:    recipient,
		Message:     text,
		Attachments: atts,
	}
	if !h.registry.Send(recipient, payload) {
		if err := h.cache.Push(c.Context(), recipient, text, caller); err != nil {
			h.log.Error("queueing offline notification", "recipient", recipient, "err", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// chatSummary is one row of the chat list, the session plus everything the
// sidebar needs about the other participant.
type chatSummary struct {
	ChatID          uint      `json:"chat_id"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	ProfileImg      string    `json:"profile_img"`
	RoleType        string    `json:"role_type"`
	Region          string    `json:"region"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int64     `json:"unread_count"`
	Online          bool      `json:"online"`
}

// ListChats GET /api/chats?name=
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	caller := callerID(c)
	nameFilter := strings.ToLower(strings.TrimSpace(c.Query("name")))

	sessions, err := h.store.ListSessions(c.Context(), caller)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]chatSummary, 0, len(sessions))
	for _, s := range sessions {
		otherID := s.ReceiverID
		if otherID == caller {
			otherID = s.SenderID
		}
		other, err := h.users.UserByID(c.Context(), otherID)
		if err != nil {
			h.log.Warn("skipping chat with unknown counterpart", "chat_id", s.ChatID, "user", otherID)
			continue
		}
		name := other.DisplayName()
		if nameFilter != "" && !strings.Contains(strings.ToLower(name), nameFilter) {
			continue
		}

		summary := chatSummary{
			ChatID:     s.ChatID,
			UserID:     other.UUID,
			UserName:   name,
			ProfileImg: other.ProfileImg,
			RoleType:   other.RoleType,
			Region:     other.Region(),
			Online:     h.registry.IsConnected(other.UUID),
		}
		if last, err := h.store.LastMessage(c.Context(), s.ChatID); err == nil && last != nil {
			summary.LastMessage = last.Text()
			summary.LastMessageTime = last.SentAt
		}
		if unread, err := h.store.UnreadCount(c.Context(), s.ChatID, caller); err == nil {
			summary.UnreadCount = unread
		}
		out = append(out, summary)
	}
	return c.JSON(out)
}

// ListMessages GET /api/chat/:chat_id/messages
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	chatID, err := paramChatID(c)
	if err != nil {
		return respondError(c, err)
	}
	messages, err := h.store.ListMessages(c.Context(), chatID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// ListMedia GET /api/chat/:chat_id/media
//
// Flattens the session's attachment lists into one gallery feed.
func (h *ChatHandler) ListMedia(c *fiber.Ctx) error {
	chatID, err := paramChatID(c)
	if err != nil {
		return respondError(c, err)
	}
	messages, err := h.store.MediaMessages(c.Context(), chatID)
	if err != nil {
		return respondError(c, err)
	}

	media := make([]models.Attachment, 0)
	for _, m := range messages {
		media = append(media, m.Attachments()...)
	}
	return c.JSON(media)
}

// MarkMessageRead PATCH /api/message/:message_id/read
func (h *ChatHandler) MarkMessageRead(c *fiber.Ctx) error {
	messageID, err := strconv.ParseUint(c.Params("message_id"), 10, 64)
	if err != nil {
		return respondError(c, apperr.InvalidArg("invalid message id"))
	}
	message, err := h.store.MarkMessageRead(c.Context(), uint(messageID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(message)
}

// MarkAllRead PATCH /api/chat/:chat_id/read
//
// Marks the whole session read and clears the caller's offline queue of the
// counterpart's entries.
func (h *ChatHandler) MarkAllRead(c *fiber.Ctx) error {
	chatID, err := paramChatID(c)
	if err != nil {
		return respondError(c, err)
	}
	caller := callerID(c)

	session, err := h.store.SessionByID(c.Context(), chatID)
	if err != nil {
		return respondError(c, err)
	}
	if session == nil {
		return respondError(c, apperr.ErrChatNotFound)
	}
	if err := h.store.MarkAllRead(c.Context(), chatID); err != nil {
		return respondError(c, err)
	}

	other := session.ReceiverID
	if other == caller {
		other = session.SenderID
	}
	if err := h.cache.RemoveForSender(c.Context(), caller, other); err != nil {
		h.log.Error("clearing pending notifications", "user", caller, "from", other, "err", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// EndChat POST /api/chat/:chat_id/end
func (h *ChatHandler) EndChat(c *fiber.Ctx) error {
	chatID, err := paramChatID(c)
	if err != nil {
		return respondError(c, err)
	}
	session, err := h.dispatcher.EndChat(c.Context(), chatID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// DeleteChat DELETE /api/chat/:chat_id
func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	chatID, err := paramChatID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.store.SoftDeleteSession(c.Context(), chatID, callerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func paramChatID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("chat_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ErrChatIDMissing
	}
	return uint(id), nil
}

package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/chat"
)

// NotificationHandler is the REST surface over the merged notification inbox.
type NotificationHandler struct {
	broadcaster *chat.Broadcaster
	log         *slog.Logger
}

func NewNotificationHandler(broadcaster *chat.Broadcaster, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{broadcaster: broadcaster, log: log}
}

type broadcastRequest struct {
	Recipients []string `json:"recipients"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
}

// Create POST /api/notifications
//
// Admin broadcast over REST; the duplex notification socket accepts the same
// event shape.
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req broadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidArg("invalid request body"))
	}
	if len(req.Recipients) == 0 || req.Message == "" {
		return respondError(c, apperr.InvalidArg("recipients and message are required"))
	}
	if err := h.broadcaster.Broadcast(c.Context(), req.Recipients, req.Title, req.Message, callerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "Broadcast sent successfully"})
}

// List GET /api/notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	items, err := h.broadcaster.Inbox(c.Context(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	if len(items) == 0 {
		return respondError(c, apperr.ErrNoNotifications)
	}
	return c.JSON(items)
}

// MarkRead PATCH /api/notifications/:notification_id/read
//
// Reading consumes: the record is deleted from whichever backend holds it.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	notificationID := c.Params("notification_id")
	if notificationID == "" {
		return respondError(c, apperr.InvalidArg("notification id is required"))
	}
	if err := h.broadcaster.MarkRead(c.Context(), notificationID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearAll DELETE /api/notifications
func (h *NotificationHandler) ClearAll(c *fiber.Ctx) error {
	if err := h.broadcaster.ClearAll(c.Context(), callerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

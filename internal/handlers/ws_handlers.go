package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/contrib/websocket"

	"github.com/hopeforeverybody/chat-service/internal/chat"
)

// SocketHandler owns the two duplex endpoints: the chat socket carries
// message frames, the notification socket carries broadcast and request
// events. Each endpoint has its own registry so a user can hold both open.
type SocketHandler struct {
	chatRegistry   *chat.Registry
	notifyRegistry *chat.Registry
	dispatcher     *chat.Dispatcher
	broadcaster    *chat.Broadcaster
	log            *slog.Logger
}

func NewSocketHandler(
	chatRegistry *chat.Registry,
	notifyRegistry *chat.Registry,
	dispatcher *chat.Dispatcher,
	broadcaster *chat.Broadcaster,
	log *slog.Logger,
) *SocketHandler {
	return &SocketHandler{
		chatRegistry:   chatRegistry,
		notifyRegistry: notifyRegistry,
		dispatcher:     dispatcher,
		broadcaster:    broadcaster,
		log:            log,
	}
}

// ChatSocket GET /api/ws/chat?user_id=
//
// The receive loop never dies on a bad frame; in-band error strings go back
// on the same socket and the next frame is read as usual.
func (h *SocketHandler) ChatSocket(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		_ = c.WriteMessage(websocket.TextMessage, []byte("user_id is required"))
		_ = c.Close()
		return
	}

	client := h.chatRegistry.Register(userID, c)
	defer h.chatRegistry.Unregister(client)

	ctx := context.Background()
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		if reply := h.dispatcher.HandleFrame(ctx, userID, raw); reply != "" {
			if err := client.WriteText(reply); err != nil {
				return
			}
		}
	}
}

// notifyFrame is an inbound command on the notification socket.
type notifyFrame struct {
	Type       string   `json:"type"`
	Recipients []string `json:"recipients"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	ClientID   string   `json:"client_id"`
	ProviderID string   `json:"provider_id"`
}

// NotificationSocket GET /api/ws/notifications/:user_id
func (h *SocketHandler) NotificationSocket(c *websocket.Conn) {
	userID := c.Params("user_id")
	if userID == "" {
		_ = c.WriteMessage(websocket.TextMessage, []byte("user_id is required"))
		_ = c.Close()
		return
	}

	client := h.notifyRegistry.Register(userID, c)
	defer h.notifyRegistry.Unregister(client)

	ctx := context.Background()
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		var f notifyFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			if err := client.WriteText("Invalid JSON format"); err != nil {
				return
			}
			continue
		}
		h.handleNotifyFrame(ctx, client, userID, f)
	}
}

func (h *SocketHandler) handleNotifyFrame(ctx context.Context, client *chat.Client, userID string, f notifyFrame) {
	var err error
	status := ""
	switch f.Type {
	case chat.TypeBroadcast:
		if len(f.Recipients) == 0 || f.Message == "" {
			h.writeJSON(client, map[string]string{"error": "Missing recipients or message"})
			return
		}
		err = h.broadcaster.Broadcast(ctx, f.Recipients, f.Title, f.Message, userID)
		status = "Broadcast sent successfully"
	case chat.TypeSendRequest, chat.TypeAcceptRequest, chat.TypeRejectRequest:
		err = h.broadcaster.NotifyRequest(ctx, f.Type, f.ClientID, f.ProviderID)
		status = "Notification sent successfully"
	case chat.TypeProviderSignup:
		err = h.broadcaster.NotifyProviderSignup(ctx)
		status = "Notification sent successfully"
	default:
		err = nil
		status = "Unknown notification type"
	}

	reply := map[string]string{"type": f.Type, "status": status}
	if err != nil {
		h.log.Error("notification frame failed", "type", f.Type, "user", userID, "err", err)
		reply["status"] = "Error sending notification"
	}
	h.writeJSON(client, reply)
}

func (h *SocketHandler) writeJSON(client *chat.Client, reply map[string]string) {
	data, _ := json.Marshal(reply)
	_ = client.Write(data)
}

package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hopeforeverybody/chat-service/internal/chat"
)

// stubConn captures writes for socket handler tests.
type stubConn struct {
	mu     sync.Mutex
	writes []string
}

func (c *stubConn) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }

func (c *stubConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) lastWrite() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return ""
	}
	return c.writes[len(c.writes)-1]
}

func newSocketTestHandler() (*SocketHandler, *chat.Registry) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	chatRegistry := chat.NewRegistry(log)
	notifyRegistry := chat.NewRegistry(log)
	// The validation paths under test reply before touching collaborators.
	broadcaster := chat.NewBroadcaster(notifyRegistry, nil, nil, nil, log)
	return NewSocketHandler(chatRegistry, notifyRegistry, nil, broadcaster, log), notifyRegistry
}

func TestNotifyFrameBroadcastMissingFields(t *testing.T) {
	h, registry := newSocketTestHandler()
	conn := &stubConn{}
	client := registry.Register("admin", conn)

	h.handleNotifyFrame(context.Background(), client, "admin", notifyFrame{
		Type: chat.TypeBroadcast,
	})
	assert.JSONEq(t, `{"error": "Missing recipients or message"}`, conn.lastWrite())

	h.handleNotifyFrame(context.Background(), client, "admin", notifyFrame{
		Type:       chat.TypeBroadcast,
		Recipients: []string{"u1"},
	})
	assert.JSONEq(t, `{"error": "Missing recipients or message"}`, conn.lastWrite())
}

func TestNotifyFrameUnknownType(t *testing.T) {
	h, registry := newSocketTestHandler()
	conn := &stubConn{}
	client := registry.Register("admin", conn)

	h.handleNotifyFrame(context.Background(), client, "admin", notifyFrame{Type: "BOGUS"})
	assert.JSONEq(t, `{"type": "BOGUS", "status": "Unknown notification type"}`, conn.lastWrite())
}

package chat

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// ConnLike is the slice of *websocket.Conn the registry needs; tests swap in
// fakes.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client pairs a user identity with one live duplex connection. Writes are
// serialized so concurrent pushes from other users' loops cannot interleave
// frames on the wire.
type Client struct {
	UserID string
	conn   ConnLike
	mu     sync.Mutex
}

func (c *Client) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WriteText sends a plain in-band error/status string.
func (c *Client) WriteText(s string) error {
	return c.Write([]byte(s))
}

func (c *Client) Close() error {
	return c.conn.Close()
}

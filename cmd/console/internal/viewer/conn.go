package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/noemamarkets/pulse/pkg/protocol"
)

// Message is a server reply with the frame payload kept raw so the board can
// decode it per section.
type Message struct {
	protocol.WSResponse
	Data json.RawMessage `json:"data,omitempty"`
}

// Sender sends one request to the dashboard.
type Sender interface {
	Send(req protocol.WSRequest) error
}

// Conn is the viewer's websocket connection. Writes are serialized; reads
// happen only in Listen.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func Dial(ctx context.Context, addr string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Send(req protocol.WSRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(req)
}

// Listen reads messages until the connection fails and hands each one to
// handle. Undecodable messages are skipped.
func (c *Conn) Listen(handle func(Message)) error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		var msg Message
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		handle(msg)
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	return c.ws.Close()
}

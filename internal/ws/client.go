package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rental-chat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	inboundBuffer  = 16
)

var invalidFrame, _ = json.Marshal(models.OutboundEvent{
	Event: models.EventError,
	Data:  models.ErrorNotice{Message: "Invalid payload."},
})

// Client owns one websocket connection. Reads and writes each run on their
// own goroutine; send is never closed, done signals shutdown instead.
type Client struct {
	info ConnInfo
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, info ConnInfo, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}
	return &Client{
		info: info,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.info.ConnID
}

// enqueue queues payload without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump decodes frames into inbound until the connection fails, then
// closes inbound. It returns the read error as the close reason.
func (c *Client) readPump(inbound chan<- models.InboundEvent) error {
	defer close(inbound)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.Event == "" {
			c.enqueue(invalidFrame)
			continue
		}
		select {
		case inbound <- ev:
		case <-c.done:
			return nil
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

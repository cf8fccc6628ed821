package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/codefionn/kael/internal/assistant"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/pty"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Client is one websocket connection to the terminal.
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	backend Backend
	log     *logger.Logger

	send      chan *Message
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	subMu sync.Mutex
	sub   *pty.Subscription
	wg    sync.WaitGroup
}

// NewClient creates a client for conn.
func NewClient(hub *Hub, conn *websocket.Conn, backend Backend, log *logger.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()[:8]
	return &Client{
		ID:      id,
		hub:     hub,
		conn:    conn,
		backend: backend,
		log:     log.WithPrefix("client " + id),
		send:    make(chan *Message, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// enqueue hands msg to the write pump. It blocks while the queue is full so
// terminal output backs up into the subscription, which drops the oldest
// chunks.
func (c *Client) enqueue(msg *Message) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	}
}

// attach streams sess output to the client, replacing any earlier
// subscription.
func (c *Client) attach(sess *pty.Session) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.ctx.Err() != nil {
		return
	}
	if c.sub != nil {
		c.sub.Close()
	}
	sub := sess.Subscribe()
	c.sub = sub

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for chunk := range sub.C() {
			c.enqueue(&Message{Type: MessageTypeOutput, Data: string(chunk)})
		}
		select {
		case <-sess.Done():
		default:
			// Replaced by a newer subscription.
			return
		}
		// Closed means the session was shut down on purpose (restart or
		// server stop); only Dead means the shell itself exited.
		if c.ctx.Err() != nil || sess.State() != pty.Dead {
			return
		}
		exit := &Message{Type: MessageTypeExit}
		if err := sess.Err(); err != nil {
			exit.Data = err.Error()
		}
		c.enqueue(exit)
	}()
}

// shutdown stops the client's goroutines and closes the connection. It is
// safe to call more than once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.subMu.Lock()
		if c.sub != nil {
			c.sub.Close()
		}
		c.subMu.Unlock()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	})
}

// ReadPump reads frames until the connection ends.
func (c *Client) ReadPump() {
	defer func() {
		c.shutdown()
		c.wg.Wait()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("read: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(&Message{Type: MessageTypeError, Data: "invalid message: " + err.Error()})
			continue
		}
		c.handleMessage(&msg)
	}
}

// WritePump writes queued messages and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug("write: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeInput:
		if err := c.backend.Terminal().WriteLine(msg.Data); err != nil {
			c.enqueue(&Message{Type: MessageTypeError, Data: "Terminal error: " + err.Error()})
		}

	case MessageTypePrompt:
		// Chat answers can take a while; keep reading meanwhile.
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.reply(c.backend.Submit(c.ctx, msg.Data))
		}()

	case MessageTypeResize:
		if msg.Rows == 0 || msg.Cols == 0 {
			c.enqueue(&Message{Type: MessageTypeError, Data: "resize needs rows and cols"})
			return
		}
		if err := c.backend.Terminal().Resize(msg.Rows, msg.Cols); err != nil {
			c.enqueue(&Message{Type: MessageTypeError, Data: "Terminal error: " + err.Error()})
		}

	case MessageTypeRestart:
		sess, err := c.backend.RestartTerminal(c.ctx)
		if err != nil {
			c.enqueue(&Message{Type: MessageTypeError, Data: "Terminal error: " + err.Error()})
		}
		c.hub.Attach(sess)
		c.hub.Broadcast(&Message{Type: MessageTypeSystem, Data: "terminal restarted", Timestamp: time.Now()})

	default:
		c.log.Warn("unknown message type: %s", msg.Type)
		c.enqueue(&Message{Type: MessageTypeError, Data: "unknown message type: " + msg.Type})
	}
}

func (c *Client) reply(r assistant.Reply) {
	switch r.Kind {
	case assistant.ReplyCommand:
		// Output arrives on the terminal stream.
	case assistant.ReplyChat:
		c.enqueue(&Message{
			Type:      MessageTypeReply,
			Data:      r.Text,
			Provider:  r.Provider.Label(),
			Model:     r.Model,
			Status:    r.Status,
			Timestamp: time.Now(),
		})
	default:
		c.enqueue(&Message{Type: MessageTypeError, Data: r.Text, Detail: r.Detail})
	}
}

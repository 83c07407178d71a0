package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pixora/pixora/backend-go/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	sendBuffer = 64
)

// Client is one editor connection. It owns the editing session for its
// project until it disconnects or another connection takes over.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	session    *session.Session
	dispatcher *Dispatcher

	UserID    string
	ProjectID string
	ClientID  string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, projectID, clientID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		UserID:    userID,
		ProjectID: projectID,
		ClientID:  clientID,
	}
}

// Attach binds the client to its session. It must be called before the
// pumps start.
func (c *Client) Attach(s *session.Session, d *Dispatcher) {
	c.session = s
	c.dispatcher = d
}

// Notify forwards background session outcomes to the editor.
func (c *Client) Notify(n session.Notice) {
	switch n.Type {
	case "saved":
		c.Send(&Message{Type: TypeSaved})
	case "save_failed":
		payload, _ := json.Marshal(SavePayload{Error: n.Err.Error()})
		c.Send(&Message{Type: TypeSaveFailed, Payload: payload})
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.close(websocket.StatusNormalClosure, "")
		if c.session != nil {
			c.session.Dispose()
		}
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "user", c.UserID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "user", c.UserID)
			continue
		}

		c.Send(c.dispatcher.Handle(ctx, &msg))
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) Send(msg *Message) {
	msg.ProjectID = c.ProjectID
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID, "type", msg.Type)
	}
}

// retire saves pending edits if possible, tells the editor why it is being
// dropped and closes the connection.
func (c *Client) retire(ctx context.Context, why string) {
	if c.session != nil {
		if err := c.session.Save(ctx); err != nil {
			slog.Debug("save before close", "error", err, "project", c.ProjectID)
		}
	}
	if c.conn != nil {
		data, _ := json.Marshal(&Message{Type: why, ProjectID: c.ProjectID})
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
			slog.Debug("write close notice", "error", err, "project", c.ProjectID)
		}
		cancel()
	}
	c.close(websocket.StatusGoingAway, why)
	if c.session != nil {
		c.session.Dispose()
	}
}

func (c *Client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close(code, reason)
		}
	})
}

// Done is closed once the client has been shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

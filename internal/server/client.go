package server

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client represents a single live-feed WebSocket connection. The feed is
// mostly one-way; the only inbound messages are pings and read receipts.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	userID        uuid.UUID
	clientID      string
	notifications repository.NotificationRepository
	lastActivity  time.Time
	log           *logger.Logger
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type           string    `json:"type"`
	NotificationID uuid.UUID `json:"notification_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, clientID string, notifications repository.NotificationRepository, log *logger.Logger) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		userID:        userID,
		clientID:      clientID,
		notifications: notifications,
		lastActivity:  time.Now(),
		log:           log,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastActivity = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("live feed unexpected close user=%s: %v", c.userID, err)
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.lastActivity = time.Now()

		if err := c.handleMessage(message); err != nil {
			c.log.Errorf("live feed handle message user=%s: %v", c.userID, err)
		}
	}
}

func (c *Client) handleMessage(message []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	switch msg.Type {
	case "read":
		return c.notifications.MarkRead(context.Background(), msg.NotificationID, c.userID)
	case "ping":
		c.send <- []byte(`{"type":"pong"}`)
		return nil
	default:
		c.log.Warnf("live feed unknown message type %q user=%s", msg.Type, c.userID)
		return nil
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

			if time.Since(c.lastActivity) > pongWait*2 {
				c.log.Infof("live feed client idle timeout user=%s", c.userID)
				return
			}
		}
	}
}

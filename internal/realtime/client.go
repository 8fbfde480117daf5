package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Memberships answers whether an account belongs to a conversation, used to
// authorize join-conversation signals.
type Memberships interface {
	IsParticipant(ctx context.Context, conversationID, accountID uint) (bool, error)
}

// Client is one socket connection owned by an authenticated account.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	accountID   uint
	rooms       map[uint]struct{}
	memberships Memberships
}

// NewClient wraps an upgraded connection and registers it with the hub. The
// caller must start ReadPump and WritePump.
func NewClient(hub *Hub, conn *websocket.Conn, accountID uint, memberships Memberships) *Client {
	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		accountID:   accountID,
		rooms:       make(map[uint]struct{}),
		memberships: memberships,
	}
	hub.register <- client
	return client
}

// ReadPump consumes inbound signals until the connection drops.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug().Err(err).Uint("account_id", c.accountID).Msg("socket read failed")
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.hub.logger.Debug().Err(err).Uint("account_id", c.accountID).Msg("dropping malformed frame")
			continue
		}
		var signal roomSignal
		if err := json.Unmarshal(envelope.Data, &signal); err != nil || signal.ConversationID == 0 {
			continue
		}

		switch envelope.Event {
		case signalJoin:
			ok, err := c.memberships.IsParticipant(ctx, signal.ConversationID, c.accountID)
			if err != nil {
				c.hub.logger.Warn().Err(err).Uint("conversation_id", signal.ConversationID).Msg("membership check failed")
				continue
			}
			if ok {
				c.hub.join(c, signal.ConversationID)
			}
		case signalLeave:
			c.hub.leave(c, signal.ConversationID)
		case signalTypingStart, signalTypingStop:
			c.relayTyping(signal.ConversationID, envelope.Event == signalTypingStart)
		}
	}
}

// relayTyping forwards a typing signal to the other members of a room the
// client has joined. Nothing is persisted.
func (c *Client) relayTyping(conversationID uint, typing bool) {
	c.hub.mu.RLock()
	_, joined := c.rooms[conversationID]
	c.hub.mu.RUnlock()
	if !joined {
		return
	}
	event := signalTypingStop
	if typing {
		event = signalTypingStart
	}
	data, err := json.Marshal(typingEvent{
		ConversationID: conversationID,
		AccountID:      c.accountID,
		Typing:         typing,
	})
	if err != nil {
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	c.hub.enqueue(conversationID, frame, c)
}

// WritePump flushes outbound frames and keeps the connection alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

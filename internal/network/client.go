package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Player action types accepted over the socket.
const (
	ActionDig              = "DIG"
	ActionPurchase         = "PURCHASE"
	ActionSelectDifficulty = "SELECT_DIFFICULTY"
	ActionReset            = "RESET"
)

var errUnknownAction = errors.New("unknown action")

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type    string          `json:"type"`    // "DIG", "PURCHASE", "SELECT_DIFFICULTY", "RESET"
	Payload json.RawMessage `json:"payload"` // Action-specific data
}

// PurchasePayload is the payload of a PURCHASE action.
type PurchasePayload struct {
	Index int `json:"index"`
}

// DifficultyPayload is the payload of a SELECT_DIFFICULTY action.
type DifficultyPayload struct {
	Difficulty string `json:"difficulty"`
}

// ResetPayload is the payload of a RESET action.
type ResetPayload struct {
	Confirm bool `json:"confirm"`
}

// Client holds one WebSocket connection. The hub owns the send channel.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.opts.SendBuffer),
	}
}

// Register adds the client to the hub and queues the current view for it.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		return
	}
	view := c.hub.engine.View()
	c.hub.sendTo(c, Message{Kind: MsgKindState, State: &view})
}

// ReadPump pumps commands from the websocket connection to the engine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", zap.Error(err))
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse PlayerAction from WebSocket", zap.Error(err))
			c.reject(err)
			continue
		}

		if err := c.handlePlayerAction(ctx, action); err != nil {
			c.hub.logger.Debug("PlayerAction refused",
				zap.String("type", action.Type),
				zap.Error(err),
			)
			c.reject(err)
		}
	}
}

func (c *Client) handlePlayerAction(ctx context.Context, action PlayerAction) error {
	// Rate limiting, digs only. Menu actions are rare.
	if action.Type == ActionDig {
		if time.Since(c.lastActionTime) < c.hub.opts.ActionMinInterval {
			return nil
		}
		c.lastActionTime = time.Now()
	}

	eng := c.hub.engine
	switch action.Type {
	case ActionDig:
		return eng.ManualDig()

	case ActionPurchase:
		var p PurchasePayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return err
		}
		_, err := eng.PurchaseUpgrade(p.Index)
		return err

	case ActionSelectDifficulty:
		var p DifficultyPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return err
		}
		return eng.SelectDifficulty(ctx, difficulty.Difficulty(p.Difficulty))

	case ActionReset:
		var p ResetPayload
		if len(action.Payload) > 0 {
			if err := json.Unmarshal(action.Payload, &p); err != nil {
				return err
			}
		}
		_, err := eng.ResetGame(ctx, p.Confirm)
		return err

	default:
		return errUnknownAction
	}
}

// reject tells this client why its command changed nothing.
func (c *Client) reject(err error) {
	c.hub.sendTo(c, Message{Kind: MsgKindError, Error: err.Error()})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The presentation layer may be served from another origin
	},
}

// ServeWS upgrades the request and attaches a client to the hub.
func ServeWS(ctx context.Context, hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	client := NewClient(hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump(ctx)
}

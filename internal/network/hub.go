package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
	"github.com/MRamiBalles/WellBuilder/server/internal/engine"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/metrics"
)

// GameEngine is the command and read surface the transports need.
type GameEngine interface {
	ManualDig() error
	PurchaseUpgrade(index int) (upgrade.Upgrade, error)
	SelectDifficulty(ctx context.Context, d difficulty.Difficulty) error
	ResetGame(ctx context.Context, confirmed bool) (bool, error)
	View() engine.View
	GetEventLog() *events.EventLog
}

// MessageKind tags a server to client envelope.
type MessageKind string

const (
	MsgKindEvent MessageKind = "event"
	MsgKindState MessageKind = "state"
	MsgKindError MessageKind = "error"
)

// Message is the envelope of everything pushed to the presentation layer.
type Message struct {
	Kind  MessageKind       `json:"kind"`
	Event *events.GameEvent `json:"event,omitempty"`
	State *engine.View      `json:"state,omitempty"`
	Error string            `json:"error,omitempty"`
}

// HubOptions tune the hub. Zero values select the defaults.
type HubOptions struct {
	SendBuffer        int
	ActionMinInterval time.Duration
	PollInterval      time.Duration
}

type unicast struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan unicast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	engine     GameEngine
	opts       HubOptions
}

// NewHub initializes a new WebSocket Hub.
func NewHub(eng GameEngine, log *logger.Logger, opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	return &Hub{
		broadcast:  make(chan []byte, opts.SendBuffer),
		direct:     make(chan unicast),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		engine:     eng,
		opts:       opts,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case m := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[m.client]; ok {
				h.deliver(m.client, m.payload)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues a payload for one client, dropping clients that cannot keep up.
// Caller holds h.mu.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
		metrics.Get().RecordWSMessage(false)
	default:
		close(client.send)
		delete(h.clients, client)
		metrics.Get().RecordWSConnection(-1)
		metrics.Get().RecordWSError()
		h.logger.Warn("Dropping slow WebSocket client")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes msg and sends it to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for WebSocket broadcast", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// BroadcastEvent pushes one engine event to every client.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	h.Broadcast(Message{Kind: MsgKindEvent, Event: &event})
}

// BroadcastState pushes the current view to every client.
func (h *Hub) BroadcastState() {
	view := h.engine.View()
	h.Broadcast(Message{Kind: MsgKindState, State: &view})
}

// sendTo queues msg for a single client.
func (h *Hub) sendTo(client *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for WebSocket client", zap.Error(err))
		return
	}
	select {
	case h.direct <- unicast{client: client, payload: payload}:
	case <-h.done:
	}
}

// StartEventPoller spawns a goroutine that forwards new events, then the fresh view, to the clients.
// Events are tracked by sequence number so trimming of the log never replays or skips a batch.
func (h *Hub) StartEventPoller(ctx context.Context) {
	eventLog := h.engine.GetEventLog()
	go func() {
		pollInterval := time.NewTicker(h.opts.PollInterval)
		defer pollInterval.Stop()

		lastSeq := eventLog.LastSeq()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				newEvents := eventLog.Since(lastSeq)
				if len(newEvents) == 0 {
					continue
				}
				for _, event := range newEvents {
					h.BroadcastEvent(event)
				}
				lastSeq = newEvents[len(newEvents)-1].Seq
				h.BroadcastState()
			}
		}
	}()
}

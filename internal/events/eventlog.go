// Package events provides the append-only log of everything the engine tells
// the presentation layer: digs, purchases, finished wells and milestones.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeDigApplied         EventType = "DIG_APPLIED"
	EventTypeUpgradePurchased   EventType = "UPGRADE_PURCHASED"
	EventTypeWellCompleted      EventType = "WELL_COMPLETED"
	EventTypeWellProgress       EventType = "WELL_PROGRESS"
	EventTypeGameCompleted      EventType = "GAME_COMPLETED"
	EventTypeDifficultySelected EventType = "DIFFICULTY_SELECTED"
	EventTypeDifficultyRequired EventType = "DIFFICULTY_REQUIRED"
	EventTypeGameReset          EventType = "GAME_RESET"
)

// Actors that emit events.
const (
	ActorPlayer = "PLAYER"
	ActorTicker = "SYSTEM_TICKER"
	ActorEngine = "SYSTEM_ENGINE"
)

// DigAppliedPayload is attached to EventTypeDigApplied.
type DigAppliedPayload struct {
	Amount float64 `json:"amount"`
	Manual bool    `json:"manual"`
}

// UpgradePurchasedPayload is attached to EventTypeUpgradePurchased.
type UpgradePurchasedPayload struct {
	Index    int     `json:"index"`
	ID       string  `json:"id"`
	Owned    int     `json:"owned"`
	Paid     float64 `json:"paid"`
	NextCost float64 `json:"next_cost"`
}

// WellCompletedPayload is attached to EventTypeWellCompleted.
type WellCompletedPayload struct {
	WellNumber   int    `json:"well_number"`
	Country      string `json:"country"`
	PeopleServed int    `json:"people_served"`
}

// WellProgressPayload is attached to EventTypeWellProgress (minor celebration).
type WellProgressPayload struct {
	WellsCompleted int `json:"wells_completed"`
	Remaining      int `json:"remaining"`
}

// GameCompletedPayload is attached to EventTypeGameCompleted.
type GameCompletedPayload struct {
	CountryCount      int `json:"country_count"`
	TotalPeopleHelped int `json:"total_people_helped"`
}

// DifficultyPayload is attached to EventTypeDifficultySelected.
type DifficultyPayload struct {
	Difficulty string `json:"difficulty"`
}

// GameEvent represents an immutable record of something the engine did.
type GameEvent struct {
	ID        string      `json:"id"`
	Seq       uint64      `json:"seq"` // Monotonic, survives trimming
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Payload   interface{} `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// PersistFilter is implemented by persisters that only store some event types.
// Filtered events never reach the write queue.
type PersistFilter interface {
	Persists(t EventType) bool
}

// DefaultCapacity bounds the in-memory log when no capacity is given.
const DefaultCapacity = 1024

// EventLog is the in-memory append-only log of game events.
// Only the most recent capacity events are retained; sequence numbers keep counting.
// Persisted events are handed to a single writer goroutine through a bounded queue.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	capacity  int
	lastSeq   uint64
	persister EventPersister
	queue     chan GameEvent
	done      chan struct{}
	closed    bool
	logger    *logger.Logger
}

// Option configures an EventLog.
type Option func(*EventLog)

// WithLogger reports persistence failures and dropped events to l.
func WithLogger(l *logger.Logger) Option {
	return func(el *EventLog) {
		if l != nil {
			el.logger = l
		}
	}
}

// NewEventLog creates a new event log with an optional persister.
// With a persister, Close must be called to flush pending writes.
func NewEventLog(capacity int, persister EventPersister, opts ...Option) *EventLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	el := &EventLog{
		events:    make([]GameEvent, 0, capacity),
		capacity:  capacity,
		persister: persister,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(el)
	}
	if persister != nil {
		el.queue = make(chan GameEvent, capacity)
		el.done = make(chan struct{})
		go el.writeLoop()
	}
	return el
}

// Append stamps the event with an id, sequence number and timestamp and adds it to the log.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	defer el.mu.Unlock()

	el.lastSeq++
	event.Seq = el.lastSeq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.events = append(el.events, event)
	if over := len(el.events) - el.capacity; over > 0 {
		el.events = append(el.events[:0:0], el.events[over:]...)
	}

	if el.queue != nil && !el.closed && el.persists(event.Type) {
		select {
		case el.queue <- event:
		default:
			el.logger.Warn("Event persist queue full, dropping event",
				zap.String("type", string(event.Type)),
				zap.Uint64("seq", event.Seq),
			)
		}
	}
	return event
}

func (el *EventLog) persists(t EventType) bool {
	if f, ok := el.persister.(PersistFilter); ok {
		return f.Persists(t)
	}
	return true
}

func (el *EventLog) writeLoop() {
	defer close(el.done)
	for e := range el.queue {
		if err := el.persister.Append(e); err != nil {
			el.logger.Warn("Event persist failed",
				zap.String("type", string(e.Type)),
				zap.Uint64("seq", e.Seq),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting writes and waits until queued events are persisted.
// The in-memory log stays usable. Safe to call more than once.
func (el *EventLog) Close() {
	el.mu.Lock()
	if el.closed || el.queue == nil {
		el.closed = true
		el.mu.Unlock()
		return
	}
	el.closed = true
	close(el.queue)
	el.mu.Unlock()
	<-el.done
}

// Since returns the retained events with a sequence number greater than seq.
func (el *EventLog) Since(seq uint64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// ByType returns the retained events of one type.
func (el *EventLog) ByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of every retained event in order.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return append([]GameEvent(nil), el.events...)
}

// LastSeq returns the sequence number of the newest event.
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.lastSeq
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}

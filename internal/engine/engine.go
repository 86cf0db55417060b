package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/game"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/metrics"
)

// Gameplay command failures. State is unchanged and no event is emitted.
var (
	ErrInsufficientFunds  = errors.New("insufficient dig points")
	ErrUnknownUpgrade     = errors.New("unknown upgrade")
	ErrDifficultyRequired = errors.New("select a difficulty first")
	ErrDifficultyLocked   = errors.New("difficulty already selected")
	ErrUnknownDifficulty  = errors.New("unknown difficulty")
	ErrInvalidAmount      = errors.New("dig amount must be positive")
)

// DefaultSaveKey is the key the snapshot is stored under.
const DefaultSaveKey = "wellBuilderSave"

// SaveStore is a durable key-value store holding whole snapshots.
type SaveStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	Table    difficulty.Table
	Rand     *rand.Rand
	SaveKey  string
	TickRate time.Duration
	SaveRate time.Duration
}

// Engine is the central orchestrator of a single playthrough.
type Engine struct {
	mu     sync.Mutex // Guards state, wells and rng
	saveMu sync.Mutex // Serializes snapshot+write, taken before mu

	state game.GameState
	wells []WellRecord
	table difficulty.Table
	rng   *rand.Rand

	store    SaveStore
	saveKey  string
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	ticker   *Ticker
}

// NewEngine creates an engine holding fresh defaults. Call Load to restore a save.
func NewEngine(store SaveStore, eventLog *events.EventLog, log *logger.Logger, opts Options) *Engine {
	if opts.Table == nil {
		opts.Table = difficulty.DefaultTable()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.SaveKey == "" {
		opts.SaveKey = DefaultSaveKey
	}
	if eventLog == nil {
		eventLog = events.NewEventLog(events.DefaultCapacity, nil)
	}
	if log == nil {
		log = logger.NewNop()
	}

	e := &Engine{
		table:    opts.Table,
		rng:      opts.Rand,
		store:    store,
		saveKey:  opts.SaveKey,
		eventLog: eventLog,
		logger:   log,
		metrics:  metrics.Get(),
	}
	e.state = game.NewState(e.defaults())
	e.ticker = NewTicker(e, log, opts.TickRate, opts.SaveRate)
	return e
}

// Start spawns the passive tick and autosave loop.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting well builder engine...")
	go e.ticker.Start(ctx)
}

// Stop halts the scheduled tasks. It does not save; callers flush with Save.
func (e *Engine) Stop() {
	e.ticker.Stop()
}

// GetEventLog exposes the event log for transports that stream events.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// State returns a deep copy of the aggregate.
func (e *Engine) State() game.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// NeedsDifficulty reports whether gameplay is gated on difficulty selection.
func (e *Engine) NeedsDifficulty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.state.Difficulty.IsSet()
}

// defaults are the settings of a state without a difficulty.
func (e *Engine) defaults() difficulty.Settings {
	return e.table[difficulty.Normal]
}

// settingsLocked returns the balance of the current playthrough.
func (e *Engine) settingsLocked() difficulty.Settings {
	if s, err := e.table.Lookup(e.state.Difficulty); err == nil {
		return s
	}
	return e.defaults()
}

// emit appends an event to the log. Per-dig events only reach debug level.
func (e *Engine) emit(t events.EventType, actor string, payload interface{}) {
	ev := e.eventLog.Append(events.GameEvent{
		Type:    t,
		ActorID: actor,
		Payload: payload,
	})
	if t == events.EventTypeDigApplied {
		e.logger.Debug("dig applied", zap.Uint64("seq", ev.Seq), zap.Any("payload", payload))
		return
	}
	e.logger.Event(string(t), actor, fmt.Sprintf("%+v", payload))
}

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/metrics"
)

// Default intervals of the scheduled tasks.
const (
	DefaultTickRate = 1 * time.Second
	DefaultSaveRate = 5 * time.Second
)

// tickTarget is what the Ticker drives. Implemented by *Engine.
type tickTarget interface {
	PassiveTick() error
	Save(ctx context.Context) error
}

// Ticker runs the passive production tick and the autosave.
// It does NOT know about upgrades or wells - only when to call the engine.
type Ticker struct {
	target   tickTarget
	logger   *logger.Logger
	tickRate time.Duration
	saveRate time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTicker creates the scheduler. Non-positive rates fall back to the defaults.
func NewTicker(target tickTarget, log *logger.Logger, tickRate, saveRate time.Duration) *Ticker {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	if saveRate <= 0 {
		saveRate = DefaultSaveRate
	}
	return &Ticker{
		target:   target,
		logger:   log,
		tickRate: tickRate,
		saveRate: saveRate,
		stopChan: make(chan struct{}),
	}
}

// Start runs both tasks until ctx is cancelled or Stop is called. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine Ticker started.",
		zap.Duration("tick_rate", t.tickRate),
		zap.Duration("save_rate", t.saveRate),
	)

	tick := time.NewTicker(t.tickRate)
	defer tick.Stop()
	autosave := time.NewTicker(t.saveRate)
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine Ticker stopped manually.")
			return
		case <-tick.C:
			t.tick()
		case <-autosave.C:
			t.save(ctx)
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

func (t *Ticker) tick() {
	start := time.Now()
	err := t.target.PassiveTick()
	metrics.Get().RecordTick(time.Since(start))

	if err != nil && !errors.Is(err, ErrDifficultyRequired) {
		t.logger.Warn("Passive tick failed", zap.Error(err))
	}
}

func (t *Ticker) save(ctx context.Context) {
	if err := t.target.Save(ctx); err != nil {
		t.logger.Error("Autosave failed", zap.Error(err))
	}
}

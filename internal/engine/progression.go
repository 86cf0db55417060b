package engine

import (
	"math"

	"github.com/MRamiBalles/WellBuilder/server/internal/events"
)

// AddDigs credits amount to both the wallet and the current well.
// At most one well is completed per call; overflow past the threshold is discarded.
func (e *Engine) AddDigs(amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Difficulty.IsSet() {
		return ErrDifficultyRequired
	}
	return e.addDigsLocked(amount, events.ActorEngine, false)
}

// ManualDig applies one click worth of digs.
func (e *Engine) ManualDig() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Difficulty.IsSet() {
		return ErrDifficultyRequired
	}
	if err := e.addDigsLocked(e.state.ClickPower, events.ActorPlayer, true); err != nil {
		return err
	}
	e.metrics.RecordManualDig()
	return nil
}

// PassiveTick applies one second of passive production. Skipped when nothing digs.
func (e *Engine) PassiveTick() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Difficulty.IsSet() {
		return ErrDifficultyRequired
	}
	if e.state.DigsPerSecond == 0 {
		return nil
	}
	return e.addDigsLocked(e.state.DigsPerSecond, events.ActorTicker, false)
}

func (e *Engine) addDigsLocked(amount float64, actor string, manual bool) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}

	e.state.DigPoints += amount
	e.state.CurrentWellProgress += amount
	e.emit(events.EventTypeDigApplied, actor, events.DigAppliedPayload{
		Amount: amount,
		Manual: manual,
	})

	if e.state.CurrentWellProgress >= e.state.WellCost {
		e.completeWellLocked()
	}
	return nil
}

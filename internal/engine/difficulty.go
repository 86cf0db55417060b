package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/country"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/game"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
)

// SelectDifficulty starts the playthrough at d and saves immediately.
// The difficulty is immutable until a confirmed reset.
func (e *Engine) SelectDifficulty(ctx context.Context, d difficulty.Difficulty) error {
	settings, err := e.table.Lookup(d)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownDifficulty, string(d))
	}

	e.mu.Lock()
	if e.state.Difficulty.IsSet() {
		current := e.state.Difficulty
		e.mu.Unlock()
		return fmt.Errorf("%w: playing %s", ErrDifficultyLocked, current)
	}

	// Progress from a save without a difficulty belongs to no playthrough.
	// Dig points are the only thing carried over.
	e.state.Difficulty = d
	e.state.WellCost = settings.WellCost
	e.state.CurrentWellProgress = 0
	e.state.WellsCompleted = 0
	e.state.GameCompleted = false
	e.state.Upgrades = game.FixedUpgrades(settings) // Owned back to 0, helpers dropped
	e.state.Countries = country.Sample(e.rng, settings.WellsRequired)
	e.wells = nil
	e.recalcLocked()
	e.emit(events.EventTypeDifficultySelected, events.ActorPlayer, events.DifficultyPayload{
		Difficulty: string(d),
	})
	e.mu.Unlock()

	if err := e.Save(ctx); err != nil {
		e.logger.Warn("Save after difficulty selection failed", zap.Error(err))
	}
	return nil
}

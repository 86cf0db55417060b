package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/game"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
)

// SnapshotVersion is written into every save.
const SnapshotVersion = 1

// errCorruptSave marks a snapshot that parses but breaks the state invariants.
var errCorruptSave = errors.New("corrupt save")

// snapshot is the encoded form of a save.
type snapshot struct {
	Version int `json:"version"`
	game.GameState
}

// savedState is the decode schema. Nil fields were missing and keep their defaults.
type savedState struct {
	Version             *int           `json:"version"`
	DigPoints           *float64       `json:"digPoints"`
	CurrentWellProgress *float64       `json:"currentWellProgress"`
	WellsCompleted      *int           `json:"wellsCompleted"`
	WellCost            *float64       `json:"wellCost"`
	Difficulty          *string        `json:"difficulty"`
	Upgrades            []savedUpgrade `json:"upgrades"`
	Countries           []string       `json:"countries"`
	GameCompleted       *bool          `json:"gameCompleted"` // Re-derived from wellsCompleted
}

type savedUpgrade struct {
	ID        string   `json:"id"`
	Cost      *float64 `json:"cost"`
	Owned     *int     `json:"owned"`
	Available *bool    `json:"available"`
}

// Save writes a full snapshot of the current state under the save key.
func (e *Engine) Save(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	snap := snapshot{Version: SnapshotVersion, GameState: e.state.Clone()}
	e.mu.Unlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	start := time.Now()
	err = e.store.Save(ctx, e.saveKey, raw)
	e.metrics.RecordSave(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// Load restores the saved playthrough, falling back to fresh defaults when the save
// is missing, unreadable or corrupt. It reports whether a save was restored.
func (e *Engine) Load(ctx context.Context) bool {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	fresh := game.NewState(e.defaults())
	st, restored := fresh, false

	raw, found, err := e.store.Load(ctx, e.saveKey)
	switch {
	case err != nil:
		e.logger.Warn("Save store unreadable, starting fresh", zap.Error(err))
	case !found:
		e.logger.Info("No save found, starting fresh")
	default:
		decoded, derr := decodeSnapshot(raw, e.table)
		if derr != nil {
			e.logger.Warn("Discarding save", zap.Error(derr))
		} else {
			st, restored = decoded, true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = st
	e.wells = nil
	e.recalcLocked()

	if !e.state.Difficulty.IsSet() {
		e.emit(events.EventTypeDifficultyRequired, events.ActorEngine, nil)
		return restored
	}

	e.ensureHelpersLocked()
	e.recalcLocked()
	e.rebuildWellsLocked()
	if e.state.GameCompleted {
		e.emitGameCompletedLocked()
	}
	e.logger.Info("Save restored",
		zap.String("difficulty", string(e.state.Difficulty)),
		zap.Int("wells_completed", e.state.WellsCompleted),
	)
	return restored
}

// decodeSnapshot overlays a save onto the defaults of its difficulty.
func decodeSnapshot(raw []byte, table difficulty.Table) (game.GameState, error) {
	var saved savedState
	if err := json.Unmarshal(raw, &saved); err != nil {
		return game.GameState{}, fmt.Errorf("%w: %v", errCorruptSave, err)
	}

	d := difficulty.Unset
	if saved.Difficulty != nil {
		parsed, err := difficulty.Parse(*saved.Difficulty)
		if err != nil {
			return game.GameState{}, fmt.Errorf("%w: %v", errCorruptSave, err)
		}
		d = parsed
	}

	settings := table[difficulty.Normal]
	if d.IsSet() {
		s, err := table.Lookup(d)
		if err != nil {
			return game.GameState{}, fmt.Errorf("%w: %v", errCorruptSave, err)
		}
		settings = s
	}

	st := game.NewState(settings)
	st.Difficulty = d

	if saved.DigPoints != nil {
		st.DigPoints = *saved.DigPoints
	}
	if saved.CurrentWellProgress != nil {
		st.CurrentWellProgress = *saved.CurrentWellProgress
	}
	if saved.WellCost != nil {
		st.WellCost = *saved.WellCost
	}
	if saved.WellsCompleted != nil {
		st.WellsCompleted = *saved.WellsCompleted
	}
	if saved.Countries != nil {
		st.Countries = append([]string{}, saved.Countries...)
	}

	if !nonNegative(st.DigPoints) || !nonNegative(st.CurrentWellProgress) || st.WellsCompleted < 0 {
		return game.GameState{}, fmt.Errorf("%w: negative or non-finite counters", errCorruptSave)
	}
	if !nonNegative(st.WellCost) || st.WellCost == 0 {
		return game.GameState{}, fmt.Errorf("%w: well cost %v", errCorruptSave, st.WellCost)
	}
	if d.IsSet() && len(st.Countries) != settings.WellsRequired {
		return game.GameState{}, fmt.Errorf("%w: %s playthrough with %d countries, want %d",
			errCorruptSave, d, len(st.Countries), settings.WellsRequired)
	}
	if st.CurrentWellProgress >= st.WellCost {
		return game.GameState{}, fmt.Errorf("%w: progress %v not below well cost %v",
			errCorruptSave, st.CurrentWellProgress, st.WellCost)
	}

	for _, su := range saved.Upgrades {
		kind, n, ok := upgrade.ParseID(su.ID)
		if !ok {
			continue
		}
		owned := 0
		if su.Owned != nil {
			owned = *su.Owned
		}
		if owned < 0 {
			return game.GameState{}, fmt.Errorf("%w: %s owned %d", errCorruptSave, su.ID, owned)
		}

		if kind == upgrade.KindHelper {
			if n > st.WellsCompleted {
				continue
			}
			if _, dup := st.FindUpgrade(su.ID); dup {
				continue
			}
			h := upgrade.NewHelper(n, st.CountryForWell(n))
			h.Owned = owned
			st.Upgrades = append(st.Upgrades, h)
			continue
		}

		i, ok := st.FindUpgrade(su.ID)
		if !ok {
			continue
		}
		u := &st.Upgrades[i]
		u.Owned = owned
		if su.Cost != nil && nonNegative(*su.Cost) {
			u.Cost = *su.Cost
		} else {
			u.Cost = settings.Curve(kind).CostAt(owned)
		}
	}

	st.GameCompleted = d.IsSet() && st.WellsCompleted >= len(st.Countries)
	return st, nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ResetGame wipes the save and starts over. Without confirmation nothing happens.
func (e *Engine) ResetGame(ctx context.Context, confirmed bool) (bool, error) {
	if !confirmed {
		return false, nil
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if err := e.store.Delete(ctx, e.saveKey); err != nil {
		return false, fmt.Errorf("reset game: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = game.NewState(e.defaults())
	e.wells = nil
	e.recalcLocked()
	e.emit(events.EventTypeGameReset, events.ActorPlayer, nil)
	e.emit(events.EventTypeDifficultyRequired, events.ActorEngine, nil)
	return true, nil
}

// Package difficulty defines the per-playthrough balance constants.
// This package is PURE and must NOT import any infrastructure packages.
package difficulty

import (
	"errors"
	"fmt"
	"math"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
)

// Difficulty is chosen once per playthrough.
type Difficulty string

const (
	Unset  Difficulty = ""
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// ErrUnknown is returned for names outside easy/normal/hard.
var ErrUnknown = errors.New("unknown difficulty")

// All returns the selectable difficulties in menu order.
func All() []Difficulty {
	return []Difficulty{Easy, Normal, Hard}
}

// Parse converts a persisted or user supplied name.
func Parse(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Unset, Easy, Normal, Hard:
		return d, nil
	default:
		return Unset, fmt.Errorf("%w: %q", ErrUnknown, s)
	}
}

// IsSet reports whether a difficulty has been selected.
func (d Difficulty) IsSet() bool {
	return d != Unset
}

// Settings are the numeric constants gated by a difficulty.
type Settings struct {
	WellCost      float64
	WellGrowth    float64
	WellsRequired int
	Curves        map[upgrade.Kind]upgrade.Curve
}

// Curve returns the price curve of a fixed upgrade kind.
func (s Settings) Curve(k upgrade.Kind) upgrade.Curve {
	return s.Curves[k]
}

// NextWellCost grows the well threshold after a completion.
func (s Settings) NextWellCost(current float64) float64 {
	return math.Floor(current * s.WellGrowth)
}

// Table maps each difficulty to its settings.
type Table map[Difficulty]Settings

// DefaultTable returns the shipped balance.
func DefaultTable() Table {
	return Table{
		Easy: {
			WellCost:      500,
			WellGrowth:    1.7,
			WellsRequired: 7,
			Curves: map[upgrade.Kind]upgrade.Curve{
				upgrade.KindShovel:    {Base: 80, Growth: 1.35},
				upgrade.KindVolunteer: {Base: 180, Growth: 1.45},
				upgrade.KindDrill:     {Base: 350, Growth: 1.55},
				upgrade.KindGrant:     {Base: 700, Growth: 1.65},
			},
		},
		Normal: {
			WellCost:      1000,
			WellGrowth:    2.2,
			WellsRequired: 12,
			Curves: map[upgrade.Kind]upgrade.Curve{
				upgrade.KindShovel:    {Base: 100, Growth: 1.55},
				upgrade.KindVolunteer: {Base: 250, Growth: 1.65},
				upgrade.KindDrill:     {Base: 500, Growth: 1.75},
				upgrade.KindGrant:     {Base: 1000, Growth: 1.85},
			},
		},
		Hard: {
			WellCost:      2000,
			WellGrowth:    2.7,
			WellsRequired: 21,
			Curves: map[upgrade.Kind]upgrade.Curve{
				upgrade.KindShovel:    {Base: 120, Growth: 1.75},
				upgrade.KindVolunteer: {Base: 350, Growth: 1.85},
				upgrade.KindDrill:     {Base: 700, Growth: 2.0},
				upgrade.KindGrant:     {Base: 1400, Growth: 2.15},
			},
		},
	}
}

// Lookup returns the settings of a selected difficulty.
func (t Table) Lookup(d Difficulty) (Settings, error) {
	s, ok := t[d]
	if !ok || !d.IsSet() {
		return Settings{}, fmt.Errorf("%w: %q", ErrUnknown, string(d))
	}
	return s, nil
}

// Validate checks that every difficulty is present and sane.
// maxWells bounds WellsRequired by the size of the country pool.
func (t Table) Validate(maxWells int) error {
	for _, d := range All() {
		s, ok := t[d]
		if !ok {
			return fmt.Errorf("difficulty %s: missing", d)
		}
		if s.WellCost <= 0 || s.WellGrowth <= 1 {
			return fmt.Errorf("difficulty %s: well cost and growth must be positive and growing", d)
		}
		if s.WellsRequired <= 0 || s.WellsRequired > maxWells {
			return fmt.Errorf("difficulty %s: wells required must be within 1..%d", d, maxWells)
		}
		for _, k := range upgrade.FixedKinds() {
			c, ok := s.Curves[k]
			if !ok {
				return fmt.Errorf("difficulty %s: missing curve for %s", d, k)
			}
			if c.Base <= 0 || c.Growth < 1 {
				return fmt.Errorf("difficulty %s: invalid curve for %s", d, k)
			}
		}
	}
	return nil
}

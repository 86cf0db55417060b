// Package game defines the GameState aggregate of a well building playthrough.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package game

import (
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
)

// GameState is the whole progress of one playthrough.
type GameState struct {
	// Economy
	DigPoints           float64 `json:"digPoints"`
	CurrentWellProgress float64 `json:"currentWellProgress"`
	WellCost            float64 `json:"wellCost"`

	// Derived from Upgrades, never authoritative
	ClickPower    float64 `json:"clickPower"`
	DigsPerSecond float64 `json:"digsPerSecond"`

	// Progress
	WellsCompleted int                   `json:"wellsCompleted"`
	Difficulty     difficulty.Difficulty `json:"difficulty"`
	Upgrades       []upgrade.Upgrade     `json:"upgrades"`
	Countries      []string              `json:"countries"`
	GameCompleted  bool                  `json:"gameCompleted"`
}

// NewState creates a fresh playthrough with no difficulty selected.
// The defaults come from the given settings, normally the normal table.
func NewState(defaults difficulty.Settings) GameState {
	return GameState{
		WellCost:   defaults.WellCost,
		ClickPower: 1,
		Upgrades:   FixedUpgrades(defaults),
		Countries:  []string{},
	}
}

// FixedUpgrades builds the unowned fixed upgrades priced for the settings.
func FixedUpgrades(s difficulty.Settings) []upgrade.Upgrade {
	kinds := upgrade.FixedKinds()
	out := make([]upgrade.Upgrade, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, upgrade.NewFixed(k, s.Curve(k)))
	}
	return out
}

// Clone returns a deep copy safe to hand outside the engine.
func (s GameState) Clone() GameState {
	c := s
	c.Upgrades = append([]upgrade.Upgrade(nil), s.Upgrades...)
	c.Countries = append([]string(nil), s.Countries...)
	return c
}

// FindUpgrade returns the index of the upgrade with the given id.
func (s *GameState) FindUpgrade(id string) (int, bool) {
	for i := range s.Upgrades {
		if s.Upgrades[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// CountryForWell returns the country of the n-th completed well (1-based).
func (s *GameState) CountryForWell(n int) string {
	if len(s.Countries) == 0 || n <= 0 {
		return ""
	}
	return s.Countries[(n-1)%len(s.Countries)]
}

// CanAfford reports whether the upgrade at index is purchasable right now.
func (s *GameState) CanAfford(index int) bool {
	if index < 0 || index >= len(s.Upgrades) {
		return false
	}
	cost := s.Upgrades[index].Cost
	return cost <= 0 || s.DigPoints >= cost
}

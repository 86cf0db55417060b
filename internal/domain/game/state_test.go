package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
)

func TestNewState(t *testing.T) {
	normal, err := difficulty.DefaultTable().Lookup(difficulty.Normal)
	require.NoError(t, err)

	s := NewState(normal)
	assert.Equal(t, 1000.0, s.WellCost)
	assert.Equal(t, 1.0, s.ClickPower)
	assert.Zero(t, s.DigsPerSecond)
	assert.False(t, s.Difficulty.IsSet())
	assert.NotNil(t, s.Countries)
	require.Len(t, s.Upgrades, 4)

	ids := []string{}
	for _, u := range s.Upgrades {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"shovel", "volunteer", "drill", "grant"}, ids)
	assert.Equal(t, []float64{100, 250, 500, 1000},
		[]float64{s.Upgrades[0].Cost, s.Upgrades[1].Cost, s.Upgrades[2].Cost, s.Upgrades[3].Cost})
}

func TestCloneIsIndependent(t *testing.T) {
	s := GameState{
		Upgrades:  []upgrade.Upgrade{{ID: "shovel"}},
		Countries: []string{"Kenya"},
	}
	c := s.Clone()
	c.Upgrades[0].Owned = 5
	c.Countries[0] = "Mali"

	assert.Zero(t, s.Upgrades[0].Owned)
	assert.Equal(t, "Kenya", s.Countries[0])
}

func TestCountryForWellWraps(t *testing.T) {
	s := GameState{Countries: []string{"Kenya", "Mali", "Nepal"}}
	assert.Equal(t, "Kenya", s.CountryForWell(1))
	assert.Equal(t, "Nepal", s.CountryForWell(3))
	assert.Equal(t, "Kenya", s.CountryForWell(4))
	assert.Equal(t, "", s.CountryForWell(0))
	assert.Equal(t, "", (&GameState{}).CountryForWell(1))
}

func TestFindUpgradeAndCanAfford(t *testing.T) {
	s := GameState{
		DigPoints: 100,
		Upgrades: []upgrade.Upgrade{
			{ID: "shovel", Cost: 100},
			{ID: "grant", Cost: 1000},
			upgrade.NewHelper(1, "Kenya"),
		},
	}

	i, ok := s.FindUpgrade("grant")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = s.FindUpgrade("drill")
	assert.False(t, ok)

	assert.True(t, s.CanAfford(0))
	assert.False(t, s.CanAfford(1))
	assert.True(t, s.CanAfford(2), "helpers are free")
	assert.False(t, s.CanAfford(-1))
	assert.False(t, s.CanAfford(3))
}

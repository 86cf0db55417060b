package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/infra/storage"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
)

func newTestEngine(t *testing.T, store SaveStore) (*Engine, *events.EventLog) {
	t.Helper()
	if store == nil {
		store = storage.NewMemorySaveRepository()
	}
	el := events.NewEventLog(0, nil)
	e := NewEngine(store, el, logger.NewNop(), Options{Rand: rand.New(rand.NewSource(42))})
	return e, el
}

func startedEngine(t *testing.T, d difficulty.Difficulty) (*Engine, *events.EventLog) {
	t.Helper()
	e, el := newTestEngine(t, nil)
	require.NoError(t, e.SelectDifficulty(context.Background(), d))
	return e, el
}

func TestNormalDigAndShovelScenario(t *testing.T) {
	e, _ := startedEngine(t, difficulty.Normal)

	require.NoError(t, e.ManualDig())
	s := e.State()
	assert.Equal(t, 1.0, s.DigPoints)
	assert.Equal(t, 1.0, s.CurrentWellProgress)
	assert.Equal(t, 1000.0, s.WellCost)

	require.NoError(t, e.AddDigs(99))
	bought, err := e.PurchaseUpgrade(0)
	require.NoError(t, err)
	assert.Equal(t, "shovel", bought.ID)

	s = e.State()
	assert.Equal(t, 0.0, s.DigPoints)
	assert.Equal(t, 155.0, s.Upgrades[0].Cost)
	assert.Equal(t, 1, s.Upgrades[0].Owned)
	assert.Equal(t, 2.0, s.ClickPower)
	assert.Equal(t, 100.0, s.CurrentWellProgress, "purchases never touch well progress")
}

func TestWellCompletionScenario(t *testing.T) {
	e, el := startedEngine(t, difficulty.Normal)

	require.NoError(t, e.AddDigs(999))
	require.NoError(t, e.AddDigs(5))

	s := e.State()
	assert.Equal(t, 1, s.WellsCompleted)
	assert.Equal(t, 0.0, s.CurrentWellProgress)
	assert.Equal(t, 2200.0, s.WellCost)
	assert.Equal(t, 1004.0, s.DigPoints)

	i, ok := s.FindUpgrade("auto1")
	require.True(t, ok)
	helper := s.Upgrades[i]
	assert.Equal(t, 0.0, helper.Cost)
	assert.Equal(t, 0, helper.Owned)
	assert.Equal(t, upgrade.EffectAutoDig, helper.Effect)
	assert.True(t, helper.Available)
	assert.Equal(t, upgrade.HelperName(s.Countries[0]), helper.Name)
	assert.Equal(t, 0.0, s.DigsPerSecond, "unhired helpers do not dig")

	completed := el.ByType(events.EventTypeWellCompleted)
	require.Len(t, completed, 1)
	payload := completed[0].Payload.(events.WellCompletedPayload)
	assert.Equal(t, 1, payload.WellNumber)
	assert.Equal(t, s.Countries[0], payload.Country)

	progress := el.ByType(events.EventTypeWellProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, 11, progress[0].Payload.(events.WellProgressPayload).Remaining)
	assert.Empty(t, el.ByType(events.EventTypeGameCompleted))
}

func TestAddDigsCompletesAtMostOneWell(t *testing.T) {
	e, _ := startedEngine(t, difficulty.Normal)

	require.NoError(t, e.AddDigs(50000))

	s := e.State()
	assert.Equal(t, 1, s.WellsCompleted)
	assert.Equal(t, 0.0, s.CurrentWellProgress, "overflow is discarded")
	assert.Equal(t, 50000.0, s.DigPoints)
}

func TestAddDigsRejectsInvalidAmounts(t *testing.T) {
	e, el := startedEngine(t, difficulty.Easy)
	before := e.State()
	seq := el.LastSeq()

	for _, amount := range []float64{0, -3} {
		assert.ErrorIs(t, e.AddDigs(amount), ErrInvalidAmount)
	}
	assert.Equal(t, before, e.State())
	assert.Equal(t, seq, el.LastSeq())
}

func TestPurchaseRejectedWhenUnaffordable(t *testing.T) {
	e, el := startedEngine(t, difficulty.Normal)
	require.NoError(t, e.AddDigs(99))
	before := e.State()

	_, err := e.PurchaseUpgrade(0)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, e.State())
	assert.Empty(t, el.ByType(events.EventTypeUpgradePurchased))

	_, err = e.PurchaseUpgrade(42)
	assert.ErrorIs(t, err, ErrUnknownUpgrade)
	_, err = e.PurchaseUpgrade(-1)
	assert.ErrorIs(t, err, ErrUnknownUpgrade)
	assert.Equal(t, before, e.State())
}

func TestHiringHelperIsFree(t *testing.T) {
	e, el := startedEngine(t, difficulty.Normal)
	require.NoError(t, e.AddDigs(1000))

	s := e.State()
	i, ok := s.FindUpgrade("auto1")
	require.True(t, ok)

	bought, err := e.PurchaseUpgrade(i)
	require.NoError(t, err)
	assert.Equal(t, 1, bought.Owned)
	assert.Equal(t, 0.0, bought.Cost)

	s = e.State()
	assert.Equal(t, 1000.0, s.DigPoints)
	assert.Equal(t, upgrade.HelperRate, s.DigsPerSecond)

	// A second crew member does not stack
	_, err = e.PurchaseUpgrade(i)
	require.NoError(t, err)
	assert.Equal(t, upgrade.HelperRate, e.State().DigsPerSecond)

	purchased := el.ByType(events.EventTypeUpgradePurchased)
	require.Len(t, purchased, 2)
	assert.Equal(t, 0.0, purchased[0].Payload.(events.UpgradePurchasedPayload).Paid)
}

func TestPassiveTick(t *testing.T) {
	e, el := startedEngine(t, difficulty.Normal)

	require.NoError(t, e.PassiveTick())
	assert.Equal(t, 0.0, e.State().DigPoints)
	assert.Empty(t, el.ByType(events.EventTypeDigApplied), "no digs without production")

	require.NoError(t, e.AddDigs(1000))
	st := e.State()
	i, _ := st.FindUpgrade("auto1")
	_, err := e.PurchaseUpgrade(i)
	require.NoError(t, err)

	require.NoError(t, e.PassiveTick())
	s := e.State()
	assert.Equal(t, 1015.0, s.DigPoints)
	assert.Equal(t, 15.0, s.CurrentWellProgress)

	digs := el.ByType(events.EventTypeDigApplied)
	last := digs[len(digs)-1]
	assert.Equal(t, events.ActorTicker, last.ActorID)
	assert.False(t, last.Payload.(events.DigAppliedPayload).Manual)
}

func TestGameplayGatedUntilDifficultySelected(t *testing.T) {
	e, el := newTestEngine(t, nil)
	require.True(t, e.NeedsDifficulty())
	before := e.State()

	assert.ErrorIs(t, e.ManualDig(), ErrDifficultyRequired)
	assert.ErrorIs(t, e.AddDigs(10), ErrDifficultyRequired)
	assert.ErrorIs(t, e.PassiveTick(), ErrDifficultyRequired)
	_, err := e.PurchaseUpgrade(0)
	assert.ErrorIs(t, err, ErrDifficultyRequired)

	assert.Equal(t, before, e.State())
	assert.Zero(t, el.LastSeq())
	assert.False(t, e.View().Upgrades[0].Affordable)
}

func TestFreshStateUsesNormalDefaults(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	s := e.State()

	assert.Equal(t, difficulty.Unset, s.Difficulty)
	assert.Equal(t, 1000.0, s.WellCost)
	assert.Equal(t, 1.0, s.ClickPower)
	assert.Equal(t, 0.0, s.DigsPerSecond)
	assert.Empty(t, s.Countries)
	require.Len(t, s.Upgrades, 4)
	assert.Equal(t, []float64{100, 250, 500, 1000}, []float64{
		s.Upgrades[0].Cost, s.Upgrades[1].Cost, s.Upgrades[2].Cost, s.Upgrades[3].Cost,
	})
}

func TestSelectDifficulty(t *testing.T) {
	store := storage.NewMemorySaveRepository()
	e, el := newTestEngine(t, store)
	ctx := context.Background()

	assert.ErrorIs(t, e.SelectDifficulty(ctx, "nightmare"), ErrUnknownDifficulty)
	assert.ErrorIs(t, e.SelectDifficulty(ctx, difficulty.Unset), ErrUnknownDifficulty)

	require.NoError(t, e.SelectDifficulty(ctx, difficulty.Hard))
	s := e.State()
	assert.Equal(t, difficulty.Hard, s.Difficulty)
	assert.Equal(t, 2000.0, s.WellCost)
	assert.Equal(t, 120.0, s.Upgrades[0].Cost)
	assert.Len(t, s.Countries, 21)
	assert.ElementsMatch(t, s.Countries, uniq(s.Countries))
	assert.Len(t, el.ByType(events.EventTypeDifficultySelected), 1)

	_, found, err := store.Load(ctx, DefaultSaveKey)
	require.NoError(t, err)
	assert.True(t, found, "selection is saved immediately")

	assert.ErrorIs(t, e.SelectDifficulty(ctx, difficulty.Easy), ErrDifficultyLocked)
	assert.Equal(t, difficulty.Hard, e.State().Difficulty)
}

func TestGameCompletedOnceAllCountriesHaveWells(t *testing.T) {
	e, el := startedEngine(t, difficulty.Easy)
	required := len(e.State().Countries)
	require.Equal(t, 7, required)

	for n := 1; n <= required; n++ {
		require.NoError(t, e.AddDigs(e.State().WellCost))
		s := e.State()
		assert.Equal(t, n, s.WellsCompleted)
		assert.Equal(t, n >= required, s.GameCompleted, "well %d", n)
	}
	completed := el.ByType(events.EventTypeGameCompleted)
	require.Len(t, completed, 1)
	payload := completed[0].Payload.(events.GameCompletedPayload)
	assert.Equal(t, required, payload.CountryCount)
	assert.Equal(t, e.View().PeopleHelped, payload.TotalPeopleHelped)

	// Play continues; countries wrap around
	require.NoError(t, e.AddDigs(e.State().WellCost))
	s := e.State()
	assert.True(t, s.GameCompleted)
	assert.Equal(t, s.Countries[0], s.CountryForWell(8))
	assert.Len(t, el.ByType(events.EventTypeGameCompleted), 2)
	assert.Len(t, e.Wells(), 8)
}

func TestRecalcUpgradesIsIdempotent(t *testing.T) {
	e, _ := startedEngine(t, difficulty.Easy)
	require.NoError(t, e.AddDigs(499))
	_, err := e.PurchaseUpgrade(0)
	require.NoError(t, err)
	_, err = e.PurchaseUpgrade(1)
	require.NoError(t, err)

	first := e.State()
	e.RecalcUpgrades()
	e.RecalcUpgrades()
	second := e.State()

	assert.Equal(t, first.ClickPower, second.ClickPower)
	assert.Equal(t, first.DigsPerSecond, second.DigsPerSecond)
	assert.Equal(t, 2.0, second.ClickPower)
	assert.Equal(t, 1.0, second.DigsPerSecond)
}

func TestViewReadModel(t *testing.T) {
	e, _ := startedEngine(t, difficulty.Normal)
	require.NoError(t, e.AddDigs(100))

	v := e.View()
	assert.False(t, v.NeedsDifficulty)
	assert.Equal(t, "normal", v.Difficulty)
	assert.Equal(t, 12, v.WellsRequired)
	require.Len(t, v.Upgrades, 4)
	assert.True(t, v.Upgrades[0].Affordable)
	assert.False(t, v.Upgrades[1].Affordable)
	assert.Equal(t, "Next: +1 dig per click", v.Upgrades[0].NextEffect)
	assert.Equal(t, "Next: +5 dig per second", v.Upgrades[2].NextEffect)

	require.NoError(t, e.AddDigs(900))
	v = e.View()
	require.Len(t, v.Wells, 1)
	assert.Equal(t, v.Wells[0].PeopleServed, v.PeopleHelped)
	assert.True(t, v.Upgrades[4].Helper)
	assert.True(t, v.Upgrades[4].Affordable)
}

func TestWellRecordLabel(t *testing.T) {
	p := labelPrinter()
	assert.Equal(t, "1,025,066 people served", newWellRecord(p, 1, "Bangladesh").Label)
	assert.Equal(t, "500 people served", newWellRecord(p, 2, "Atlantis").Label)
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/country"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/infra/storage"
)

// countriesJSON returns n distinct master countries, starting with lead, as a JSON array.
func countriesJSON(t *testing.T, n int, lead ...string) string {
	t.Helper()
	out := append([]string{}, lead...)
	for _, c := range country.Master {
		if len(out) == n {
			break
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	require.Len(t, out, n)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return string(raw)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()

	a, _ := newTestEngine(t, store)
	require.NoError(t, a.SelectDifficulty(ctx, difficulty.Normal))
	require.NoError(t, a.AddDigs(1000))
	require.NoError(t, a.AddDigs(100))
	_, err := a.PurchaseUpgrade(0)
	require.NoError(t, err)
	_, err = a.PurchaseUpgrade(4)
	require.NoError(t, err)
	require.NoError(t, a.Save(ctx))

	b, el := newTestEngine(t, store)
	require.True(t, b.Load(ctx))

	assert.Equal(t, a.State(), b.State())
	assert.Equal(t, a.Wells(), b.Wells())
	assert.False(t, b.NeedsDifficulty())
	assert.Empty(t, el.ByType(events.EventTypeDifficultyRequired))
	assert.Empty(t, el.ByType(events.EventTypeGameCompleted))
}

func TestLoadReconcilesHelpers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	raw := `{
		"version": 1,
		"digPoints": 10,
		"wellsCompleted": 3,
		"wellCost": 10648,
		"difficulty": "normal",
		"countries": ` + countriesJSON(t, 12, "Kenya", "Nepal", "Mali", "Haiti") + `,
		"upgrades": [
			{"id": "shovel", "owned": 1, "cost": 155},
			{"id": "auto1", "owned": 1},
			{"id": "auto1", "owned": 0},
			{"id": "auto5", "owned": 1},
			{"id": "auto2", "owned": 0},
			{"id": "jetpack", "owned": 9}
		],
		"mystery": true
	}`
	require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(raw)))

	e, _ := newTestEngine(t, store)
	for i := 0; i < 2; i++ {
		require.True(t, e.Load(ctx))

		s := e.State()
		var helpers []string
		for _, u := range s.Upgrades {
			if u.IsHelper() {
				helpers = append(helpers, u.ID)
			}
		}
		assert.Equal(t, []string{"auto1", "auto2", "auto3"}, helpers)

		i1, _ := s.FindUpgrade("auto1")
		assert.Equal(t, 1, s.Upgrades[i1].Owned)
		i3, _ := s.FindUpgrade("auto3")
		assert.Equal(t, "💧 Mali Well Crew", s.Upgrades[i3].Name)

		assert.Equal(t, 155.0, s.Upgrades[0].Cost)
		assert.Equal(t, 2.0, s.ClickPower)
		assert.Equal(t, 15.0, s.DigsPerSecond)
		assert.Len(t, e.Wells(), 3)

		require.NoError(t, e.Save(ctx))
	}
}

func TestLoadNeverTrustsPersistedRates(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	raw := `{
		"wellsCompleted": 1,
		"wellCost": 2200,
		"difficulty": "normal",
		"countries": ` + countriesJSON(t, 12, "Kenya") + `,
		"clickPower": 9999,
		"digsPerSecond": 9999,
		"upgrades": [
			{"id": "shovel", "owned": 3},
			{"id": "volunteer", "owned": 2},
			{"id": "drill", "owned": 1},
			{"id": "grant", "owned": 2},
			{"id": "auto1", "owned": 1}
		]
	}`
	require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(raw)))

	e, _ := newTestEngine(t, store)
	require.True(t, e.Load(ctx))
	s := e.State()

	assert.Equal(t, 37.0, s.ClickPower)    // 1 + T(3) + 10*T(2)
	assert.Equal(t, 23.0, s.DigsPerSecond) // T(2) + 5*T(1) + 15
	assert.Equal(t, 372.0, s.Upgrades[0].Cost, "missing cost comes from the curve")
}

func TestLoadReemitsGameCompleted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	raw := `{"wellsCompleted": 7, "wellCost": 50000, "difficulty": "easy",
		"countries": ` + countriesJSON(t, 7, "Kenya", "Nepal") + `, "gameCompleted": false}`
	require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(raw)))

	e, el := newTestEngine(t, store)
	require.True(t, e.Load(ctx))

	s := e.State()
	assert.True(t, s.GameCompleted)
	want := 0
	for _, c := range s.Countries {
		want += country.PeopleServed(c)
	}
	completed := el.ByType(events.EventTypeGameCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 7, completed[0].Payload.(events.GameCompletedPayload).CountryCount)
	assert.Equal(t, want, completed[0].Payload.(events.GameCompletedPayload).TotalPeopleHelped)
}

func TestLoadWithoutDifficultyGatesGameplay(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(`{"digPoints": 40}`)))

	e, el := newTestEngine(t, store)
	require.True(t, e.Load(ctx))

	assert.True(t, e.NeedsDifficulty())
	assert.Equal(t, 40.0, e.State().DigPoints)
	assert.Len(t, el.ByType(events.EventTypeDifficultyRequired), 1)
	assert.ErrorIs(t, e.ManualDig(), ErrDifficultyRequired)
	_, err := e.PurchaseUpgrade(0)
	assert.ErrorIs(t, err, ErrDifficultyRequired)
}

func TestLoadOrdersHelpersByWell(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	raw := `{"wellsCompleted": 2, "wellCost": 1445, "difficulty": "easy",
		"countries": ` + countriesJSON(t, 7) + `,
		"upgrades": [{"id": "shovel", "owned": 0}, {"id": "auto2", "owned": 1}]}`
	require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(raw)))

	e, _ := newTestEngine(t, store)
	require.True(t, e.Load(ctx))

	s := e.State()
	ids := make([]string, 0, len(s.Upgrades))
	for _, u := range s.Upgrades {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"shovel", "volunteer", "drill", "grant", "auto1", "auto2"}, ids)
	assert.Zero(t, s.Upgrades[4].Owned)
	assert.Equal(t, 1, s.Upgrades[5].Owned)
}

func TestSelectDifficultyAfterLegacySave(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	raw := `{"digPoints": 50, "wellsCompleted": 8, "currentWellProgress": 900, "wellCost": 1000,
		"gameCompleted": true,
		"upgrades": [{"id": "shovel", "owned": 2}, {"id": "auto1", "owned": 1}]}`
	require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(raw)))

	e, _ := newTestEngine(t, store)
	require.True(t, e.Load(ctx))
	require.True(t, e.NeedsDifficulty())
	require.NoError(t, e.SelectDifficulty(ctx, difficulty.Easy))

	check := func(e *Engine) {
		s := e.State()
		assert.Equal(t, 50.0, s.DigPoints)
		assert.Zero(t, s.WellsCompleted)
		assert.Zero(t, s.CurrentWellProgress)
		assert.Equal(t, 500.0, s.WellCost)
		assert.False(t, s.GameCompleted)
		assert.Len(t, s.Countries, 7)
		assert.Len(t, s.Upgrades, 4)
		assert.Equal(t, 1.0, s.ClickPower)
		assert.Empty(t, e.Wells())
	}
	check(e)

	reloaded, _ := newTestEngine(t, store)
	require.True(t, reloaded.Load(ctx))
	check(reloaded)
	assert.Equal(t, e.State(), reloaded.State())
}

func TestCorruptSaveFallsBackToFresh(t *testing.T) {
	easy := countriesJSON(t, 7)
	cases := map[string]string{
		"not json":           `{"digPoints":`,
		"wrong types":        `{"digPoints": "lots"}`,
		"unknown difficulty": `{"difficulty": "nightmare"}`,
		"negative points":    fmt.Sprintf(`{"digPoints": -5, "difficulty": "easy", "countries": %s}`, easy),
		"zero well cost":     `{"wellCost": 0}`,
		"no countries":       `{"difficulty": "hard", "countries": []}`,
		"too few countries":  `{"difficulty": "hard", "wellsCompleted": 2, "countries": ["Kenya", "Nepal"]}`,
		"too many countries": fmt.Sprintf(`{"difficulty": "easy", "countries": %s}`, countriesJSON(t, 8)),
		"progress past cost": fmt.Sprintf(`{"difficulty": "easy", "wellCost": 500, "currentWellProgress": 500, "countries": %s}`, easy),
		"negative owned":     fmt.Sprintf(`{"difficulty": "easy", "countries": %s, "upgrades": [{"id": "drill", "owned": -1}]}`, easy),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemorySaveRepository()
			require.NoError(t, store.Save(ctx, DefaultSaveKey, []byte(raw)))

			e, el := newTestEngine(t, store)
			fresh := e.State()
			assert.False(t, e.Load(ctx))
			assert.Equal(t, fresh, e.State())
			assert.True(t, e.NeedsDifficulty())
			assert.Len(t, el.ByType(events.EventTypeDifficultyRequired), 1)
		})
	}
}

func TestUnreadableStoreFallsBackToFresh(t *testing.T) {
	store := storage.NewMemorySaveRepository()
	store.FailWith(errors.New("disk on fire"))

	e, _ := newTestEngine(t, store)
	assert.False(t, e.Load(context.Background()))
	assert.True(t, e.NeedsDifficulty())

	err := e.Save(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestResetGame(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	e, el := newTestEngine(t, store)
	require.NoError(t, e.SelectDifficulty(ctx, difficulty.Easy))
	require.NoError(t, e.AddDigs(500))
	before := e.State()

	reset, err := e.ResetGame(ctx, false)
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, before, e.State())
	_, found, _ := store.Load(ctx, DefaultSaveKey)
	assert.True(t, found)
	assert.Empty(t, el.ByType(events.EventTypeGameReset))

	reset, err = e.ResetGame(ctx, true)
	require.NoError(t, err)
	assert.True(t, reset)

	s := e.State()
	assert.True(t, e.NeedsDifficulty())
	assert.Zero(t, s.WellsCompleted)
	assert.Zero(t, s.DigPoints)
	assert.Equal(t, 1000.0, s.WellCost)
	assert.Len(t, s.Upgrades, 4)
	assert.Empty(t, e.Wells())
	_, found, _ = store.Load(ctx, DefaultSaveKey)
	assert.False(t, found)

	all := el.Replay()
	require.GreaterOrEqual(t, len(all), 2)
	assert.Equal(t, events.EventTypeGameReset, all[len(all)-2].Type)
	assert.Equal(t, events.EventTypeDifficultyRequired, all[len(all)-1].Type)

	// A new playthrough may pick another difficulty
	require.NoError(t, e.SelectDifficulty(ctx, difficulty.Hard))
}

func TestResetKeepsStateWhenDeleteFails(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepository()
	e, _ := newTestEngine(t, store)
	require.NoError(t, e.SelectDifficulty(ctx, difficulty.Easy))
	before := e.State()

	store.FailWith(errors.New("locked"))
	reset, err := e.ResetGame(ctx, true)
	assert.Error(t, err)
	assert.False(t, reset)
	assert.Equal(t, before, e.State())
}

// Package sim plays the game headlessly to check the balance of the difficulty tables.
package sim

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/engine"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/infra/storage"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
)

// Config describes one simulated playthrough.
type Config struct {
	Difficulty      difficulty.Difficulty
	Table           difficulty.Table // nil = built-in balance
	ClicksPerSecond int
	MaxSeconds      int
	Seed            int64
}

// WellTiming records when a well was finished, in simulated seconds.
type WellTiming struct {
	Number  int    `json:"number"`
	Country string `json:"country"`
	Second  int    `json:"second"`
}

// Report is the outcome of a simulated playthrough.
type Report struct {
	Difficulty   difficulty.Difficulty `json:"difficulty"`
	Seconds      int                   `json:"seconds"`
	Completed    bool                  `json:"completed"`
	Wells        []WellTiming          `json:"wells"`
	Purchases    map[string]int        `json:"purchases"`
	PeopleHelped int                   `json:"people_helped"`
	Final        engine.View           `json:"final"`
}

// AutoPlayer is a greedy player: it clicks, hires every helper and buys the cheapest affordable upgrade.
type AutoPlayer struct {
	cfg    Config
	engine *engine.Engine
	logger *logger.Logger
}

// NewAutoPlayer creates a player on a private in-memory engine.
func NewAutoPlayer(cfg Config, log *logger.Logger) *AutoPlayer {
	if cfg.ClicksPerSecond < 0 {
		cfg.ClicksPerSecond = 0
	}
	if log == nil {
		log = logger.NewNop()
	}
	eng := engine.NewEngine(
		storage.NewMemorySaveRepository(),
		events.NewEventLog(64, nil),
		logger.NewNop(),
		engine.Options{Table: cfg.Table, Rand: rand.New(rand.NewSource(cfg.Seed))},
	)
	return &AutoPlayer{cfg: cfg, engine: eng, logger: log}
}

// Run plays until every country has a well, MaxSeconds pass or ctx is cancelled.
func (p *AutoPlayer) Run(ctx context.Context) (Report, error) {
	if err := p.engine.SelectDifficulty(ctx, p.cfg.Difficulty); err != nil {
		return Report{}, fmt.Errorf("start %s playthrough: %w", p.cfg.Difficulty, err)
	}

	report := Report{
		Difficulty: p.cfg.Difficulty,
		Purchases:  map[string]int{},
	}

	for second := 1; second <= p.cfg.MaxSeconds; second++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		before := p.engine.State().WellsCompleted
		for i := 0; i < p.cfg.ClicksPerSecond; i++ {
			if err := p.engine.ManualDig(); err != nil {
				return report, fmt.Errorf("dig at %ds: %w", second, err)
			}
		}
		p.shop(report.Purchases)
		if err := p.engine.PassiveTick(); err != nil {
			return report, fmt.Errorf("tick at %ds: %w", second, err)
		}

		s := p.engine.State()
		for n := before + 1; n <= s.WellsCompleted; n++ {
			report.Wells = append(report.Wells, WellTiming{Number: n, Country: s.CountryForWell(n), Second: second})
			p.logger.Debug("Well finished", zap.Int("well", n), zap.Int("second", second))
		}

		report.Seconds = second
		if s.GameCompleted {
			report.Completed = true
			break
		}
	}

	report.Final = p.engine.View()
	report.PeopleHelped = report.Final.PeopleHelped
	p.logger.Info("Simulation finished",
		zap.String("difficulty", string(p.cfg.Difficulty)),
		zap.Int("seconds", report.Seconds),
		zap.Bool("completed", report.Completed),
	)
	return report, nil
}

// shop spends dig points until nothing is affordable.
func (p *AutoPlayer) shop(purchases map[string]int) {
	for {
		best := -1
		bestCost := 0.0
		for _, u := range p.engine.View().Upgrades {
			if !u.Affordable || (u.Helper && u.Owned > 0) {
				continue
			}
			if best == -1 || u.Cost < bestCost {
				best, bestCost = u.Index, u.Cost
			}
		}
		if best == -1 {
			return
		}
		bought, err := p.engine.PurchaseUpgrade(best)
		if err != nil {
			return
		}
		purchases[bought.ID]++
	}
}

package engine

import (
	"fmt"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
)

// PurchaseUpgrade buys one copy of the upgrade at index and returns it after the purchase.
func (e *Engine) PurchaseUpgrade(index int) (upgrade.Upgrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, err := e.purchaseLocked(index)
	e.metrics.RecordPurchase(err == nil)
	return u, err
}

func (e *Engine) purchaseLocked(index int) (upgrade.Upgrade, error) {
	if !e.state.Difficulty.IsSet() {
		return upgrade.Upgrade{}, ErrDifficultyRequired
	}
	if index < 0 || index >= len(e.state.Upgrades) {
		return upgrade.Upgrade{}, fmt.Errorf("%w: index %d", ErrUnknownUpgrade, index)
	}

	u := &e.state.Upgrades[index]
	paid := u.Cost
	if paid > 0 && e.state.DigPoints < paid {
		return upgrade.Upgrade{}, fmt.Errorf("%w: %s costs %.0f, have %.0f", ErrInsufficientFunds, u.ID, paid, e.state.DigPoints)
	}

	if paid > 0 {
		e.state.DigPoints -= paid
	} else {
		paid = 0
	}
	u.Owned++
	if u.IsHelper() {
		u.Cost = 0
	} else {
		u.Cost = e.settingsLocked().Curve(u.Kind).CostAt(u.Owned)
	}
	bought := *u

	e.recalcLocked()
	e.emit(events.EventTypeUpgradePurchased, events.ActorPlayer, events.UpgradePurchasedPayload{
		Index:    index,
		ID:       bought.ID,
		Owned:    bought.Owned,
		Paid:     paid,
		NextCost: bought.Cost,
	})
	return bought, nil
}

// RecalcUpgrades recomputes click power and digs per second from the upgrades.
func (e *Engine) RecalcUpgrades() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recalcLocked()
}

func (e *Engine) recalcLocked() {
	click, perSecond := 1.0, 0.0
	for _, u := range e.state.Upgrades {
		c, p := u.Contribution()
		click += c
		perSecond += p
	}
	e.state.ClickPower = click
	e.state.DigsPerSecond = perSecond
}

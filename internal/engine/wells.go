package engine

import (
	"cmp"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/country"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
)

// WellRecord is one finished well as shown on the well list.
type WellRecord struct {
	Number       int    `json:"number"`
	Country      string `json:"country"`
	PeopleServed int    `json:"peopleServed"`
	Label        string `json:"label"` // e.g. "1,025,066 people served"
}

func newWellRecord(p *message.Printer, number int, name string) WellRecord {
	people := country.PeopleServed(name)
	return WellRecord{
		Number:       number,
		Country:      name,
		PeopleServed: people,
		Label:        p.Sprintf("%d people served", people),
	}
}

func labelPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// completeWellLocked finishes the current well. Called from addDigsLocked only.
func (e *Engine) completeWellLocked() {
	e.state.WellsCompleted++
	e.state.CurrentWellProgress = 0
	n := e.state.WellsCompleted

	e.ensureHelperLocked(n)
	e.state.WellCost = e.settingsLocked().NextWellCost(e.state.WellCost)

	record := newWellRecord(labelPrinter(), n, e.state.CountryForWell(n))
	e.wells = append(e.wells, record)
	e.metrics.RecordWellCompleted()
	e.emit(events.EventTypeWellCompleted, events.ActorEngine, events.WellCompletedPayload{
		WellNumber:   n,
		Country:      record.Country,
		PeopleServed: record.PeopleServed,
	})

	if required := len(e.state.Countries); n >= required {
		e.state.GameCompleted = true
		e.emitGameCompletedLocked()
	} else {
		e.emit(events.EventTypeWellProgress, events.ActorEngine, events.WellProgressPayload{
			WellsCompleted: n,
			Remaining:      required - n,
		})
	}
}

// ensureHelperLocked appends the helper of well n unless it already exists.
func (e *Engine) ensureHelperLocked(n int) {
	if _, ok := e.state.FindUpgrade(upgrade.HelperID(n)); ok {
		return
	}
	e.state.Upgrades = append(e.state.Upgrades, upgrade.NewHelper(n, e.state.CountryForWell(n)))
}

// ensureHelpersLocked guarantees one helper per completed well, ordered by well number
// after the fixed upgrades.
func (e *Engine) ensureHelpersLocked() {
	for n := 1; n <= e.state.WellsCompleted; n++ {
		e.ensureHelperLocked(n)
	}
	slices.SortStableFunc(e.state.Upgrades, func(a, b upgrade.Upgrade) int {
		return cmp.Compare(helperRank(a), helperRank(b))
	})
}

// helperRank is 0 for fixed upgrades and the well number for helpers.
func helperRank(u upgrade.Upgrade) int {
	if !u.IsHelper() {
		return 0
	}
	_, n, _ := upgrade.ParseID(u.ID)
	return n
}

// rebuildWellsLocked derives the well list from the completed count.
func (e *Engine) rebuildWellsLocked() {
	p := labelPrinter()
	e.wells = make([]WellRecord, 0, e.state.WellsCompleted)
	for n := 1; n <= e.state.WellsCompleted; n++ {
		e.wells = append(e.wells, newWellRecord(p, n, e.state.CountryForWell(n)))
	}
}

func (e *Engine) peopleHelpedLocked() int {
	total := 0
	for _, w := range e.wells {
		total += w.PeopleServed
	}
	return total
}

func (e *Engine) emitGameCompletedLocked() {
	e.emit(events.EventTypeGameCompleted, events.ActorEngine, events.GameCompletedPayload{
		CountryCount:      len(e.state.Countries),
		TotalPeopleHelped: e.peopleHelpedLocked(),
	})
}

// Wells returns the finished wells in completion order.
func (e *Engine) Wells() []WellRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]WellRecord(nil), e.wells...)
}

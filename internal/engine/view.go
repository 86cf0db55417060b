package engine

// UpgradeView is one row of the upgrade board.
type UpgradeView struct {
	Index      int     `json:"index"`
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Cost       float64 `json:"cost"`
	Owned      int     `json:"owned"`
	Effect     string  `json:"effect"`
	Affordable bool    `json:"affordable"`
	NextEffect string  `json:"nextEffect"`
	Available  bool    `json:"available"`
	Helper     bool    `json:"helper"`
}

// View is the read model pushed to the presentation layer.
type View struct {
	DigPoints           float64       `json:"digPoints"`
	CurrentWellProgress float64       `json:"currentWellProgress"`
	WellCost            float64       `json:"wellCost"`
	ClickPower          float64       `json:"clickPower"`
	DigsPerSecond       float64       `json:"digsPerSecond"`
	WellsCompleted      int           `json:"wellsCompleted"`
	WellsRequired       int           `json:"wellsRequired"`
	PeopleHelped        int           `json:"peopleHelped"`
	Difficulty          string        `json:"difficulty"`
	NeedsDifficulty     bool          `json:"needsDifficulty"`
	GameCompleted       bool          `json:"gameCompleted"`
	Countries           []string      `json:"countries"`
	Upgrades            []UpgradeView `json:"upgrades"`
	Wells               []WellRecord  `json:"wells"`
}

// View builds the read model from the current state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &e.state
	v := View{
		DigPoints:           s.DigPoints,
		CurrentWellProgress: s.CurrentWellProgress,
		WellCost:            s.WellCost,
		ClickPower:          s.ClickPower,
		DigsPerSecond:       s.DigsPerSecond,
		WellsCompleted:      s.WellsCompleted,
		WellsRequired:       len(s.Countries),
		PeopleHelped:        e.peopleHelpedLocked(),
		Difficulty:          string(s.Difficulty),
		NeedsDifficulty:     !s.Difficulty.IsSet(),
		GameCompleted:       s.GameCompleted,
		Countries:           append([]string{}, s.Countries...),
		Upgrades:            make([]UpgradeView, 0, len(s.Upgrades)),
		Wells:               append([]WellRecord{}, e.wells...),
	}

	for i, u := range s.Upgrades {
		v.Upgrades = append(v.Upgrades, UpgradeView{
			Index:      i,
			ID:         u.ID,
			Name:       u.Name,
			Cost:       u.Cost,
			Owned:      u.Owned,
			Effect:     string(u.Effect),
			Affordable: s.Difficulty.IsSet() && s.CanAfford(i),
			NextEffect: u.NextEffect(),
			Available:  u.Available,
			Helper:     u.IsHelper(),
		})
	}
	return v
}

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/country"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/domain/upgrade"
)

// BalanceFile is the YAML layout of a difficulty override file:
//
//	difficulties:
//	  easy:
//	    well_cost: 500
//	    well_growth: 1.7
//	    wells_required: 7
//	    upgrades:
//	      shovel: {base: 80, growth: 1.35}
type BalanceFile struct {
	Difficulties map[string]DifficultyBalance `yaml:"difficulties"`
}

// DifficultyBalance is one difficulty of the balance file.
type DifficultyBalance struct {
	WellCost      float64                  `yaml:"well_cost"`
	WellGrowth    float64                  `yaml:"well_growth"`
	WellsRequired int                      `yaml:"wells_required"`
	Upgrades      map[string]upgrade.Curve `yaml:"upgrades"`
}

// LoadBalance reads a balance file and returns the validated difficulty table.
func LoadBalance(path string) (difficulty.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read balance file: %w", err)
	}
	return ParseBalance(raw)
}

// ParseBalance decodes balance YAML. Unknown keys are rejected.
func ParseBalance(raw []byte) (difficulty.Table, error) {
	var file BalanceFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode balance file: %w", err)
	}

	table := difficulty.Table{}
	for name, b := range file.Difficulties {
		d, err := difficulty.Parse(name)
		if err != nil || !d.IsSet() {
			return nil, fmt.Errorf("balance file: unknown difficulty %q", name)
		}
		s := difficulty.Settings{
			WellCost:      b.WellCost,
			WellGrowth:    b.WellGrowth,
			WellsRequired: b.WellsRequired,
			Curves:        make(map[upgrade.Kind]upgrade.Curve, len(b.Upgrades)),
		}
		for id, curve := range b.Upgrades {
			k, _, ok := upgrade.ParseID(id)
			if !ok || !k.IsFixed() {
				return nil, fmt.Errorf("balance file: difficulty %s: unknown upgrade %q", name, id)
			}
			s.Curves[k] = curve
		}
		table[d] = s
	}

	if err := table.Validate(len(country.Master)); err != nil {
		return nil, fmt.Errorf("balance file: %w", err)
	}
	return table, nil
}

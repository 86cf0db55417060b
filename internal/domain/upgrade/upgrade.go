// Package upgrade defines the purchasable modifiers that raise dig production.
// This package is PURE and must NOT import any infrastructure packages.
package upgrade

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies an upgrade family and carries its scaling rule.
type Kind int

const (
	KindShovel    Kind = iota // +T(n) dig per click
	KindVolunteer             // +T(n) digs per second
	KindDrill                 // +5*T(n) digs per second
	KindGrant                 // +10*T(n) dig per click
	KindHelper                // flat +15 digs per second once hired
)

// Target is the derived rate an upgrade contributes to.
type Target int

const (
	TargetClickPower Target = iota
	TargetDigsPerSecond
)

// Effect tags how an upgrade behaves on the board.
type Effect string

const (
	EffectNone    Effect = "none"
	EffectAutoDig Effect = "auto-dig" // Helper crews unlocked by finished wells
)

// HelperRate is the flat passive bonus of any hired helper crew.
const HelperRate = 15.0

const helperPrefix = "auto"

// Scaling describes how a kind contributes to the derived rates.
type Scaling struct {
	ID         string
	Name       string
	Target     Target
	Multiplier float64 // Applied to the triangular number of owned
}

// Registry contains the fixed upgrade kinds in purchase order.
var Registry = map[Kind]Scaling{
	KindShovel:    {ID: "shovel", Name: "🔨 Better Shovel", Target: TargetClickPower, Multiplier: 1},
	KindVolunteer: {ID: "volunteer", Name: "👷 Volunteer", Target: TargetDigsPerSecond, Multiplier: 1},
	KindDrill:     {ID: "drill", Name: "⛏️ Drill Equipment", Target: TargetDigsPerSecond, Multiplier: 5},
	KindGrant:     {ID: "grant", Name: "💰 Funding Grant", Target: TargetClickPower, Multiplier: 10},
}

// FixedKinds returns the purchasable kinds in display order.
func FixedKinds() []Kind {
	return []Kind{KindShovel, KindVolunteer, KindDrill, KindGrant}
}

// IsFixed reports whether the kind has a cost curve.
func (k Kind) IsFixed() bool {
	_, ok := Registry[k]
	return ok
}

// ID returns the stable identifier of a fixed kind.
func (k Kind) ID() string {
	if s, ok := Registry[k]; ok {
		return s.ID
	}
	return helperPrefix
}

func (k Kind) String() string {
	return k.ID()
}

// HelperID returns the id of the helper unlocked by the n-th well.
func HelperID(wellNumber int) string {
	return helperPrefix + strconv.Itoa(wellNumber)
}

// ParseID resolves an upgrade id. For helpers the well number is returned as well.
func ParseID(id string) (Kind, int, bool) {
	for _, k := range FixedKinds() {
		if Registry[k].ID == id {
			return k, 0, true
		}
	}
	if rest, ok := strings.CutPrefix(id, helperPrefix); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n > 0 {
			return KindHelper, n, true
		}
	}
	return 0, 0, false
}

// Curve is the geometric price curve of a fixed kind.
type Curve struct {
	Base   float64 `yaml:"base"`
	Growth float64 `yaml:"growth"`
}

// CostAt returns round(base * growth^owned).
func (c Curve) CostAt(owned int) float64 {
	return math.Round(c.Base * math.Pow(c.Growth, float64(owned)))
}

// Upgrade is a single entry of the upgrade board.
type Upgrade struct {
	ID        string  `json:"id"`
	Kind      Kind    `json:"-"`
	Name      string  `json:"name"`
	Cost      float64 `json:"cost"`
	Owned     int     `json:"owned"`
	Effect    Effect  `json:"effect"`
	Available bool    `json:"available,omitempty"` // Helpers only
}

// NewFixed creates an unowned upgrade of a fixed kind priced at the curve base.
func NewFixed(k Kind, c Curve) Upgrade {
	s := Registry[k]
	return Upgrade{
		ID:     s.ID,
		Kind:   k,
		Name:   s.Name,
		Cost:   c.CostAt(0),
		Effect: EffectNone,
	}
}

// NewHelper creates the free helper crew unlocked by the given well.
func NewHelper(wellNumber int, country string) Upgrade {
	return Upgrade{
		ID:        HelperID(wellNumber),
		Kind:      KindHelper,
		Name:      HelperName(country),
		Cost:      0,
		Effect:    EffectAutoDig,
		Available: true,
	}
}

// HelperName is the display label of a helper crew.
func HelperName(country string) string {
	if country == "" {
		return "💧 Local Well Crew"
	}
	return "💧 " + country + " Well Crew"
}

// IsHelper reports whether the upgrade is a free auto-dig helper.
func (u Upgrade) IsHelper() bool {
	return u.Kind == KindHelper
}

// Triangular returns 1+2+...+n.
func Triangular(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) * float64(n+1) / 2
}

// Contribution returns what the upgrade adds to click power and digs per second.
func (u Upgrade) Contribution() (click, perSecond float64) {
	if u.IsHelper() {
		if u.Owned > 0 {
			return 0, HelperRate
		}
		return 0, 0
	}
	s, ok := Registry[u.Kind]
	if !ok {
		return 0, 0
	}
	amount := s.Multiplier * Triangular(u.Owned)
	if s.Target == TargetClickPower {
		return amount, 0
	}
	return 0, amount
}

// NextEffect describes what buying one more copy would add.
func (u Upgrade) NextEffect() string {
	if u.IsHelper() {
		if u.Owned > 0 {
			return fmt.Sprintf("Digging: +%g digs per second", HelperRate)
		}
		return fmt.Sprintf("Hire: +%g digs per second", HelperRate)
	}
	s, ok := Registry[u.Kind]
	if !ok {
		return ""
	}
	step := s.Multiplier * float64(u.Owned+1)
	if s.Target == TargetClickPower {
		return fmt.Sprintf("Next: +%g dig per click", step)
	}
	return fmt.Sprintf("Next: +%g dig per second", step)
}

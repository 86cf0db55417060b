// Package country holds the countries a well can be dedicated to.
// This package is PURE and must NOT import any infrastructure packages.
package country

import "math/rand"

// DefaultPeopleServed is used when a country has no figure on record.
const DefaultPeopleServed = 500

// Master is the pool countries are sampled from at difficulty selection.
var Master = []string{
	"Bangladesh", "Burkina Faso", "Central African Republic", "Cote d'Ivoire", "Ethiopia",
	"Guatemala", "Haiti", "Honduras", "India", "Kenya", "Liberia", "Malawi", "Mali",
	"Mozambique", "Nepal", "Niger", "Pakistan", "Rwanda", "Sierra Leone", "Tanzania", "Uganda",
}

// People maps a country to the people its wells serve.
var People = map[string]int{
	"Bangladesh":               1025066,
	"Burkina Faso":             61694,
	"Central African Republic": 540639,
	"Cote d'Ivoire":            159293,
	"Ethiopia":                 3025007,
	"Guatemala":                10368,
	"Haiti":                    71666,
	"Honduras":                 17272,
	"India":                    582905,
	"Kenya":                    147934,
	"Liberia":                  131082,
	"Malawi":                   1019623,
	"Mali":                     318980,
	"Mozambique":               344377,
	"Nepal":                    356228,
	"Niger":                    231704,
	"Pakistan":                 35458,
	"Rwanda":                   554197,
	"Sierra Leone":             83418,
	"Tanzania":                 118583,
	"Uganda":                   610500,
}

// PeopleServed returns the figure for a country, falling back to DefaultPeopleServed.
func PeopleServed(name string) int {
	if n, ok := People[name]; ok {
		return n
	}
	return DefaultPeopleServed
}

// Sample returns a random permutation of Master truncated to n entries.
func Sample(r *rand.Rand, n int) []string {
	if n > len(Master) {
		n = len(Master)
	}
	if n < 0 {
		n = 0
	}
	order := r.Perm(len(Master))
	out := make([]string, 0, n)
	for _, i := range order[:n] {
		out = append(out, Master[i])
	}
	return out
}

package service

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// NameLists are the pools synthetic people are named from.
type NameLists struct {
	Male   []string
	Female []string
	Last   []string
}

// DefaultNameLists is used when no name files are available.
func DefaultNameLists() NameLists {
	return NameLists{
		Male:   []string{"Thomas", "Michael"},
		Female: []string{"Sabine", "Susanne"},
		Last:   []string{"Müller", "Schmidt"},
	}
}

// Complete reports whether every pool has at least one entry.
func (n NameLists) Complete() bool {
	return len(n.Male) > 0 && len(n.Female) > 0 && len(n.Last) > 0
}

// IdentityGenerator draws names, birth dates and unique teacher abbreviations.
type IdentityGenerator struct {
	rng   *rand.Rand
	names NameLists
	used  map[string]bool
}

// NewIdentityGenerator falls back to DefaultNameLists when names is incomplete.
func NewIdentityGenerator(rng *rand.Rand, names NameLists) *IdentityGenerator {
	if !names.Complete() {
		names = DefaultNameLists()
	}
	return &IdentityGenerator{rng: rng, names: names, used: make(map[string]bool)}
}

// Person returns a random first and last name.
func (g *IdentityGenerator) Person() (string, string) {
	first := g.names.Female
	if g.rng.Intn(2) == 0 {
		first = g.names.Male
	}
	return first[g.rng.Intn(len(first))], g.names.Last[g.rng.Intn(len(g.names.Last))]
}

// Abbreviation derives a unique teacher code from the first letter of the first
// name and the first two letters of the last name; clashes get a numeric suffix.
func (g *IdentityGenerator) Abbreviation(first, last string) string {
	code := strings.ToUpper(prefix(first, 1) + prefix(last, 2))
	base := prefix(code, 2)
	for counter := 1; g.used[code]; counter++ {
		code = base + strconv.Itoa(counter)
	}
	g.used[code] = true
	return code
}

// BirthDate returns a uniform date between Jan 1 of fromYear and Dec 31 of toYear.
func (g *IdentityGenerator) BirthDate(fromYear, toYear int) time.Time {
	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	return start.AddDate(0, 0, g.rng.Intn(days+1))
}

func prefix(s string, n int) string {
	runes := make([]rune, 0, n)
	for _, r := range s {
		if len(runes) == n {
			break
		}
		if unicode.IsSpace(r) {
			continue
		}
		runes = append(runes, r)
	}
	return string(runes)
}

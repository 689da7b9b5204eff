// Package tiers resolves a paid amount to an access level using a static,
// ordered price table.
package tiers

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Tier is one row of the price table. RequiredUnits is the price in the
// currency's base units; Price is the same value in whole currency units.
type Tier struct {
	Name          string  `json:"tierName"`
	RequiredUnits uint64  `json:"requiredAmount"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
}

// Spec describes a tier as configured: a name and a price in whole currency
// units.
type Spec struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Table is an immutable tier table sorted by ascending price.
type Table struct {
	tiers []Tier
}

// ToBaseUnits converts an amount in whole currency units to base units,
// rounding to the nearest unit.
func ToBaseUnits(amount float64, decimals int) uint64 {
	return uint64(math.Round(amount * math.Pow10(decimals)))
}

// NewTable builds a Table from configured specs. Names must be unique and
// prices positive.
func NewTable(specs []Spec, currency string, decimals int) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("tier table is empty")
	}

	seen := make(map[string]struct{}, len(specs))
	out := make([]Tier, 0, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, errors.New("tier name is empty")
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", s.Name)
		}
		if s.Price <= 0 {
			return nil, fmt.Errorf("tier %q: price must be positive", s.Name)
		}
		seen[s.Name] = struct{}{}
		out = append(out, Tier{
			Name:          s.Name,
			RequiredUnits: ToBaseUnits(s.Price, decimals),
			Price:         s.Price,
			Currency:      currency,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].RequiredUnits < out[j].RequiredUnits })
	return &Table{tiers: out}, nil
}

// Resolve returns the highest tier whose required amount does not exceed
// amount. ok is false when the amount is below the cheapest tier.
func (t *Table) Resolve(amount uint64) (Tier, bool) {
	i := sort.Search(len(t.tiers), func(i int) bool { return t.tiers[i].RequiredUnits > amount })
	if i == 0 {
		return Tier{}, false
	}
	return t.tiers[i-1], true
}

// Lookup finds a tier by name.
func (t *Table) Lookup(name string) (Tier, bool) {
	for _, tier := range t.tiers {
		if tier.Name == name {
			return tier, true
		}
	}
	return Tier{}, false
}

// Higher returns whichever of a and b costs more.
func Higher(a, b Tier) Tier {
	if b.RequiredUnits > a.RequiredUnits {
		return b
	}
	return a
}

// All returns a copy of the table in ascending price order.
func (t *Table) All() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

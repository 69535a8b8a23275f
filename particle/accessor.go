package particle

import (
	"fmt"

	"github.com/ucsd-galaxy-lab/gizio/snap"
	"github.com/ucsd-galaxy-lab/gizio/spec"
)

// Accessor holds the default Selectors of a snapshot: one per particle type
// with at least one particle, keyed by abbreviation, plus "all".
type Accessor struct {
	abbrs []string
	sels  map[string]*Selector
}

// NewAccessor builds the default Selectors of s and registers the format's
// derived fields on each of them.
func NewAccessor(s *snap.Snapshot) (*Accessor, error) {
	sp := s.Spec()
	acc := &Accessor{sels: map[string]*Selector{}}

	add := func(abbr string, ptypes ...string) error {
		sel, err := FromPtypes(s, ptypes...)
		if err != nil {
			return err
		}
		if err = sp.RegisterDerivedFields(sel, abbr); err != nil {
			return err
		}
		acc.abbrs = append(acc.abbrs, abbr)
		acc.sels[abbr] = sel
		return nil
	}

	for i, pt := range sp.Ptypes {
		if s.Shape()[i].N == 0 {
			continue
		}
		if err := add(pt.Abbr, pt.Name); err != nil {
			return nil, err
		}
	}
	if err := add(spec.AllAbbr, sp.PtypeNames()...); err != nil {
		return nil, err
	}
	return acc, nil
}

// Abbrs returns the keys of the default Selectors, with "all" last.
func (acc *Accessor) Abbrs() []string { return append([]string{}, acc.abbrs...) }

// Get returns the default Selector of a particle type abbreviation.
func (acc *Accessor) Get(abbr string) (*Selector, bool) {
	sel, ok := acc.sels[abbr]
	return sel, ok
}

// Lookup is like Get, but returns an ErrInvalidKey error for unknown
// abbreviations.
func (acc *Accessor) Lookup(abbr string) (*Selector, error) {
	sel, ok := acc.sels[abbr]
	if !ok {
		return nil, fmt.Errorf("%w: no particles of type '%s' (have %v)",
			ErrInvalidKey, abbr, acc.abbrs)
	}
	return sel, nil
}

// All returns the Selector over every particle.
func (acc *Accessor) All() *Selector { return acc.sels[spec.AllAbbr] }

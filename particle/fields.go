package particle

import (
	"fmt"

	"github.com/ucsd-galaxy-lab/gizio/field"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

// directField loads a field stored on disk for every selected particle. It's
// a comparable value, so two selectors registering the same direct field
// hold the same registration.
type directField struct {
	raw string
}

func (d directField) Produce(h field.Handle[*unit.Array]) (*unit.Array, error) {
	sel, ok := h.(*Selector)
	if !ok {
		return nil, fmt.Errorf("particle: direct field '%s' needs a Selector",
			d.raw)
	}

	shape := sel.snap.Shape()
	parts := []*unit.Array{}
	for _, i := range sel.active() {
		all, err := sel.snap.Get(shape[i].Ptype, d.raw)
		if err != nil {
			return nil, err
		}

		bm := sel.masks[i]
		if int(bm.GetCardinality()) == all.Len() {
			parts = append(parts, all)
			continue
		}
		idx := make([]int, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			idx = append(idx, int(it.Next()))
		}
		parts = append(parts, all.Take(idx))
	}

	switch len(parts) {
	case 0:
		return sel.snap.Array([]float64{}, 1, sel.snap.Spec().FieldUnit(d.raw))
	case 1:
		return parts[0], nil
	}
	return unit.Concatenate(parts...)
}

// DirectFields returns the on-disk fields stored for every selected particle
// type, in the order the first selected type lists them.
func (sel *Selector) DirectFields() []string {
	active := sel.active()
	if len(active) == 0 {
		return []string{}
	}

	shape := sel.snap.Shape()
	count := map[string]int{}
	order := []string{}
	for _, k := range sel.snap.Keys() {
		for _, i := range active {
			if k.Ptype != shape[i].Ptype {
				continue
			}
			if count[k.Field] == 0 && i == active[0] {
				order = append(order, k.Field)
			}
			count[k.Field]++
		}
	}

	out := []string{}
	for _, f := range order {
		if count[f] == len(active) {
			out = append(out, f)
		}
	}
	return out
}

// reconcile brings the direct-field registrations in line with the current
// masks. Direct fields that some selected type lacks are dropped, and newly
// available ones are registered if their key is free. A selector with
// nothing selected keeps its registrations.
func (sel *Selector) reconcile() {
	if !sel.dropUnavailable() {
		return
	}
	for _, f := range sel.DirectFields() {
		if !sel.fields.Contains(f) {
			sel.fields.Register(f, directField{f})
		}
	}
}

// dropUnavailable unregisters the direct fields that some selected type
// lacks. It returns false, and does nothing, if nothing is selected.
func (sel *Selector) dropUnavailable() bool {
	if len(sel.active()) == 0 {
		return false
	}

	available := map[string]bool{}
	for _, f := range sel.DirectFields() {
		available[f] = true
	}
	for _, key := range sel.fields.Keys() {
		p, _ := sel.fields.Lookup(key)
		if d, ok := p.(directField); ok && !available[d.raw] {
			_ = sel.fields.Unregister(key)
		}
	}
	return true
}

// resolve follows key through sel's aliases. A registered key shadows an
// alias of the same name.
func (sel *Selector) resolve(key string) (string, error) {
	if sel.fields.Contains(key) {
		return key, nil
	}
	target, err := sel.aliases.Resolve(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return target, nil
}

// Get returns the value of a registered field, computing it if it isn't
// cached. key may be an alias.
func (sel *Selector) Get(key string) (*unit.Array, error) {
	target, err := sel.resolve(key)
	if err != nil {
		return nil, err
	}
	return sel.fields.Get(target)
}

// Contains returns true if key, or the field it's an alias of, is
// registered.
func (sel *Selector) Contains(key string) bool {
	target, err := sel.resolve(key)
	return err == nil && sel.fields.Contains(target)
}

// Keys returns every registered field in registration order. Aliases aren't
// included.
func (sel *Selector) Keys() []string { return sel.fields.Keys() }

// CachedKeys returns the registered fields that currently have cached values.
func (sel *Selector) CachedKeys() []string { return sel.fields.CachedKeys() }

// RegisterField registers p under key, replacing any earlier registration.
// key is taken literally: registering under an alias shadows the alias
// rather than replacing the field it points to.
func (sel *Selector) RegisterField(key string, p field.Producer[*unit.Array]) {
	sel.fields.Register(key, p)
}

// UnregisterField removes the registration of key and its cached value.
func (sel *Selector) UnregisterField(key string) error {
	target, err := sel.resolve(key)
	if err != nil {
		return err
	}
	return sel.fields.Unregister(target)
}

// Delete drops the cached value of key but keeps its registration. Deleting
// a key that isn't cached does nothing. It returns true if a value was
// dropped.
func (sel *Selector) Delete(key string) bool {
	target, err := sel.resolve(key)
	if err != nil {
		return false
	}
	return sel.fields.Drop(target)
}

// ClearCache drops every cached value.
func (sel *Selector) ClearCache() { sel.fields.ClearCache() }

// Alias makes alias refer to target.
func (sel *Selector) Alias(alias, target string) { sel.aliases.Set(alias, target) }

// Aliases returns a copy of sel's alias table.
func (sel *Selector) Aliases() map[string]string { return sel.aliases.Map() }

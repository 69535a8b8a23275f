package particle

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/ucsd-galaxy-lab/gizio/array"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

// Where returns a Selector narrowed to the selected particles for which cond
// is true. cond is laid out like a field of sel: the selected particles of
// each type in turn, in format order. The new Selector copies sel's
// registrations but not its cache.
func (sel *Selector) Where(cond []bool) (*Selector, error) {
	if n := sel.Len(); len(cond) != n {
		return nil, fmt.Errorf("%w: condition has length %d, selection "+
			"has %d particles", ErrLength, len(cond), n)
	}

	out := sel.Copy()
	offset := 0
	for _, i := range sel.active() {
		bm := roaring.New()
		it := sel.masks[i].Iterator()
		for j := offset; it.HasNext(); j++ {
			pos := it.Next()
			if cond[j] {
				bm.Add(pos)
			}
		}
		offset += int(sel.masks[i].GetCardinality())
		out.masks[i] = bm
	}
	out.normalize()
	out.reconcile()

	log := sel.snap.Logger()
	log.Debug().
		Int("before", sel.Len()).
		Int("after", out.Len()).
		Msg("narrowed selection")
	return out, nil
}

// Item looks up key the way indexing does: a string returns a field as a
// *unit.Array and a []bool returns the narrowed *Selector. Anything else is
// an ErrInvalidKey.
func (sel *Selector) Item(key any) (any, error) {
	switch k := key.(type) {
	case string:
		return sel.Get(k)
	case []bool:
		return sel.Where(k)
	}
	return nil, fmt.Errorf("%w: can't index a selector with %T", ErrInvalidKey, key)
}

type setOp int

const (
	opUnion setOp = iota
	opIntersection
	opDifference
	opSymmetricDifference
)

// apply combines other into sel in place. Only registrations and aliases
// shared by both selectors survive, and no direct field is registered that
// wasn't registered on both sides.
func (sel *Selector) apply(other *Selector, op setOp) error {
	if sel.snap != other.snap {
		return ErrSnapshotMismatch
	}

	sel.fields.ClearCache()
	sel.fields.Intersect(other.fields)
	sel.aliases.Intersect(other.aliases)

	masks := make([]*roaring.Bitmap, len(sel.masks))
	for i := range masks {
		a, b := sel.masks[i], other.masks[i]
		if a == nil && b == nil {
			continue
		}
		if a == nil {
			a = roaring.New()
		}
		if b == nil {
			b = roaring.New()
		}

		switch op {
		case opUnion:
			masks[i] = roaring.Or(a, b)
		case opIntersection:
			masks[i] = roaring.And(a, b)
		case opDifference:
			// A xor (A and B), which is A and not B.
			masks[i] = roaring.AndNot(a, b)
		case opSymmetricDifference:
			masks[i] = roaring.Xor(a, b)
		}
	}
	sel.masks = masks
	sel.normalize()
	sel.dropUnavailable()
	return nil
}

func (sel *Selector) combined(other *Selector, op setOp) (*Selector, error) {
	out := sel.Copy()
	if err := out.apply(other, op); err != nil {
		return nil, err
	}
	return out, nil
}

// Union returns the particles selected by either sel or other.
func (sel *Selector) Union(other *Selector) (*Selector, error) {
	return sel.combined(other, opUnion)
}

// Intersection returns the particles selected by both sel and other.
func (sel *Selector) Intersection(other *Selector) (*Selector, error) {
	return sel.combined(other, opIntersection)
}

// Difference returns the particles selected by sel but not other.
func (sel *Selector) Difference(other *Selector) (*Selector, error) {
	return sel.combined(other, opDifference)
}

// SymmetricDifference returns the particles selected by exactly one of sel
// and other.
func (sel *Selector) SymmetricDifference(other *Selector) (*Selector, error) {
	return sel.combined(other, opSymmetricDifference)
}

// UnionInPlace adds the particles selected by other to sel.
func (sel *Selector) UnionInPlace(other *Selector) error {
	return sel.apply(other, opUnion)
}

// IntersectionInPlace removes the particles other doesn't select from sel.
func (sel *Selector) IntersectionInPlace(other *Selector) error {
	return sel.apply(other, opIntersection)
}

// DifferenceInPlace removes the particles other selects from sel.
func (sel *Selector) DifferenceInPlace(other *Selector) error {
	return sel.apply(other, opDifference)
}

// SymmetricDifferenceInPlace replaces sel's selection with the particles
// selected by exactly one of sel and other.
func (sel *Selector) SymmetricDifferenceInPlace(other *Selector) error {
	return sel.apply(other, opSymmetricDifference)
}

// Complement returns the particles of the snapshot that sel doesn't select,
// across every particle type. Registrations and aliases are kept.
func (sel *Selector) Complement() *Selector {
	out := sel.Copy()
	out.ComplementInPlace()
	return out
}

// ComplementInPlace replaces sel's selection with every particle of the
// snapshot it didn't select.
func (sel *Selector) ComplementInPlace() {
	sel.fields.ClearCache()
	shape := sel.snap.Shape()
	for i, bm := range sel.masks {
		full := fullMask(shape[i].N)
		if bm != nil {
			full.AndNot(bm)
		}
		sel.masks[i] = full
	}
	sel.normalize()
	sel.reconcile()
}

// Cut returns the selected particles whose field key lies in [lo, hi), with
// the bounds given in the unit expression expr.
func (sel *Selector) Cut(key string, lo, hi float64, expr string) (*Selector, error) {
	a, err := sel.Get(key)
	if err != nil {
		return nil, err
	}
	bounds, err := unit.New([]float64{lo, hi}, 1, expr, a.Registry())
	if err != nil {
		return nil, err
	}
	if bounds, err = bounds.To(a.Units()); err != nil {
		return nil, err
	}

	above, err := a.Geq(bounds.Data[0])
	if err != nil {
		return nil, err
	}
	below, err := a.Less(bounds.Data[1])
	if err != nil {
		return nil, err
	}
	return sel.Where(array.And(above, below))
}

/*package particle provides selections of particles within a snapshot.

A Selector picks out a subset of the particles of every type. Fields
accessed through it are concatenated across the selected types, in format
order, and cached on the Selector. Selectors can be narrowed with a boolean
condition and combined with set operations; every derived Selector owns its
own masks, registry and cache.

Each Selector automatically registers the "direct" fields that are stored
for every particle type it currently selects, under their on-disk names.
The format's field abbreviations are registered as aliases. Any other field
can be registered with RegisterField; derived fields receive the Selector as
their Handle, which also implements spec.Env.

Selectors are not safe for concurrent use.
*/
package particle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/ucsd-galaxy-lab/gizio/cosmo"
	"github.com/ucsd-galaxy-lab/gizio/field"
	"github.com/ucsd-galaxy-lab/gizio/snap"
	"github.com/ucsd-galaxy-lab/gizio/spec"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

var (
	ErrInvalidKey       = errors.New("particle: invalid key")
	ErrSnapshotMismatch = errors.New("particle: selectors belong to different snapshots")
	ErrLength           = errors.New("particle: mask length doesn't match selection")
)

// Selector is a view of a subset of a snapshot's particles.
type Selector struct {
	snap *snap.Snapshot
	// One mask per format particle type. A nil mask selects nothing; empty
	// masks are always replaced by nil.
	masks   []*roaring.Bitmap
	fields  *field.System[*unit.Array]
	aliases *field.Aliases
}

func newSelector(s *snap.Snapshot, masks []*roaring.Bitmap) *Selector {
	sel := &Selector{snap: s, masks: masks, aliases: s.Spec().Aliases()}
	sel.fields = field.New[*unit.Array](sel)
	sel.normalize()
	sel.reconcile()
	return sel
}

func fullMask(n int) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, uint64(n))
	return bm
}

// FromPtypes returns a Selector over every particle of the given types.
// Types may be given by name or abbreviation.
func FromPtypes(s *snap.Snapshot, ptypes ...string) (*Selector, error) {
	sp := s.Spec()
	masks := make([]*roaring.Bitmap, len(sp.Ptypes))
	for _, ptype := range ptypes {
		i := sp.PtypeIndex(ptype)
		if i < 0 {
			return nil, fmt.Errorf("%w: unknown particle type '%s'",
				ErrInvalidKey, ptype)
		}
		masks[i] = fullMask(s.Shape()[i].N)
	}
	return newSelector(s, masks), nil
}

// New returns a Selector with explicit masks, one per format particle type.
// A nil mask selects nothing; other masks must have one element per
// particle of that type.
func New(s *snap.Snapshot, masks [][]bool) (*Selector, error) {
	shape := s.Shape()
	if len(masks) != len(shape) {
		return nil, fmt.Errorf("%w: %d masks for %d particle types",
			ErrLength, len(masks), len(shape))
	}

	bms := make([]*roaring.Bitmap, len(masks))
	for i, mask := range masks {
		if mask == nil {
			continue
		} else if len(mask) != shape[i].N {
			return nil, fmt.Errorf("%w: mask for %s has length %d, not %d",
				ErrLength, shape[i].Ptype, len(mask), shape[i].N)
		}
		bms[i] = roaring.New()
		for j, ok := range mask {
			if ok {
				bms[i].Add(uint32(j))
			}
		}
	}
	return newSelector(s, bms), nil
}

// normalize replaces empty masks with nil.
func (sel *Selector) normalize() {
	for i, bm := range sel.masks {
		if bm != nil && bm.IsEmpty() {
			sel.masks[i] = nil
		}
	}
}

// active returns the indices of the particle types with a selection.
func (sel *Selector) active() []int {
	out := []int{}
	for i, bm := range sel.masks {
		if bm != nil {
			out = append(out, i)
		}
	}
	return out
}

// Copy returns an independent Selector with the same masks, registrations
// and aliases, and an empty cache.
func (sel *Selector) Copy() *Selector {
	out := &Selector{
		snap:    sel.snap,
		masks:   make([]*roaring.Bitmap, len(sel.masks)),
		aliases: sel.aliases.Clone(),
	}
	for i, bm := range sel.masks {
		if bm != nil {
			out.masks[i] = bm.Clone()
		}
	}
	out.fields = sel.fields.Clone(out)
	return out
}

// Snapshot returns the snapshot sel selects from.
func (sel *Selector) Snapshot() *snap.Snapshot { return sel.snap }

// Header returns the header of the underlying snapshot.
func (sel *Selector) Header() *spec.Header { return sel.snap.Header() }

// Cosmology returns the cosmology of the underlying snapshot.
func (sel *Selector) Cosmology() *cosmo.Cosmology { return sel.snap.Cosmology() }

// Units returns the unit registry of the underlying snapshot.
func (sel *Selector) Units() *unit.Registry { return sel.snap.Units() }

// Len returns the number of selected particles.
func (sel *Selector) Len() int {
	n := 0
	for _, bm := range sel.masks {
		if bm != nil {
			n += int(bm.GetCardinality())
		}
	}
	return n
}

// Shape returns the number of selected particles of each type.
func (sel *Selector) Shape() spec.Shape {
	shape := sel.snap.Shape()
	out := make(spec.Shape, len(shape))
	for i, c := range shape {
		out[i] = spec.Count{Ptype: c.Ptype}
		if sel.masks[i] != nil {
			out[i].N = int(sel.masks[i].GetCardinality())
		}
	}
	return out
}

// Mask returns the selection of one particle type as a dense array, or nil
// if no particle of that type is selected.
func (sel *Selector) Mask(ptype string) ([]bool, error) {
	i := sel.snap.Spec().PtypeIndex(ptype)
	if i < 0 {
		return nil, fmt.Errorf("%w: unknown particle type '%s'",
			ErrInvalidKey, ptype)
	}
	bm := sel.masks[i]
	if bm == nil {
		return nil, nil
	}

	out := make([]bool, sel.snap.Shape()[i].N)
	it := bm.Iterator()
	for it.HasNext() {
		out[it.Next()] = true
	}
	return out, nil
}

// Equal returns true if sel and other select the same particles of the
// same snapshot. Registrations aren't compared.
func (sel *Selector) Equal(other *Selector) bool {
	if sel.snap != other.snap {
		return false
	}
	for i := range sel.masks {
		a, b := sel.masks[i], other.masks[i]
		if (a == nil) != (b == nil) || (a != nil && !a.Equals(b)) {
			return false
		}
	}
	return true
}

func (sel *Selector) String() string {
	parts := []string{}
	for _, c := range sel.Shape() {
		if c.N > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", c.Ptype, c.N))
		}
	}
	return fmt.Sprintf("Selector{%s}", strings.Join(parts, ", "))
}

package snap

import (
	"fmt"

	"github.com/ucsd-galaxy-lab/gizio/spec"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

// Get returns a field of a particle type, reading it from every file if it
// isn't cached. ptype and field may be abbreviations. The returned Array is
// shared with the cache and must not be modified.
func (snap *Snapshot) Get(ptype, field string) (*unit.Array, error) {
	k := snap.key(ptype, field)
	if a, ok := snap.cache[k]; ok {
		return a, nil
	}

	data, width, err := snap.load(k)
	if err != nil {
		return nil, err
	}

	a, err := unit.New(data, width, snap.spec.FieldUnit(k.Field), snap.meta.Units)
	if err != nil {
		return nil, fmt.Errorf("snap: tagging %s: %w", k, err)
	}

	snap.cache[k] = a
	snap.order = append(snap.order, k)
	snap.log.Debug().
		Str("key", k.String()).
		Int("rows", a.Len()).
		Int("width", width).
		Str("unit", a.Units()).
		Msg("loaded field")
	return a, nil
}

// load reads and concatenates one field from every file. Files holding no
// particles of the type are skipped when the header says so.
func (snap *Snapshot) load(k Key) ([]float64, int, error) {
	ip := snap.spec.PtypeIndex(k.Ptype)

	var data []float64
	width := 0
	for i, path := range snap.paths {
		if snap.perFile != nil && ip >= 0 && snap.perFile[i][ip] == 0 {
			continue
		}

		chunk, w, err := snap.reader.Read(path, k.Ptype, k.Field)
		if err != nil {
			return nil, 0, fmt.Errorf("snap: reading %s from %s: %w",
				k, path, err)
		}
		if w == 0 {
			if w, err = snap.inferWidth(k, i, ip, len(chunk)); err != nil {
				return nil, 0, err
			}
		}
		if width != 0 && w != width {
			return nil, 0, fmt.Errorf("%w: %s has width %d in %s, but %d "+
				"in earlier files", spec.ErrConsistency, k, w, path, width)
		}
		if snap.perFile != nil && ip >= 0 && len(chunk) != w*snap.perFile[i][ip] {
			return nil, 0, fmt.Errorf("%w: %s has %d rows in %s, but the "+
				"header lists %d", spec.ErrConsistency, k, len(chunk)/w,
				path, snap.perFile[i][ip])
		}

		width = w
		data = append(data, chunk...)
	}

	if width == 0 {
		width = 1
	}
	if data == nil {
		data = []float64{}
	}
	return data, width, nil
}

// inferWidth works out the row width of a chunk from a reader that doesn't
// report one, using the particle count the header gives for file i. Without
// a count, the field is assumed to have one component.
func (snap *Snapshot) inferWidth(k Key, i, ip, n int) (int, error) {
	rows := -1
	switch {
	case ip < 0:
	case snap.perFile != nil:
		rows = snap.perFile[i][ip]
	case len(snap.paths) == 1:
		rows = snap.meta.Shape[ip].N
	}

	if rows <= 0 {
		return 1, nil
	} else if n%rows != 0 {
		return 0, fmt.Errorf("%w: %s has %d values in %s, which can't be "+
			"split into %d rows", spec.ErrConsistency, k, n, snap.paths[i], rows)
	}
	if n == 0 {
		return 1, nil
	}
	return n / rows, nil
}

// Invalidate drops the cached value of one field.
func (snap *Snapshot) Invalidate(ptype, field string) error {
	k := snap.key(ptype, field)
	if _, ok := snap.cache[k]; !ok {
		return fmt.Errorf("%w: %s", ErrNotCached, k)
	}
	delete(snap.cache, k)
	for i := range snap.order {
		if snap.order[i] == k {
			snap.order = append(snap.order[:i], snap.order[i+1:]...)
			break
		}
	}
	snap.log.Debug().Str("key", k.String()).Msg("invalidated field")
	return nil
}

// Clear drops every cached field.
func (snap *Snapshot) Clear() {
	n := len(snap.cache)
	snap.cache = map[Key]*unit.Array{}
	snap.order = nil
	snap.log.Debug().Int("fields", n).Msg("cleared cache")
}

// CachedKeys returns the cached keys in the order they were loaded.
func (snap *Snapshot) CachedKeys() []Key { return append([]Key{}, snap.order...) }

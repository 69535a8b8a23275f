/*package snap provides cached, unit-aware access to multi-file particle
snapshots.

A Snapshot reads the header of every file when it's opened and checks that
the files agree with one another. Fields are only read on first access: Get
reads the field from every file in order, concatenates the pieces, tags the
result with the unit its Spec gives it, and caches it until it's invalidated.
No file handles are held between calls.

Snapshots are not safe for concurrent use. The header, shape and unit
registry never change after Open, but the field cache does.
*/
package snap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ucsd-galaxy-lab/gizio/cosmo"
	"github.com/ucsd-galaxy-lab/gizio/io/gcol"
	"github.com/ucsd-galaxy-lab/gizio/io/h5"
	"github.com/ucsd-galaxy-lab/gizio/spec"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

var (
	ErrNoPaths   = errors.New("snap: no snapshot files")
	ErrNotCached = errors.New("snap: key not cached")
)

// Reader reads the raw contents of one snapshot file. Read returns a
// field's values in row-major order along with the number of components per
// row.
type Reader interface {
	Groups(path string) ([]string, error)
	Fields(path, group string) ([]string, error)
	Attrs(path, group string) (map[string][]float64, error)
	Read(path, group, field string) ([]float64, int, error)
}

// Key names one field of one particle type.
type Key struct {
	Ptype, Field string
}

func (k Key) String() string { return k.Ptype + "/" + k.Field }

type options struct {
	reader Reader
	log    zerolog.Logger
}

// Option configures Open.
type Option func(*options)

// WithReader sets the Reader used for every file. By default gcol files are
// read with gcol.Reader and everything else with h5.Reader, going by the
// extension of the first path.
func WithReader(r Reader) Option {
	return func(o *options) { o.reader = r }
}

// WithLogger sets the logger that file reads and cache changes are reported
// to. Nothing is logged by default.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Snapshot is an open multi-file snapshot.
type Snapshot struct {
	paths  []string
	name   string
	spec   *spec.Spec
	meta   *spec.Meta
	keys   []Key
	reader Reader
	log    zerolog.Logger

	// perFile[i][j] is the number of particles of ptype j in file i, or nil
	// if the header doesn't say.
	perFile [][]int

	cache map[Key]*unit.Array
	order []Key
}

// Open opens the snapshot made up of paths, in order, using the format
// description sp.
func Open(paths []string, sp *spec.Spec, opts ...Option) (*Snapshot, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	o := &options{reader: readerFor(paths[0]), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	attrs := make([]map[string][]float64, len(paths))
	for i, path := range paths {
		var err error
		if attrs[i], err = o.reader.Attrs(path, sp.HeaderGroup); err != nil {
			return nil, fmt.Errorf("snap: reading header of %s: %w", path, err)
		}
	}

	meta, err := sp.Apply(attrs)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		paths:  append([]string{}, paths...),
		name:   commonStem(paths),
		spec:   sp,
		meta:   meta,
		reader: o.reader,
		log:    o.log.With().Str("snapshot", commonStem(paths)).Logger(),
		cache:  map[Key]*unit.Array{},
	}
	snap.perFile = perFileCounts(sp, meta, len(paths))

	if snap.keys, err = snap.readKeys(); err != nil {
		return nil, err
	}

	snap.log.Debug().
		Int("files", len(paths)).
		Int("particles", meta.Shape.Total()).
		Bool("cosmological", meta.Header.Bool(spec.KeyCosmological)).
		Msg("opened snapshot")
	return snap, nil
}

func readerFor(path string) Reader {
	if strings.EqualFold(filepath.Ext(path), gcol.Suffix) {
		return gcol.Reader{}
	}
	return h5.Reader{}
}

func perFileCounts(sp *spec.Spec, meta *spec.Meta, files int) [][]int {
	if sp.NPartPerFileKey == "" {
		return nil
	}
	vals, err := meta.Header.Floats(sp.NPartPerFileKey)
	if err != nil || len(vals) != files*len(sp.Ptypes) {
		return nil
	}
	out := make([][]int, files)
	for i := range out {
		out[i] = make([]int, len(sp.Ptypes))
		for j := range out[i] {
			out[i][j] = int(vals[i*len(sp.Ptypes)+j])
		}
	}
	return out
}

// readKeys lists the fields of every particle type found in the first file.
// All files are assumed to share a layout.
func (snap *Snapshot) readKeys() ([]Key, error) {
	path := snap.paths[0]
	groups, err := snap.reader.Groups(path)
	if err != nil {
		return nil, fmt.Errorf("snap: listing groups of %s: %w", path, err)
	}
	present := map[string]bool{}
	for _, g := range groups {
		present[g] = true
	}

	keys := []Key{}
	for _, ptype := range snap.spec.PtypeNames() {
		if !present[ptype] {
			continue
		}
		fields, err := snap.reader.Fields(path, ptype)
		if err != nil {
			return nil, fmt.Errorf("snap: listing fields of %s in %s: %w",
				ptype, path, err)
		}
		for _, f := range fields {
			keys = append(keys, Key{ptype, f})
		}
	}
	return keys, nil
}

// commonStem returns the longest common prefix of the file names in paths,
// minus extensions and trailing dots.
func commonStem(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	stem := func(path string) string {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}

	prefix := stem(paths[0])
	for _, path := range paths[1:] {
		s := stem(path)
		n := 0
		for n < len(prefix) && n < len(s) && prefix[n] == s[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return strings.TrimRight(prefix, ".")
}

// Glob finds the files of a snapshot. If prefix is a directory, every file
// in it ending in suffix is returned. If it's a file, only that file is
// returned. Otherwise every file starting with prefix and ending in suffix
// is returned. Paths are sorted.
func Glob(prefix, suffix string) ([]string, error) {
	if strings.HasPrefix(prefix, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		prefix = filepath.Join(home, prefix[2:])
	}

	pattern := prefix + "*" + suffix
	if info, err := os.Stat(prefix); err == nil {
		if !info.IsDir() {
			return []string{prefix}, nil
		}
		pattern = filepath.Join(prefix, "*"+suffix)
	}

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: nothing matches '%s'", ErrNoPaths, pattern)
	}
	sort.Strings(paths)
	return paths, nil
}

// Paths returns the snapshot's files in order.
func (snap *Snapshot) Paths() []string { return append([]string{}, snap.paths...) }

// Name returns the common prefix of the snapshot's file names.
func (snap *Snapshot) Name() string { return snap.name }

// Spec returns the snapshot's format description.
func (snap *Snapshot) Spec() *spec.Spec { return snap.spec }

// Header returns the decoded header.
func (snap *Snapshot) Header() *spec.Header { return snap.meta.Header }

// Shape returns the total number of particles of each type.
func (snap *Snapshot) Shape() spec.Shape { return snap.meta.Shape }

// Units returns the snapshot's unit registry.
func (snap *Snapshot) Units() *unit.Registry { return snap.meta.Units }

// Cosmology returns the snapshot's cosmology.
func (snap *Snapshot) Cosmology() *cosmo.Cosmology { return snap.meta.Cosmology }

// Logger returns the snapshot's logger.
func (snap *Snapshot) Logger() zerolog.Logger { return snap.log }

// Keys returns every (particle type, field) pair stored in the first file.
func (snap *Snapshot) Keys() []Key { return append([]Key{}, snap.keys...) }

// HasKey returns true if the first file stores field for ptype.
func (snap *Snapshot) HasKey(ptype, field string) bool {
	k := snap.key(ptype, field)
	for _, key := range snap.keys {
		if key == k {
			return true
		}
	}
	return false
}

// key converts particle type abbreviations and field abbreviations into
// the names used on disk.
func (snap *Snapshot) key(ptype, field string) Key {
	if i := snap.spec.PtypeIndex(ptype); i >= 0 {
		ptype = snap.spec.Ptypes[i].Name
	}
	if target, ok := snap.spec.Aliases().Target(field); ok {
		field = target
	}
	return Key{ptype, field}
}

// Array tags data with the unit expression expr using the snapshot's unit
// registry.
func (snap *Snapshot) Array(data []float64, width int, expr string) (*unit.Array, error) {
	return unit.New(data, width, expr, snap.meta.Units)
}

// Quantity returns a single value tagged with the unit expression expr.
func (snap *Snapshot) Quantity(x float64, expr string) (*unit.Array, error) {
	return unit.Scalar(x, expr, snap.meta.Units)
}

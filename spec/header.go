package spec

import (
	"fmt"
	"math"
	"strings"

	"github.com/ucsd-galaxy-lab/gizio/cosmo"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

// maxCount is the largest particle count of a single type that a selector
// can index.
const maxCount = math.MaxUint32

// Header is a decoded snapshot header: an ordered set of unit-tagged
// values. It isn't modified after Apply returns.
type Header struct {
	keys []string
	vals map[string]*unit.Array
}

func newHeader() *Header {
	return &Header{vals: map[string]*unit.Array{}}
}

func (hd *Header) set(key string, a *unit.Array) {
	if _, ok := hd.vals[key]; !ok {
		hd.keys = append(hd.keys, key)
	}
	hd.vals[key] = a
}

// Keys returns the header keys in decode order.
func (hd *Header) Keys() []string { return append([]string{}, hd.keys...) }

// Get returns the value stored under key. Per-file entries have one row per
// file.
func (hd *Header) Get(key string) (*unit.Array, bool) {
	a, ok := hd.vals[key]
	return a, ok
}

// Floats returns the raw values stored under key, in their tagged units.
func (hd *Header) Floats(key string) ([]float64, error) {
	a, ok := hd.vals[key]
	if !ok {
		return nil, fmt.Errorf("spec: no header key '%s'", key)
	}
	return append([]float64{}, a.Data...), nil
}

// Float returns the first value stored under key.
func (hd *Header) Float(key string) (float64, error) {
	a, ok := hd.vals[key]
	if !ok {
		return 0, fmt.Errorf("spec: no header key '%s'", key)
	} else if len(a.Data) == 0 {
		return 0, fmt.Errorf("spec: header key '%s' is empty", key)
	}
	return a.Data[0], nil
}

// Bool returns true if the first value stored under key is non-zero.
// Missing keys are false.
func (hd *Header) Bool(key string) bool {
	x, err := hd.Float(key)
	return err == nil && x != 0
}

func (hd *Header) String() string {
	lines := make([]string, len(hd.keys))
	for i, key := range hd.keys {
		lines[i] = fmt.Sprintf("%s: %s", key, hd.vals[key])
	}
	return strings.Join(lines, "\n")
}

// Count is the number of particles of one type.
type Count struct {
	Ptype string
	N     int
}

// Shape lists the particle count of every particle type, in Spec order.
type Shape []Count

// N returns the count of ptype, or 0 if it isn't part of the shape.
func (s Shape) N(ptype string) int {
	for _, c := range s {
		if c.Ptype == ptype {
			return c.N
		}
	}
	return 0
}

// Total returns the total number of particles.
func (s Shape) Total() int {
	n := 0
	for _, c := range s {
		n += c.N
	}
	return n
}

// Meta is everything Apply learns from a snapshot's headers.
type Meta struct {
	Header    *Header
	Shape     Shape
	Cosmology *cosmo.Cosmology
	Units     *unit.Registry
}

func consistencyErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}

// isClose matches numpy's default isclose tolerances.
func isClose(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}

// Apply decodes the header attributes of every file in a snapshot, in file
// order, and derives the snapshot's shape, cosmology and unit registry.
func (sp *Spec) Apply(attrs []map[string][]float64) (*Meta, error) {
	if len(attrs) == 0 {
		return nil, configErrorf("%s: no headers to decode", sp.Name)
	}

	raw, err := sp.decode(attrs)
	if err != nil {
		return nil, err
	}
	shape, err := sp.shape(raw, len(attrs))
	if err != nil {
		return nil, err
	}

	first := func(key string) float64 { return raw[key][0] }
	h := first(KeyHubble)
	c := cosmo.New(h, first(KeyOmegaM), first(KeyOmegaL))

	a, z := first(KeyTime), first(KeyRedshift)
	cosmological := isClose(a, 1/(1+z))
	if cosmological {
		raw[KeyTime] = []float64{c.Age(z)}
	} else {
		// Non-cosmological runs store time in code units, close to Gyr/h.
		raw[KeyTime] = []float64{a / h}
		a, z = 1, 0
		raw[KeyRedshift] = []float64{0}
	}

	reg, err := sp.NewRegistry(a, h)
	if err != nil {
		return nil, err
	}

	hd := newHeader()
	for _, e := range sp.Header {
		width := 1
		if e.PerFile {
			width = len(raw[e.Key]) / len(attrs)
		}
		arr, err := unit.New(raw[e.Key], width, e.Unit, reg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: header key '%s': %w",
				ErrConfig, sp.Name, e.Key, err)
		}
		hd.set(e.Key, arr)
	}

	extras := []struct {
		key, expr string
		x         float64
	}{
		{KeyScale, "", a},
		{KeyCosmological, "", b2f(cosmological)},
		{KeyRhoM, "Msun / Mpc**3", c.RhoAverage(z)},
	}
	for _, e := range extras {
		arr, err := unit.Scalar(e.x, e.expr, reg)
		if err != nil {
			return nil, err
		}
		hd.set(e.key, arr)
	}

	return &Meta{Header: hd, Shape: shape, Cosmology: c, Units: reg}, nil
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// decode pulls the raw header values out of every file's attributes.
// Per-file values are concatenated in file order.
func (sp *Spec) decode(attrs []map[string][]float64) (map[string][]float64, error) {
	raw := map[string][]float64{}
	for _, e := range sp.Header {
		files := attrs[:1]
		if e.PerFile {
			files = attrs
		}

		var vals []float64
		for i, at := range files {
			v, ok := at[e.Raw]
			if !ok {
				return nil, consistencyErrorf("header of file %d has no "+
					"'%s' attribute", i, e.Raw)
			} else if e.PerFile && i > 0 && len(v) != len(files[0][e.Raw]) {
				return nil, consistencyErrorf("'%s' has %d values in file "+
					"%d, but %d in file 0", e.Raw, len(v), i,
					len(files[0][e.Raw]))
			}
			vals = append(vals, v...)
		}
		if len(vals) == 0 {
			return nil, consistencyErrorf("header attribute '%s' is empty", e.Raw)
		}
		raw[e.Key] = vals
	}
	return raw, nil
}

// shape builds the snapshot shape from the decoded header and checks it
// against the per-file counts and the number of files.
func (sp *Spec) shape(raw map[string][]float64, files int) (Shape, error) {
	if sp.NFileKey != "" {
		if n := raw[sp.NFileKey][0]; n != float64(files) {
			return nil, consistencyErrorf("header declares %g files, but "+
				"%d were given", n, files)
		}
	}

	totals := raw[sp.NPartKey]
	if len(totals) != len(sp.Ptypes) {
		return nil, consistencyErrorf("'%s' has %d entries for %d particle "+
			"types", sp.NPartKey, len(totals), len(sp.Ptypes))
	}

	shape := make(Shape, len(sp.Ptypes))
	for i, pt := range sp.Ptypes {
		n := totals[i]
		if n < 0 || n != math.Trunc(n) || n > maxCount {
			return nil, consistencyErrorf("invalid particle count %g for %s",
				n, pt.Name)
		}
		shape[i] = Count{pt.Name, int(n)}
	}

	if sp.NPartPerFileKey == "" {
		return shape, nil
	}
	perFile := raw[sp.NPartPerFileKey]
	if len(perFile) != files*len(sp.Ptypes) {
		return nil, consistencyErrorf("'%s' has %d entries for %d files of "+
			"%d particle types", sp.NPartPerFileKey, len(perFile), files,
			len(sp.Ptypes))
	}
	for i, c := range shape {
		sum := 0.0
		for f := 0; f < files; f++ {
			sum += perFile[f*len(sp.Ptypes)+i]
		}
		if sum != float64(c.N) {
			return nil, consistencyErrorf("per-file counts of %s add up to "+
				"%g, but the header total is %d", c.Ptype, sum, c.N)
		}
	}
	return shape, nil
}

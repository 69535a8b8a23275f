package snap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucsd-galaxy-lab/gizio/internal/gizmotest"
	"github.com/ucsd-galaxy-lab/gizio/io/gcol"
	"github.com/ucsd-galaxy-lab/gizio/io/h5"
	"github.com/ucsd-galaxy-lab/gizio/spec"
)

// Stars only live in the first file.
var counts = [][]int{{3, 2, 0, 0, 1, 1}, {2, 2, 0, 0, 0, 1}}

// countingReader counts the field reads that reach the files.
type countingReader struct {
	gcol.Reader
	reads int
}

func (r *countingReader) Read(path, group, field string) ([]float64, int, error) {
	r.reads++
	return r.Reader.Read(path, group, field)
}

func open(t *testing.T, opts ...Option) (*Snapshot, *countingReader) {
	t.Helper()
	paths := gizmotest.Write(t, t.TempDir(), "snapshot_600", counts)
	r := &countingReader{}
	snap, err := Open(paths, spec.GIZMO(), append([]Option{WithReader(r)}, opts...)...)
	require.NoError(t, err)
	return snap, r
}

func TestOpen(t *testing.T) {
	snap, _ := open(t)

	assert.Equal(t, "snapshot_600", snap.Name())
	assert.Len(t, snap.Paths(), 2)
	assert.Equal(t, "gizmo", snap.Spec().Name)
	assert.Equal(t, 5, snap.Shape().N("PartType0"))
	assert.Equal(t, 12, snap.Shape().Total())
	assert.True(t, snap.Header().Bool(spec.KeyCosmological))
	assert.NotNil(t, snap.Cosmology())

	keys := snap.Keys()
	assert.Equal(t, Key{"PartType0", "Coordinates"}, keys[0])
	assert.Contains(t, keys, Key{"PartType4", "StellarFormationTime"})
	assert.NotContains(t, keys, Key{"PartType1", "InternalEnergy"})
	assert.True(t, snap.HasKey("gas", "u"))
	assert.False(t, snap.HasKey("hdm", "u"))

	q, err := snap.Quantity(1, "code_length")
	require.NoError(t, err)
	kpc, err := q.In("kpc")
	require.NoError(t, err)
	assert.InEpsilon(t, gizmotest.ScaleFactor/gizmotest.Hubble, kpc[0], 1e-4)

	arr, err := snap.Array([]float64{1, 2, 3, 4}, 2, "code_velocity")
	require.NoError(t, err)
	assert.Equal(t, 2, arr.Len())
}

func TestGet(t *testing.T) {
	snap, r := open(t)

	pos, err := snap.Get("PartType0", "Coordinates")
	require.NoError(t, err)
	assert.Equal(t, 5, pos.Len())
	assert.Equal(t, 3, pos.Width)
	assert.Equal(t, "code_length", pos.Units())
	assert.Equal(t, []float64{3, 3, 3}, pos.Row(3), "file order")
	assert.Equal(t, 2, r.reads)

	// Abbreviations reach the same cache entry.
	pos2, err := snap.Get("gas", "p")
	require.NoError(t, err)
	assert.Same(t, pos, pos2)
	assert.Equal(t, 2, r.reads)

	// Stars are only in the first file, so only one read happens.
	sft, err := snap.Get("star", "sft")
	require.NoError(t, err)
	assert.Equal(t, 1, sft.Len())
	assert.Equal(t, "dimensionless", sft.Units())
	assert.Equal(t, 3, r.reads)

	ids, err := snap.Get("hdm", "ParticleIDs")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 1001, 1002, 1003}, ids.Data)

	assert.Equal(t, []Key{{"PartType0", "Coordinates"},
		{"PartType4", "StellarFormationTime"}, {"PartType1", "ParticleIDs"}},
		snap.CachedKeys())
}

func TestInvalidate(t *testing.T) {
	snap, r := open(t)

	m1, err := snap.Get("gas", "Masses")
	require.NoError(t, err)
	require.NoError(t, snap.Invalidate("gas", "Masses"))
	assert.Empty(t, snap.CachedKeys())

	m2, err := snap.Get("gas", "Masses")
	require.NoError(t, err)
	assert.Equal(t, 4, r.reads)
	assert.NotSame(t, m1, m2)
	assert.True(t, m1.Equal(m2))

	assert.ErrorIs(t, snap.Invalidate("gas", "Density"), ErrNotCached)

	snap.Clear()
	assert.Empty(t, snap.CachedKeys())
	assert.ErrorIs(t, snap.Invalidate("gas", "Masses"), ErrNotCached)
}

func TestGetMissing(t *testing.T) {
	snap, _ := open(t)

	_, err := snap.Get("hdm", "InternalEnergy")
	assert.ErrorIs(t, err, gcol.ErrNoField)
	_, err = snap.Get("PartType9", "Masses")
	assert.ErrorIs(t, err, gcol.ErrNoGroup)
	assert.Empty(t, snap.CachedKeys(), "failed reads must not be cached")

	// No file holds ldm particles, so nothing is read.
	m, err := snap.Get("ldm", "Masses")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

// widthlessReader reports no row widths, like an HDF5 reader would.
type widthlessReader struct {
	gcol.Reader
}

func (r widthlessReader) Read(path, group, field string) ([]float64, int, error) {
	data, _, err := r.Reader.Read(path, group, field)
	return data, 0, err
}

func TestInferWidth(t *testing.T) {
	paths := gizmotest.Write(t, t.TempDir(), "snapshot_600", counts)
	snap, err := Open(paths, spec.GIZMO(), WithReader(widthlessReader{}))
	require.NoError(t, err)

	pos, err := snap.Get("gas", "Coordinates")
	require.NoError(t, err)
	assert.Equal(t, 3, pos.Width)
	assert.Equal(t, 5, pos.Len())

	m, err := snap.Get("star", "Masses")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Width)
	assert.Equal(t, 1, m.Len())
}

func TestReaderFor(t *testing.T) {
	assert.IsType(t, gcol.Reader{}, readerFor("snap_600.0.gcol"))
	assert.IsType(t, gcol.Reader{}, readerFor("SNAP.GCOL"))
	assert.IsType(t, h5.Reader{}, readerFor("snap_600.0.hdf5"))
	assert.IsType(t, h5.Reader{}, readerFor("snap_600"))
}

func TestOpenFailures(t *testing.T) {
	_, err := Open(nil, spec.GIZMO())
	assert.ErrorIs(t, err, ErrNoPaths)

	dir := t.TempDir()
	paths := gizmotest.Write(t, dir, "snap", counts)

	_, err = Open(paths[:1], spec.GIZMO())
	assert.ErrorIs(t, err, spec.ErrConsistency)

	_, err = Open([]string{paths[0], filepath.Join(dir, "missing.gcol")},
		spec.GIZMO())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	paths := gizmotest.Write(t, dir, "snapshot_600", counts)
	gizmotest.Write(t, dir, "snapshot_601", counts[:1])

	found, err := Glob(filepath.Join(dir, "snapshot_600"), gcol.Suffix)
	require.NoError(t, err)
	assert.Equal(t, paths, found)

	found, err = Glob(paths[1], gcol.Suffix)
	require.NoError(t, err)
	assert.Equal(t, paths[1:], found)

	found, err = Glob(dir, gcol.Suffix)
	require.NoError(t, err)
	assert.Len(t, found, 3)

	_, err = Glob(filepath.Join(dir, "snapshot_700"), gcol.Suffix)
	assert.ErrorIs(t, err, ErrNoPaths)
}

func TestLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf).Level(zerolog.DebugLevel)
	snap, _ := open(t, WithLogger(log))

	_, err := snap.Get("gas", "m")
	require.NoError(t, err)
	snap.Clear()

	out := buf.String()
	assert.Contains(t, out, `"message":"opened snapshot"`)
	assert.Contains(t, out, `"key":"PartType0/Masses"`)
	assert.Contains(t, out, `"message":"cleared cache"`)
}

func TestCommonStem(t *testing.T) {
	tests := []struct {
		paths []string
		stem  string
	}{
		{[]string{"/a/snap_600.0.gcol", "/a/snap_600.1.gcol"}, "snap_600"},
		{[]string{"/a/snap_600.gcol"}, "snap_600"},
		{[]string{"x.1.gcol", "x.10.gcol", "x.2.gcol"}, "x"},
	}
	for _, test := range tests {
		assert.Equal(t, test.stem, commonStem(test.paths))
	}
}

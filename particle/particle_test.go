package particle

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucsd-galaxy-lab/gizio/array"
	"github.com/ucsd-galaxy-lab/gizio/field"
	"github.com/ucsd-galaxy-lab/gizio/internal/gizmotest"
	"github.com/ucsd-galaxy-lab/gizio/snap"
	"github.com/ucsd-galaxy-lab/gizio/spec"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

func openSnap(t *testing.T, counts [][]int) *snap.Snapshot {
	t.Helper()
	paths := gizmotest.Write(t, t.TempDir(), "snapshot", counts)
	s, err := snap.Open(paths, spec.GIZMO())
	require.NoError(t, err)
	return s
}

func fromPtypes(t *testing.T, s *snap.Snapshot, ptypes ...string) *Selector {
	t.Helper()
	sel, err := FromPtypes(s, ptypes...)
	require.NoError(t, err)
	return sel
}

func ids(t *testing.T, sel *Selector) []float64 {
	t.Helper()
	a, err := sel.Get("id")
	require.NoError(t, err)
	return a.Data
}

func TestFromPtypes(t *testing.T) {
	s := openSnap(t, [][]int{{3, 2, 0, 0, 1, 0}, {2, 0, 0, 0, 1, 0}})

	gas := fromPtypes(t, s, "gas")
	assert.Equal(t, 5, gas.Len())
	assert.Equal(t, []string{"Coordinates", "ParticleIDs", "Masses",
		"InternalEnergy", "ElectronAbundance", "Density", "Metallicity"},
		gas.Keys())
	assert.Equal(t, gas.Keys(), gas.DirectFields())
	assert.True(t, gas.Contains("u"))
	assert.Equal(t, "InternalEnergy", gas.Aliases()["u"])

	pos, err := gas.Get("p")
	require.NoError(t, err)
	assert.Equal(t, 5, pos.Len())
	assert.Equal(t, []float64{4, 4, 4}, pos.Row(4))

	star := fromPtypes(t, s, "PartType4")
	assert.Equal(t, []float64{4000, 4001}, ids(t, star))

	_, err = FromPtypes(s, "wind")
	assert.ErrorIs(t, err, ErrInvalidKey)

	none := fromPtypes(t, s)
	assert.Equal(t, 0, none.Len())
	assert.Empty(t, none.Keys())
	assert.Equal(t, "Selector{}", none.String())
	assert.Equal(t, "Selector{PartType0: 5}", gas.String())
}

func TestDirectFieldIntersection(t *testing.T) {
	s := openSnap(t, [][]int{{4, 3, 0, 0, 2, 0}})

	// InternalEnergy only exists for gas.
	hdm := fromPtypes(t, s, "hdm")
	assert.False(t, hdm.Contains("InternalEnergy"))
	_, err := hdm.Get("u")
	assert.ErrorIs(t, err, field.ErrKeyNotFound)

	both := fromPtypes(t, s, "gas", "hdm")
	assert.False(t, both.Contains("InternalEnergy"))
	assert.False(t, both.Contains("Metallicity"))
	m, err := both.Get("Masses")
	require.NoError(t, err)
	assert.Equal(t, 7, m.Len())
	assert.Equal(t, []float64{1, 1, 1, 1, 2, 2, 2}, m.Data)

	gasStar := fromPtypes(t, s, "gas", "star")
	z, err := gasStar.Get("z")
	require.NoError(t, err)
	assert.Equal(t, 6, z.Len())
	assert.Equal(t, 2, z.Width)
}

func TestNarrowScenario(t *testing.T) {
	s := openSnap(t, [][]int{{10, 5, 0, 0, 0, 0}})
	sel := fromPtypes(t, s, "gas", "hdm")
	require.Equal(t, 15, sel.Len())
	assert.False(t, sel.Contains("u"))

	cond := make([]bool, 15)
	for i := 0; i < 10; i++ {
		cond[i] = true
	}
	narrow, err := sel.Where(cond)
	require.NoError(t, err)
	assert.Equal(t, 10, narrow.Len())

	hdmMask, err := narrow.Mask("hdm")
	require.NoError(t, err)
	assert.Nil(t, hdmMask)
	assert.Equal(t, 15, sel.Len(), "Where must not touch its receiver")

	// Only gas is left, so gas-only fields become available.
	assert.True(t, narrow.Contains("u"))
	u, err := narrow.Get("u")
	require.NoError(t, err)
	assert.Equal(t, 10, u.Len())
}

func TestWhere(t *testing.T) {
	s := openSnap(t, [][]int{{6, 4, 0, 0, 0, 0}, {2, 1, 0, 0, 0, 0}})
	sel := fromPtypes(t, s, "gas", "hdm")

	cond := make([]bool, sel.Len())
	for i := range cond {
		cond[i] = i%3 == 0
	}
	narrow, err := sel.Where(cond)
	require.NoError(t, err)
	assert.Equal(t, array.Count(cond), narrow.Len())
	assert.Equal(t, array.Cut(ids(t, sel), cond), ids(t, narrow))

	// Narrowing twice composes.
	cond2 := make([]bool, narrow.Len())
	cond2[0] = true
	twice, err := narrow.Where(cond2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, ids(t, twice))

	_, err = sel.Where(make([]bool, 3))
	assert.ErrorIs(t, err, ErrLength)

	empty, err := sel.Where(make([]bool, sel.Len()))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	for _, c := range empty.Shape() {
		assert.Equal(t, 0, c.N)
	}
}

func TestCut(t *testing.T) {
	s := openSnap(t, [][]int{{10, 0, 0, 0, 0, 0}})
	gas := fromPtypes(t, s, "gas")

	// Coordinates are (i, i, i) in code_length, and Cut needs one column.
	x, err := gas.Get("p")
	require.NoError(t, err)
	xc, err := x.Component(0)
	require.NoError(t, err)
	gas.RegisterField("x", field.ProducerFunc[*unit.Array](
		func(field.Handle[*unit.Array]) (*unit.Array, error) { return xc, nil }))

	k, err := s.Units().Factor("code_length", "kpc")
	require.NoError(t, err)
	cut, err := gas.Cut("x", 1.5*k, 4.5*k, "kpc")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, ids(t, cut))

	_, err = gas.Cut("x", 0, 1, "s")
	assert.ErrorIs(t, err, unit.ErrDimension)
}

func TestUnionScenario(t *testing.T) {
	s := openSnap(t, [][]int{{5, 3, 0, 0, 0, 0}})
	selA := fromPtypes(t, s, "gas")
	selB := fromPtypes(t, s, "hdm")

	union, err := selA.Union(selB)
	require.NoError(t, err)
	assert.Equal(t, 8, union.Len())

	back, err := union.Intersection(selA)
	require.NoError(t, err)
	assert.Equal(t, 5, back.Len())
	assert.True(t, back.Equal(selA))
	assert.Equal(t, ids(t, selA), ids(t, back))

	assert.Equal(t, 5, selA.Len(), "operands must not change")
	assert.Equal(t, 3, selB.Len())
}

func TestSetIdentities(t *testing.T) {
	s := openSnap(t, [][]int{{8, 6, 0, 0, 4, 0}})
	all := fromPtypes(t, s, "gas", "hdm", "star")

	condA := make([]bool, all.Len())
	condB := make([]bool, all.Len())
	for i := range condA {
		condA[i] = i%2 == 0
		condB[i] = i%3 == 0 || i > 12
	}
	a, err := all.Where(condA)
	require.NoError(t, err)
	b, err := all.Where(condB)
	require.NoError(t, err)

	union, err := a.Union(b)
	require.NoError(t, err)
	inter, err := a.Intersection(b)
	require.NoError(t, err)
	aMinusB, err := a.Difference(b)
	require.NoError(t, err)
	bMinusA, err := b.Difference(a)
	require.NoError(t, err)
	xor, err := a.SymmetricDifference(b)
	require.NoError(t, err)

	assert.Equal(t, a.Len()+b.Len(), union.Len()+inter.Len())
	assert.Equal(t, a.Len(), aMinusB.Len()+inter.Len())
	assert.Equal(t, xor.Len(), aMinusB.Len()+bMinusA.Len())
	assert.Equal(t, array.Count(array.Or(condA, condB)), union.Len())
	assert.Equal(t, array.Count(array.Xor(condA, condB)), xor.Len())

	aa, err := a.Intersection(a)
	require.NoError(t, err)
	assert.True(t, aa.Equal(a))
	aa, err = a.Union(a)
	require.NoError(t, err)
	assert.True(t, aa.Equal(a))

	// Disjoint selections add up.
	gas := fromPtypes(t, s, "gas")
	star := fromPtypes(t, s, "star")
	gs, err := gas.Union(star)
	require.NoError(t, err)
	assert.Equal(t, gas.Len()+star.Len(), gs.Len())

	// Types only selected on the right contribute nothing to a difference.
	diff, err := gas.Difference(star)
	require.NoError(t, err)
	assert.True(t, diff.Equal(gas))
}

func TestInPlace(t *testing.T) {
	s := openSnap(t, [][]int{{5, 3, 0, 0, 0, 0}})
	gas := fromPtypes(t, s, "gas")
	hdm := fromPtypes(t, s, "hdm")

	_, err := gas.Get("m")
	require.NoError(t, err)
	require.NoError(t, gas.UnionInPlace(hdm))
	assert.Equal(t, 8, gas.Len())
	assert.Empty(t, gas.CachedKeys())
	assert.False(t, gas.Contains("u"), "gas-only fields are gone")

	m, err := gas.Get("m")
	require.NoError(t, err)
	assert.Equal(t, 8, m.Len())

	require.NoError(t, gas.DifferenceInPlace(hdm))
	assert.Equal(t, 5, gas.Len())
	assert.False(t, gas.Contains("u"), "set operations never register fields")

	require.NoError(t, gas.SymmetricDifferenceInPlace(hdm))
	assert.Equal(t, 8, gas.Len())
	require.NoError(t, gas.IntersectionInPlace(hdm))
	assert.True(t, gas.Equal(hdm))
}

func TestSetOpsKeepUnregistered(t *testing.T) {
	s := openSnap(t, [][]int{{5, 3, 0, 0, 0, 0}})
	a := fromPtypes(t, s, "gas")
	b := fromPtypes(t, s, "gas")

	require.NoError(t, a.UnregisterField("Masses"))
	require.False(t, a.Contains("Masses"))

	union, err := a.Union(b)
	require.NoError(t, err)
	assert.False(t, union.Contains("Masses"))
	assert.False(t, union.Contains("m"))
	assert.True(t, union.Contains("InternalEnergy"))

	require.NoError(t, a.IntersectionInPlace(b))
	assert.False(t, a.Contains("Masses"))

	// Narrowing still registers what becomes available.
	hdm := fromPtypes(t, s, "hdm")
	both, err := a.Union(hdm)
	require.NoError(t, err)
	gasOnly, err := both.Where([]bool{true, true, true, true, true,
		false, false, false})
	require.NoError(t, err)
	assert.True(t, gasOnly.Contains("InternalEnergy"))
}

func TestComplement(t *testing.T) {
	s := openSnap(t, [][]int{{5, 3, 0, 0, 2, 0}})
	gas := fromPtypes(t, s, "gas")
	rest := fromPtypes(t, s, "hdm", "star")

	_, err := gas.Get("m")
	require.NoError(t, err)

	c := gas.Complement()
	assert.True(t, c.Equal(rest))
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 5, gas.Len(), "Complement must not modify its receiver")
	assert.Empty(t, c.CachedKeys())
	assert.False(t, c.Contains("u"))
	assert.True(t, c.Complement().Equal(gas))

	half, err := gas.Where([]bool{true, false, true, false, false})
	require.NoError(t, err)
	half.ComplementInPlace()
	assert.Equal(t, 8, half.Len())
	mask, err := half.Mask("gas")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, true, true}, mask)

	none := fromPtypes(t, s)
	assert.True(t, none.Complement().Equal(fromPtypes(t, s, "gas", "hdm", "star")))
}

func TestRegisteredKeyShadowsAlias(t *testing.T) {
	s := openSnap(t, [][]int{{4, 0, 0, 0, 0, 0}})
	gas := fromPtypes(t, s, "gas")

	gas.RegisterField("u", field.ProducerFunc[*unit.Array](
		func(h field.Handle[*unit.Array]) (*unit.Array, error) {
			return unit.Scalar(7, "K", h.(*Selector).Units())
		}))

	u, err := gas.Get("u")
	require.NoError(t, err)
	assert.Equal(t, 7.0, u.Value())
	assert.True(t, gas.Contains("InternalEnergy"), "the aliased field survives")

	require.NoError(t, gas.UnregisterField("u"))
	assert.True(t, gas.Contains("InternalEnergy"))
	assert.NotContains(t, gas.Keys(), "u")

	u, err = gas.Get("u")
	require.NoError(t, err)
	assert.Equal(t, 4, u.Len())
}

func TestWhereLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	paths := gizmotest.Write(t, t.TempDir(), "snapshot", [][]int{{4, 0, 0, 0, 0, 0}})
	s, err := snap.Open(paths, spec.GIZMO(),
		snap.WithLogger(zerolog.New(buf).Level(zerolog.DebugLevel)))
	require.NoError(t, err)
	gas := fromPtypes(t, s, "gas")

	_, err = gas.Where([]bool{true, false, true, false})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "narrowed selection")
	assert.Contains(t, buf.String(), `"after":2`)
}

func TestSnapshotMismatch(t *testing.T) {
	counts := [][]int{{5, 3, 0, 0, 0, 0}}
	gas1 := fromPtypes(t, openSnap(t, counts), "gas")
	gas2 := fromPtypes(t, openSnap(t, counts), "gas")

	_, err := gas1.Union(gas2)
	assert.ErrorIs(t, err, ErrSnapshotMismatch)
	assert.ErrorIs(t, gas1.IntersectionInPlace(gas2), ErrSnapshotMismatch)
	assert.Equal(t, 5, gas1.Len())
	assert.False(t, gas1.Equal(gas2))
}

func TestRegisterDelete(t *testing.T) {
	s := openSnap(t, [][]int{{5, 0, 0, 0, 0, 0}})
	sel := fromPtypes(t, s, "gas")

	calls := 0
	sel.RegisterField("x", field.ProducerFunc[*unit.Array](
		func(h field.Handle[*unit.Array]) (*unit.Array, error) {
			calls++
			return unit.Scalar(42, "K", h.(*Selector).Units())
		}))

	x, err := sel.Get("x")
	require.NoError(t, err)
	assert.Equal(t, 42.0, x.Value())

	assert.True(t, sel.Delete("x"))
	assert.True(t, sel.Contains("x"))
	assert.False(t, sel.Delete("x"), "deleting an uncached key does nothing")

	x, err = sel.Get("x")
	require.NoError(t, err)
	assert.Equal(t, 42.0, x.Value())
	assert.Equal(t, 2, calls)

	sel.ClearCache()
	assert.Empty(t, sel.CachedKeys())

	require.NoError(t, sel.UnregisterField("x"))
	assert.False(t, sel.Contains("x"))
	assert.ErrorIs(t, sel.UnregisterField("x"), field.ErrKeyNotFound)
}

func TestItem(t *testing.T) {
	s := openSnap(t, [][]int{{4, 0, 0, 0, 0, 0}})
	sel := fromPtypes(t, s, "gas")

	v, err := sel.Item("m")
	require.NoError(t, err)
	assert.IsType(t, &unit.Array{}, v)

	v, err = sel.Item([]bool{true, false, true, false})
	require.NoError(t, err)
	require.IsType(t, &Selector{}, v)
	assert.Equal(t, 2, v.(*Selector).Len())

	_, err = sel.Item(3)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = sel.Item([]bool{true})
	assert.ErrorIs(t, err, ErrLength)
	_, err = sel.Item("nope")
	assert.ErrorIs(t, err, field.ErrKeyNotFound)

	sel.Alias("loop1", "loop2")
	sel.Alias("loop2", "loop1")
	_, err = sel.Item("loop1")
	assert.ErrorIs(t, err, field.ErrAliasCycle)
}

func TestNew(t *testing.T) {
	s := openSnap(t, [][]int{{4, 2, 0, 0, 0, 0}})

	sel, err := New(s, [][]bool{{true, false, false, true}, {false, false},
		nil, nil, nil, nil})
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Len())
	mask, err := sel.Mask("hdm")
	require.NoError(t, err)
	assert.Nil(t, mask, "all-false masks are normalized away")
	mask, err = sel.Mask("gas")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true}, mask)
	assert.Equal(t, []float64{0, 3}, ids(t, sel))

	_, err = New(s, [][]bool{{true}})
	assert.ErrorIs(t, err, ErrLength)
	_, err = New(s, [][]bool{{true}, nil, nil, nil, nil, nil})
	assert.ErrorIs(t, err, ErrLength)
	_, err = sel.Mask("wind")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRegistryIntersection(t *testing.T) {
	s := openSnap(t, [][]int{{6, 0, 0, 0, 2, 0}})
	acc, err := NewAccessor(s)
	require.NoError(t, err)
	gas, _ := acc.Get("gas")
	star, _ := acc.Get("star")

	half, err := gas.Where([]bool{true, true, true, false, false, false})
	require.NoError(t, err)
	assert.True(t, half.Contains("t"), "narrowing keeps registrations")

	half.RegisterField("local", field.ProducerFunc[*unit.Array](
		func(h field.Handle[*unit.Array]) (*unit.Array, error) { return h.Get("m") }))
	union, err := gas.Union(half)
	require.NoError(t, err)
	assert.True(t, union.Contains("t"))
	assert.False(t, union.Contains("local"))

	gs, err := gas.Union(star)
	require.NoError(t, err)
	assert.False(t, gs.Contains("t"))
	assert.False(t, gs.Contains("age"))
	assert.True(t, gs.Contains("Metallicity"))

	star.Alias("formation", "sft")
	gs, err = star.Union(gas)
	require.NoError(t, err)
	assert.NotContains(t, gs.Aliases(), "formation")
	assert.Contains(t, gs.Aliases(), "m")
}

func TestAccessor(t *testing.T) {
	s := openSnap(t, [][]int{{6, 3, 0, 0, 2, 0}})
	acc, err := NewAccessor(s)
	require.NoError(t, err)

	assert.Equal(t, []string{"gas", "hdm", "star", "all"}, acc.Abbrs())
	assert.Equal(t, 11, acc.All().Len())
	_, ok := acc.Get("bh")
	assert.False(t, ok)
	_, err = acc.Lookup("bh")
	assert.ErrorIs(t, err, ErrInvalidKey)

	gas, err := acc.Lookup("gas")
	require.NoError(t, err)
	temp, err := gas.Get("t")
	require.NoError(t, err)
	assert.Equal(t, "K", temp.Units())
	assert.Equal(t, 6, temp.Len())
	assert.Greater(t, temp.Data[0], 0.0)

	star, _ := acc.Get("star")
	age, err := star.Get("age")
	require.NoError(t, err)
	c := s.Cosmology()
	want := c.Age(gizmotest.Redshift) - c.Age(1/gizmotest.FormationScale-1)
	assert.InDelta(t, want, age.Data[0], 1e-6)

	assert.False(t, acc.All().Contains("t"))
	assert.True(t, acc.All().Contains("Coordinates"))
}

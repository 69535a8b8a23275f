/*package gizmotest writes small GIZMO-layout gcol snapshots for tests.

Every particle gets deterministic values so tests can tell exactly which
particles a selection picked up:

	ParticleIDs  = 1000*ptype + i
	Coordinates  = (i, i, i)
	Masses       = ptype + 1

where i is the particle's index among all particles of its type, counted
across files. Gas particles also carry InternalEnergy, ElectronAbundance,
Density and Metallicity; star particles carry StellarFormationTime and
Metallicity; black holes carry BH_Mass.
*/
package gizmotest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucsd-galaxy-lab/gizio/io/gcol"
)

// Number of GIZMO particle types.
const NPtypes = 6

const (
	Gas  = 0
	Star = 4
	BH   = 5
)

// Default header values.
const (
	ScaleFactor = 0.5
	Redshift    = 1.0
	Hubble      = 0.7
	OmegaM      = 0.3
	OmegaL      = 0.7
	BoxSize     = 1e5

	// Per-particle values of the type-specific fields.
	InternalEnergy    = 100.0
	ElectronAbundance = 1.0
	HeliumFraction    = 0.25
	FormationScale    = 0.25
)

// Header returns the header attributes of file i of a snapshot whose files
// hold counts[file][ptype] particles. Time and redshift are set by the
// caller.
func Header(counts [][]int, i int, time, redshift float64) map[string][]float64 {
	total := make([]float64, NPtypes)
	for _, c := range counts {
		for p := range c {
			total[p] += float64(c[p])
		}
	}
	thisFile := make([]float64, NPtypes)
	for p := range counts[i] {
		thisFile[p] = float64(counts[i][p])
	}

	return map[string][]float64{
		"Time":                {time},
		"Redshift":            {redshift},
		"NumFilesPerSnapshot": {float64(len(counts))},
		"MassTable":           make([]float64, NPtypes),
		"Flag_Sfr":            {1},
		"Flag_Cooling":        {1},
		"Flag_Feedback":       {1},
		"Flag_StellarAge":     {1},
		"Flag_Metals":         {2},
		"NumPart_Total":       total,
		"NumPart_ThisFile":    thisFile,
		"BoxSize":             {BoxSize},
		"Omega0":              {OmegaM},
		"OmegaLambda":         {OmegaL},
		"HubbleParam":         {Hubble},
	}
}

// Headers returns the header attributes of every file.
func Headers(counts [][]int, time, redshift float64) []map[string][]float64 {
	out := make([]map[string][]float64, len(counts))
	for i := range counts {
		out[i] = Header(counts, i, time, redshift)
	}
	return out
}

// Write writes a cosmological snapshot named name into dir and returns the
// file paths in order.
func Write(t testing.TB, dir, name string, counts [][]int) []string {
	t.Helper()
	return WriteAt(t, dir, name, counts, ScaleFactor, Redshift)
}

// WriteAt is Write with an explicit header time and redshift.
func WriteAt(t testing.TB, dir, name string, counts [][]int,
	time, redshift float64) []string {

	t.Helper()
	paths := make([]string, len(counts))
	start := make([]int, NPtypes)

	for i := range counts {
		paths[i] = filepath.Join(dir, fmt.Sprintf("%s.%d.gcol", name, i))
		w := gcol.NewWriter(paths[i])
		w.SetAttrs("Header", Header(counts, i, time, redshift))

		for p, n := range counts[i] {
			if n == 0 {
				continue
			}
			writePtype(t, w, p, start[p], n)
			start[p] += n
		}
		require.NoError(t, w.Close())
	}
	return paths
}

func writePtype(t testing.TB, w *gcol.Writer, p, start, n int) {
	group := fmt.Sprintf("PartType%d", p)

	ids := make([]uint32, n)
	pos := make([]float32, 3*n)
	mass := make([]float32, n)
	for j := 0; j < n; j++ {
		i := start + j
		ids[j] = uint32(1000*p + i)
		pos[3*j], pos[3*j+1], pos[3*j+2] = float32(i), float32(i), float32(i)
		mass[j] = float32(p + 1)
	}
	require.NoError(t, w.AddFloat32(group, "Coordinates", pos, 3))
	require.NoError(t, w.AddUint32(group, "ParticleIDs", ids, 1))
	require.NoError(t, w.AddFloat32(group, "Masses", mass, 1))

	switch p {
	case Gas:
		require.NoError(t, w.AddFloat32(group, "InternalEnergy",
			fill(n, InternalEnergy), 1))
		require.NoError(t, w.AddFloat32(group, "ElectronAbundance",
			fill(n, ElectronAbundance), 1))
		require.NoError(t, w.AddFloat32(group, "Density", fill(n, 1), 1))
		require.NoError(t, w.AddFloat32(group, "Metallicity",
			metals(n), 2))
	case Star:
		require.NoError(t, w.AddFloat32(group, "StellarFormationTime",
			fill(n, FormationScale), 1))
		require.NoError(t, w.AddFloat32(group, "Metallicity",
			metals(n), 2))
	case BH:
		require.NoError(t, w.AddFloat64(group, "BH_Mass",
			fill64(n, 1e-3), 1))
	}
}

func fill(n int, x float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(x)
	}
	return out
}

func fill64(n int, x float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = x
	}
	return out
}

func metals(n int) []float32 {
	out := make([]float32, 2*n)
	for i := 0; i < n; i++ {
		out[2*i], out[2*i+1] = 0.02, HeliumFraction
	}
	return out
}

/*package gizio loads particle snapshots written by galaxy simulations.

Load finds a snapshot's files, reads and checks their headers, and sets up a
Selector for every particle type:

	s, err := gizio.Load("output/snapshot_600", gizio.DefaultSuffix, "gizmo")
	if err != nil { ... }
	gas, _ := s.PT.Get("gas")
	temp, err := gas.Get("t")

Fields are read lazily and cached, both on the snapshot and on each Selector.
See the snap and particle packages for details.
*/
package gizio

import (
	"github.com/ucsd-galaxy-lab/gizio/io/h5"
	"github.com/ucsd-galaxy-lab/gizio/particle"
	"github.com/ucsd-galaxy-lab/gizio/snap"
	"github.com/ucsd-galaxy-lab/gizio/spec"
)

// DefaultSuffix is the file extension of HDF5 snapshots. gcol files use
// gcol.Suffix.
const DefaultSuffix = h5.Suffix

// Snapshot is an open snapshot along with its default Selectors.
type Snapshot struct {
	*snap.Snapshot
	PT *particle.Accessor
}

// Open opens the snapshot made up of paths, in order.
func Open(paths []string, sp *spec.Spec, opts ...snap.Option) (*Snapshot, error) {
	s, err := snap.Open(paths, sp, opts...)
	if err != nil {
		return nil, err
	}
	pt, err := particle.NewAccessor(s)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Snapshot: s, PT: pt}, nil
}

// Load finds the files of a snapshot with snap.Glob and opens them.
// format is the name of a built-in format or the path of a TOML format
// description.
func Load(prefix, suffix, format string, opts ...snap.Option) (*Snapshot, error) {
	sp, err := spec.Resolve(format)
	if err != nil {
		return nil, err
	}
	paths, err := snap.Glob(prefix, suffix)
	if err != nil {
		return nil, err
	}
	return Open(paths, sp, opts...)
}

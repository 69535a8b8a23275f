/*package spec describes snapshot file formats.

A Spec names the particle types a format stores, the fields each particle
type can carry along with their units and short aliases, and how the raw
header attributes should be decoded. Specs are read-only once validated and
can be shared between any number of snapshots.

GIZMO (and its relatives) are built in. Other formats can be described with a
TOML file and loaded with Load.
*/
package spec

import (
	"errors"
	"fmt"
	"math"

	"github.com/ucsd-galaxy-lab/gizio/field"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

var (
	ErrConfig      = errors.New("spec: invalid format spec")
	ErrConsistency = errors.New("spec: inconsistent snapshot header")
	ErrUnknownSpec = errors.New("spec: unknown format spec")
)

// AllAbbr is the abbreviation of the selector over every particle type.
const AllAbbr = "all"

// Decoded header keys that every Spec must produce.
const (
	KeyTime     = "time"
	KeyRedshift = "z"
	KeyHubble   = "h"
	KeyOmegaM   = "Om0"
	KeyOmegaL   = "OmL"

	// Keys added while a header is applied.
	KeyScale        = "a"
	KeyCosmological = "cosmological"
	KeyRhoM         = "rho_m"
)

// Ptype is one particle type: the group it's stored under and its short
// name.
type Ptype struct {
	Name string `toml:"name"`
	Abbr string `toml:"abbr"`
}

// Field is one per-particle quantity. Unit is a unit expression; the empty
// string means dimensionless.
type Field struct {
	Name string `toml:"name"`
	Abbr string `toml:"abbr"`
	Unit string `toml:"unit"`
}

// HeaderEntry maps a raw header attribute onto a decoded key. PerFile
// entries are collected from every file instead of only the first.
type HeaderEntry struct {
	Raw     string `toml:"raw"`
	Key     string `toml:"key"`
	PerFile bool   `toml:"per_file"`
	Unit    string `toml:"unit"`
}

// Units holds the constants that define a format's code units.
type Units struct {
	SolarAbundance       float64 `toml:"solar_abundance"`
	LengthInCm           float64 `toml:"length_in_cm"`
	MassInG              float64 `toml:"mass_in_g"`
	VelocityInCmPerS     float64 `toml:"velocity_in_cm_per_s"`
	MagneticFieldInGauss float64 `toml:"magnetic_field_in_gauss"`
}

// Derived asks for a built-in derived field to be registered as Key on the
// default selector of the particle type with abbreviation Ptype.
type Derived struct {
	Ptype    string `toml:"ptype"`
	Key      string `toml:"key"`
	Producer string `toml:"producer"`
}

// Spec is a snapshot format description.
type Spec struct {
	Name        string `toml:"name"`
	HeaderGroup string `toml:"header_group"`
	// Decoded keys holding the total particle counts, the per-file particle
	// counts and the number of files. The last two may be empty.
	NPartKey        string `toml:"n_part_key"`
	NPartPerFileKey string `toml:"n_part_per_file_key"`
	NFileKey        string `toml:"n_file_key"`

	Header  []HeaderEntry `toml:"header"`
	Units   Units         `toml:"units"`
	Ptypes  []Ptype       `toml:"ptypes"`
	Fields  []Field       `toml:"fields"`
	Derived []Derived     `toml:"derived"`
}

// PtypeNames returns the names of every particle type, in order.
func (sp *Spec) PtypeNames() []string {
	out := make([]string, len(sp.Ptypes))
	for i := range sp.Ptypes {
		out[i] = sp.Ptypes[i].Name
	}
	return out
}

// PtypeAbbrs returns a map from particle type names to abbreviations.
func (sp *Spec) PtypeAbbrs() map[string]string {
	out := make(map[string]string, len(sp.Ptypes))
	for _, pt := range sp.Ptypes {
		out[pt.Name] = pt.Abbr
	}
	return out
}

// PtypeIndex returns the position of the particle type with the given name
// or abbreviation, or -1.
func (sp *Spec) PtypeIndex(ptype string) int {
	for i, pt := range sp.Ptypes {
		if pt.Name == ptype || pt.Abbr == ptype {
			return i
		}
	}
	return -1
}

// FieldNames returns the names of every field, in order.
func (sp *Spec) FieldNames() []string {
	out := make([]string, len(sp.Fields))
	for i := range sp.Fields {
		out[i] = sp.Fields[i].Name
	}
	return out
}

// FieldAbbrs returns a map from field names to abbreviations.
func (sp *Spec) FieldAbbrs() map[string]string {
	out := make(map[string]string, len(sp.Fields))
	for _, f := range sp.Fields {
		if f.Abbr != "" {
			out[f.Name] = f.Abbr
		}
	}
	return out
}

// FieldUnits returns a map from field names to unit expressions.
func (sp *Spec) FieldUnits() map[string]string {
	out := make(map[string]string, len(sp.Fields))
	for _, f := range sp.Fields {
		out[f.Name] = f.Unit
	}
	return out
}

// FieldUnit returns the unit expression of a field. Fields the Spec doesn't
// know about are dimensionless.
func (sp *Spec) FieldUnit(name string) string {
	for _, f := range sp.Fields {
		if f.Name == name {
			return f.Unit
		}
	}
	return ""
}

// Aliases returns the field abbreviations as an alias table.
func (sp *Spec) Aliases() *field.Aliases {
	a := &field.Aliases{}
	for _, f := range sp.Fields {
		if f.Abbr != "" && f.Abbr != f.Name {
			a.Set(f.Abbr, f.Name)
		}
	}
	return a
}

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Validate checks that sp is internally consistent.
func (sp *Spec) Validate() error {
	if sp.Name == "" {
		return configErrorf("no name")
	} else if sp.HeaderGroup == "" {
		return configErrorf("%s: no header group", sp.Name)
	} else if len(sp.Ptypes) == 0 {
		return configErrorf("%s: no particle types", sp.Name)
	}

	seen := map[string]bool{}
	for _, pt := range sp.Ptypes {
		if pt.Name == "" || pt.Abbr == "" {
			return configErrorf("%s: particle type '%s' needs a name and "+
				"an abbreviation", sp.Name, pt.Name)
		} else if pt.Abbr == AllAbbr {
			return configErrorf("%s: the particle type abbreviation '%s' "+
				"is reserved", sp.Name, AllAbbr)
		}
		for _, s := range []string{pt.Name, pt.Abbr} {
			if seen[s] && !(s == pt.Abbr && pt.Abbr == pt.Name) {
				return configErrorf("%s: particle type '%s' defined twice",
					sp.Name, s)
			}
			seen[s] = true
		}
	}

	if err := sp.validateFields(); err != nil {
		return err
	}
	if err := sp.validateHeader(); err != nil {
		return err
	}

	for _, d := range sp.Derived {
		if d.Ptype != AllAbbr && sp.PtypeIndex(d.Ptype) < 0 {
			return configErrorf("%s: derived field '%s' refers to unknown "+
				"particle type '%s'", sp.Name, d.Key, d.Ptype)
		} else if _, ok := producers[d.Producer]; !ok {
			return configErrorf("%s: derived field '%s' uses unknown "+
				"producer '%s'", sp.Name, d.Key, d.Producer)
		} else if d.Key == "" {
			return configErrorf("%s: derived field with producer '%s' has "+
				"no key", sp.Name, d.Producer)
		}
	}
	return nil
}

func (sp *Spec) validateFields() error {
	names := map[string]bool{}
	abbrs := map[string]bool{}
	for _, f := range sp.Fields {
		if f.Name == "" {
			return configErrorf("%s: unnamed field", sp.Name)
		} else if names[f.Name] {
			return configErrorf("%s: field '%s' defined twice", sp.Name, f.Name)
		} else if f.Abbr != "" && abbrs[f.Abbr] {
			return configErrorf("%s: field abbreviation '%s' used twice",
				sp.Name, f.Abbr)
		}
		names[f.Name] = true
		abbrs[f.Abbr] = true
	}
	// An abbreviation naming another field would make aliases chain, and
	// possibly loop.
	for _, f := range sp.Fields {
		if f.Abbr != "" && f.Abbr != f.Name && names[f.Abbr] {
			return configErrorf("%s: abbreviation '%s' of '%s' hides the "+
				"field of the same name", sp.Name, f.Abbr, f.Name)
		}
	}

	// Code units don't depend on a and h dimensionally, so any values work
	// for checking that the expressions parse.
	reg, err := sp.NewRegistry(1, 1)
	if err != nil {
		return err
	}
	for _, f := range sp.Fields {
		if _, err := reg.Parse(f.Unit); err != nil {
			return fmt.Errorf("%w: %s: field '%s': %w", ErrConfig, sp.Name,
				f.Name, err)
		}
	}
	for _, e := range sp.Header {
		if _, err := reg.Parse(e.Unit); err != nil {
			return fmt.Errorf("%w: %s: header key '%s': %w", ErrConfig,
				sp.Name, e.Key, err)
		}
	}
	return nil
}

func (sp *Spec) validateHeader() error {
	keys := map[string]*HeaderEntry{}
	for i := range sp.Header {
		e := &sp.Header[i]
		if e.Raw == "" || e.Key == "" {
			return configErrorf("%s: header entry %d needs raw and key names",
				sp.Name, i)
		} else if keys[e.Key] != nil {
			return configErrorf("%s: header key '%s' defined twice",
				sp.Name, e.Key)
		}
		keys[e.Key] = e
	}

	required := []string{KeyTime, KeyRedshift, KeyHubble, KeyOmegaM,
		KeyOmegaL, sp.NPartKey}
	for _, key := range required {
		if key == "" {
			return configErrorf("%s: no particle count key", sp.Name)
		} else if keys[key] == nil {
			return configErrorf("%s: header has no '%s' entry", sp.Name, key)
		}
	}

	for _, key := range []string{sp.NPartPerFileKey, sp.NFileKey} {
		if key != "" && keys[key] == nil {
			return configErrorf("%s: header has no '%s' entry", sp.Name, key)
		}
	}
	if sp.NPartPerFileKey != "" && !keys[sp.NPartPerFileKey].PerFile {
		return configErrorf("%s: '%s' must be a per-file header entry",
			sp.Name, sp.NPartPerFileKey)
	}

	for _, key := range []string{KeyScale, KeyCosmological, KeyRhoM} {
		if keys[key] != nil {
			return configErrorf("%s: header key '%s' is reserved",
				sp.Name, key)
		}
	}
	return nil
}

// NewRegistry returns a unit registry containing the code units of sp for a
// snapshot with scale factor a and Hubble parameter h.
func (sp *Spec) NewRegistry(a, h float64) (*unit.Registry, error) {
	u := &sp.Units
	reg := unit.NewRegistry()

	defs := []struct {
		symbol string
		value  float64
		expr   string
	}{
		{"a", a, ""},
		{"h", h, ""},
		{"code_metallicity", u.SolarAbundance, ""},
		{"code_length", u.LengthInCm / h * a, "cm"},
		{"code_mass", u.MassInG / h, "g"},
		{"code_velocity", u.VelocityInCmPerS * math.Sqrt(a), "cm / s"},
		{"code_magnetic_field", u.MagneticFieldInGauss, "gauss"},
		{"code_specific_energy", u.VelocityInCmPerS * u.VelocityInCmPerS,
			"(cm / s)**2"},
		{"code_time", 1, "code_length / code_velocity"},
	}

	for _, d := range defs {
		if err := reg.Add(d.symbol, d.value, d.expr); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, sp.Name, err)
		}
	}
	return reg, nil
}

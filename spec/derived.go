package spec

import (
	"fmt"

	"github.com/ucsd-galaxy-lab/gizio/cosmo"
	"github.com/ucsd-galaxy-lab/gizio/field"
	"github.com/ucsd-galaxy-lab/gizio/unit"
)

// Env is the snapshot context a derived field can reach through its Handle.
// Particle selectors implement it.
type Env interface {
	Header() *Header
	Cosmology() *cosmo.Cosmology
	Units() *unit.Registry
}

// Registrar accepts field registrations. Particle selectors implement it.
type Registrar interface {
	RegisterField(key string, p field.Producer[*unit.Array])
}

// producers are the derived fields a Spec can ask for by name.
var producers = map[string]field.Producer[*unit.Array]{
	"temperature": Temperature{},
	"stellar_age": StellarAge{},
}

// RegisterDerivedFields registers the default derived fields of the
// particle type with abbreviation abbr ("all" for the selector over every
// type) onto r.
func (sp *Spec) RegisterDerivedFields(r Registrar, abbr string) error {
	for _, d := range sp.Derived {
		if d.Ptype != abbr {
			continue
		}
		p, ok := producers[d.Producer]
		if !ok {
			return configErrorf("%s: unknown producer '%s'", sp.Name, d.Producer)
		}
		r.RegisterField(d.Key, p)
	}
	return nil
}

func env(h field.Handle[*unit.Array], name string) (Env, error) {
	e, ok := h.(Env)
	if !ok {
		return nil, fmt.Errorf("spec: %s needs a snapshot to compute", name)
	}
	return e, nil
}

// Temperature computes gas temperature from internal energy, electron
// abundance and helium mass fraction (component 1 of the metallicity),
// assuming a monatomic ideal gas. It reads the fields "u", "ne" and "z".
type Temperature struct{}

func (Temperature) Produce(h field.Handle[*unit.Array]) (*unit.Array, error) {
	u, err := h.Get("u")
	if err != nil {
		return nil, err
	}
	ne, err := h.Get("ne")
	if err != nil {
		return nil, err
	}
	z, err := h.Get("z")
	if err != nil {
		return nil, err
	}

	uSI, err := u.In("m**2 / s**2")
	if err != nil {
		return nil, err
	}
	// Metallicities are stored as raw mass fractions.
	zHe, err := z.Component(1)
	if err != nil {
		return nil, err
	}
	if ne.Len() != u.Len() || zHe.Len() != u.Len() {
		return nil, fmt.Errorf("%w: temperature inputs have %d, %d and %d "+
			"rows", unit.ErrShape, u.Len(), ne.Len(), zHe.Len())
	}

	const gamma = 5.0 / 3
	t := make([]float64, len(uSI))
	for i := range t {
		y := zHe.Data[i] / (4 * (1 - zHe.Data[i]))
		mu := (1 + 4*y) / (1 + y + ne.Data[i])
		t[i] = mu * unit.Mp * (gamma - 1) * uSI[i] / unit.Kb
	}
	return unit.New(t, 1, "K", u.Registry())
}

// StellarAge computes the age of star particles from their formation time,
// "sft". Cosmological runs store the formation scale factor; other runs
// store the formation time in code units.
type StellarAge struct{}

func (StellarAge) Produce(h field.Handle[*unit.Array]) (*unit.Array, error) {
	e, err := env(h, "stellar age")
	if err != nil {
		return nil, err
	}
	sft, err := h.Get("sft")
	if err != nil {
		return nil, err
	}

	hd, reg := e.Header(), e.Units()
	now, ok := hd.Get(KeyTime)
	if !ok {
		return nil, fmt.Errorf("spec: header has no '%s'", KeyTime)
	}
	tNow, err := now.In("Gyr")
	if err != nil {
		return nil, err
	}

	var tForm []float64
	if hd.Bool(KeyCosmological) {
		zs := make([]float64, len(sft.Data))
		for i, aForm := range sft.Data {
			zs[i] = 1/aForm - 1
		}
		tForm = e.Cosmology().Ages(zs)
	} else {
		k, err := reg.Factor("code_time", "Gyr")
		if err != nil {
			return nil, err
		}
		tForm = make([]float64, len(sft.Data))
		for i := range tForm {
			tForm[i] = k * sft.Data[i]
		}
	}

	age := make([]float64, len(tForm))
	for i := range age {
		age[i] = tNow[0] - tForm[i]
	}
	return unit.New(age, 1, "Gyr", reg)
}

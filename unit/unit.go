/*package unit attaches physical units to snapshot arrays.

A Registry maps unit symbols onto SI scale factors and dimensions. Every
snapshot builds its own Registry, because "code" units like code_length
depend on the scale factor and Hubble parameter of that snapshot, and then
threads it through every Array it creates. Nothing in this package is global,
so any number of snapshots can be open at once.
*/
package unit

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrUnknownSymbol = errors.New("unit: unknown symbol")
	ErrSyntax        = errors.New("unit: malformed unit expression")
	ErrDimension     = errors.New("unit: incompatible dimensions")
	ErrDuplicate     = errors.New("unit: symbol already defined")
	ErrShape         = errors.New("unit: incompatible array shapes")
)

// The base dimensions, in the order they're stored in Dims.
const (
	Mass = iota
	Length
	Time
	Temperature
	Current
	nDims
)

var dimNames = [nDims]string{"mass", "length", "time", "temperature", "current"}

// Dims holds the exponent of each base dimension. Exponents are floats
// because CGS electromagnetic units carry half-integer powers.
type Dims [nDims]float64

// Unit is a scale factor relative to SI base units along with the dimensions
// of the quantity.
type Unit struct {
	Scale float64
	Dims  Dims
}

// Dimensionless is the unit of pure numbers.
var Dimensionless = Unit{Scale: 1}

// Mul returns the product of two units.
func (u Unit) Mul(v Unit) Unit {
	out := Unit{Scale: u.Scale * v.Scale}
	for i := range out.Dims {
		out.Dims[i] = u.Dims[i] + v.Dims[i]
	}
	return out
}

// Div returns the quotient of two units.
func (u Unit) Div(v Unit) Unit {
	out := Unit{Scale: u.Scale / v.Scale}
	for i := range out.Dims {
		out.Dims[i] = u.Dims[i] - v.Dims[i]
	}
	return out
}

// Pow raises a unit to the power p.
func (u Unit) Pow(p float64) Unit {
	out := Unit{Scale: math.Pow(u.Scale, p)}
	for i := range out.Dims {
		out.Dims[i] = u.Dims[i] * p
	}
	return out
}

// SameDims returns true if u and v measure the same kind of quantity.
func (u Unit) SameDims(v Unit) bool {
	for i := range u.Dims {
		if math.Abs(u.Dims[i]-v.Dims[i]) > 1e-9 {
			return false
		}
	}
	return true
}

// IsDimensionless returns true if u has no dimensions. Its scale need not
// be 1.
func (u Unit) IsDimensionless() bool { return u.SameDims(Dimensionless) }

// Factor returns the number which converts a value in u into a value in v.
func (u Unit) Factor(v Unit) (float64, error) {
	if !u.SameDims(v) {
		return 0, fmt.Errorf("%w: %s vs. %s", ErrDimension, u.Dims, v.Dims)
	}
	return u.Scale / v.Scale, nil
}

func (d Dims) String() string {
	parts := []string{}
	for i, p := range d {
		if p != 0 {
			parts = append(parts, fmt.Sprintf("%s^%g", dimNames[i], p))
		}
	}
	if len(parts) == 0 {
		return "dimensionless"
	}
	return strings.Join(parts, " ")
}

// Registry is a table of unit symbols. It is populated while a snapshot is
// being opened and only read afterwards.
type Registry struct {
	symbols map[string]Unit
}

// NewRegistry returns a Registry containing the SI, CGS and astronomical
// units that snapshot formats refer to.
func NewRegistry() *Registry {
	reg := &Registry{symbols: make(map[string]Unit, len(builtins))}
	for sym, u := range builtins {
		reg.symbols[sym] = u
	}
	return reg
}

// Add defines symbol as value times the unit expression expr, which may
// refer to symbols added earlier.
func (reg *Registry) Add(symbol string, value float64, expr string) error {
	if !isIdent(symbol) {
		return fmt.Errorf("%w: '%s' isn't a valid symbol name", ErrSyntax, symbol)
	} else if _, ok := reg.symbols[symbol]; ok {
		return fmt.Errorf("%w: '%s'", ErrDuplicate, symbol)
	}

	u, err := reg.Parse(expr)
	if err != nil {
		return err
	}
	u.Scale *= value
	reg.symbols[symbol] = u
	return nil
}

// Lookup returns the unit associated with a single symbol.
func (reg *Registry) Lookup(symbol string) (Unit, bool) {
	u, ok := reg.symbols[symbol]
	return u, ok
}

// Symbols returns every symbol in the registry, sorted.
func (reg *Registry) Symbols() []string {
	out := make([]string, 0, len(reg.symbols))
	for sym := range reg.symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Factor returns the number which converts values in the unit expression
// from to values in the unit expression to.
func (reg *Registry) Factor(from, to string) (float64, error) {
	uf, err := reg.Parse(from)
	if err != nil {
		return 0, err
	}
	ut, err := reg.Parse(to)
	if err != nil {
		return 0, err
	}
	return uf.Factor(ut)
}

const (
	parsec    = 3.0856775814913673e16 // m
	solarMass = 1.98841e30            // kg
	julianYr  = 365.25 * 24 * 3600    // s
)

func dims(m, l, t, temp, i float64) Dims { return Dims{m, l, t, temp, i} }

var builtins = map[string]Unit{
	"dimensionless": Dimensionless,

	"m":   {1, dims(0, 1, 0, 0, 0)},
	"cm":  {1e-2, dims(0, 1, 0, 0, 0)},
	"km":  {1e3, dims(0, 1, 0, 0, 0)},
	"AU":  {1.495978707e11, dims(0, 1, 0, 0, 0)},
	"pc":  {parsec, dims(0, 1, 0, 0, 0)},
	"kpc": {1e3 * parsec, dims(0, 1, 0, 0, 0)},
	"Mpc": {1e6 * parsec, dims(0, 1, 0, 0, 0)},

	"kg":   {1, dims(1, 0, 0, 0, 0)},
	"g":    {1e-3, dims(1, 0, 0, 0, 0)},
	"Msun": {solarMass, dims(1, 0, 0, 0, 0)},

	"s":   {1, dims(0, 0, 1, 0, 0)},
	"yr":  {julianYr, dims(0, 0, 1, 0, 0)},
	"Myr": {1e6 * julianYr, dims(0, 0, 1, 0, 0)},
	"Gyr": {1e9 * julianYr, dims(0, 0, 1, 0, 0)},

	"K": {1, dims(0, 0, 0, 1, 0)},
	"A": {1, dims(0, 0, 0, 0, 1)},

	"J":     {1, dims(1, 2, -2, 0, 0)},
	"erg":   {1e-7, dims(1, 2, -2, 0, 0)},
	"T":     {1, dims(1, 0, -2, 0, -1)},
	"gauss": {1e-4, dims(1, 0, -2, 0, -1)},
}

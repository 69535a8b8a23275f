package unit

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/ucsd-galaxy-lab/gizio/array"
)

// Array is a table of float64 values tagged with a unit. Rows correspond to
// particles and each row holds Width components (3 for positions, 1 for
// masses, etc.). Data is stored row-major.
//
// Arrays handed out by a snapshot are shared with its cache, so treat Data
// as read-only; every method here returns a fresh Array.
type Array struct {
	Data  []float64
	Width int

	expr string
	u    Unit
	reg  *Registry
}

// New tags data with the unit expression expr, interpreted with reg.
func New(data []float64, width int, expr string, reg *Registry) (*Array, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: width %d", ErrShape, width)
	} else if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d values can't be split into rows of %d",
			ErrShape, len(data), width)
	}

	u, err := reg.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Array{Data: data, Width: width, expr: normExpr(expr), u: u, reg: reg}, nil
}

// Scalar returns a single-element Array.
func Scalar(x float64, expr string, reg *Registry) (*Array, error) {
	return New([]float64{x}, 1, expr, reg)
}

func normExpr(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "dimensionless"
	}
	return expr
}

// Len returns the number of rows in the array.
func (a *Array) Len() int { return len(a.Data) / a.Width }

// Units returns the unit expression that a was tagged with.
func (a *Array) Units() string { return a.expr }

// Unit returns the resolved unit of a.
func (a *Array) Unit() Unit { return a.u }

// Registry returns the registry a's units were resolved against.
func (a *Array) Registry() *Registry { return a.reg }

// Row returns the components of row i. The returned slice aliases a.Data.
func (a *Array) Row(i int) []float64 { return a.Data[i*a.Width : (i+1)*a.Width] }

// Value returns the first element of a. It's intended for scalars.
func (a *Array) Value() float64 { return a.Data[0] }

func (a *Array) derive(data []float64, width int) *Array {
	return &Array{Data: data, Width: width, expr: a.expr, u: a.u, reg: a.reg}
}

// Component returns column j of a as a width-1 array.
func (a *Array) Component(j int) (*Array, error) {
	if j < 0 || j >= a.Width {
		return nil, fmt.Errorf("%w: component %d of an array with width %d",
			ErrShape, j, a.Width)
	}
	out := make([]float64, a.Len())
	for i := range out {
		out[i] = a.Data[i*a.Width+j]
	}
	return a.derive(out, 1), nil
}

// Take returns the rows of a listed in idx, in that order.
func (a *Array) Take(idx []int) *Array {
	out := make([]float64, len(idx)*a.Width)
	for k, i := range idx {
		copy(out[k*a.Width:(k+1)*a.Width], a.Row(i))
	}
	return a.derive(out, a.Width)
}

// Slice returns rows [lo, hi) of a. The data is copied.
func (a *Array) Slice(lo, hi int) *Array {
	out := make([]float64, (hi-lo)*a.Width)
	copy(out, a.Data[lo*a.Width:hi*a.Width])
	return a.derive(out, a.Width)
}

// In returns the values of a expressed in the unit expression expr.
func (a *Array) In(expr string) ([]float64, error) {
	target, err := a.reg.Parse(expr)
	if err != nil {
		return nil, err
	}
	k, err := a.u.Factor(target)
	if err != nil {
		return nil, fmt.Errorf("converting '%s' to '%s': %w", a.expr, expr, err)
	}

	out := make([]float64, len(a.Data))
	copy(out, a.Data)
	floats.Scale(k, out)
	return out, nil
}

// To returns a converted to the unit expression expr.
func (a *Array) To(expr string) (*Array, error) {
	data, err := a.In(expr)
	if err != nil {
		return nil, err
	}
	u, _ := a.reg.Parse(expr)
	return &Array{Data: data, Width: a.Width, expr: normExpr(expr), u: u,
		reg: a.reg}, nil
}

// broadcast returns copies of the values of a and b stretched to the same
// length. Scalars stretch to match the other operand.
func broadcast(a, b *Array) (x, y []float64, width int, err error) {
	switch {
	case len(a.Data) == len(b.Data):
		width = a.Width
		if b.Width > width {
			width = b.Width
		}
		if a.Width != b.Width && len(a.Data) != 1 {
			return nil, nil, 0, fmt.Errorf("%w: widths %d and %d",
				ErrShape, a.Width, b.Width)
		}
		x, y = append([]float64{}, a.Data...), append([]float64{}, b.Data...)
	case len(b.Data) == 1:
		width = a.Width
		x, y = append([]float64{}, a.Data...), fill(len(a.Data), b.Data[0])
	case len(a.Data) == 1:
		width = b.Width
		x, y = fill(len(b.Data), a.Data[0]), append([]float64{}, b.Data...)
	default:
		return nil, nil, 0, fmt.Errorf("%w: %d and %d elements",
			ErrShape, len(a.Data), len(b.Data))
	}
	return x, y, width, nil
}

func fill(n int, x float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = x
	}
	return out
}

func joinExpr(a, op, b string) string {
	return fmt.Sprintf("(%s)%s(%s)", a, op, b)
}

// Mul returns the element-by-element product of a and b.
func (a *Array) Mul(b *Array) (*Array, error) {
	x, y, width, err := broadcast(a, b)
	if err != nil {
		return nil, err
	}
	floats.Mul(x, y)
	return &Array{Data: x, Width: width, expr: joinExpr(a.expr, "*", b.expr),
		u: a.u.Mul(b.u), reg: a.reg}, nil
}

// Div returns the element-by-element quotient of a and b.
func (a *Array) Div(b *Array) (*Array, error) {
	x, y, width, err := broadcast(a, b)
	if err != nil {
		return nil, err
	}
	floats.Div(x, y)
	return &Array{Data: x, Width: width, expr: joinExpr(a.expr, "/", b.expr),
		u: a.u.Div(b.u), reg: a.reg}, nil
}

// sameUnit returns b converted into the unit of a.
func (a *Array) sameUnit(b *Array) (*Array, error) {
	k, err := b.u.Factor(a.u)
	if err != nil {
		return nil, fmt.Errorf("combining '%s' with '%s': %w", a.expr, b.expr, err)
	}
	data := append([]float64{}, b.Data...)
	floats.Scale(k, data)
	return b.derive(data, b.Width), nil
}

// Add returns a + b in the units of a. The units of b must have the same
// dimensions.
func (a *Array) Add(b *Array) (*Array, error) {
	b, err := a.sameUnit(b)
	if err != nil {
		return nil, err
	}
	x, y, width, err := broadcast(a, b)
	if err != nil {
		return nil, err
	}
	floats.Add(x, y)
	return a.derive(x, width), nil
}

// Sub returns a - b in the units of a.
func (a *Array) Sub(b *Array) (*Array, error) {
	b, err := a.sameUnit(b)
	if err != nil {
		return nil, err
	}
	x, y, width, err := broadcast(a, b)
	if err != nil {
		return nil, err
	}
	floats.Sub(x, y)
	return a.derive(x, width), nil
}

// Scale returns k*a. The unit is unchanged.
func (a *Array) Scale(k float64) *Array {
	data := append([]float64{}, a.Data...)
	floats.Scale(k, data)
	return a.derive(data, a.Width)
}

// Offset returns a + x0, with x0 given in the units of a.
func (a *Array) Offset(x0 float64) *Array {
	data := append([]float64{}, a.Data...)
	floats.AddConst(x0, data)
	return a.derive(data, a.Width)
}

// Map applies f to every element of a and tags the result with the unit
// expression expr. It's the escape hatch for non-linear formulas.
func (a *Array) Map(expr string, f func(x float64) float64) (*Array, error) {
	data := make([]float64, len(a.Data))
	for i, x := range a.Data {
		data[i] = f(x)
	}
	return New(data, a.Width, expr, a.reg)
}

func (a *Array) scalarColumn(op string) error {
	if a.Width != 1 {
		return fmt.Errorf("%w: %s needs width 1, not %d", ErrShape, op, a.Width)
	}
	return nil
}

// Greater returns which rows of a are greater than x0, with x0 given in the
// units of a. a must have width 1.
func (a *Array) Greater(x0 float64) ([]bool, error) {
	if err := a.scalarColumn("Greater"); err != nil {
		return nil, err
	}
	return array.Greater(a.Data, x0), nil
}

// Less returns which rows of a are less than x0.
func (a *Array) Less(x0 float64) ([]bool, error) {
	if err := a.scalarColumn("Less"); err != nil {
		return nil, err
	}
	return array.Less(a.Data, x0), nil
}

// Geq returns which rows of a are >= x0.
func (a *Array) Geq(x0 float64) ([]bool, error) {
	if err := a.scalarColumn("Geq"); err != nil {
		return nil, err
	}
	return array.Geq(a.Data, x0), nil
}

// Leq returns which rows of a are <= x0.
func (a *Array) Leq(x0 float64) ([]bool, error) {
	if err := a.scalarColumn("Leq"); err != nil {
		return nil, err
	}
	return array.Leq(a.Data, x0), nil
}

// Concatenate stacks arrays end to end. Every array is converted to the unit
// of the first one and all of them must share a width.
func Concatenate(arrs ...*Array) (*Array, error) {
	if len(arrs) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrShape)
	}

	first := arrs[0]
	n := 0
	for _, a := range arrs {
		if a.Width != first.Width {
			return nil, fmt.Errorf("%w: widths %d and %d", ErrShape,
				first.Width, a.Width)
		}
		n += len(a.Data)
	}

	data := make([]float64, 0, n)
	for i, a := range arrs {
		if i > 0 && a.u != first.u {
			var err error
			if a, err = first.sameUnit(a); err != nil {
				return nil, err
			}
		}
		data = append(data, a.Data...)
	}
	return first.derive(data, first.Width), nil
}

// Equal returns true if a and b hold identical values in identical units.
func (a *Array) Equal(b *Array) bool {
	return a.Width == b.Width && a.u == b.u && floats.Equal(a.Data, b.Data)
}

func (a *Array) String() string {
	if len(a.Data) <= 6 {
		return fmt.Sprintf("%g %s", a.Data, a.expr)
	}
	return fmt.Sprintf("[%g %g %g ... %g %g %g] %s (%d rows)",
		a.Data[0], a.Data[1], a.Data[2], a.Data[len(a.Data)-3],
		a.Data[len(a.Data)-2], a.Data[len(a.Data)-1], a.expr, a.Len())
}

/*package h5 reads snapshot files written as HDF5, the layout GIZMO and
GADGET produce natively.

Groups map to particle types and the header, datasets map to fields and
group attributes carry the header values. Like gcol.Reader, every call
opens the file, does its work and closes it again.

Datasets are flattened in row-major order. HDF5 records the dimensions of a
dataset, but they aren't reported here: Read returns a width of 0 and leaves
it to the caller to split rows using the particle counts in the header.
*/
package h5

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/scigolib/hdf5"
)

const Suffix = ".hdf5"

var (
	ErrNoGroup = errors.New("h5: no such group")
	ErrNoField = errors.New("h5: no such field")
)

// Reader reads HDF5 snapshot files. The zero value is ready to use.
type Reader struct{}

// contents is everything one walk over a file finds.
type contents struct {
	groups   []string
	datasets map[string][]string
	objects  map[string]hdf5.Object
}

func objectPath(path string) string { return strings.Trim(path, "/") }

// walk opens path, indexes its groups and datasets, and passes them to f
// before closing the file.
func walk(path string, f func(c *contents) error) error {
	file, err := hdf5.Open(path)
	if err != nil {
		return fmt.Errorf("h5: opening %s: %w", path, err)
	}
	defer file.Close()

	c := &contents{
		datasets: map[string][]string{},
		objects:  map[string]hdf5.Object{},
	}
	file.Walk(func(p string, obj hdf5.Object) {
		p = objectPath(p)
		c.objects[p] = obj
		switch obj.(type) {
		case *hdf5.Group:
			if p != "" {
				c.groups = append(c.groups, p)
			}
		case *hdf5.Dataset:
			group, name := "", p
			if i := strings.LastIndex(p, "/"); i >= 0 {
				group, name = p[:i], p[i+1:]
			}
			c.datasets[group] = append(c.datasets[group], name)
		}
	})
	return f(c)
}

func (c *contents) group(path, name string) (*hdf5.Group, error) {
	g, ok := c.objects[objectPath(name)].(*hdf5.Group)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' in %s", ErrNoGroup, name, path)
	}
	return g, nil
}

// Groups returns the names of every group in the file.
func (Reader) Groups(path string) ([]string, error) {
	var out []string
	err := walk(path, func(c *contents) error {
		out = append([]string{}, c.groups...)
		return nil
	})
	return out, err
}

// Fields returns the names of the datasets directly inside a group.
func (Reader) Fields(path, group string) ([]string, error) {
	var out []string
	err := walk(path, func(c *contents) error {
		if _, err := c.group(path, group); err != nil {
			return err
		}
		out = append([]string{}, c.datasets[objectPath(group)]...)
		return nil
	})
	return out, err
}

// Attrs returns the numeric attributes of a group. Attributes that aren't
// numbers, like strings, are skipped.
func (Reader) Attrs(path, group string) (map[string][]float64, error) {
	out := map[string][]float64{}
	err := walk(path, func(c *contents) error {
		g, err := c.group(path, group)
		if err != nil {
			return err
		}
		attrs, err := g.Attributes()
		if err != nil {
			return fmt.Errorf("h5: attributes of %s in %s: %w", group, path, err)
		}
		for _, a := range attrs {
			v, err := a.ReadValue()
			if err != nil {
				return fmt.Errorf("h5: attribute %s/%s in %s: %w",
					group, a.Name, path, err)
			}
			if vals, ok := toFloats(v); ok {
				out[a.Name] = vals
			}
		}
		return nil
	})
	return out, err
}

// Read returns the contents of a dataset converted to float64. The width is
// always 0.
func (Reader) Read(path, group, field string) ([]float64, int, error) {
	var out []float64
	err := walk(path, func(c *contents) error {
		if _, err := c.group(path, group); err != nil {
			return err
		}
		key := objectPath(group + "/" + field)
		ds, ok := c.objects[key].(*hdf5.Dataset)
		if !ok {
			return fmt.Errorf("%w: '%s/%s' in %s", ErrNoField, group, field, path)
		}

		var err error
		if out, err = ds.Read(); err != nil {
			return fmt.Errorf("h5: reading %s from %s: %w", key, path, err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, 0, nil
}

// toFloats converts an attribute value to a []float64. Scalars become a
// single element. ok is false for anything that isn't numeric.
func toFloats(v any) (vals []float64, ok bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			// Byte slices are text.
			return nil, false
		}
		out := make([]float64, rv.Len())
		for i := range out {
			x, ok := scalar(rv.Index(i))
			if !ok {
				return nil, false
			}
			out[i] = x
		}
		return out, true
	}

	x, ok := scalar(rv)
	if !ok {
		return nil, false
	}
	return []float64{x}, true
}

func scalar(rv reflect.Value) (float64, bool) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

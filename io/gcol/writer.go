package gcol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Writer accumulates groups in memory and writes them out on Close.
type Writer struct {
	path   string
	index  Index
	blocks [][]byte
	offset uint64
}

// NewWriter returns a Writer that will create the file at path when closed.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) group(name string) *Group {
	if g, ok := w.index.Group(name); ok {
		return g
	}
	w.index.Groups = append(w.index.Groups, Group{Name: name})
	return &w.index.Groups[len(w.index.Groups)-1]
}

// SetAttr sets a single attribute of a group, creating the group if needed.
func (w *Writer) SetAttr(group, key string, vals ...float64) {
	g := w.group(group)
	if g.Attrs == nil {
		g.Attrs = map[string][]float64{}
	}
	g.Attrs[key] = append([]float64{}, vals...)
}

// SetAttrs sets several attributes of a group at once.
func (w *Writer) SetAttrs(group string, attrs map[string][]float64) {
	for key, vals := range attrs {
		w.SetAttr(group, key, vals...)
	}
}

type number interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint32 | ~uint64
}

func add[T number](w *Writer, group, field string, dtype DType, data []T,
	width int) error {

	if width < 1 || len(data)%width != 0 {
		return fmt.Errorf("gcol: %d values of %s/%s can't be split into rows "+
			"of width %d", len(data), group, field, width)
	}

	g := w.group(group)
	if _, ok := g.Field(field); ok {
		return fmt.Errorf("gcol: field %s/%s written twice", group, field)
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, Order, data); err != nil {
		return err
	}

	g.Fields = append(g.Fields, Field{
		Name: field, DType: dtype,
		Rows: uint64(len(data) / width), Width: uint64(width),
		Offset: w.offset,
	})
	w.blocks = append(w.blocks, buf.Bytes())
	w.offset += uint64(buf.Len())
	return nil
}

// AddFloat64 adds a float64 field with the given number of components per
// row.
func (w *Writer) AddFloat64(group, field string, data []float64, width int) error {
	return add(w, group, field, Float64, data, width)
}

// AddFloat32 adds a float32 field.
func (w *Writer) AddFloat32(group, field string, data []float32, width int) error {
	return add(w, group, field, Float32, data, width)
}

// AddInt64 adds an int64 field.
func (w *Writer) AddInt64(group, field string, data []int64, width int) error {
	return add(w, group, field, Int64, data, width)
}

// AddInt32 adds an int32 field.
func (w *Writer) AddInt32(group, field string, data []int32, width int) error {
	return add(w, group, field, Int32, data, width)
}

// AddUint32 adds a uint32 field.
func (w *Writer) AddUint32(group, field string, data []uint32, width int) error {
	return add(w, group, field, Uint32, data, width)
}

// AddUint64 adds a uint64 field.
func (w *Writer) AddUint64(group, field string, data []uint64, width int) error {
	return add(w, group, field, Uint64, data, width)
}

// Close writes the file to disk.
func (w *Writer) Close() error {
	idx, err := json.Marshal(&w.index)
	if err != nil {
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	prefix := [3]uint64{Magic, Version, uint64(len(idx))}
	if err = binary.Write(f, Order, prefix); err != nil {
		return err
	}
	if _, err = f.Write(idx); err != nil {
		return err
	}
	for _, block := range w.blocks {
		if _, err = f.Write(block); err != nil {
			return err
		}
	}
	return f.Close()
}

/*package gcol reads and writes gcol files, a simple columnar container for
particle snapshots.

A gcol file holds named groups (one per particle type plus a header group),
each carrying numeric attributes and any number of fields. A field is a
rows x width table of one numeric type. The layout is:

	uint64 magic | uint64 version | uint64 index length
	index (JSON)
	data blocks

Field offsets in the index are relative to the start of the data blocks.
Everything is little-endian.

Readers open and close the file on every call, so no file handles outlive a
single read.
*/
package gcol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"
)

const (
	Magic   = 0x67636f6c31 // "gcol1"
	Version = 1
	Suffix  = ".gcol"

	// fixedHeaderBytes is the size of the magic/version/index-length prefix.
	fixedHeaderBytes = 24
)

var (
	Order = binary.LittleEndian

	ErrFormat  = errors.New("gcol: not a valid gcol file")
	ErrNoGroup = errors.New("gcol: no such group")
	ErrNoField = errors.New("gcol: no such field")
	ErrDType   = errors.New("gcol: unsupported data type")

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// DType names the on-disk numeric type of a field.
type DType string

const (
	Float32 DType = "f32"
	Float64 DType = "f64"
	Int32   DType = "i32"
	Int64   DType = "i64"
	Uint32  DType = "u32"
	Uint64  DType = "u64"
)

// Size returns the number of bytes used by one element of type d.
func (d DType) Size() (int, error) {
	switch d {
	case Float32, Int32, Uint32:
		return 4, nil
	case Float64, Int64, Uint64:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: '%s'", ErrDType, d)
}

// Index describes the contents of a gcol file.
type Index struct {
	Groups []Group `json:"groups"`
}

// Group is a named collection of attributes and fields.
type Group struct {
	Name   string               `json:"name"`
	Attrs  map[string][]float64 `json:"attrs,omitempty"`
	Fields []Field              `json:"fields,omitempty"`
}

// Field locates one table within the data blocks.
type Field struct {
	Name   string `json:"name"`
	DType  DType  `json:"dtype"`
	Rows   uint64 `json:"rows"`
	Width  uint64 `json:"width"`
	Offset uint64 `json:"offset"`
}

// Bytes returns the size of the field's data block. Sizes that don't fit in
// an int64 are an ErrFormat.
func (f *Field) Bytes() (uint64, error) {
	size, err := f.DType.Size()
	if err != nil {
		return 0, err
	}
	if f.Width == 0 {
		return 0, fmt.Errorf("%w: field '%s' has width 0", ErrFormat, f.Name)
	}

	limit := uint64(math.MaxInt64) / uint64(size)
	if f.Rows > limit/f.Width {
		return 0, fmt.Errorf("%w: field '%s' has %d x %d elements",
			ErrFormat, f.Name, f.Rows, f.Width)
	}
	return f.Rows * f.Width * uint64(size), nil
}

// Group returns the group with the given name.
func (idx *Index) Group(name string) (*Group, bool) {
	for i := range idx.Groups {
		if idx.Groups[i].Name == name {
			return &idx.Groups[i], true
		}
	}
	return nil, false
}

// Field returns the field with the given name.
func (g *Group) Field(name string) (*Field, bool) {
	for i := range g.Fields {
		if g.Fields[i].Name == name {
			return &g.Fields[i], true
		}
	}
	return nil, false
}

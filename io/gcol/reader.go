package gcol

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Reader reads gcol files. The zero value is ready to use. Every method
// opens the file, does its work, and closes it again.
type Reader struct{}

// readIndex reads the prefix and index of an open file and returns the
// index along with the offset of the first data block.
func readIndex(f *os.File) (*Index, int64, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := info.Size()

	var prefix [3]uint64
	if err := binary.Read(f, Order, &prefix); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrFormat, f.Name(), err)
	}
	if prefix[0] != Magic {
		return nil, 0, fmt.Errorf("%w: %s has magic number %x, not %x",
			ErrFormat, f.Name(), prefix[0], Magic)
	} else if prefix[1] != Version {
		return nil, 0, fmt.Errorf("%w: %s is version %d, but reader is "+
			"version %d", ErrFormat, f.Name(), prefix[1], Version)
	}

	if size < fixedHeaderBytes || prefix[2] > uint64(size-fixedHeaderBytes) {
		return nil, 0, fmt.Errorf("%w: %s: index length %d runs past the "+
			"end of a %d byte file", ErrFormat, f.Name(), prefix[2], size)
	}

	buf := make([]byte, prefix[2])
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: truncated index: %v",
			ErrFormat, f.Name(), err)
	}

	idx := &Index{}
	if err := json.Unmarshal(buf, idx); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrFormat, f.Name(), err)
	}
	return idx, fixedHeaderBytes + int64(prefix[2]), nil
}

// Index returns the index of the file at path.
func (Reader) Index(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, _, err := readIndex(f)
	return idx, err
}

func (rd Reader) group(path, group string) (*Group, error) {
	idx, err := rd.Index(path)
	if err != nil {
		return nil, err
	}
	g, ok := idx.Group(group)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' in %s", ErrNoGroup, group, path)
	}
	return g, nil
}

// Groups returns the names of every group in the file, in file order.
func (rd Reader) Groups(path string) ([]string, error) {
	idx, err := rd.Index(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(idx.Groups))
	for i := range idx.Groups {
		names[i] = idx.Groups[i].Name
	}
	return names, nil
}

// Fields returns the names of every field in a group, in file order.
func (rd Reader) Fields(path, group string) ([]string, error) {
	g, err := rd.group(path, group)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(g.Fields))
	for i := range g.Fields {
		names[i] = g.Fields[i].Name
	}
	return names, nil
}

// Attrs returns the attributes of a group.
func (rd Reader) Attrs(path, group string) (map[string][]float64, error) {
	g, err := rd.group(path, group)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64, len(g.Attrs))
	for k, v := range g.Attrs {
		out[k] = v
	}
	return out, nil
}

// Read returns the contents of a field converted to float64, along with the
// number of components per row.
func (Reader) Read(path, group, field string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	idx, start, err := readIndex(f)
	if err != nil {
		return nil, 0, err
	}
	g, ok := idx.Group(group)
	if !ok {
		return nil, 0, fmt.Errorf("%w: '%s' in %s", ErrNoGroup, group, path)
	}
	fd, ok := g.Field(field)
	if !ok {
		return nil, 0, fmt.Errorf("%w: '%s/%s' in %s",
			ErrNoField, group, field, path)
	}

	if err = checkBlock(f, start, fd); err != nil {
		return nil, 0, fmt.Errorf("reading %s/%s from %s: %w",
			group, field, path, err)
	}
	if _, err = f.Seek(start+int64(fd.Offset), io.SeekStart); err != nil {
		return nil, 0, err
	}
	data, err := readBlock(f, fd)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s/%s from %s: %w",
			group, field, path, err)
	}
	return data, int(fd.Width), nil
}

// checkBlock makes sure that fd's data block lies inside f.
func checkBlock(f *os.File, start int64, fd *Field) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	n, err := fd.Bytes()
	if err != nil {
		return err
	}

	avail := uint64(info.Size() - start)
	if fd.Offset > avail || n > avail-fd.Offset {
		return fmt.Errorf("%w: %d byte block at offset %d, but only %d "+
			"bytes of data", ErrFormat, n, fd.Offset, avail)
	}
	return nil
}

// readBlock decodes one field's data block from rd.
func readBlock(rd io.Reader, fd *Field) ([]float64, error) {
	n := int(fd.Rows * fd.Width)
	out := make([]float64, n)

	switch fd.DType {
	case Float64:
		if err := binary.Read(rd, Order, out); err != nil {
			return nil, err
		}
	case Float32:
		return convert(rd, make([]float32, n), out)
	case Int32:
		return convert(rd, make([]int32, n), out)
	case Int64:
		return convert(rd, make([]int64, n), out)
	case Uint32:
		return convert(rd, make([]uint32, n), out)
	case Uint64:
		return convert(rd, make([]uint64, n), out)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrDType, fd.DType)
	}
	return out, nil
}

func convert[T number](rd io.Reader, buf []T, out []float64) ([]float64, error) {
	if err := binary.Read(rd, Order, buf); err != nil {
		return nil, err
	}
	for i := range buf {
		out[i] = float64(buf[i])
	}
	return out, nil
}

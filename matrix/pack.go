package matrix

import (
	"encoding/binary"
	"fmt"
)

// ElementWidths lists the element widths, in bytes, accepted by Pack and
// Unpack.
var ElementWidths = []int{1, 2, 4, 8}

func checkWidth(eltBytes int) error {
	switch eltBytes {
	case 1, 2, 4, 8:
		return nil
	}
	return fmt.Errorf("unsupported element width %d (want 1, 2, 4 or 8)", eltBytes)
}

// Unpack reads a rows x cols matrix stored in layout from buf. Elements are
// unsigned little-endian integers eltBytes wide.
func Unpack(buf []byte, rows, cols, eltBytes int, layout Layout) (*Matrix, error) {
	if err := checkWidth(eltBytes); err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative dimension %dx%d", ErrDimension, rows, cols)
	}
	if cols > 0 && rows > len(buf)/eltBytes/cols {
		return nil, fmt.Errorf("%w: %dx%d elements of %d bytes exceed the %d byte buffer", ErrDimension, rows, cols, eltBytes, len(buf))
	}
	if want := rows * cols * eltBytes; len(buf) != want {
		return nil, fmt.Errorf("%w: buffer has %d bytes, expected %d", ErrDimension, len(buf), want)
	}
	data := make([]int64, rows*cols)
	for k := range data {
		b := buf[k*eltBytes : (k+1)*eltBytes]
		switch eltBytes {
		case 1:
			data[k] = int64(b[0])
		case 2:
			data[k] = int64(binary.LittleEndian.Uint16(b))
		case 4:
			data[k] = int64(binary.LittleEndian.Uint32(b))
		case 8:
			data[k] = int64(binary.LittleEndian.Uint64(b))
		}
	}
	return &Matrix{rows: rows, cols: cols, layout: layout, data: data}, nil
}

// Pack writes m in its storage order as unsigned little-endian integers
// eltBytes wide. Negative values and values that need more than eltBytes
// bytes fail with ErrTruncated.
func Pack(m *Matrix, eltBytes int) ([]byte, error) {
	if err := checkWidth(eltBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, len(m.data)*eltBytes)
	for k, v := range m.data {
		if v < 0 || (eltBytes < 8 && uint64(v) >= 1<<(8*uint(eltBytes))) {
			return nil, fmt.Errorf("%w: element %d is %d, width %d bytes", ErrTruncated, k, v, eltBytes)
		}
		b := buf[k*eltBytes : (k+1)*eltBytes]
		switch eltBytes {
		case 1:
			b[0] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(b, uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(b, uint32(v))
		case 8:
			binary.LittleEndian.PutUint64(b, uint64(v))
		}
	}
	return buf, nil
}

package binary

import (
	"encoding/binary"
	"fmt"
)

// byteWriter is a small growable byte buffer with fixed-width and
// length-prefixed-string helpers, used to serialize every section.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) i32(v int32)  { w.u32(uint32(v)) }
func (w *byteWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *byteWriter) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}
func (w *byteWriter) str(s string) { w.bytes([]byte(s)) }

func (w *byteWriter) i32Slice(xs []int32) {
	w.u32(uint32(len(xs)))
	for _, x := range xs {
		w.i32(x)
	}
}

// pad4 appends zero bytes until the buffer length is a multiple of 4.
func (w *byteWriter) pad4() {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

// byteReader reads back what byteWriter produces, reporting a descriptive
// error instead of panicking on a truncated section.
type byteReader struct {
	buf []byte
	off int
}

func (r *byteReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return fmt.Errorf("unexpected end of section at offset %d, need %d more bytes", r.off, n)
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *byteReader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *byteReader) str() (string, error) {
	b, err := r.bytes()
	return string(b), err
}

func (r *byteReader) i32Slice() ([]int32, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	xs := make([]int32, n)
	for i := range xs {
		if xs[i], err = r.i32(); err != nil {
			return nil, err
		}
	}
	return xs, nil
}

func (r *byteReader) atEnd() bool { return r.off >= len(r.buf) }

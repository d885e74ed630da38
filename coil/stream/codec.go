package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encode appends r's RecordSize-byte wire encoding to buf.
func Encode(buf []byte, r Record) []byte {
	var a [RecordSize]byte
	a[0] = MarkerInstruction
	binary.LittleEndian.PutUint16(a[1:3], uint16(r.Op))
	a[3] = MarkerType
	a[4] = uint8(r.Type)
	a[5] = MarkerVariable
	binary.LittleEndian.PutUint16(a[6:8], r.VarAddress)
	a[8] = MarkerImmediate
	binary.LittleEndian.PutUint64(a[9:17], r.ImmValue)
	a[17] = MarkerEnd
	return append(buf, a[:]...)
}

// Decode reads one Record from buf at byte offset off, returning it along
// with the offset of the next record. It returns io.EOF when off is exactly
// the end of buf. It validates every marker byte and reports the first one
// that doesn't match, since a misaligned stream is otherwise silently
// misread.
func Decode(buf []byte, off int) (Record, int, error) {
	if off == len(buf) {
		return Record{}, off, io.EOF
	}
	if off+RecordSize > len(buf) {
		return Record{}, 0, fmt.Errorf("stream: truncated record at offset %d", off)
	}
	b := buf[off : off+RecordSize]
	if b[0] != MarkerInstruction {
		return Record{}, 0, fmt.Errorf("stream: bad start marker %#02x at offset %d", b[0], off)
	}
	if b[3] != MarkerType {
		return Record{}, 0, fmt.Errorf("stream: bad type marker %#02x at offset %d", b[3], off)
	}
	if b[5] != MarkerVariable {
		return Record{}, 0, fmt.Errorf("stream: bad variable marker %#02x at offset %d", b[5], off)
	}
	if b[8] != MarkerImmediate {
		return Record{}, 0, fmt.Errorf("stream: bad immediate marker %#02x at offset %d", b[8], off)
	}
	if b[17] != MarkerEnd {
		return Record{}, 0, fmt.Errorf("stream: bad end marker %#02x at offset %d", b[17], off)
	}
	r := Record{
		Op:         Op(binary.LittleEndian.Uint16(b[1:3])),
		Type:       MemType(b[4]),
		VarAddress: binary.LittleEndian.Uint16(b[6:8]),
		ImmValue:   binary.LittleEndian.Uint64(b[9:17]),
	}
	return r, off + RecordSize, nil
}

// DecodeAll decodes every record in buf in order. It stops and returns the
// error from Decode if buf's length is not a multiple of RecordSize or a
// record fails validation.
func DecodeAll(buf []byte) ([]Record, error) {
	if len(buf)%RecordSize != 0 {
		return nil, fmt.Errorf("stream: stream length %d is not a multiple of record size %d", len(buf), RecordSize)
	}
	recs := make([]Record, 0, len(buf)/RecordSize)
	for off := 0; off < len(buf); {
		r, next, err := Decode(buf, off)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
		off = next
	}
	return recs, nil
}

package stream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/coil/stream"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	records := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 10, ImmValue: 2},
		{Op: stream.OpAdd, Type: stream.MemInt64, VarAddress: 0, ImmValue: (10 << 32) | 18},
		{Op: stream.OpSyscall, ImmValue: 1},
		{Op: stream.OpLabelDef, VarAddress: 7},
		{Op: stream.OpExit, ImmValue: 7},
	}
	for _, r := range records {
		buf := stream.Encode(nil, r)
		require.Len(t, buf, stream.RecordSize)
		got, next, err := stream.Decode(buf, 0)
		require.NoError(t, err)
		require.Equal(t, stream.RecordSize, next)
		require.Equal(t, r, got)
	}
}

func TestDecodeAllConcatenatesRecords(t *testing.T) {
	records := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 0, ImmValue: 1},
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 8, ImmValue: 2},
	}
	var buf []byte
	for _, r := range records {
		buf = stream.Encode(buf, r)
	}
	got, err := stream.DecodeAll(buf)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestDecodeRejectsCorruptedMarker(t *testing.T) {
	buf := stream.Encode(nil, stream.Record{Op: stream.OpExit, ImmValue: 1})

	for _, off := range []int{0, 3, 5, 8, stream.RecordSize - 1} {
		corrupt := append([]byte{}, buf...)
		corrupt[off] ^= 0xFF
		_, _, err := stream.Decode(corrupt, 0)
		require.Errorf(t, err, "expected an error after corrupting marker byte %d", off)
	}
}

func TestDecodeAllRejectsMisalignedLength(t *testing.T) {
	buf := stream.Encode(nil, stream.Record{Op: stream.OpExit, ImmValue: 1})
	_, err := stream.DecodeAll(buf[:len(buf)-1])
	require.Error(t, err)
}

func TestTypeSizeAndPredicates(t *testing.T) {
	require.Equal(t, 1, stream.TypeSize(stream.MemInt8))
	require.Equal(t, 8, stream.TypeSize(stream.MemInt64))
	require.Equal(t, 0, stream.TypeSize(stream.MemType(0xFE)))
	require.True(t, stream.IsSigned(stream.MemInt32))
	require.False(t, stream.IsSigned(stream.MemUint32))
	require.True(t, stream.IsFloat(stream.MemFloat64))
	require.False(t, stream.IsFloat(stream.MemInt64))
}

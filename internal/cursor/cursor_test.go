package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPrimitives(t *testing.T) {
	w := NewWriter()
	w.U8(0xAB)
	w.U16(0x1234)
	w.U32(0xDEADBEEF)
	w.U64(0x0102030405060708)
	w.I8(-5)
	w.I16(-300)
	w.I32(-70000)
	w.I64(-5_000_000_000)
	w.F32(1.5)
	w.F64(-2.25)

	r := NewReader(w.Bytes())

	u8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	i8, err := r.I8()
	require.NoError(t, err)
	assert.Equal(t, int8(-5), i8)

	i16, err := r.I16()
	require.NoError(t, err)
	assert.Equal(t, int16(-300), i16)

	i32, err := r.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(-70000), i32)

	i64, err := r.I64()
	require.NoError(t, err)
	assert.Equal(t, int64(-5_000_000_000), i64)

	f32, err := r.F32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	f64, err := r.F64()
	require.NoError(t, err)
	assert.Equal(t, -2.25, f64)

	assert.Equal(t, 0, r.Remaining())
}

func TestReaderBigEndian(t *testing.T) {
	r := NewReader([]byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x2A})

	u16, err := r.U16BE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.U32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u32)
}

func TestWriterBigEndian(t *testing.T) {
	w := NewWriter()
	w.U16BE(0x1234)
	w.U32BE(42)
	assert.Equal(t, []byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x2A}, w.Bytes())
}

func TestReaderStrings(t *testing.T) {
	w := NewWriter()
	w.CString("db/units/main")
	require.NoError(t, w.StringU8("hello"))
	require.NoError(t, w.StringU16("héllo"))
	require.NoError(t, w.StringU8(""))
	require.NoError(t, w.StringU16(""))

	r := NewReader(w.Bytes())

	cs, err := r.CString()
	require.NoError(t, err)
	assert.Equal(t, "db/units/main", cs)

	s8, err := r.StringU8()
	require.NoError(t, err)
	assert.Equal(t, "hello", s8)

	s16, err := r.StringU16()
	require.NoError(t, err)
	assert.Equal(t, "héllo", s16)

	empty8, err := r.StringU8()
	require.NoError(t, err)
	assert.Equal(t, "", empty8)

	empty16, err := r.StringU16()
	require.NoError(t, err)
	assert.Equal(t, "", empty16)

	assert.Equal(t, 0, r.Remaining())
}

func TestStringU16NonBMP(t *testing.T) {
	// Characters outside the BMP take two UTF-16 code units.
	w := NewWriter()
	require.NoError(t, w.StringU16("a\U0001F3F0b"))

	r := NewReader(w.Bytes())
	s, err := r.StringU16()
	require.NoError(t, err)
	assert.Equal(t, "a\U0001F3F0b", s)
}

func TestReaderEndOfData(t *testing.T) {
	tests := []struct {
		name string
		read func(r *Reader) error
	}{
		{"u16", func(r *Reader) error { _, err := r.U16(); return err }},
		{"u32", func(r *Reader) error { _, err := r.U32(); return err }},
		{"u64", func(r *Reader) error { _, err := r.U64(); return err }},
		{"f64", func(r *Reader) error { _, err := r.F64(); return err }},
		{"bytes", func(r *Reader) error { _, err := r.Bytes(2); return err }},
		{"skip", func(r *Reader) error { return r.Skip(2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader([]byte{0x01})
			err := tt.read(r)
			require.ErrorIs(t, err, ErrUnexpectedEndOfData)
			// Failed reads must not advance the cursor.
			assert.Equal(t, 0, r.Offset())
		})
	}
}

func TestReaderEndOfDataContext(t *testing.T) {
	r := NewReader(make([]byte, 10))
	require.NoError(t, r.Skip(8))

	_, err := r.U32()
	require.ErrorIs(t, err, ErrUnexpectedEndOfData)
	assert.Contains(t, err.Error(), "need 4 bytes at offset 8")
	assert.Contains(t, err.Error(), "2 available")
}

func TestCStringUnterminated(t *testing.T) {
	r := NewReader([]byte("no terminator"))
	_, err := r.CString()
	require.ErrorIs(t, err, ErrUnexpectedEndOfData)
}

func TestStringPrefixTruncated(t *testing.T) {
	// Length prefix declares more bytes than remain in the buffer.
	w := NewWriter()
	w.U16(10)
	w.Raw([]byte("abc"))

	r := NewReader(w.Bytes())
	_, err := r.StringU8()
	require.ErrorIs(t, err, ErrUnexpectedEndOfData)
}

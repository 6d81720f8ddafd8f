// Package cursor provides bounds-checked sequential readers and writers
// over byte buffers, covering the primitive encodings used by the PackFile
// container and its table payloads.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"
)

// ErrUnexpectedEndOfData is returned when a read would run past the end of
// the buffer. The wrapping message carries the offset and requested length.
var ErrUnexpectedEndOfData = errors.New("packfile: unexpected end of data")

// Reader reads primitive values sequentially from a byte buffer.
//
// Every read validates that the requested span lies within the remaining
// buffer; reads never silently truncate or zero-pad.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// need validates that n more bytes are available.
func (r *Reader) need(n int) error {
	if n < 0 || r.off+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, %d available",
			ErrUnexpectedEndOfData, n, r.off, len(r.data)-r.off)
	}
	return nil
}

// Bytes reads n raw bytes. The returned slice aliases the underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

// U8 reads an unsigned 8-bit integer.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// U16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// U32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// U64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// U16BE reads a big-endian unsigned 16-bit integer.
func (r *Reader) U16BE() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// U32BE reads a big-endian unsigned 32-bit integer.
func (r *Reader) U32BE() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// I8 reads a signed 8-bit integer.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// I16 reads a little-endian signed 16-bit integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// I32 reads a little-endian signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// I64 reads a little-endian signed 64-bit integer.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads a little-endian IEEE 754 single-precision float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// F64 reads a little-endian IEEE 754 double-precision float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// CString reads a NUL-terminated byte string, consuming the terminator.
func (r *Reader) CString() (string, error) {
	for i := r.off; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.off:i])
			r.off = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d",
		ErrUnexpectedEndOfData, r.off)
}

// StringU8 reads a UTF-8 string with a little-endian u16 byte-length prefix.
func (r *Reader) StringU8() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StringU16 reads a UTF-16LE string with a little-endian u16 code-unit
// count prefix.
func (r *Reader) StringU16() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n) * 2)
	if err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units)), nil
}

// Writer appends primitive values to a growing byte buffer.
// Writes mirror the Reader's encodings exactly.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Raw appends raw bytes.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// U8 appends an unsigned 8-bit integer.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a little-endian unsigned 16-bit integer.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 appends a little-endian unsigned 32-bit integer.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// U64 appends a little-endian unsigned 64-bit integer.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// U16BE appends a big-endian unsigned 16-bit integer.
func (w *Writer) U16BE(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// U32BE appends a big-endian unsigned 32-bit integer.
func (w *Writer) U32BE(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// I8 appends a signed 8-bit integer.
func (w *Writer) I8(v int8) {
	w.U8(uint8(v))
}

// I16 appends a little-endian signed 16-bit integer.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// I32 appends a little-endian signed 32-bit integer.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// I64 appends a little-endian signed 64-bit integer.
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// F32 appends a little-endian IEEE 754 single-precision float.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// F64 appends a little-endian IEEE 754 double-precision float.
func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// CString appends a NUL-terminated byte string.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// StringU8 appends a UTF-8 string with a u16 byte-length prefix.
// Returns an error if the encoded length does not fit in 16 bits.
func (w *Writer) StringU8(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("packfile: string too long for u16 length prefix: %d bytes", len(s))
	}
	w.U16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

// StringU16 appends a UTF-16LE string with a u16 code-unit count prefix.
// Returns an error if the encoded length does not fit in 16 bits.
func (w *Writer) StringU16(s string) error {
	units := utf16.Encode([]rune(s))
	if len(units) > math.MaxUint16 {
		return fmt.Errorf("packfile: string too long for u16 length prefix: %d code units", len(units))
	}
	w.U16(uint16(len(units)))
	for _, u := range units {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, u)
	}
	return nil
}

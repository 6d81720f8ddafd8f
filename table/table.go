package table

import (
	"errors"
	"fmt"

	"github.com/strategos/packfile/internal/cursor"
	"github.com/strategos/packfile/schema"
)

// Sentinel errors for table decoding.
var (
	// ErrSchemaMismatch is returned when a payload does not fit its
	// definition: the cursor runs dry mid-row, a flag byte holds an
	// invalid value, an enum index is out of range, or bytes remain
	// after the declared rows.
	ErrSchemaMismatch = errors.New("packfile: table data does not match schema")

	// ErrUnknownFieldKind is returned when a definition names a field
	// kind the codec does not implement. The whole decode fails because
	// positional decoding cannot skip a column of unknown width.
	ErrUnknownFieldKind = errors.New("packfile: unknown field kind")
)

// versionMarker precedes the version number in versioned table payloads.
const versionMarker uint32 = 0xFCFDFEFF

// Decode reads a table payload: a u32 row count followed by that many rows
// in the definition's column order. The payload must be consumed exactly.
func Decode(data []byte, def *schema.Definition) ([]Row, error) {
	r := cursor.NewReader(data)
	rows, err := decodeRows(r, def)
	if err != nil {
		return nil, err
	}
	if n := r.Remaining(); n != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d rows", ErrSchemaMismatch, n, len(rows))
	}
	return rows, nil
}

// decodeRows reads the row-count prefix and rows from the cursor, leaving
// the cursor just past the last row.
func decodeRows(r *cursor.Reader, def *schema.Definition) ([]Row, error) {
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: row count: %v", ErrSchemaMismatch, err)
	}
	rows := make([]Row, 0, count)
	for i := uint32(0); i < count; i++ {
		row, err := decodeRow(r, def)
		if err != nil {
			return nil, fmt.Errorf("row %d of %d: %w", i, count, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(r *cursor.Reader, def *schema.Definition) (Row, error) {
	row := make(Row, 0, len(def.Columns))
	for _, col := range def.Columns {
		cell, err := decodeCell(r, col)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		row = append(row, cell)
	}
	return row, nil
}

func decodeCell(r *cursor.Reader, col schema.Column) (Cell, error) {
	switch col.Kind {
	case schema.KindBool:
		b, err := r.U8()
		if err != nil {
			return Cell{}, mismatch(err)
		}
		if b > 1 {
			return Cell{}, fmt.Errorf("%w: invalid bool byte 0x%02X", ErrSchemaMismatch, b)
		}
		return BoolCell(b == 1), nil

	case schema.KindInt8:
		v, err := r.I8()
		return IntCell(col.Kind, int64(v)), mismatch(err)
	case schema.KindInt16:
		v, err := r.I16()
		return IntCell(col.Kind, int64(v)), mismatch(err)
	case schema.KindInt32:
		v, err := r.I32()
		return IntCell(col.Kind, int64(v)), mismatch(err)
	case schema.KindInt64:
		v, err := r.I64()
		return IntCell(col.Kind, v), mismatch(err)

	case schema.KindUint8:
		v, err := r.U8()
		return UintCell(col.Kind, uint64(v)), mismatch(err)
	case schema.KindUint16:
		v, err := r.U16()
		return UintCell(col.Kind, uint64(v)), mismatch(err)
	case schema.KindUint32:
		v, err := r.U32()
		return UintCell(col.Kind, uint64(v)), mismatch(err)
	case schema.KindUint64:
		v, err := r.U64()
		return UintCell(col.Kind, v), mismatch(err)

	case schema.KindFloat32:
		v, err := r.F32()
		return FloatCell(col.Kind, float64(v)), mismatch(err)
	case schema.KindFloat64:
		v, err := r.F64()
		return FloatCell(col.Kind, v), mismatch(err)

	case schema.KindString:
		s, err := r.StringU8()
		return StringCell(col.Kind, s), mismatch(err)
	case schema.KindStringU16:
		s, err := r.StringU16()
		return StringCell(col.Kind, s), mismatch(err)

	case schema.KindOptionalRef:
		// A flag byte, then the id only when the flag says present.
		// Reading the id unconditionally is the classic positional
		// decode bug; everything after it shifts.
		flag, err := r.U8()
		if err != nil {
			return Cell{}, mismatch(err)
		}
		switch flag {
		case 0:
			return NullRefCell(), nil
		case 1:
			id, err := r.U32()
			if err != nil {
				return Cell{}, mismatch(err)
			}
			return RefCell(id), nil
		default:
			return Cell{}, fmt.Errorf("%w: invalid presence byte 0x%02X", ErrSchemaMismatch, flag)
		}

	case schema.KindEnum:
		idx, err := r.U8()
		if err != nil {
			return Cell{}, mismatch(err)
		}
		if int(idx) >= len(col.Enum) {
			return Cell{}, fmt.Errorf("%w: enum index %d out of range (%d variants)",
				ErrSchemaMismatch, idx, len(col.Enum))
		}
		return EnumCell(idx, col.Enum[idx]), nil

	default:
		return Cell{}, fmt.Errorf("%w: %s", ErrUnknownFieldKind, col.Kind)
	}
}

// mismatch translates a cursor end-of-data error into ErrSchemaMismatch,
// keeping the offset diagnostics in the message.
func mismatch(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
}

// Encode writes rows back to the wire form Decode reads: a u32 row count
// followed by each row's cells in column order.
//
// Round-trip law: Decode(Encode(rows, def), def) returns rows for any rows
// previously produced by Decode under def.
func Encode(rows []Row, def *schema.Definition) ([]byte, error) {
	w := cursor.NewWriter()
	w.U32(uint32(len(rows)))
	for i, row := range rows {
		if err := encodeRow(w, row, def); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

func encodeRow(w *cursor.Writer, row Row, def *schema.Definition) error {
	if len(row) != len(def.Columns) {
		return fmt.Errorf("%w: row has %d cells, definition has %d columns",
			ErrSchemaMismatch, len(row), len(def.Columns))
	}
	for i, col := range def.Columns {
		if err := encodeCell(w, row[i], col); err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
	}
	return nil
}

func encodeCell(w *cursor.Writer, c Cell, col schema.Column) error {
	if c.kind != col.Kind {
		return fmt.Errorf("%w: cell kind %s, column kind %s", ErrSchemaMismatch, c.kind, col.Kind)
	}
	switch col.Kind {
	case schema.KindBool:
		if c.boolVal {
			w.U8(1)
		} else {
			w.U8(0)
		}
	case schema.KindInt8:
		w.I8(int8(c.intVal))
	case schema.KindInt16:
		w.I16(int16(c.intVal))
	case schema.KindInt32:
		w.I32(int32(c.intVal))
	case schema.KindInt64:
		w.I64(c.intVal)
	case schema.KindUint8:
		w.U8(uint8(c.uintVal))
	case schema.KindUint16:
		w.U16(uint16(c.uintVal))
	case schema.KindUint32:
		w.U32(uint32(c.uintVal))
	case schema.KindUint64:
		w.U64(c.uintVal)
	case schema.KindFloat32:
		w.F32(float32(c.floatVal))
	case schema.KindFloat64:
		w.F64(c.floatVal)
	case schema.KindString:
		return w.StringU8(c.strVal)
	case schema.KindStringU16:
		return w.StringU16(c.strVal)
	case schema.KindOptionalRef:
		if c.present {
			w.U8(1)
			w.U32(uint32(c.uintVal))
		} else {
			w.U8(0)
		}
	case schema.KindEnum:
		idx := c.uintVal
		if int(idx) >= len(col.Enum) {
			return fmt.Errorf("%w: enum index %d out of range (%d variants)",
				ErrSchemaMismatch, idx, len(col.Enum))
		}
		w.U8(uint8(idx))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFieldKind, col.Kind)
	}
	return nil
}

// Table is a decoded versioned table payload.
type Table struct {
	Name    string
	Version uint32
	Rows    []Row
}

// DecodeVersioned reads a versioned table payload: an optional version
// marker (u32 0xFCFDFEFF followed by the u32 version; absent means
// version 0), then the row count and rows. The definition is resolved
// through the registry by (name, version).
func DecodeVersioned(data []byte, reg *schema.Registry, name string) (*Table, error) {
	r := cursor.NewReader(data)
	version := uint32(0)
	if r.Remaining() >= 8 {
		marker, err := r.U32()
		if err != nil {
			return nil, mismatch(err)
		}
		if marker == versionMarker {
			if version, err = r.U32(); err != nil {
				return nil, mismatch(err)
			}
		} else {
			r = cursor.NewReader(data)
		}
	}

	def, err := reg.Lookup(name, version)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(r, def)
	if err != nil {
		return nil, err
	}
	if n := r.Remaining(); n != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d rows", ErrSchemaMismatch, n, len(rows))
	}
	return &Table{Name: name, Version: version, Rows: rows}, nil
}

// EncodeVersioned writes a versioned table payload. The inverse of
// DecodeVersioned: version 0 tables omit the marker entirely.
func EncodeVersioned(t *Table, reg *schema.Registry) ([]byte, error) {
	def, err := reg.Lookup(t.Name, t.Version)
	if err != nil {
		return nil, err
	}
	body, err := Encode(t.Rows, def)
	if err != nil {
		return nil, err
	}
	if t.Version == 0 {
		return body, nil
	}
	w := cursor.NewWriter()
	w.U32(versionMarker)
	w.U32(t.Version)
	w.Raw(body)
	return w.Bytes(), nil
}

// Package table decodes table payloads into rows of typed cells using an
// externally supplied schema definition, and re-encodes edited rows.
//
// Decoding is purely positional: the codec walks the definition's columns
// in order and consumes exactly the bytes each field kind implies. There is
// no self-description in the payload, so a wrong or stale definition fails
// loudly rather than producing shifted garbage.
package table

import (
	"fmt"
	"strconv"

	"github.com/strategos/packfile/schema"
)

// Cell is one typed value of a row. Cells are comparable, so rows can be
// compared with the == operator via slices.Equal.
type Cell struct {
	kind schema.FieldKind

	boolVal  bool
	intVal   int64
	uintVal  uint64
	floatVal float64
	strVal   string

	// present is the flag of an optional-reference cell.
	present bool
}

// Row is one decoded table row, parallel to the definition's columns.
type Row []Cell

// Kind returns the field kind of the cell.
func (c Cell) Kind() schema.FieldKind {
	return c.kind
}

// Bool returns a KindBool cell's value.
func (c Cell) Bool() bool { return c.boolVal }

// Int returns the value of a signed integer cell.
func (c Cell) Int() int64 { return c.intVal }

// Uint returns the value of an unsigned integer or enum-index cell.
func (c Cell) Uint() uint64 { return c.uintVal }

// Float returns the value of a float cell.
func (c Cell) Float() float64 { return c.floatVal }

// Text returns the value of a string, wide-string, or enum cell.
// For enum cells it is the variant name.
func (c Cell) Text() string { return c.strVal }

// Ref returns an optional-reference cell's target id and whether it is set.
func (c Cell) Ref() (uint32, bool) { return uint32(c.uintVal), c.present }

// BoolCell builds a KindBool cell.
func BoolCell(v bool) Cell {
	return Cell{kind: schema.KindBool, boolVal: v}
}

// IntCell builds a signed integer cell of the given width.
func IntCell(kind schema.FieldKind, v int64) Cell {
	return Cell{kind: kind, intVal: v}
}

// UintCell builds an unsigned integer cell of the given width.
func UintCell(kind schema.FieldKind, v uint64) Cell {
	return Cell{kind: kind, uintVal: v}
}

// FloatCell builds a float cell of the given width.
func FloatCell(kind schema.FieldKind, v float64) Cell {
	return Cell{kind: kind, floatVal: v}
}

// StringCell builds a KindString or KindStringU16 cell.
func StringCell(kind schema.FieldKind, v string) Cell {
	return Cell{kind: kind, strVal: v}
}

// RefCell builds a set optional-reference cell.
func RefCell(id uint32) Cell {
	return Cell{kind: schema.KindOptionalRef, uintVal: uint64(id), present: true}
}

// NullRefCell builds an absent optional-reference cell.
func NullRefCell() Cell {
	return Cell{kind: schema.KindOptionalRef}
}

// EnumCell builds an enum cell. The index must be in range for the column
// the cell will be encoded against; Encode validates it.
func EnumCell(index uint8, variant string) Cell {
	return Cell{kind: schema.KindEnum, uintVal: uint64(index), strVal: variant}
}

// String renders the cell for display and diagnostics.
func (c Cell) String() string {
	switch c.kind {
	case schema.KindBool:
		return strconv.FormatBool(c.boolVal)
	case schema.KindInt8, schema.KindInt16, schema.KindInt32, schema.KindInt64:
		return strconv.FormatInt(c.intVal, 10)
	case schema.KindUint8, schema.KindUint16, schema.KindUint32, schema.KindUint64:
		return strconv.FormatUint(c.uintVal, 10)
	case schema.KindFloat32, schema.KindFloat64:
		return strconv.FormatFloat(c.floatVal, 'g', -1, 64)
	case schema.KindString, schema.KindStringU16, schema.KindEnum:
		return c.strVal
	case schema.KindOptionalRef:
		if !c.present {
			return "null"
		}
		return strconv.FormatUint(c.uintVal, 10)
	default:
		return fmt.Sprintf("<invalid cell kind %d>", uint8(c.kind))
	}
}

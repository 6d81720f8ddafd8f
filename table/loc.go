package table

import (
	"fmt"

	"github.com/strategos/packfile/internal/cursor"
	"github.com/strategos/packfile/schema"
)

// Loc payloads hold the game's localisation strings: rows of a key, a
// wide-character text, and a tooltip flag, behind a small fixed header.
const (
	// locByteOrderMark is the first u16 of every loc payload.
	locByteOrderMark uint16 = 0xFEFF

	// locTypeMarker follows the byte-order mark, terminated by one 0x00.
	locTypeMarker = "LOC"

	// locHeaderSize is the minimum payload length: BOM(2) + "LOC\0"(4) +
	// version(4) + row count(4).
	locHeaderSize = 14
)

// LocDefinition returns the builtin column definition for loc tables at
// the given version. Loc columns are fixed by the format, so no external
// schema is required, but a registry entry named "loc" takes precedence
// when one exists.
func LocDefinition(version uint32) *schema.Definition {
	return &schema.Definition{
		Version: version,
		Columns: []schema.Column{
			{Name: "key", Kind: schema.KindStringU16, Key: true},
			{Name: "text", Kind: schema.KindStringU16},
			{Name: "tooltip", Kind: schema.KindBool},
		},
	}
}

// Loc is a decoded localisation payload.
type Loc struct {
	Version int32
	Rows    []Row
}

// DecodeLoc reads a loc payload. The registry may be nil; when it is, or
// when it has no "loc" table, the builtin definition is used.
func DecodeLoc(data []byte, reg *schema.Registry) (*Loc, error) {
	if len(data) < locHeaderSize {
		return nil, fmt.Errorf("%w: loc payload is %d bytes, minimum %d",
			ErrSchemaMismatch, len(data), locHeaderSize)
	}
	r := cursor.NewReader(data)

	bom, err := r.U16()
	if err != nil {
		return nil, mismatch(err)
	}
	if bom != locByteOrderMark {
		return nil, fmt.Errorf("%w: bad loc byte-order mark 0x%04X", ErrSchemaMismatch, bom)
	}
	marker, err := r.Bytes(4)
	if err != nil {
		return nil, mismatch(err)
	}
	if string(marker[:3]) != locTypeMarker || marker[3] != 0 {
		return nil, fmt.Errorf("%w: bad loc type marker %q", ErrSchemaMismatch, marker)
	}
	version, err := r.I32()
	if err != nil {
		return nil, mismatch(err)
	}

	def := locDef(reg, version)
	rows, err := decodeRows(r, def)
	if err != nil {
		return nil, err
	}
	if n := r.Remaining(); n != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d loc rows", ErrSchemaMismatch, n, len(rows))
	}
	return &Loc{Version: version, Rows: rows}, nil
}

// EncodeLoc writes a loc payload. The exact inverse of DecodeLoc.
func EncodeLoc(l *Loc, reg *schema.Registry) ([]byte, error) {
	def := locDef(reg, l.Version)
	w := cursor.NewWriter()
	w.U16(locByteOrderMark)
	w.Raw([]byte(locTypeMarker))
	w.U8(0)
	w.I32(l.Version)
	w.U32(uint32(len(l.Rows)))
	for i, row := range l.Rows {
		if err := encodeRow(w, row, def); err != nil {
			return nil, fmt.Errorf("loc row %d: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

func locDef(reg *schema.Registry, version int32) *schema.Definition {
	if reg != nil {
		if def, err := reg.Lookup("loc", uint32(version)); err == nil {
			return def
		}
	}
	return LocDefinition(uint32(version))
}

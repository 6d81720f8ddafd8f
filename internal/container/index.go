package container

import (
	"fmt"
	"strings"

	"github.com/strategos/packfile/internal/cursor"
)

// ParseHeader decodes and validates the fixed-size archive header.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedHeader, len(data), HeaderSize)
	}
	r := cursor.NewReader(data[:HeaderSize])

	magic, _ := r.U32()
	if magic != Magic {
		return Header{}, fmt.Errorf("%w: bad magic 0x%08X", ErrMalformedHeader, magic)
	}

	var h Header
	h.Revision, _ = r.U32()
	h.Flags, _ = r.U32()
	h.EntryCount, _ = r.U32()
	h.IndexSize, _ = r.U32()
	h.Timestamp, _ = r.U32()

	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// EncodeHeader serializes a header. The inverse of ParseHeader.
func EncodeHeader(h Header) []byte {
	w := cursor.NewWriter()
	w.U32(Magic)
	w.U32(h.Revision)
	w.U32(h.Flags)
	w.U32(h.EntryCount)
	w.U32(h.IndexSize)
	w.U32(h.Timestamp)
	return w.Bytes()
}

// ParseIndex decodes the entry directory. The data must be exactly the
// (already decrypted) index region; the region must be fully consumed and
// must hold exactly the declared number of entries. Payload offsets are
// computed from the running sum of stored sizes.
func ParseIndex(h Header, data []byte) ([]Entry, error) {
	if uint32(len(data)) != h.IndexSize {
		return nil, fmt.Errorf("%w: index region is %d bytes, header declares %d",
			ErrTruncatedIndex, len(data), h.IndexSize)
	}

	r := cursor.NewReader(data)
	entries := make([]Entry, 0, h.EntryCount)
	var offset int64
	for i := uint32(0); i < h.EntryCount; i++ {
		e, err := parseEntry(r, h)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d of %d: %v", ErrTruncatedIndex, i, h.EntryCount, err)
		}
		e.Offset = offset
		offset += int64(e.StoredSize)
		entries = append(entries, e)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d entries",
			ErrTruncatedIndex, r.Remaining(), h.EntryCount)
	}
	return entries, nil
}

func parseEntry(r *cursor.Reader, h Header) (Entry, error) {
	var e Entry
	var err error
	if e.Size, err = r.U32(); err != nil {
		return Entry{}, err
	}
	if e.StoredSize, err = r.U32(); err != nil {
		return Entry{}, err
	}
	if e.Flags, err = r.U8(); err != nil {
		return Entry{}, err
	}
	if e.Flags&^EntryCompressed != 0 {
		return Entry{}, fmt.Errorf("unknown entry flag bits 0x%02X", e.Flags)
	}
	if e.Compressed() && !h.Compressible() {
		return Entry{}, fmt.Errorf("compressed entry in non-compressible archive")
	}
	if !e.Compressed() && e.StoredSize != e.Size {
		return Entry{}, fmt.Errorf("uncompressed entry stores %d bytes but declares %d", e.StoredSize, e.Size)
	}
	if h.HasTimestamps() {
		if e.Timestamp, err = r.U32(); err != nil {
			return Entry{}, err
		}
	}
	raw, err := r.CString()
	if err != nil {
		return Entry{}, err
	}
	e.Path = NormalizePath(raw)
	if e.Path == "" {
		return Entry{}, fmt.Errorf("empty entry path")
	}
	return e, nil
}

// EncodeIndex serializes the entry directory in order. The exact inverse
// of ParseIndex for paths that are already normalized.
func EncodeIndex(h Header, entries []Entry) []byte {
	w := cursor.NewWriter()
	for _, e := range entries {
		w.U32(e.Size)
		w.U32(e.StoredSize)
		w.U8(e.Flags)
		if h.HasTimestamps() {
			w.U32(e.Timestamp)
		}
		w.CString(e.Path)
	}
	return w.Bytes()
}

// NormalizePath converts an entry path to canonical form: forward slashes,
// no leading or trailing separators, no empty segments. Archives written on
// different platforms disagree on separators, so normalization happens here
// at the container boundary rather than in the data model.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	segs := strings.Split(p, "/")
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// Package container parses and serializes the PackFile header and entry
// directory. It deals only in index metadata; payload bytes are resolved
// lazily by the engine.
package container

import (
	"errors"
	"fmt"

	"github.com/strategos/packfile/internal/crypt"
)

// Magic is the four-byte marker "PACK" at the start of every archive,
// read as a little-endian u32.
const Magic uint32 = 0x4B434150

// HeaderSize is the fixed byte length of the archive header.
const HeaderSize = 24

// Format revisions. Later revisions add capabilities; the directory layout
// is otherwise shared.
const (
	// Revision2 is the oldest supported revision: plain directory, no
	// per-entry timestamps, no compression.
	Revision2 uint32 = 2

	// Revision3 adds the per-entry timestamp capability.
	Revision3 uint32 = 3

	// Revision4 adds per-entry compression.
	Revision4 uint32 = 4

	// Revision5 is the encrypted "Arena" variant.
	Revision5 uint32 = 5
)

// Header flag bits.
const (
	// FlagTimestamps marks a directory that carries a timestamp per entry.
	FlagTimestamps uint32 = 1 << 0

	// FlagEncrypted marks the Arena variant: directory and payloads are
	// encrypted with the fixed-key transform.
	FlagEncrypted uint32 = 1 << 1

	// FlagCompressible marks an archive whose entries may be individually
	// compressed.
	FlagCompressible uint32 = 1 << 2
)

// Entry flag bits (one byte per directory record).
const (
	// EntryCompressed marks a payload stored compressed.
	EntryCompressed uint8 = 1 << 0
)

// Sentinel errors for header and directory validation.
var (
	// ErrMalformedHeader is returned for an unrecognized magic marker,
	// revision, or flag combination.
	ErrMalformedHeader = errors.New("packfile: malformed header")

	// ErrTruncatedIndex is returned when the declared entry count and the
	// index byte region disagree in either direction.
	ErrTruncatedIndex = errors.New("packfile: truncated index")
)

// Header is the decoded archive header.
type Header struct {
	Revision   uint32
	Flags      uint32
	EntryCount uint32
	IndexSize  uint32
	Timestamp  uint32
}

// HasTimestamps reports whether directory records carry a timestamp.
func (h Header) HasTimestamps() bool {
	return h.Flags&FlagTimestamps != 0
}

// Encrypted reports whether the archive is the encrypted Arena variant.
func (h Header) Encrypted() bool {
	return h.Flags&FlagEncrypted != 0
}

// Compressible reports whether entries may be individually compressed.
func (h Header) Compressible() bool {
	return h.Flags&FlagCompressible != 0
}

// Validate checks the revision/flag combination.
func (h Header) Validate() error {
	switch h.Revision {
	case Revision2, Revision3, Revision4, Revision5:
	default:
		return fmt.Errorf("%w: unknown revision %d", ErrMalformedHeader, h.Revision)
	}
	if h.HasTimestamps() && h.Revision < Revision3 {
		return fmt.Errorf("%w: revision %d cannot carry timestamps", ErrMalformedHeader, h.Revision)
	}
	if h.Compressible() && h.Revision < Revision4 {
		return fmt.Errorf("%w: revision %d cannot carry compressed entries", ErrMalformedHeader, h.Revision)
	}
	if h.Encrypted() && h.Revision != Revision5 {
		return fmt.Errorf("%w: revision %d", crypt.ErrUnsupportedEncryptionVariant, h.Revision)
	}
	if h.Flags&^(FlagTimestamps|FlagEncrypted|FlagCompressible) != 0 {
		return fmt.Errorf("%w: unknown flag bits 0x%X", ErrMalformedHeader, h.Flags)
	}
	return nil
}

// Entry is one directory record. Offset is not serialized; it is the
// running sum of StoredSize over the preceding records, relative to the
// start of the payload region.
type Entry struct {
	Path       string
	Size       uint32 // uncompressed length
	StoredSize uint32 // bytes occupied in the payload region
	Flags      uint8
	Timestamp  uint32
	Offset     int64
}

// Compressed reports whether the stored payload is compressed.
func (e Entry) Compressed() bool {
	return e.Flags&EntryCompressed != 0
}

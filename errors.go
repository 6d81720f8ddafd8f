package packfile

import (
	"errors"

	"github.com/strategos/packfile/internal/comp"
	"github.com/strategos/packfile/internal/container"
	"github.com/strategos/packfile/internal/crypt"
	"github.com/strategos/packfile/internal/cursor"
	"github.com/strategos/packfile/schema"
	"github.com/strategos/packfile/table"
)

// Errors re-exported from the container machinery.
var (
	// ErrMalformedHeader is returned for an unrecognized magic marker,
	// revision, or flag combination.
	ErrMalformedHeader = container.ErrMalformedHeader

	// ErrTruncatedIndex is returned when the declared entry count and the
	// index byte region disagree.
	ErrTruncatedIndex = container.ErrTruncatedIndex

	// ErrUnexpectedEndOfData is returned when a binary read runs past the
	// end of its buffer.
	ErrUnexpectedEndOfData = cursor.ErrUnexpectedEndOfData

	// ErrCorruptCompressedData is returned when an entry's compressed
	// payload is malformed or disagrees with its declared length.
	ErrCorruptCompressedData = comp.ErrCorruptCompressedData

	// ErrUnsupportedEncryptionVariant is returned when an archive declares
	// an encryption variant the engine does not implement.
	ErrUnsupportedEncryptionVariant = crypt.ErrUnsupportedEncryptionVariant
)

// Errors re-exported from the table and schema packages.
var (
	// ErrSchemaMismatch is returned when a table payload does not fit its
	// schema definition.
	ErrSchemaMismatch = table.ErrSchemaMismatch

	// ErrUnknownFieldKind is returned when a schema definition names a
	// field kind the table codec does not implement.
	ErrUnknownFieldKind = table.ErrUnknownFieldKind

	// ErrSchemaNotFound is returned when no definition exists for a
	// (table name, version) pair.
	ErrSchemaNotFound = schema.ErrNotFound
)

// Errors owned by the archive engine.
var (
	// ErrEntryNotFound is returned when an archive has no entry at the
	// requested path.
	ErrEntryNotFound = errors.New("packfile: entry not found")

	// ErrDuplicateEntryName is returned when an add or rename would
	// produce two entries with the same path.
	ErrDuplicateEntryName = errors.New("packfile: duplicate entry name")

	// ErrEntrySourceUnavailable is returned when an entry's on-disk
	// payload cannot be read: the archive file was moved, truncated, or
	// locked after Open. The in-memory index stays intact; a caller may
	// retry after resolving the external condition, the engine never
	// retries internally.
	ErrEntrySourceUnavailable = errors.New("packfile: entry source unavailable")

	// ErrClosed is returned by operations on a closed archive session.
	ErrClosed = errors.New("packfile: archive closed")
)

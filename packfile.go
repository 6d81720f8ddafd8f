package packfile

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/strategos/packfile/internal/comp"
	"github.com/strategos/packfile/internal/container"
	"github.com/strategos/packfile/internal/crypt"
	"github.com/strategos/packfile/schema"
	"github.com/strategos/packfile/table"
)

// Format revisions, re-exported for callers of New.
const (
	// Revision2 is the oldest supported revision: plain directory only.
	Revision2 = container.Revision2

	// Revision3 adds per-entry timestamps.
	Revision3 = container.Revision3

	// Revision4 adds per-entry compression.
	Revision4 = container.Revision4

	// Revision5 is the encrypted "Arena" variant.
	Revision5 = container.Revision5
)

// Header flag bits, re-exported for callers of New.
const (
	FlagTimestamps   = container.FlagTimestamps
	FlagEncrypted    = container.FlagEncrypted
	FlagCompressible = container.FlagCompressible
)

// NormalizePath converts an entry path to canonical form: forward slashes,
// no leading or trailing separators, no empty segments.
var NormalizePath = container.NormalizePath

// Archive is one open PackFile session.
//
// Mutations (Write, Add, Delete, Rename) and Save are serialized against
// each other and against in-flight reads; List, Read, and table decodes of
// distinct entries may run concurrently.
type Archive struct {
	mu sync.RWMutex

	path    string
	header  container.Header
	entries []*entry
	byPath  map[string]*entry

	src         ByteSource
	closer      io.Closer
	payloadBase int64
	closed      bool

	readGroup singleflight.Group

	logger       *slog.Logger
	schemas      *schema.Registry
	maxEntrySize uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.logger
}

// New creates an empty in-memory archive with the given revision and
// flags. Entries added to it live in memory until Save.
func New(revision, flags uint32, opts ...Option) (*Archive, error) {
	h := container.Header{
		Revision:  revision,
		Flags:     flags,
		Timestamp: uint32(time.Now().Unix()),
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	a := &Archive{
		header: h,
		byPath: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Open opens an archive session for the file at path.
//
// Only the header and entry directory are read; payload bytes stay on
// disk until an entry is resolved by Read, Write-free extraction, or Save.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := openSource(src, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.path = path
	a.closer = f
	a.log().Info("archive opened", "path", path, "revision", a.header.Revision, "entries", len(a.entries))
	return a, nil
}

// OpenFrom opens an archive session over an arbitrary byte source, such
// as an httpsource.Source for a remote archive. The caller keeps ownership
// of the source; Close does not release it.
func OpenFrom(src ByteSource, opts ...Option) (*Archive, error) {
	a, err := openSource(src, opts...)
	if err != nil {
		return nil, err
	}
	a.log().Info("archive opened", "revision", a.header.Revision, "entries", len(a.entries))
	return a, nil
}

// openSource parses the header and directory from src and builds the
// session. Split from Open so tests can inject range-tracking sources.
func openSource(src ByteSource, opts ...Option) (*Archive, error) {
	headerBytes := make([]byte, container.HeaderSize)
	if _, err := src.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", container.ErrMalformedHeader, err)
	}
	header, err := container.ParseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	indexBytes := make([]byte, header.IndexSize)
	if _, err := src.ReadAt(indexBytes, container.HeaderSize); err != nil {
		return nil, fmt.Errorf("%w: index region: %v", container.ErrTruncatedIndex, err)
	}
	if header.Encrypted() {
		crypt.Decrypt(indexBytes)
	}
	records, err := container.ParseIndex(header, indexBytes)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		header:      header,
		entries:     fromDirectory(records),
		byPath:      make(map[string]*entry, len(records)),
		src:         src,
		payloadBase: container.HeaderSize + int64(header.IndexSize),
	}
	for _, e := range a.entries {
		if _, dup := a.byPath[e.path]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryName, e.path)
		}
		a.byPath[e.path] = e
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases the underlying file handle. Unsaved edits are discarded.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Revision returns the archive's format revision.
func (a *Archive) Revision() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.header.Revision
}

// Timestamp returns the archive header's creation time, or the zero time
// if the header carries none.
func (a *Archive) Timestamp() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.header.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(int64(a.header.Timestamp), 0)
}

// Contains reports whether an entry exists at path.
func (a *Archive) Contains(path string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byPath[NormalizePath(path)]
	return ok
}

// List returns metadata for every entry in directory order.
func (a *Archive) List() []EntryInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	infos := make([]EntryInfo, 0, len(a.entries))
	for _, e := range a.entries {
		infos = append(infos, e.info())
	}
	return infos
}

// Read returns the uncompressed payload bytes of the entry at path,
// resolving lazily from the archive file when the entry is unmodified.
// Concurrent reads of the same entry are deduplicated.
func (a *Archive) Read(path string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}
	e, ok := a.byPath[NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	v, err, _ := a.readGroup.Do(e.path, func() (any, error) {
		return a.resolve(e)
	})
	if err != nil {
		return nil, err
	}
	// Each caller gets its own copy; resolved bytes may be shared across
	// deduplicated readers.
	return bytes.Clone(v.([]byte)), nil
}

// resolve returns an entry's uncompressed bytes. Callers must hold at
// least the read lock.
func (a *Archive) resolve(e *entry) ([]byte, error) {
	switch s := e.source.(type) {
	case *memBuffer:
		return s.data, nil
	case *diskRange:
		if a.maxEntrySize != 0 && uint64(e.size) > a.maxEntrySize {
			return nil, fmt.Errorf("packfile: entry %q exceeds size limit (%d > %d)",
				e.path, e.size, a.maxEntrySize)
		}
		raw, err := a.readStored(e.path, s)
		if err != nil {
			return nil, err
		}
		if a.header.Encrypted() {
			crypt.Decrypt(raw)
		}
		if s.compressed {
			plain, err := comp.Decompress(raw, e.size)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", e.path, err)
			}
			a.log().Debug("entry resolved", "path", e.path, "stored", s.storedSize, "size", e.size)
			return plain, nil
		}
		a.log().Debug("entry resolved", "path", e.path, "size", e.size)
		return raw, nil
	default:
		return nil, fmt.Errorf("packfile: entry %q has no payload source", e.path)
	}
}

// readStored reads an entry's stored bytes verbatim from the archive file.
// The range is bounded against the file size before allocating, so a
// directory declaring an absurd stored size fails without the allocation.
func (a *Archive) readStored(path string, s *diskRange) ([]byte, error) {
	if a.payloadBase+s.offset+int64(s.storedSize) > a.src.Size() {
		return nil, fmt.Errorf("%w: %q at offset %d (%d bytes): range ends beyond the archive (%d bytes)",
			ErrEntrySourceUnavailable, path, a.payloadBase+s.offset, s.storedSize, a.src.Size())
	}
	raw := make([]byte, s.storedSize)
	if _, err := a.src.ReadAt(raw, a.payloadBase+s.offset); err != nil {
		return nil, fmt.Errorf("%w: %q at offset %d (%d bytes): %v",
			ErrEntrySourceUnavailable, path, a.payloadBase+s.offset, s.storedSize, err)
	}
	return raw, nil
}

// Write replaces the payload of an existing entry with data, converting
// it to an in-memory source. The original file is not touched.
func (a *Archive) Write(path string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	e, ok := a.byPath[NormalizePath(path)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	a.replace(e, data)
	return nil
}

// Add creates a new entry at path with the given payload.
func (a *Archive) Add(path string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	norm := NormalizePath(path)
	if norm == "" {
		return fmt.Errorf("%w: empty path", ErrEntryNotFound)
	}
	if _, dup := a.byPath[norm]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateEntryName, norm)
	}
	e := &entry{path: norm}
	a.replace(e, data)
	a.entries = append(a.entries, e)
	a.byPath[norm] = e
	return nil
}

// replace points an entry at a fresh in-memory buffer and marks it dirty.
// Callers must hold the write lock.
func (a *Archive) replace(e *entry, data []byte) {
	e.source = &memBuffer{data: bytes.Clone(data)}
	e.size = uint32(len(data))
	e.dirty = true
	if a.header.HasTimestamps() {
		e.timestamp = uint32(time.Now().Unix())
	}
	a.readGroup.Forget(e.path)
}

// Delete removes the entry at path. Metadata-only: no payload bytes are
// read or written.
func (a *Archive) Delete(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	norm := NormalizePath(path)
	e, ok := a.byPath[norm]
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	delete(a.byPath, norm)
	for i, cur := range a.entries {
		if cur == e {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			break
		}
	}
	a.readGroup.Forget(norm)
	return nil
}

// Rename moves the entry at oldPath to newPath. Metadata-only: the
// payload source is untouched, so an unmodified entry still resolves
// lazily from its original on-disk range.
func (a *Archive) Rename(oldPath, newPath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	oldNorm := NormalizePath(oldPath)
	newNorm := NormalizePath(newPath)
	e, ok := a.byPath[oldNorm]
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, oldPath)
	}
	if newNorm == "" {
		return fmt.Errorf("%w: empty path", ErrEntryNotFound)
	}
	if oldNorm == newNorm {
		return nil
	}
	if _, dup := a.byPath[newNorm]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateEntryName, newNorm)
	}
	delete(a.byPath, oldNorm)
	a.readGroup.Forget(oldNorm)
	e.path = newNorm
	a.byPath[newNorm] = e
	return nil
}

// ReadTable resolves the entry at path and decodes it as a versioned
// table. The table name is the directory component under "db/":
// "db/units/main" decodes with the "units" definitions. Requires a schema
// registry (WithSchemas).
func (a *Archive) ReadTable(path string) (*table.Table, error) {
	if a.schemas == nil {
		return nil, fmt.Errorf("%w: no schema registry configured", ErrSchemaNotFound)
	}
	name, err := tableNameForPath(NormalizePath(path))
	if err != nil {
		return nil, err
	}
	data, err := a.Read(path)
	if err != nil {
		return nil, err
	}
	return table.DecodeVersioned(data, a.schemas, name)
}

// WriteTable encodes a versioned table and writes it to the entry at path.
func (a *Archive) WriteTable(path string, t *table.Table) error {
	if a.schemas == nil {
		return fmt.Errorf("%w: no schema registry configured", ErrSchemaNotFound)
	}
	data, err := table.EncodeVersioned(t, a.schemas)
	if err != nil {
		return err
	}
	return a.Write(path, data)
}

// ReadLoc resolves the entry at path and decodes it as a localisation
// table. The schema registry is optional for loc payloads.
func (a *Archive) ReadLoc(path string) (*table.Loc, error) {
	data, err := a.Read(path)
	if err != nil {
		return nil, err
	}
	return table.DecodeLoc(data, a.schemas)
}

// WriteLoc encodes a localisation table and writes it to the entry at path.
func (a *Archive) WriteLoc(path string, l *table.Loc) error {
	data, err := table.EncodeLoc(l, a.schemas)
	if err != nil {
		return err
	}
	return a.Write(path, data)
}

// tableNameForPath extracts the table name from a db entry path.
func tableNameForPath(path string) (string, error) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 || segs[0] != "db" {
		return "", fmt.Errorf("packfile: %q is not a db table entry", path)
	}
	return segs[1], nil
}

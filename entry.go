package packfile

import (
	"github.com/strategos/packfile/internal/container"
)

// payloadSource is where an entry's bytes currently live. Exactly one of
// the two cases is active at a time: the original on-disk range, or an
// in-memory replacement created by the first mutation. A tagged variant
// instead of a nullable pointer pair rules out use-after-resolve mixups.
type payloadSource interface {
	isPayloadSource()
}

// diskRange points into the payload region of the archive file the entry
// was opened from.
type diskRange struct {
	offset     int64 // relative to the payload region
	storedSize uint32
	compressed bool
}

func (*diskRange) isPayloadSource() {}

// memBuffer owns replacement bytes, always uncompressed and unencrypted.
type memBuffer struct {
	data []byte
}

func (*memBuffer) isPayloadSource() {}

// entry is the engine's per-entry state. Entries belong to exactly one
// Archive and are never shared between sessions.
type entry struct {
	path      string
	size      uint32 // uncompressed length
	timestamp uint32
	source    payloadSource
	dirty     bool
}

// EntryInfo is the metadata snapshot returned by List.
type EntryInfo struct {
	// Path is the normalized, slash-separated entry path.
	Path string

	// Size is the uncompressed payload length in bytes.
	Size uint32

	// StoredSize is the payload length as stored: compressed size for
	// compressed on-disk entries, Size otherwise.
	StoredSize uint32

	// Compressed reports whether the stored payload is compressed.
	Compressed bool

	// Timestamp is the entry's modification time in seconds, zero when
	// the archive revision does not carry timestamps.
	Timestamp uint32

	// Modified reports whether the entry has unsaved in-memory changes.
	Modified bool
}

func (e *entry) info() EntryInfo {
	info := EntryInfo{
		Path:       e.path,
		Size:       e.size,
		StoredSize: e.size,
		Timestamp:  e.timestamp,
		Modified:   e.dirty,
	}
	if d, ok := e.source.(*diskRange); ok {
		info.StoredSize = d.storedSize
		info.Compressed = d.compressed
	}
	return info
}

// fromDirectory builds engine entries from parsed directory records.
func fromDirectory(records []container.Entry) []*entry {
	entries := make([]*entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, &entry{
			path:      rec.Path,
			size:      rec.Size,
			timestamp: rec.Timestamp,
			source: &diskRange{
				offset:     rec.Offset,
				storedSize: rec.StoredSize,
				compressed: rec.Compressed(),
			},
		})
	}
	return entries
}

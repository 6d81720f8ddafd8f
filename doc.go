// Package packfile reads and writes the PackFile game-archive container.
//
// An Archive is opened lazily: Open parses only the header and entry
// directory, and payload bytes are read from disk on first access. Edits
// replace an entry's payload source with an in-memory buffer; Save writes
// a complete new archive atomically, copying unmodified payloads
// bit-for-bit from the original file.
//
// Table-typed entries are decoded through the schema and table packages:
// an external YAML schema registry supplies the per-version column layout,
// and the table codec turns payload bytes into rows of typed cells and
// back.
//
// Because unmodified entries stay on disk until resolved, an archive
// truncated or replaced by another process after Open fails at read time
// with ErrEntrySourceUnavailable rather than at open time. That is the
// documented contract of lazy loading, not a recoverable condition the
// engine retries internally.
package packfile

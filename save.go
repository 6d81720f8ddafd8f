package packfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/strategos/packfile/internal/comp"
	"github.com/strategos/packfile/internal/container"
	"github.com/strategos/packfile/internal/crypt"
)

// saveCompressWorkers bounds concurrent recompression of dirty entries.
const saveCompressWorkers = 4

// Save writes the session's current state as a complete archive at path,
// atomically: bytes go to a temp file in the same directory, which is
// renamed into place only after a successful sync. A failed save leaves
// whatever was previously at path untouched.
//
// Unmodified on-disk entries are copied verbatim, stored bytes unchanged,
// so an untouched archive round-trips bit-for-bit. Dirty entries are
// recompressed (when the archive is compressible) and re-encrypted (for
// the Arena variant) deterministically.
//
// Save takes the write lock: it waits for in-flight reads against the
// current file generation and blocks new ones until the session points at
// the new file.
func (a *Archive) Save(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	wires, err := a.collectWire()
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	records := make([]container.Entry, len(a.entries))
	for i, e := range a.entries {
		records[i] = container.Entry{
			Path:       e.path,
			Size:       e.size,
			StoredSize: uint32(len(wires[i].data)),
			Timestamp:  e.timestamp,
		}
		if wires[i].compressed {
			records[i].Flags |= container.EntryCompressed
		}
	}

	header := a.header
	header.EntryCount = uint32(len(records))
	indexBytes := container.EncodeIndex(header, records)
	header.IndexSize = uint32(len(indexBytes))
	if header.Encrypted() {
		crypt.Encrypt(indexBytes)
	}

	if err := writeArchiveAtomic(path, header, indexBytes, wires); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	a.log().Info("archive saved", "path", path, "entries", len(records))

	return a.repoint(path, header, records)
}

// wirePayload is one entry's bytes exactly as they will land in the new
// payload region.
type wirePayload struct {
	data       []byte
	compressed bool
}

// collectWire materializes every entry's stored bytes. Unmodified disk
// entries are read verbatim; in-memory entries are compressed and
// encrypted as the header demands. Order matches a.entries.
func (a *Archive) collectWire() ([]wirePayload, error) {
	wires := make([]wirePayload, len(a.entries))

	var g errgroup.Group
	g.SetLimit(saveCompressWorkers)
	for i, e := range a.entries {
		i, e := i, e
		g.Go(func() error {
			switch s := e.source.(type) {
			case *diskRange:
				raw, err := a.readStored(e.path, s)
				if err != nil {
					return err
				}
				wires[i] = wirePayload{data: raw, compressed: s.compressed}
				return nil
			case *memBuffer:
				wire, compressed, err := encodePayload(a.header, s.data)
				if err != nil {
					return fmt.Errorf("entry %q: %w", e.path, err)
				}
				wires[i] = wirePayload{data: wire, compressed: compressed}
				return nil
			default:
				return fmt.Errorf("packfile: entry %q has no payload source", e.path)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return wires, nil
}

// encodePayload converts uncompressed in-memory bytes to stored form.
// Compression is skipped when it does not shrink the payload, so the
// stored form is deterministic for a given input and header.
func encodePayload(h container.Header, plain []byte) (data []byte, compressed bool, err error) {
	data = bytes.Clone(plain)
	if h.Compressible() && len(plain) > 0 {
		packed, err := comp.Compress(plain)
		if err != nil {
			return nil, false, err
		}
		if len(packed) < len(plain) {
			data, compressed = packed, true
		}
	}
	if h.Encrypted() {
		crypt.Encrypt(data)
	}
	return data, compressed, nil
}

// writeArchiveAtomic writes header+index+payloads to a temp file in the
// target directory and renames it into place.
func writeArchiveAtomic(path string, header container.Header, indexBytes []byte, wires []wirePayload) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".packfile-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(container.EncodeHeader(header)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := tmp.Write(indexBytes); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	for _, w := range wires {
		if _, err := tmp.Write(w.data); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	success = true
	return nil
}

// repoint re-opens the saved file and converts every entry back to an
// on-disk range in the new file generation, dropping the in-memory
// buffers the save just persisted.
func (a *Archive) repoint(path string, header container.Header, records []container.Entry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen saved archive: %w", err)
	}
	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return err
	}

	if a.closer != nil {
		a.closer.Close()
	}
	a.path = path
	a.src = src
	a.closer = f
	a.header = header
	a.payloadBase = container.HeaderSize + int64(header.IndexSize)

	var offset int64
	for i, e := range a.entries {
		e.source = &diskRange{
			offset:     offset,
			storedSize: records[i].StoredSize,
			compressed: records[i].Flags&container.EntryCompressed != 0,
		}
		e.dirty = false
		offset += int64(records[i].StoredSize)
		a.readGroup.Forget(e.path)
	}
	return nil
}

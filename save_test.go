package packfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategos/packfile/internal/container"
)

func TestSaveRoundTripBitForBit(t *testing.T) {
	dir := t.TempDir()
	path := buildArchiveFile(t, dir, Revision4, FlagTimestamps|FlagCompressible, map[string][]byte{
		"a/b.txt":       []byte("hello packfile"),
		"db/units/main": bytes.Repeat([]byte("row data "), 300),
	})
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	// Open and save with no edits: the output is byte-identical.
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	out := filepath.Join(dir, "copy.pack")
	require.NoError(t, a.Save(out))

	saved, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, original, saved)
}

func TestSaveAfterRenameKeepsPayloadBytes(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte("payload block "), 400)
	path := buildArchiveFile(t, dir, Revision4, FlagCompressible, map[string][]byte{
		"old/name.bin": big,
		"other.txt":    []byte("untouched"),
	})
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	src, err := newFileSource(f)
	require.NoError(t, err)
	tracker := &trackingSource{inner: src}

	a, err := openSource(tracker)
	require.NoError(t, err)
	oldBase := a.payloadBase

	// Same-length rename so the index region size is unchanged.
	require.NoError(t, a.Rename("old/name.bin", "new/name.bin"))

	out := filepath.Join(dir, "renamed.pack")
	require.NoError(t, a.Save(out))
	saved, err := os.ReadFile(out)
	require.NoError(t, err)

	// The payload region is copied verbatim: no decompression happened and
	// the stored bytes are identical.
	require.Equal(t, oldBase, a.payloadBase)
	assert.Equal(t, original[oldBase:], saved[oldBase:])
	assert.Contains(t, string(saved[:oldBase]), "new/name.bin")
	assert.NotContains(t, string(saved[:oldBase]), "old/name.bin")

	// Reopen and verify the renamed entry decodes to the original payload.
	b, err := Open(out)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Read("new/name.bin")
	require.NoError(t, err)
	assert.Equal(t, big, got)
}

func TestSaveFailureLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	path := buildArchiveFile(t, dir, Revision2, 0, defaultPayloads())

	target := filepath.Join(dir, "existing.pack")
	prior := []byte("precious bytes already at the target path")
	require.NoError(t, os.WriteFile(target, prior, 0o644))

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	// Simulate the source file vanishing mid-save: collecting the wire
	// payloads fails before anything is renamed into place.
	a.src = &failingSource{size: a.src.Size()}

	err = a.Save(target)
	require.ErrorIs(t, err, ErrEntrySourceUnavailable)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, prior, got)
	assertNoTempFiles(t, dir)
}

func TestSaveCleansUpTempOnWriteError(t *testing.T) {
	dir := t.TempDir()
	a, err := New(Revision2, 0)
	require.NoError(t, err)
	require.NoError(t, a.Add("a", []byte("x")))

	// Saving into a missing directory fails at temp-file creation.
	err = a.Save(filepath.Join(dir, "no-such-dir", "out.pack"))
	require.Error(t, err)
	assertNoTempFiles(t, dir)
}

func TestSaveRepointsSession(t *testing.T) {
	dir := t.TempDir()
	a, err := New(Revision4, FlagCompressible)
	require.NoError(t, err)
	require.NoError(t, a.Add("data/a.bin", bytes.Repeat([]byte("abc"), 1000)))
	require.NoError(t, a.Add("data/b.bin", []byte("small")))

	first := filepath.Join(dir, "first.pack")
	require.NoError(t, a.Save(first))

	// After a save, entries resolve from the new file, not from memory.
	for _, info := range a.List() {
		assert.False(t, info.Modified, info.Path)
	}
	got, err := a.Read("data/a.bin")
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("abc"), 1000), got)

	// Further edits and a second save build on the new generation.
	require.NoError(t, a.Write("data/b.bin", []byte("updated")))
	second := filepath.Join(dir, "second.pack")
	require.NoError(t, a.Save(second))
	require.NoError(t, a.Close())

	b, err := Open(second)
	require.NoError(t, err)
	defer b.Close()
	got, err = b.Read("data/b.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), got)
}

func TestSaveEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	payloads := map[string][]byte{
		"db/units/main": bytes.Repeat([]byte{0x10, 0x20, 0x30}, 200),
		"script/a.lua":  []byte("function f() return 1 end"),
	}
	path := buildArchiveFile(t, dir, Revision5, FlagEncrypted, payloads)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	// Unmodified save of an encrypted archive is also bit-for-bit.
	out := filepath.Join(dir, "copy.pack")
	require.NoError(t, a.Save(out))
	original, err := os.ReadFile(path)
	require.NoError(t, err)
	saved, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, original, saved)

	// Editing one entry re-encrypts it; everything still reads back.
	require.NoError(t, a.Write("script/a.lua", []byte("function f() return 2 end")))
	edited := filepath.Join(dir, "edited.pack")
	require.NoError(t, a.Save(edited))

	b, err := Open(edited)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Read("script/a.lua")
	require.NoError(t, err)
	assert.Equal(t, []byte("function f() return 2 end"), got)
	got, err = b.Read("db/units/main")
	require.NoError(t, err)
	assert.Equal(t, payloads["db/units/main"], got)
}

func TestSaveDeterministic(t *testing.T) {
	build := func(dir string) []byte {
		a, err := New(Revision4, FlagCompressible)
		require.NoError(t, err)
		require.NoError(t, a.Add("data/a.bin", bytes.Repeat([]byte("abc"), 1000)))
		path := filepath.Join(dir, "out.pack")
		require.NoError(t, a.Save(path))
		require.NoError(t, a.Close())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}

	one := build(t.TempDir())
	two := build(t.TempDir())

	// Header timestamps may differ between runs; everything after the
	// header is identical.
	assert.Equal(t, one[container.HeaderSize:], two[container.HeaderSize:])
}

func TestSaveDropsDeletedEntries(t *testing.T) {
	dir := t.TempDir()
	path := buildArchiveFile(t, dir, Revision2, 0, defaultPayloads())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Delete("models/keep.rigid"))

	out := filepath.Join(dir, "trimmed.pack")
	require.NoError(t, a.Save(out))

	b, err := Open(out)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 2, b.Len())
	assert.False(t, b.Contains("models/keep.rigid"))
	got, err := b.Read("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello packfile"), got)
}

func TestHeaderAccessorsDuringSave(t *testing.T) {
	dir := t.TempDir()
	path := buildArchiveFile(t, dir, Revision3, FlagTimestamps, defaultPayloads())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	// Header accessors race against repeated saves, which swap the whole
	// header when the session repoints to the new file generation.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = a.Revision()
			_ = a.Timestamp()
		}
	}()

	out := filepath.Join(dir, "out.pack")
	for i := 0; i < 10; i++ {
		require.NoError(t, a.Write("a/b.txt", fmt.Appendf(nil, "edit %d", i)))
		require.NoError(t, a.Save(out))
	}
	close(done)
	wg.Wait()

	assert.Equal(t, Revision3, a.Revision())
	assert.False(t, a.Timestamp().IsZero())
}

// assertNoTempFiles fails if any save temp file was left behind in dir.
func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".packfile-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

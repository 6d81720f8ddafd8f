package httpsource_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategos/packfile"
	"github.com/strategos/packfile/httpsource"
)

// serveArchive builds a small archive and serves it with range support.
func serveArchive(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()
	payloads := map[string][]byte{
		"a/b.txt":       []byte("hello packfile"),
		"db/units/main": bytes.Repeat([]byte("row data "), 300),
	}

	a, err := packfile.New(packfile.Revision4, packfile.FlagCompressible)
	require.NoError(t, err)
	for p, data := range payloads {
		require.NoError(t, a.Add(p, data))
	}
	path := filepath.Join(t.TempDir(), "remote.pack")
	require.NoError(t, a.Save(path))
	require.NoError(t, a.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "remote.pack", time.Unix(1_700_000_000, 0), bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv, payloads
}

func TestRemoteArchive(t *testing.T) {
	srv, payloads := serveArchive(t)

	src, err := httpsource.New(srv.URL + "/remote.pack")
	require.NoError(t, err)

	a, err := packfile.OpenFrom(src)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, len(payloads), a.Len())
	for p, want := range payloads {
		got, err := a.Read(p)
		require.NoError(t, err)
		assert.Equal(t, want, got, p)
	}
}

func TestReadAtBounds(t *testing.T) {
	srv, _ := serveArchive(t)

	src, err := httpsource.New(srv.URL + "/remote.pack")
	require.NoError(t, err)

	// Reads past the end report EOF with the short count.
	buf := make([]byte, 16)
	n, err := src.ReadAt(buf, src.Size()-4)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, n)

	n, err = src.ReadAt(buf, src.Size())
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)

	n, err = src.ReadAt(nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNoRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Plain 200 regardless of the Range header.
		_, _ = w.Write([]byte("full body"))
	}))
	defer srv.Close()

	_, err := httpsource.New(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "range")
}

func TestRemoteChangeFailsReads(t *testing.T) {
	var generation int
	payload := []byte("generation zero content, long enough for ranges")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if generation > 0 && r.Header.Get("If-Unmodified-Since") != "" {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		http.ServeContent(w, r, "f", time.Unix(1_700_000_000, 0), bytes.NewReader(payload))
	}))
	defer srv.Close()

	src, err := httpsource.New(srv.URL)
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = src.ReadAt(buf, 0)
	require.NoError(t, err)

	generation = 1
	_, err = src.ReadAt(buf, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed")
}

func TestCustomHeader(t *testing.T) {
	var gotAuth string
	payload := []byte("auth protected content")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		http.ServeContent(w, r, "f", time.Unix(1_700_000_000, 0), bytes.NewReader(payload))
	}))
	defer srv.Close()

	_, err := httpsource.New(srv.URL, httpsource.WithHeader("Authorization", "Bearer tok"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
}

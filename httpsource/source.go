// Package httpsource provides a packfile.ByteSource backed by HTTP range
// requests, so a remote archive can be listed and read lazily without
// downloading it.
package httpsource

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Source reads a remote archive through HTTP range requests. It satisfies
// packfile.ByteSource (io.ReaderAt plus Size).
//
// The remote content is pinned at construction: the probe records the
// ETag and Last-Modified validators, and every later read sends them as
// If-Match / If-Unmodified-Since. A remote file that changes mid-session
// fails reads instead of mixing bytes from two generations, which the
// engine surfaces as an entry-source failure.
type Source struct {
	url          string
	client       *http.Client
	header       http.Header
	size         int64
	etag         string
	lastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// WithHeader sets a header sent on every request, for auth tokens and the
// like.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.header == nil {
			s.header = make(http.Header)
		}
		s.header.Set(key, value)
	}
}

// New creates a Source for the archive at url. It issues a one-byte range
// probe to learn the content size and to verify the server honors range
// requests at all; servers that reply 200 to a range request are rejected,
// since they would force a full download per read.
func New(url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.probe(); err != nil {
		return nil, fmt.Errorf("httpsource: %w", err)
	}
	return s, nil
}

// Size returns the total size of the remote archive.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt reads len(p) bytes at offset off with a single range request.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("httpsource: negative offset %d", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	want := len(p)
	if end >= s.size {
		end = s.size - 1
		want = int(end - off + 1)
	}

	req, err := s.newRequest()
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case http.StatusPreconditionFailed:
		return 0, errors.New("httpsource: remote archive changed since open")
	case http.StatusOK:
		return 0, errors.New("httpsource: server ignored range request")
	default:
		return 0, fmt.Errorf("httpsource: range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe fetches bytes 0-0 to learn the size and pin the validators.
func (s *Source) probe() error {
	req, err := s.newRequest()
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		return errors.New("server does not support range requests")
	default:
		return fmt.Errorf("range probe failed: %s", resp.Status)
	}

	size, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	s.size = size
	s.etag = resp.Header.Get("ETag")
	s.lastModified = resp.Header.Get("Last-Modified")
	return nil
}

func (s *Source) newRequest() (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	// Range math assumes the raw representation.
	req.Header.Set("Accept-Encoding", "identity")
	if s.etag != "" {
		req.Header.Set("If-Match", s.etag)
	}
	if s.lastModified != "" {
		req.Header.Set("If-Unmodified-Since", s.lastModified)
	}
	return req, nil
}

// drainClose empties the body before closing so the connection can be
// reused for the next range request.
func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}

// parseContentRange extracts the total size from a "bytes a-b/size" header.
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}

var _ io.ReaderAt = (*Source)(nil)

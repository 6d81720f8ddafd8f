package packfile

import (
	"fmt"
	"io"
	"os"
)

// ByteSource provides bounded random access to an archive file's bytes.
//
// The engine never reads payload ranges through anything else, so tests
// can wrap a source to observe exactly which byte ranges are touched.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// fileSource wraps *os.File to implement ByteSource. os.File has ReadAt
// but not Size, so the size is cached at construction.
type fileSource struct {
	file *os.File
	size int64
}

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (fs *fileSource) Size() int64 {
	return fs.size
}

var _ ByteSource = (*fileSource)(nil)

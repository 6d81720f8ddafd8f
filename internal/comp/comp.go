// Package comp wraps the zstd codec used for per-entry payload compression.
//
// Compression is deterministic for a given input, so re-saving an
// unmodified entry reproduces the original compressed bytes.
package comp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrCorruptCompressedData is returned when a compressed payload is
// malformed or its decompressed length disagrees with the declared length.
var ErrCorruptCompressedData = errors.New("packfile: corrupt compressed data")

var (
	encOnce sync.Once
	encoder *zstd.Encoder
	encErr  error

	decOnce sync.Once
	decoder *zstd.Decoder
	decErr  error
)

// getEncoder returns the shared encoder. Concurrency is pinned to 1 so
// EncodeAll output is deterministic; EncodeAll itself is safe for
// concurrent use.
func getEncoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		encoder, encErr = zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder, encErr
}

// maxDecodedSize caps how much memory a single decode may claim. Declared
// lengths are untrusted directory fields, so allocation is bounded here
// rather than trusting the u32.
const maxDecodedSize = 1 << 31

// initialBufCap is the largest capacity pre-allocated from a declared
// length; bigger payloads grow the buffer as the decoder proves them real.
const initialBufCap = 1 << 20

func getDecoder() (*zstd.Decoder, error) {
	decOnce.Do(func() {
		decoder, decErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedSize))
	})
	return decoder, decErr
}

// Compress returns the compressed form of data.
func Compress(data []byte) ([]byte, error) {
	enc, err := getEncoder()
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	return enc.EncodeAll(data, nil), nil
}

// Decompress decompresses data and validates the result against the
// declared uncompressed length.
func Decompress(data []byte, declaredSize uint32) ([]byte, error) {
	dec, err := getDecoder()
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	out, err := dec.DecodeAll(data, make([]byte, 0, min(declaredSize, initialBufCap)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCompressedData, err)
	}
	if uint32(len(out)) != declaredSize {
		return nil, fmt.Errorf("%w: declared length %d, decompressed %d",
			ErrCorruptCompressedData, declaredSize, len(out))
	}
	return out, nil
}

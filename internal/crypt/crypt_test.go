package crypt

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 3, 4, 5, 7, 8, 15, 16, 255, 256, 257, 4096} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			plain := make([]byte, n)
			_, err := rng.Read(plain)
			require.NoError(t, err)

			enc := Encrypt(bytes.Clone(plain))
			if n > 4 {
				assert.NotEqual(t, plain, enc)
			}
			assert.Equal(t, plain, Decrypt(enc))

			// The transform is self-inverse, so the other direction
			// must hold too.
			dec := Decrypt(bytes.Clone(plain))
			assert.Equal(t, plain, Encrypt(dec))
		})
	}
}

func TestEncryptDeterministic(t *testing.T) {
	plain := []byte("the same bytes every time")
	a := Encrypt(bytes.Clone(plain))
	b := Encrypt(bytes.Clone(plain))
	assert.Equal(t, a, b)
}

func TestEncryptLengthSalted(t *testing.T) {
	// Buffers of different lengths get different keystreams even when the
	// shared prefix is identical.
	a := Encrypt(make([]byte, 16))
	b := Encrypt(make([]byte, 17))
	assert.NotEqual(t, a, b[:16])
}

func TestKeystreamNonTrivial(t *testing.T) {
	// Encrypting zeros exposes the raw keystream; it must not be all
	// zeros or a single repeated byte.
	ks := Encrypt(make([]byte, 64))
	assert.NotEqual(t, make([]byte, 64), ks)
	distinct := map[byte]bool{}
	for _, b := range ks {
		distinct[b] = true
	}
	assert.Greater(t, len(distinct), 8)
	// Applying the transform again recovers the zeros.
	assert.Equal(t, make([]byte, 64), Encrypt(ks))
}

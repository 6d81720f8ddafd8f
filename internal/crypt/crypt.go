// Package crypt implements the reversible transform applied to the index
// and payloads of the encrypted "Arena" archive variant.
//
// The scheme is a position-keyed XOR keystream salted with the buffer
// length. No external key material is involved: the key and the mixing
// table are fixed properties of the format.
package crypt

import "errors"

// ErrUnsupportedEncryptionVariant is returned when an archive declares an
// encryption variant this codec does not implement.
var ErrUnsupportedEncryptionVariant = errors.New("packfile: unsupported encryption variant")

// baseKey is the fixed key embedded in the format.
const baseKey uint32 = 0x1F0D4C27

// mixTable is the 256-word mixing table, generated once from a seeded LCG.
var mixTable [256]uint32

func init() {
	seed := uint32(0x0012F39A)
	for i := range mixTable {
		seed = (seed*125 + 3) % 0x2AAAAB
		hi := (seed & 0xFFFF) << 16
		seed = (seed*125 + 3) % 0x2AAAAB
		mixTable[i] = hi | (seed & 0xFFFF)
	}
}

// apply XORs the keystream over data in place. The keystream depends only
// on byte position and the buffer length, so the transform is self-inverse
// and stable under relocation of the buffer within the archive.
func apply(data []byte) {
	key := baseKey ^ uint32(len(data))
	for i := range data {
		w := mixTable[(uint32(i)+key)&0xFF] ^ (key + uint32(i)*0x9E3779B1)
		data[i] ^= byte(w >> ((uint(i) & 3) * 8))
	}
}

// Decrypt reverses the Arena transform in place and returns data.
func Decrypt(data []byte) []byte {
	apply(data)
	return data
}

// Encrypt applies the Arena transform in place and returns data.
func Encrypt(data []byte) []byte {
	apply(data)
	return data
}

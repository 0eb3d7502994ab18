// Package keyderiv implements the AES-based key derivation functions used by AACS: the AES-G3
// diversification function and a CMAC restricted to a single block.
package keyderiv

import (
	"github.com/aacskit/aacs/internal/backend"
)

// Selection chooses which AES-G3 outputs to compute.
type Selection uint8

const (
	SelectLeft       Selection = 1 << iota // Left subkey (seed + 0).
	SelectProcessing                       // Processing key (seed + 1).
	SelectRight                            // Right subkey (seed + 2).
	SelectAll        = SelectLeft | SelectProcessing | SelectRight
)

var aesg3Seed = [backend.BlockSize]byte{
	0x7B, 0x10, 0x3C, 0x5D, 0xCB, 0x08, 0xC4, 0xE5,
	0x1A, 0x27, 0xB0, 0x17, 0x99, 0x05, 0x3B, 0xD9,
}

// DiversifiedKeys holds the AES-G3 outputs. Outputs that were not selected are nil.
type DiversifiedKeys struct {
	Left       []byte
	Processing []byte
	Right      []byte
}

// AESG3 derives up to three keys from key. Each output is AES-128-D(key, s) XOR s, where s is the
// fixed seed with inc added to its final byte.
func AESG3(b backend.Backend, key []byte, sel Selection) (*DiversifiedKeys, error) {
	if len(key) != backend.KeySize {
		return nil, backend.ErrKeySize
	}
	var (
		keys DiversifiedKeys
		err  error
	)
	if sel&SelectLeft != 0 {
		if keys.Left, err = aesg3(b, key, 0); err != nil {
			return nil, err
		}
	}
	if sel&SelectProcessing != 0 {
		if keys.Processing, err = aesg3(b, key, 1); err != nil {
			return nil, err
		}
	}
	if sel&SelectRight != 0 {
		if keys.Right, err = aesg3(b, key, 2); err != nil {
			return nil, err
		}
	}
	return &keys, nil
}

func aesg3(b backend.Backend, key []byte, inc byte) ([]byte, error) {
	seed := aesg3Seed
	seed[len(seed)-1] += inc

	out, err := b.DecryptBlock(key, seed[:])
	if err != nil {
		return nil, err
	}
	xor(out, out, seed[:])
	return out, nil
}

func xor(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

package keyderiv

import (
	"github.com/aacskit/aacs/internal/backend"
)

// cmacRb is the constant used to reduce a doubled subkey for a 128-bit block cipher.
const cmacRb = 0x87

// shiftLeft sets dst to src shifted left by one bit, treating both as 128-bit big-endian
// integers. The bit shifted out of src[0] is discarded.
func shiftLeft(dst, src []byte) {
	var overflow byte
	for i := len(src) - 1; i >= 0; i-- {
		b := src[i]
		dst[i] = b<<1 | overflow
		overflow = b >> 7
	}
}

func double(dst, src []byte) {
	msb := src[0] & 0x80
	shiftLeft(dst, src)
	if msb != 0 {
		dst[len(dst)-1] ^= cmacRb
	}
}

// Subkeys returns the CMAC subkeys K1 and K2 for key (NIST SP 800-38B, section 6.1).
func Subkeys(b backend.Backend, key []byte) (k1, k2 []byte, err error) {
	var zero [backend.BlockSize]byte
	l, err := b.EncryptBlock(key, zero[:])
	if err != nil {
		return nil, nil, err
	}
	k1 = make([]byte, backend.BlockSize)
	k2 = make([]byte, backend.BlockSize)
	double(k1, l)
	double(k2, k1)
	return k1, k2, nil
}

// CMAC16 computes AES-CMAC over exactly one 16-byte block. For a single complete block, the
// result equals general AES-CMAC: E(key, data XOR K1).
func CMAC16(b backend.Backend, data, key []byte) ([]byte, error) {
	if len(data) != backend.BlockSize {
		return nil, backend.ErrBlockSize
	}
	k1, _, err := Subkeys(b, key)
	if err != nil {
		return nil, err
	}
	block := make([]byte, backend.BlockSize)
	xor(block, data, k1)
	return b.EncryptBlock(key, block)
}

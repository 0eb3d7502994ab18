package ecdsa

import (
	"crypto/hmac"
	"crypto/sha1"
	"hash"

	"github.com/aacskit/aacs/internal/curve"
	"github.com/cronokirby/saferith"
)

// nonceSource implements the deterministic nonce generation of RFC 6979 for the AACS curve with
// HMAC-SHA1. Since hlen = qlen = 160 bits, each candidate T is exactly one HMAC output.
type nonceSource struct {
	k, v []byte
	h    hash.Hash
	n    *saferith.Modulus
}

func newNonceSource(scalar []byte, digest Digest) *nonceSource {
	n := curve.AACS().N

	// Steps below refer to the steps in RFC 6979 Section 3.2:
	// https://datatracker.ietf.org/doc/html/rfc6979#section-3.2

	// Step (b): V = 0x01 0x01 ... 0x01, step (c): K = 0x00 0x00 ... 0x00
	k := make([]byte, sha1.Size)
	v := make([]byte, sha1.Size)
	for i := range v {
		v[i] = 0x01
	}

	// h1 = bits2octets(digest)
	var asInt saferith.Nat
	asInt.SetBytes(digest[:])
	asInt.Mod(&asInt, n)
	h1 := make([]byte, ScalarLength)
	asInt.FillBytes(h1)

	// Step (d): K = HMAC_K(V || 0x00 || x || h1)
	h := hmac.New(sha1.New, k)
	h.Write(v)
	h.Write([]byte{0x00})
	h.Write(scalar)
	h.Write(h1)
	k = h.Sum(nil)

	// Step (e): V = HMAC_K(V)
	h = hmac.New(sha1.New, k)
	h.Write(v)
	v = h.Sum(nil)

	// Step (f): K = HMAC_K(V || 0x01 || x || h1)
	h.Reset()
	h.Write(v)
	h.Write([]byte{0x01})
	h.Write(scalar)
	h.Write(h1)
	k = h.Sum(nil)

	// Step (g): V = HMAC_K(V)
	h = hmac.New(sha1.New, k)
	h.Write(v)
	v = h.Sum(nil)

	return &nonceSource{k: k, v: v, h: h, n: n}
}

// next returns the next candidate nonce in [1, n-1]. Calling it again after a candidate was
// rejected by the signer continues the RFC 6979 sequence.
func (s *nonceSource) next() *saferith.Nat {
	for {
		// Step (h2): V = HMAC_K(V), T = V
		s.h.Reset()
		s.h.Write(s.v)
		s.v = s.h.Sum(nil)

		// Step (h3)
		candidate := new(saferith.Nat).SetBytes(s.v)
		s.advance()
		if _, _, lt := candidate.CmpMod(s.n); lt == 1 && candidate.EqZero() == 0 {
			return candidate
		}
	}
}

// advance sets K = HMAC_K(V || 0x00) and V = HMAC_K(V).
func (s *nonceSource) advance() {
	s.h.Reset()
	s.h.Write(s.v)
	s.h.Write([]byte{0x00})
	s.k = s.h.Sum(nil)

	s.h = hmac.New(sha1.New, s.k)
	s.h.Write(s.v)
	s.v = s.h.Sum(nil)
}

// DeterministicNonce returns the first RFC 6979 nonce for the private scalar and message
// digest, as a ScalarLength-byte big-endian string.
func DeterministicNonce(scalar []byte, digest Digest) []byte {
	out := make([]byte, ScalarLength)
	newNonceSource(scalar, digest).next().FillBytes(out)
	return out
}

package ecdsa

import (
	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/curve"
	"github.com/cronokirby/saferith"
)

// Sign returns the 40-byte r||s signature of SHA-1(message) under the private scalar d. The
// scalar is reduced modulo n before use and must not reduce to zero. Nonces are derived
// deterministically from the reduced scalar and the digest, so signing never consumes
// randomness.
func Sign(b backend.Backend, d, message []byte) ([]byte, error) {
	c := curve.AACS()
	n := c.N

	priv := new(saferith.Nat).SetBytes(d)
	priv.Mod(priv, n)
	if priv.EqZero() == 1 {
		return nil, ErrInvalidPrivateKey
	}
	scalar := make([]byte, ScalarLength)
	priv.FillBytes(scalar)

	digest := NewDigest(b, message)
	e := digest.nat(n)

	nonces := newNonceSource(scalar, digest)
	for {
		k := nonces.next()
		kBytes := make([]byte, ScalarLength)
		k.FillBytes(kBytes)

		x, _, err := c.Affine(c.ScalarBaseMult(kBytes))
		if err != nil {
			continue
		}
		// r = x(kG) mod n
		r := new(saferith.Nat).SetBytes(x)
		r.Mod(r, n)
		if r.EqZero() == 1 {
			continue
		}
		// s = k⁻¹(e + rd) mod n
		s := new(saferith.Nat).ModMul(r, priv, n)
		s.ModAdd(s, e, n)
		s.ModMul(s, new(saferith.Nat).ModInverse(k, n), n)
		if s.EqZero() == 1 {
			continue
		}
		return (&Signature{R: r, S: s}).Bytes(), nil
	}
}

// Verify checks a 40-byte r||s signature of SHA-1(message) against pub. It returns
// ErrInvalidSignature if the signature is malformed or does not match, and ErrInvalidPublicKey if
// pub is not a valid curve point.
func Verify(b backend.Backend, pub *PublicKey, message, signature []byte) error {
	c := curve.AACS()
	n := c.N

	if !c.IsOnCurve(pub.X, pub.Y) {
		return ErrInvalidPublicKey
	}
	q, err := pub.point()
	if err != nil {
		return err
	}
	sig, err := ParseSignature(signature)
	if err != nil {
		return err
	}

	e := NewDigest(b, message).nat(n)

	// u1 = e/s, u2 = r/s, X = u1*G + u2*Q
	w := new(saferith.Nat).ModInverse(sig.S, n)
	u1 := new(saferith.Nat).ModMul(e, w, n)
	u2 := new(saferith.Nat).ModMul(sig.R, w, n)
	u1Bytes := make([]byte, ScalarLength)
	u2Bytes := make([]byte, ScalarLength)
	u1.FillBytes(u1Bytes)
	u2.FillBytes(u2Bytes)

	x, _, err := c.Affine(c.Add(c.ScalarBaseMult(u1Bytes), c.ScalarMult(q, u2Bytes)))
	if err != nil {
		return ErrInvalidSignature
	}
	v := new(saferith.Nat).SetBytes(x)
	v.Mod(v, n)
	if v.Eq(sig.R) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

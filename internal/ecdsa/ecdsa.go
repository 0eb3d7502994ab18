// Package ecdsa implements ECDSA over the AACS curve with SHA-1 message digests.
//
// Keys and signatures use the fixed-width encodings found in AACS certificates: a public key is
// the 40-byte concatenation of its affine coordinates, and a signature is the 40-byte
// concatenation of r and s.
package ecdsa

import (
	"errors"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/curve"
	"github.com/cronokirby/saferith"
)

const (
	// ScalarLength is the length of an encoded private key or signature component.
	ScalarLength = curve.CoordinateSize
	// PublicKeyLength is the length of an encoded public key.
	PublicKeyLength = 2 * curve.CoordinateSize
	// SignatureLength is the length of an encoded signature.
	SignatureLength = 2 * ScalarLength
)

var (
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// PublicKey is a point on the AACS curve.
type PublicKey struct {
	X, Y []byte
}

// NewPublicKey returns the public key (x, y) after checking that it lies on the curve.
func NewPublicKey(x, y []byte) (*PublicKey, error) {
	if !curve.AACS().IsOnCurve(x, y) {
		return nil, ErrInvalidPublicKey
	}
	return &PublicKey{
		X: append([]byte{}, x...),
		Y: append([]byte{}, y...),
	}, nil
}

// UnmarshalPublicKey parses the 40-byte x||y encoding of a public key.
func UnmarshalPublicKey(encoded []byte) (*PublicKey, error) {
	if len(encoded) != PublicKeyLength {
		return nil, ErrInvalidPublicKey
	}
	return NewPublicKey(encoded[:curve.CoordinateSize], encoded[curve.CoordinateSize:])
}

// Bytes returns the 40-byte x||y encoding of k.
func (k *PublicKey) Bytes() []byte {
	out := make([]byte, 0, PublicKeyLength)
	out = append(out, k.X...)
	return append(out, k.Y...)
}

func (k *PublicKey) point() (*curve.Point, error) {
	p, err := curve.AACS().NewAffinePoint(k.X, k.Y)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return p, nil
}

// PublicKeyFromScalar returns d*G. The scalar is used as given, without reduction modulo n.
func PublicKeyFromScalar(d []byte) (*PublicKey, error) {
	c := curve.AACS()
	x, y, err := c.Affine(c.ScalarBaseMult(d))
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return &PublicKey{X: x, Y: y}, nil
}

// Signature is an ECDSA signature (r, s).
type Signature struct {
	R, S *saferith.Nat
}

// ParseSignature decodes a 40-byte r||s signature. Components outside [1, n-1] are rejected.
func ParseSignature(encoded []byte) (*Signature, error) {
	if len(encoded) != SignatureLength {
		return nil, ErrInvalidSignature
	}
	sig := &Signature{
		R: new(saferith.Nat).SetBytes(encoded[:ScalarLength]),
		S: new(saferith.Nat).SetBytes(encoded[ScalarLength:]),
	}
	if !inScalarRange(sig.R) || !inScalarRange(sig.S) {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}

// Bytes returns the 40-byte r||s encoding of sig.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	sig.R.FillBytes(out[:ScalarLength])
	sig.S.FillBytes(out[ScalarLength:])
	return out
}

func inScalarRange(v *saferith.Nat) bool {
	_, _, lt := v.CmpMod(curve.AACS().N)
	return lt == 1 && v.EqZero() == 0
}

// PrivateKey pairs a private scalar with its public key. Keys built with NewPrivateKey do not
// check that the public key equals D*G; the public half is whatever the owner's certificate
// advertises.
type PrivateKey struct {
	PublicKey
	D []byte
}

// NewPrivateKey returns a private key with public point (x, y) and scalar d.
func NewPrivateKey(x, y, d []byte) (*PrivateKey, error) {
	pub, err := NewPublicKey(x, y)
	if err != nil {
		return nil, err
	}
	if len(d) != ScalarLength {
		return nil, ErrInvalidPrivateKey
	}
	return &PrivateKey{PublicKey: *pub, D: append([]byte{}, d...)}, nil
}

// Sign returns the signature of SHA-1(message) under k. See [Sign].
func (k *PrivateKey) Sign(b backend.Backend, message []byte) ([]byte, error) {
	return Sign(b, k.D, message)
}

// Digest is the SHA-1 hash of signed material, interpreted as a big-endian integer.
type Digest [backend.DigestSize]byte

// NewDigest hashes data.
func NewDigest(b backend.Backend, data []byte) Digest {
	return Digest(b.SHA1(data))
}

func (d Digest) nat(n *saferith.Modulus) *saferith.Nat {
	e := new(saferith.Nat).SetBytes(d[:])
	return e.Mod(e, n)
}

package authentication

import (
	"errors"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/curve"
	"github.com/aacskit/aacs/internal/ecdsa"
)

const (
	// PrivateKeyLength is the length of a host private scalar.
	PrivateKeyLength = ecdsa.ScalarLength
	// PublicPointLength is the length of an encoded x||y public point.
	PublicPointLength = ecdsa.PublicKeyLength
	// BusKeyLength is the length of the key shared by a host and a drive.
	BusKeyLength = 16
)

// maxKeyAttempts bounds the number of random scalars drawn while looking for a usable host key.
const maxKeyAttempts = 8

// HostPrivateKey represents a local AACS private key. Implementations never expose the private
// scalar through this interface, which allows keys to be held by external devices.
type HostPrivateKey interface {
	// BusKey returns the 16-byte bus key shared with the owner of peerPoint.
	BusKey(peerPoint []byte) ([]byte, error)
	// PublicBytes returns the 40-byte x||y encoding of the public point.
	PublicBytes() []byte
	// Sign returns an ECDSA signature of SHA-1(message).
	Sign(message []byte) ([]byte, error)
}

// NativeHostKey is a HostPrivateKey held in memory.
type NativeHostKey struct {
	backend backend.Backend
	d       []byte
	public  *ecdsa.PublicKey
}

// NewHostKey generates a host key pair from 20 random bytes. The scalar is not reduced modulo
// the group order.
func NewHostKey(b backend.Backend) (*NativeHostKey, error) {
	d := make([]byte, PrivateKeyLength)
	for i := 0; i < maxKeyAttempts; i++ {
		if err := b.Random(d); err != nil {
			return nil, wrapError(errCodeKeyBuild, err)
		}
		key, err := UnmarshalHostKey(b, d)
		if err == nil {
			return key, nil
		}
		// Only a scalar that is a multiple of n is rejected.
		if !errors.Is(err, ErrKeyBuildFailure) {
			return nil, err
		}
	}
	return nil, newError(errCodeKeyBuild, "random source produced no usable scalar")
}

// UnmarshalHostKey returns the host key with the given 20-byte private scalar.
func UnmarshalHostKey(b backend.Backend, privateScalar []byte) (*NativeHostKey, error) {
	if len(privateScalar) != PrivateKeyLength {
		return nil, newError(errCodeKeyBuild, "private key must be 20 bytes")
	}
	public, err := ecdsa.PublicKeyFromScalar(privateScalar)
	if err != nil {
		return nil, wrapError(errCodeKeyBuild, err)
	}
	return &NativeHostKey{
		backend: b,
		d:       append([]byte{}, privateScalar...),
		public:  public,
	}, nil
}

// Bytes returns the private scalar.
func (k *NativeHostKey) Bytes() []byte {
	return append([]byte{}, k.d...)
}

func (k *NativeHostKey) Public() *ecdsa.PublicKey {
	return k.public
}

func (k *NativeHostKey) PublicBytes() []byte {
	return k.public.Bytes()
}

func (k *NativeHostKey) Sign(message []byte) ([]byte, error) {
	sig, err := ecdsa.Sign(k.backend, k.d, message)
	if err != nil {
		return nil, wrapError(errCodeSignOperation, err)
	}
	return sig, nil
}

// BusKey multiplies peerPoint by the private scalar and returns the low-order 16 bytes of the
// result's x-coordinate, taken from its 20-byte big-endian encoding. Points that are not on the
// curve are rejected.
func (k *NativeHostKey) BusKey(peerPoint []byte) ([]byte, error) {
	return busKey(k.d, peerPoint)
}

func busKey(privateScalar, peerPoint []byte) ([]byte, error) {
	if len(peerPoint) != PublicPointLength {
		return nil, newError(errCodeInvalidPoint, "peer point must be 40 bytes")
	}
	c := curve.AACS()
	x, y := peerPoint[:curve.CoordinateSize], peerPoint[curve.CoordinateSize:]
	if !c.IsOnCurve(x, y) {
		return nil, newError(errCodeInvalidPoint, "peer point is not on the curve")
	}
	q, err := c.NewAffinePoint(x, y)
	if err != nil {
		return nil, wrapError(errCodeInvalidPoint, err)
	}
	sharedX, _, err := c.Affine(c.ScalarMult(q, privateScalar))
	if err != nil {
		return nil, wrapError(errCodeInvalidPoint, err)
	}
	return sharedX[curve.CoordinateSize-BusKeyLength:], nil
}

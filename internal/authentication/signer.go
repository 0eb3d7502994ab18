package authentication

import (
	"errors"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/curve"
	"github.com/aacskit/aacs/internal/ecdsa"
	"github.com/aacskit/aacs/internal/log"
)

// NonceLength is the length of the nonces exchanged during AACS authentication.
const NonceLength = 20

// certificateKey returns the public key embedded in a host or drive certificate. Only the first
// 52 bytes of cert are inspected.
func certificateKey(cert []byte) (x, y []byte, err error) {
	if len(cert) < certSignatureOffset {
		return nil, nil, newError(errCodeKeyBuild, "certificate too short to hold a public key")
	}
	x = cert[certPublicKeyOffset : certPublicKeyOffset+curve.CoordinateSize]
	y = cert[certPublicKeyOffset+curve.CoordinateSize : certSignatureOffset]
	return x, y, nil
}

// Sign returns the 40-byte signature of SHA-1(nonce||point) made with privateKey. The signing key
// pairs privateKey with the public key in the signer's own certificate.
func Sign(b backend.Backend, cert, privateKey, nonce, point []byte) ([]byte, error) {
	x, y, err := certificateKey(cert)
	if err != nil {
		return nil, err
	}
	key, err := ecdsa.NewPrivateKey(x, y, privateKey)
	if err != nil {
		log.Debug("Cannot build signing key: %s", err)
		return nil, wrapError(errCodeKeyBuild, err)
	}
	if len(nonce) != NonceLength || len(point) != PublicPointLength {
		return nil, newError(errCodeSignOperation, "signed material must be a 20-byte nonce and a 40-byte point")
	}
	message := make([]byte, 0, NonceLength+PublicPointLength)
	message = append(message, nonce...)
	message = append(message, point...)

	sig, err := key.Sign(b, message)
	if err != nil {
		log.Debug("Sign operation failed: %s", err)
		return nil, wrapError(errCodeSignOperation, err)
	}
	return sig, nil
}

// Verify checks signature over data against the public key in cert.
func Verify(b backend.Backend, signature, data, cert []byte) error {
	x, y, err := certificateKey(cert)
	if err != nil {
		return err
	}
	key, err := ecdsa.NewPublicKey(x, y)
	if err != nil {
		log.Debug("Cannot build verification key: %s", err)
		return wrapError(errCodeKeyBuild, err)
	}
	return VerifyWithKey(b, key, signature, data)
}

// VerifyLicensingAuthority checks signature over data against the licensing authority's key.
func VerifyLicensingAuthority(b backend.Backend, signature, data []byte) error {
	return VerifyWithKey(b, LicensingAuthorityKey(), signature, data)
}

// VerifyWithKey checks signature over data against key.
func VerifyWithKey(b backend.Backend, key *ecdsa.PublicKey, signature, data []byte) error {
	if _, err := ecdsa.ParseSignature(signature); err != nil {
		log.Debug("Cannot build signature: %s", err)
		return wrapError(errCodeSignatureBuild, err)
	}
	err := ecdsa.Verify(b, key, data, signature)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ecdsa.ErrInvalidPublicKey):
		log.Debug("Cannot build verification key: %s", err)
		return wrapError(errCodeKeyBuild, err)
	default:
		return wrapError(errCodeVerification, err)
	}
}

package protocol

import (
	"errors"

	"github.com/aacskit/aacs/internal/authentication"
)

// ErrorCode classifies failures of the AACS primitives.
type ErrorCode = authentication.ErrorCode

// Error carries an ErrorCode, a description and the underlying cause.
type Error = authentication.Error

var (
	// ErrBackendInitFailure indicates the crypto backend failed its self test. No other operation
	// can succeed until the process is restarted with a working backend.
	ErrBackendInitFailure = authentication.ErrBackendInitFailure
	// ErrInvalidPoint indicates a point that is not on the curve or has no affine representation.
	ErrInvalidPoint = authentication.ErrInvalidPoint
	// ErrKeyBuildFailure indicates a malformed private or public key.
	ErrKeyBuildFailure = authentication.ErrKeyBuildFailure
	// ErrSignatureBuildFailure indicates a malformed signature.
	ErrSignatureBuildFailure = authentication.ErrSignatureBuildFailure
	// ErrSignOperationFailure indicates the signing operation itself failed.
	ErrSignOperationFailure = authentication.ErrSignOperationFailure
	// ErrVerificationFailure indicates a well-formed signature that does not match.
	ErrVerificationFailure = authentication.ErrVerificationFailure
	// ErrInvalidCertificateFormat indicates a certificate with the wrong size, type or length
	// field.
	ErrInvalidCertificateFormat = authentication.ErrInvalidCertificateFormat
)

// rejections are outcomes of checking untrusted input, as opposed to failures of the caller's
// own keys or of the backend.
var rejections = []error{
	ErrVerificationFailure,
	ErrSignatureBuildFailure,
	ErrInvalidCertificateFormat,
}

// IsRejection returns true if err means that a signature or certificate presented by a peer was
// not accepted.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

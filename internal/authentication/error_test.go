package authentication

import (
	"errors"
	"testing"

	"github.com/aacskit/aacs/internal/curve"
)

func TestErrCodeString(t *testing.T) {
	err := newError(errCodeCertificateFormat, "foobar")
	if err.Error() != "InvalidCertificateFormat: foobar" {
		t.Errorf("Failed to convert error string correctly: %s", err)
	}
	if ErrSignOperationFailure.Error() != "SignOperationFailure" {
		t.Errorf("Unexpected sentinel string: %s", ErrSignOperationFailure)
	}
	if ErrorCode(99).String() != "ErrorCode(99)" {
		t.Errorf("Unexpected string for unknown code: %s", ErrorCode(99))
	}
}

func TestErrorIs(t *testing.T) {
	err := wrapError(errCodeInvalidPoint, curve.ErrInvalidPoint)
	if !errors.Is(err, ErrInvalidPoint) {
		t.Error("Expected error to match its code's sentinel")
	}
	if errors.Is(err, ErrKeyBuildFailure) {
		t.Error("Error matched a different code")
	}
	if !errors.Is(err, curve.ErrInvalidPoint) {
		t.Error("Expected error to unwrap to its cause")
	}
	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Code != errCodeInvalidPoint {
		t.Errorf("errors.As failed: %v", authErr)
	}
}

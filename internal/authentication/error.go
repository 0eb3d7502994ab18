package authentication

import (
	"fmt"
	"unicode"
)

// ErrorCode classifies failures of the AACS primitives.
type ErrorCode int

const (
	errCodeOk ErrorCode = iota
	errCodeBackendInit
	errCodeInvalidPoint
	errCodeKeyBuild
	errCodeSignatureBuild
	errCodeSignOperation
	errCodeVerification
	errCodeCertificateFormat
)

var errCodeNames = map[ErrorCode]string{
	errCodeOk:                "ERROR_NONE",
	errCodeBackendInit:       "ERROR_BACKEND_INIT_FAILURE",
	errCodeInvalidPoint:      "ERROR_INVALID_POINT",
	errCodeKeyBuild:          "ERROR_KEY_BUILD_FAILURE",
	errCodeSignatureBuild:    "ERROR_SIGNATURE_BUILD_FAILURE",
	errCodeSignOperation:     "ERROR_SIGN_OPERATION_FAILURE",
	errCodeVerification:      "ERROR_VERIFICATION_FAILURE",
	errCodeCertificateFormat: "ERROR_INVALID_CERTIFICATE_FORMAT",
}

// String returns a CamelCase name for code.
func (code ErrorCode) String() string {
	// "ERROR_INVALID_CERTIFICATE_FORMAT" -> "InvalidCertificateFormat"
	const prefix = "ERROR_"
	name, ok := errCodeNames[code]
	if !ok {
		return fmt.Sprintf("ErrorCode(%d)", int(code))
	}
	allCaps := name[len(prefix):]
	camelCase := make([]rune, 0, len(allCaps))
	lowerCaseNext := false
	for _, b := range allCaps {
		if b == '_' {
			lowerCaseNext = false
		} else {
			if lowerCaseNext {
				camelCase = append(camelCase, unicode.ToLower(b))
			} else {
				camelCase = append(camelCase, b)
				lowerCaseNext = true
			}
		}
	}
	return string(camelCase)
}

var (
	ErrBackendInitFailure       = &Error{Code: errCodeBackendInit}
	ErrInvalidPoint             = &Error{Code: errCodeInvalidPoint}
	ErrKeyBuildFailure          = &Error{Code: errCodeKeyBuild}
	ErrSignatureBuildFailure    = &Error{Code: errCodeSignatureBuild}
	ErrSignOperationFailure     = &Error{Code: errCodeSignOperation}
	ErrVerificationFailure      = &Error{Code: errCodeVerification}
	ErrInvalidCertificateFormat = &Error{Code: errCodeCertificateFormat}
)

// Error represents a failure of an AACS primitive. Errors compare equal under [errors.Is] when
// their codes match, so callers can test against the exported sentinels without caring about
// Info or the underlying cause.
type Error struct {
	Code ErrorCode
	Info string
	Err  error
}

func newError(code ErrorCode, info string) error {
	return &Error{Code: code, Info: info}
}

func wrapError(code ErrorCode, err error) error {
	return &Error{Code: code, Info: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Info == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Info)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Package protocol exposes the AACS cryptographic primitives: AES-G3 key diversification,
// single-block CMAC, ECDSA signatures over the AACS curve, bus key agreement, host key
// generation and certificate verification.
//
// The package-level functions use a process-wide [Engine] backed by the native crypto backend.
// Call [Init] once at startup to detect an unusable backend early; every other function also
// initializes the backend on first use, so calling Init is optional. Use [NewEngine] to run the
// same operations on a different [Backend].
//
// Verification functions return booleans. Rejections are logged at debug level; use the
// corresponding [Engine] methods to obtain the error explaining a rejection.
package protocol

import (
	"github.com/aacskit/aacs/internal/authentication"
	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/ecdsa"
	"github.com/aacskit/aacs/internal/keyderiv"
	"github.com/aacskit/aacs/internal/log"
)

const (
	// PrivateKeyLength is the length of a host private key.
	PrivateKeyLength = authentication.PrivateKeyLength
	// PublicPointLength is the length of an x||y public point.
	PublicPointLength = authentication.PublicPointLength
	// SignatureLength is the length of an r||s signature.
	SignatureLength = ecdsa.SignatureLength
	// BusKeyLength is the length of a bus key.
	BusKeyLength = authentication.BusKeyLength
	// NonceLength is the length of an authentication nonce.
	NonceLength = authentication.NonceLength
	// CertificateLength is the length of a host or drive certificate.
	CertificateLength = authentication.CertificateLength
	// TitleHashLength is the length of a title hash.
	TitleHashLength = backend.DigestSize
)

// Backend supplies the AES, SHA-1 and randomness primitives.
type Backend = backend.Backend

// Selection chooses which AES-G3 outputs to compute.
type Selection = keyderiv.Selection

const (
	SelectLeft       = keyderiv.SelectLeft
	SelectProcessing = keyderiv.SelectProcessing
	SelectRight      = keyderiv.SelectRight
	SelectAll        = keyderiv.SelectAll
)

// DiversifiedKeys holds the AES-G3 outputs. Outputs that were not selected are nil.
type DiversifiedKeys = keyderiv.DiversifiedKeys

// Engine runs the AACS primitives on a Backend.
type Engine struct {
	backend  backend.Backend
	verifier *authentication.Verifier
}

// NewEngine returns an Engine that uses b. The backend is used as is; run it through a self test
// first if it comes from an untrusted source.
func NewEngine(b Backend) *Engine {
	return &Engine{backend: b, verifier: authentication.NewVerifier(b)}
}

// Init performs one-time, process-wide initialization of the native backend. It is safe to call
// concurrently and returns the same result every time.
func Init() error {
	if err := backend.Init(); err != nil {
		return &Error{Code: ErrBackendInitFailure.Code, Info: err.Error(), Err: err}
	}
	return nil
}

// DefaultEngine returns an Engine backed by the process-wide native backend, initializing it
// if necessary.
func DefaultEngine() (*Engine, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	b, err := backend.Default()
	if err != nil {
		return nil, err
	}
	return NewEngine(b), nil
}

// AESG3 derives the selected keys from a 16-byte key.
func (e *Engine) AESG3(key []byte, sel Selection) (*DiversifiedKeys, error) {
	keys, err := keyderiv.AESG3(e.backend, key, sel)
	return keys, observe("aes_g3", err)
}

// CMAC16 returns the AES-CMAC of a single 16-byte block.
func (e *Engine) CMAC16(data, key []byte) ([]byte, error) {
	mac, err := keyderiv.CMAC16(e.backend, data, key)
	return mac, observe("cmac16", err)
}

// Sign returns the 40-byte signature of SHA-1(nonce||point) made with privateKey, whose public
// key is the one in cert.
func (e *Engine) Sign(cert, privateKey, nonce, point []byte) ([]byte, error) {
	signature, err := authentication.Sign(e.backend, cert, privateKey, nonce, point)
	return signature, observe("sign", err)
}

// Verify checks signature over data against the public key in cert.
func (e *Engine) Verify(signature, data, cert []byte) error {
	return observe("verify", authentication.Verify(e.backend, signature, data, cert))
}

// VerifyAACSLA checks signature over data against the licensing authority's key.
func (e *Engine) VerifyAACSLA(signature, data []byte) error {
	return observe("verify_aacs_la", authentication.VerifyLicensingAuthority(e.backend, signature, data))
}

// VerifyCert checks a certificate's length field and licensing authority signature.
func (e *Engine) VerifyCert(cert []byte) error {
	return observe("verify_cert", e.verifier.VerifyCertificate(cert))
}

// VerifyHostCert is like VerifyCert but also requires a host certificate.
func (e *Engine) VerifyHostCert(cert []byte) error {
	return observe("verify_host_cert", e.verifier.VerifyHostCertificate(cert))
}

// VerifyDriveCert is like VerifyCert but also requires a drive certificate.
func (e *Engine) VerifyDriveCert(cert []byte) error {
	return observe("verify_drive_cert", e.verifier.VerifyDriveCertificate(cert))
}

// VerifyCertIssuedBy checks a certificate against the issuer's 40-byte public point instead of
// the licensing authority's key.
func (e *Engine) VerifyCertIssuedBy(cert, issuerPoint []byte) error {
	issuer, err := ecdsa.UnmarshalPublicKey(issuerPoint)
	if err != nil {
		return observe("verify_cert_issued_by", &Error{Code: ErrKeyBuildFailure.Code, Info: err.Error(), Err: err})
	}
	return observe("verify_cert_issued_by", authentication.NewIssuerVerifier(e.backend, issuer).VerifyCertificate(cert))
}

// TitleHash returns the SHA-1 digest of data.
func (e *Engine) TitleHash(data []byte) []byte {
	digest := authentication.TitleHash(e.backend, data)
	observe("title_hash", nil)
	return digest[:]
}

// CreateNonce returns length random bytes.
func (e *Engine) CreateNonce(length int) ([]byte, error) {
	nonce, err := authentication.CreateNonce(e.backend, length)
	return nonce, observe("create_nonce", err)
}

// CreateBusKey returns the 16-byte key shared between the owner of privateKey and the owner of
// peerPoint.
func (e *Engine) CreateBusKey(privateKey, peerPoint []byte) ([]byte, error) {
	key, err := authentication.UnmarshalHostKey(e.backend, privateKey)
	if err != nil {
		return nil, observe("create_bus_key", err)
	}
	busKey, err := key.BusKey(peerPoint)
	return busKey, observe("create_bus_key", err)
}

// CreateHostKeyPair returns a random 20-byte private key and its 40-byte public point.
func (e *Engine) CreateHostKeyPair() (privateKey, publicPoint []byte, err error) {
	key, err := authentication.NewHostKey(e.backend)
	if err != nil {
		return nil, nil, observe("create_host_key_pair", err)
	}
	observe("create_host_key_pair", nil)
	return key.Bytes(), key.PublicBytes(), nil
}

func accepted(op string, err error) bool {
	if err != nil {
		log.Debug("%s rejected: %s", op, err)
		return false
	}
	return true
}

// AESG3 derives the selected keys from a 16-byte key.
func AESG3(key []byte, sel Selection) (*DiversifiedKeys, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return e.AESG3(key, sel)
}

// CMAC16 returns the AES-CMAC of a single 16-byte block.
func CMAC16(data, key []byte) ([]byte, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return e.CMAC16(data, key)
}

// Sign returns the 40-byte signature of SHA-1(nonce||point) made with privateKey, whose public
// key is the one in cert. No signature is returned on failure.
func Sign(cert, privateKey, nonce, point []byte) ([]byte, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return e.Sign(cert, privateKey, nonce, point)
}

// Verify reports whether signature over data matches the public key in cert.
func Verify(signature, data, cert []byte) bool {
	e, err := DefaultEngine()
	if err != nil {
		return false
	}
	return accepted("Signature", e.Verify(signature, data, cert))
}

// VerifyAACSLA reports whether signature over data was made by the licensing authority.
func VerifyAACSLA(signature, data []byte) bool {
	e, err := DefaultEngine()
	if err != nil {
		return false
	}
	return accepted("Licensing authority signature", e.VerifyAACSLA(signature, data))
}

// VerifyCert reports whether cert has a valid length field and licensing authority signature.
func VerifyCert(cert []byte) bool {
	e, err := DefaultEngine()
	if err != nil {
		return false
	}
	return accepted("Certificate", e.VerifyCert(cert))
}

// VerifyHostCert is like VerifyCert but also requires a host certificate.
func VerifyHostCert(cert []byte) bool {
	e, err := DefaultEngine()
	if err != nil {
		return false
	}
	return accepted("Host certificate", e.VerifyHostCert(cert))
}

// VerifyDriveCert is like VerifyCert but also requires a drive certificate.
func VerifyDriveCert(cert []byte) bool {
	e, err := DefaultEngine()
	if err != nil {
		return false
	}
	return accepted("Drive certificate", e.VerifyDriveCert(cert))
}

// TitleHash returns the SHA-1 digest of data.
func TitleHash(data []byte) ([]byte, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return e.TitleHash(data), nil
}

// CreateNonce returns length random bytes.
func CreateNonce(length int) ([]byte, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return e.CreateNonce(length)
}

// CreateBusKey returns the 16-byte key shared between the owner of privateKey and the owner of
// peerPoint.
func CreateBusKey(privateKey, peerPoint []byte) ([]byte, error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, err
	}
	return e.CreateBusKey(privateKey, peerPoint)
}

// CreateHostKeyPair returns a random 20-byte private key and its 40-byte public point.
func CreateHostKeyPair() (privateKey, publicPoint []byte, err error) {
	e, err := DefaultEngine()
	if err != nil {
		return nil, nil, err
	}
	return e.CreateHostKeyPair()
}

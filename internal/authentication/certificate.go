package authentication

import (
	"encoding/binary"
	"fmt"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/ecdsa"
	"github.com/aacskit/aacs/internal/log"
)

// CertificateType identifies the owner of a certificate.
type CertificateType byte

const (
	CertificateTypeDrive CertificateType = 0x01
	CertificateTypeHost  CertificateType = 0x02
)

func (t CertificateType) String() string {
	switch t {
	case CertificateTypeDrive:
		return "drive"
	case CertificateTypeHost:
		return "host"
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Certificate layout.
const (
	CertificateLength = 0x5c

	certTypeOffset      = 0
	certFlagsOffset     = 1
	certLengthOffset    = 2
	certIDOffset        = 4
	certIDLength        = 6
	certPublicKeyOffset = 12
	certSignatureOffset = 52

	flagBusEncryption = 0x01
)

// Certificate is a host or drive certificate issued by the licensing authority.
type Certificate struct {
	Type      CertificateType
	Flags     byte
	Length    uint16
	ID        [certIDLength]byte
	PublicKey []byte // x||y, not validated
	Signature []byte

	raw []byte
}

// ParseCertificate decodes the first CertificateLength bytes of data. Only the buffer size is
// checked; the type and length fields are checked by [Verifier].
func ParseCertificate(data []byte) (*Certificate, error) {
	if len(data) < CertificateLength {
		return nil, newError(errCodeCertificateFormat,
			fmt.Sprintf("certificate is %d bytes, expected %d", len(data), CertificateLength))
	}
	raw := append([]byte{}, data[:CertificateLength]...)
	cert := &Certificate{
		Type:      CertificateType(raw[certTypeOffset]),
		Flags:     raw[certFlagsOffset],
		Length:    binary.BigEndian.Uint16(raw[certLengthOffset:]),
		PublicKey: raw[certPublicKeyOffset:certSignatureOffset],
		Signature: raw[certSignatureOffset:CertificateLength],
		raw:       raw,
	}
	copy(cert.ID[:], raw[certIDOffset:])
	return cert, nil
}

// BusEncryptionCapable reports whether the certificate owner supports bus encryption.
func (c *Certificate) BusEncryptionCapable() bool {
	return c.Flags&flagBusEncryption != 0
}

// SignedData returns the portion of the certificate covered by its signature.
func (c *Certificate) SignedData() []byte {
	return c.raw[:certSignatureOffset]
}

// Bytes returns the encoded certificate.
func (c *Certificate) Bytes() []byte {
	return append([]byte{}, c.raw...)
}

// Key returns the certified public key.
func (c *Certificate) Key() (*ecdsa.PublicKey, error) {
	key, err := ecdsa.UnmarshalPublicKey(c.PublicKey)
	if err != nil {
		return nil, wrapError(errCodeKeyBuild, err)
	}
	return key, nil
}

var (
	licensingAuthorityX = []byte{
		0x63, 0xC2, 0x1D, 0xFF, 0xB2, 0xB2, 0x79, 0x8A, 0x13, 0xB5,
		0x8D, 0x61, 0x16, 0x6C, 0x4E, 0x4A, 0xAC, 0x8A, 0x07, 0x72,
	}
	licensingAuthorityY = []byte{
		0x13, 0x7E, 0xC6, 0x38, 0x81, 0x8F, 0xD9, 0x8F, 0xA4, 0xC3,
		0x0B, 0x99, 0x67, 0x28, 0xBF, 0x4B, 0x91, 0x7F, 0x6A, 0x27,
	}
)

// LicensingAuthorityKey returns the AACS licensing authority's root public key.
func LicensingAuthorityKey() *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		X: append([]byte{}, licensingAuthorityX...),
		Y: append([]byte{}, licensingAuthorityY...),
	}
}

// Verifier checks certificates issued by a single issuer.
type Verifier struct {
	backend backend.Backend
	issuer  *ecdsa.PublicKey
}

// NewVerifier returns a Verifier for certificates issued by the licensing authority.
func NewVerifier(b backend.Backend) *Verifier {
	return &Verifier{backend: b, issuer: LicensingAuthorityKey()}
}

// NewIssuerVerifier returns a Verifier for certificates issued by issuer.
func NewIssuerVerifier(b backend.Backend, issuer *ecdsa.PublicKey) *Verifier {
	return &Verifier{backend: b, issuer: issuer}
}

// VerifyCertificate checks the length field and issuer signature of cert.
func (v *Verifier) VerifyCertificate(cert []byte) error {
	c, err := ParseCertificate(cert)
	if err != nil {
		log.Debug("Rejecting certificate: %s", err)
		return err
	}
	return v.verify(c)
}

// VerifyHostCertificate is like VerifyCertificate but also requires a host certificate.
func (v *Verifier) VerifyHostCertificate(cert []byte) error {
	return v.verifyType(cert, CertificateTypeHost)
}

// VerifyDriveCertificate is like VerifyCertificate but also requires a drive certificate.
func (v *Verifier) VerifyDriveCertificate(cert []byte) error {
	return v.verifyType(cert, CertificateTypeDrive)
}

func (v *Verifier) verifyType(cert []byte, want CertificateType) error {
	c, err := ParseCertificate(cert)
	if err != nil {
		log.Debug("Rejecting %s certificate: %s", want, err)
		return err
	}
	if c.Type != want {
		log.Debug("Rejecting %s certificate with type %s", want, c.Type)
		return newError(errCodeCertificateFormat, fmt.Sprintf("expected %s certificate, got %s", want, c.Type))
	}
	return v.verify(c)
}

func (v *Verifier) verify(c *Certificate) error {
	if c.Length != CertificateLength {
		log.Debug("Rejecting certificate with length field 0x%04x", c.Length)
		return newError(errCodeCertificateFormat, fmt.Sprintf("invalid length field 0x%04x", c.Length))
	}
	return VerifyWithKey(v.backend, v.issuer, c.Signature, c.SignedData())
}

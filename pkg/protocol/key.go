package protocol

import (
	"bytes"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"github.com/aacskit/aacs/internal/authentication"
	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/ecdsa"
)

// PEM block types.
const (
	PEMPrivateKey  = "AACS PRIVATE KEY"
	PEMPublicKey   = "AACS PUBLIC KEY"
	PEMCertificate = "AACS CERTIFICATE"
)

// Expose some interfaces from the otherwise internal package

type HostPrivateKey authentication.HostPrivateKey

// UnmarshalHostKey returns the host key with the given 20-byte private scalar.
func UnmarshalHostKey(privateScalar []byte) (HostPrivateKey, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	b, err := backend.Default()
	if err != nil {
		return nil, err
	}
	skey, err := authentication.UnmarshalHostKey(b, privateScalar)
	if err != nil {
		return nil, err
	}
	return skey, nil
}

// readKeyFile returns the contents of filename decoded from one of the supported encodings:
// a PEM block of type blockType, a hex string (optionally followed by a newline) or raw binary
// of length size. PEM blocks of the other types are returned along with their type.
func readKeyFile(filename string, size int) (blockType string, contents []byte, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}

	if len(data) == size {
		return "", data, nil
	}
	// Check for hex encoding. Allow for trailing "\n".
	trimmed := bytes.TrimRight(data, "\r\n")
	if len(trimmed) == 2*size {
		decoded := make([]byte, size)
		if _, err = hex.Decode(decoded, trimmed); err == nil {
			return "", decoded, nil
		}
		// Continue to decode as PEM. It's not going to work, but it might provide a more
		// descriptive error message.
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return "", nil, fmt.Errorf("%s: unrecognized key encoding", filename)
	}
	return block.Type, block.Bytes, nil
}

// LoadPrivateKey loads a host private key from a file.
//
// Supported formats:
//   - PEM ("BEGIN AACS PRIVATE KEY")
//   - Binary 20-byte scalar
//   - Hex-encoded scalar (40 characters)
func LoadPrivateKey(filename string) (HostPrivateKey, error) {
	blockType, scalar, err := readKeyFile(filename, PrivateKeyLength)
	if err != nil {
		return nil, err
	}
	if blockType != "" && blockType != PEMPrivateKey {
		return nil, fmt.Errorf("%w: unexpected PEM block type %s", ErrKeyBuildFailure, blockType)
	}
	return UnmarshalHostKey(scalar)
}

// SavePrivateKey writes skey to filename as a PEM file readable only by the current user.
func SavePrivateKey(skey HostPrivateKey, filename string) error {
	nativeKey, ok := skey.(*authentication.NativeHostKey)
	if !ok {
		return fmt.Errorf("key is not exportable")
	}
	pemKey := pem.Block{Type: PEMPrivateKey, Bytes: nativeKey.Bytes()}
	return os.WriteFile(filename, pem.EncodeToMemory(&pemKey), 0600)
}

// EncodePublicPoint returns a PEM encoding of a 40-byte public point.
func EncodePublicPoint(point []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMPublicKey, Bytes: point})
}

// LoadPublicPoint loads a 40-byte x||y public point from a file and checks that it is on the
// curve.
//
// The function is flexible, supporting the following formats (note that this list includes private
// key files, for convenience):
//   - PEM ("BEGIN AACS PUBLIC KEY")
//   - PEM ("BEGIN AACS PRIVATE KEY")
//   - Binary x||y (40 bytes)
//   - Hex-encoded x||y (80 characters)
func LoadPublicPoint(filename string) ([]byte, error) {
	blockType, contents, err := readKeyFile(filename, PublicPointLength)
	if err != nil {
		return nil, err
	}
	switch blockType {
	case "", PEMPublicKey:
	case PEMPrivateKey:
		skey, err := UnmarshalHostKey(contents)
		if err != nil {
			return nil, err
		}
		return skey.PublicBytes(), nil
	default:
		return nil, fmt.Errorf("unrecognized PEM block type %s", blockType)
	}
	if _, err := ecdsa.UnmarshalPublicKey(contents); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPoint, err)
	}
	return contents, nil
}

// PublicPointFromHex verifies h encodes a valid public point and returns the binary encoding.
func PublicPointFromHex(h string) ([]byte, error) {
	point, err := hex.DecodeString(h)
	if err != nil {
		return nil, err
	}
	if _, err := ecdsa.UnmarshalPublicKey(point); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPoint, err)
	}
	return point, nil
}

// LoadCertificate loads a host or drive certificate from a file. The certificate's signature is
// not checked.
//
// Supported formats:
//   - PEM ("BEGIN AACS CERTIFICATE")
//   - Binary (92 bytes)
//   - Hex-encoded (184 characters)
func LoadCertificate(filename string) ([]byte, error) {
	blockType, contents, err := readKeyFile(filename, CertificateLength)
	if err != nil {
		return nil, err
	}
	if blockType != "" && blockType != PEMCertificate {
		return nil, fmt.Errorf("%w: unexpected PEM block type %s", ErrInvalidCertificateFormat, blockType)
	}
	cert, err := authentication.ParseCertificate(contents)
	if err != nil {
		return nil, err
	}
	return cert.Bytes(), nil
}

// EncodeCertificate returns a PEM encoding of cert.
func EncodeCertificate(cert []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMCertificate, Bytes: cert})
}

//go:generate mockgen -destination=../../mocks/backend.go -package=mocks github.com/aacskit/aacs/internal/backend Backend

// Package backend provides the block cipher, hash and randomness primitives that the AACS
// algorithms are built from.
//
// Callers normally use [Default], which runs a known-answer self test exactly once per process
// before handing out the native implementation. Tests can substitute any [Backend].
package backend

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aacskit/aacs/internal/log"
)

const (
	// BlockSize is the AES block size in bytes.
	BlockSize = aes.BlockSize
	// KeySize is the length of the AES-128 keys used throughout AACS.
	KeySize = 16
	// DigestSize is the length of a SHA-1 digest.
	DigestSize = sha1.Size
)

var (
	// ErrBackendInit indicates the primitives failed their self test and must not be used.
	ErrBackendInit = errors.New("crypto backend initialization failed")
	// ErrKeySize indicates an AES key that is not 16 bytes long.
	ErrKeySize = errors.New("invalid AES-128 key length")
	// ErrBlockSize indicates a buffer that is not exactly one AES block.
	ErrBlockSize = errors.New("invalid AES block length")
)

// Backend exposes the primitives used by the AACS algorithms.
type Backend interface {
	// EncryptBlock encrypts a single 16-byte block in ECB mode, without padding.
	EncryptBlock(key, src []byte) ([]byte, error)
	// DecryptBlock decrypts a single 16-byte block in ECB mode, without padding.
	DecryptBlock(key, src []byte) ([]byte, error)
	// SHA1 returns the SHA-1 digest of data.
	SHA1(data []byte) [DigestSize]byte
	// Random fills buf with cryptographically secure random bytes.
	Random(buf []byte) error
}

// Native implements Backend using the Go standard library.
type Native struct {
	// Rand is the entropy source. If nil, crypto/rand.Reader is used.
	Rand io.Reader
}

func (n *Native) EncryptBlock(key, src []byte) ([]byte, error) {
	if err := checkSizes(key, src); err != nil {
		return nil, err
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, BlockSize)
	c.Encrypt(dst, src)
	return dst, nil
}

func (n *Native) DecryptBlock(key, src []byte) ([]byte, error) {
	if err := checkSizes(key, src); err != nil {
		return nil, err
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, BlockSize)
	c.Decrypt(dst, src)
	return dst, nil
}

func (n *Native) SHA1(data []byte) [DigestSize]byte {
	return sha1.Sum(data)
}

func (n *Native) Random(buf []byte) error {
	r := n.Rand
	if r == nil {
		r = rand.Reader
	}
	_, err := io.ReadFull(r, buf)
	return err
}

func checkSizes(key, src []byte) error {
	if len(key) != KeySize {
		return ErrKeySize
	}
	if len(src) != BlockSize {
		return ErrBlockSize
	}
	return nil
}

// Known-answer vectors: FIPS-197 Appendix C.1 and FIPS 180 "abc".
const (
	katKey        = "000102030405060708090a0b0c0d0e0f"
	katPlaintext  = "00112233445566778899aabbccddeeff"
	katCiphertext = "69c4e0d86a7b0430d8cdb78070b4c55a"
	katSHA1Input  = "abc"
	katSHA1Digest = "a9993e364706816aba3e25717850c26c9cd0d89d"
)

// SelfTest checks b against known-answer vectors.
func SelfTest(b Backend) error {
	key, _ := hex.DecodeString(katKey)
	plaintext, _ := hex.DecodeString(katPlaintext)
	ciphertext, _ := hex.DecodeString(katCiphertext)

	ct, err := b.EncryptBlock(key, plaintext)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBackendInit, err)
	}
	if !bytes.Equal(ct, ciphertext) {
		return fmt.Errorf("%w: AES encryption self test mismatch", ErrBackendInit)
	}
	pt, err := b.DecryptBlock(key, ciphertext)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBackendInit, err)
	}
	if !bytes.Equal(pt, plaintext) {
		return fmt.Errorf("%w: AES decryption self test mismatch", ErrBackendInit)
	}
	digest := b.SHA1([]byte(katSHA1Input))
	if hex.EncodeToString(digest[:]) != katSHA1Digest {
		return fmt.Errorf("%w: SHA-1 self test mismatch", ErrBackendInit)
	}
	var probe [8]byte
	if err := b.Random(probe[:]); err != nil {
		return fmt.Errorf("%w: entropy source unavailable: %s", ErrBackendInit, err)
	}
	return nil
}

var (
	initOnce   sync.Once
	initErr    error
	defaultImp Backend = &Native{}
)

// Init performs one-time process-wide initialization. It is safe to call from multiple
// goroutines; only the first call does any work and every call returns the same result.
func Init() error {
	initOnce.Do(func() {
		initErr = SelfTest(defaultImp)
		if initErr != nil {
			log.Error("Crypto backend unavailable: %s", initErr)
		} else {
			log.Debug("Crypto backend initialized")
		}
	})
	return initErr
}

// Default returns the process-wide backend, initializing it if necessary.
func Default() (Backend, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return defaultImp, nil
}

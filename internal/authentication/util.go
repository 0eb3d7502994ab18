package authentication

import (
	"fmt"

	"github.com/aacskit/aacs/internal/backend"
)

// TitleHash returns the SHA-1 digest of data.
func TitleHash(b backend.Backend, data []byte) [backend.DigestSize]byte {
	return b.SHA1(data)
}

// CreateNonce returns length unpredictable bytes.
func CreateNonce(b backend.Backend, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("invalid nonce length %d", length)
	}
	nonce := make([]byte, length)
	if err := b.Random(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

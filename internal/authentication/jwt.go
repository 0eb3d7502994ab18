package authentication

// Signs and verifies attestations made with a host key.

import (
	"encoding/base64"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/ecdsa"
	"github.com/golang-jwt/jwt/v5"
)

const AACSES160 = "AACS.ES160"

// SigningMethodAACS implements jwt.SigningMethod using ECDSA over the AACS curve with SHA-1.
// Signatures are the raw 40-byte r||s encoding.
type SigningMethodAACS struct{}

var es160 SigningMethodAACS // Singleton used for RegisterSigningMethod

func init() {
	jwt.RegisterSigningMethod(AACSES160, func() jwt.SigningMethod { return &es160 })
}

// Verify accepts either an *ecdsa.PublicKey or its 40-byte x||y encoding as key.
func (s *SigningMethodAACS) Verify(signingString string, signature []byte, key interface{}) error {
	var pub *ecdsa.PublicKey
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		pub = k
	case []byte:
		var err error
		if pub, err = ecdsa.UnmarshalPublicKey(k); err != nil {
			return err
		}
	default:
		return jwt.ErrInvalidKeyType
	}
	b, err := backend.Default()
	if err != nil {
		return err
	}
	if err := VerifyWithKey(b, pub, signature, []byte(signingString)); err != nil {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

func (s *SigningMethodAACS) Sign(signingString string, key interface{}) ([]byte, error) {
	skey, ok := key.(HostPrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	return skey.Sign([]byte(signingString))
}

func (s *SigningMethodAACS) Alg() string {
	return AACSES160
}

// SignMessage returns a JWT with the provided claims, signed by privateKey.
//
// The function overwrites the audience ("aud") and issuer ("iss") JWT claims. The issuer is the
// base64 encoding of the signer's public point.
func SignMessage(privateKey HostPrivateKey, message jwt.MapClaims, audience string) (string, error) {
	message["iss"] = base64.StdEncoding.EncodeToString(privateKey.PublicBytes())
	message["aud"] = audience
	token := jwt.New(&es160)
	token.Claims = message
	return token.SignedString(privateKey)
}

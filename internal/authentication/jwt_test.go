package authentication

import (
	"encoding/base64"
	"testing"

	"github.com/aacskit/aacs/internal/backend"
	"github.com/aacskit/aacs/internal/ecdsa"
	"github.com/golang-jwt/jwt/v5"
)

func TestSignMessage(t *testing.T) {
	b := &backend.Native{}
	key, err := UnmarshalHostKey(b, mustHex(t, hostScalar))
	if err != nil {
		t.Fatal(err)
	}
	signed, err := SignMessage(key, jwt.MapClaims{"foo": "bar"}, "org.aacs.drive")
	if err != nil {
		t.Fatal(err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) { return key.PublicBytes(), nil })
	if err != nil {
		t.Fatal(err)
	}
	if token.Method.Alg() != AACSES160 {
		t.Errorf("Unexpected algorithm %s", token.Method.Alg())
	}
	c, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("invalid claims type")
	}
	if fooStr, ok := c["foo"].(string); !ok || fooStr != "bar" {
		t.Fatalf("invalid type or value for foo: %v", c["foo"])
	}
	if iss, _ := c["iss"].(string); iss != base64.StdEncoding.EncodeToString(key.PublicBytes()) {
		t.Errorf("Unexpected issuer %s", iss)
	}
	if aud, err := c.GetAudience(); err != nil || len(aud) != 1 || aud[0] != "org.aacs.drive" {
		t.Errorf("Unexpected audience %v", aud)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	b := &backend.Native{}
	key, err := UnmarshalHostKey(b, mustHex(t, hostScalar))
	if err != nil {
		t.Fatal(err)
	}
	signed, err := SignMessage(key, jwt.MapClaims{}, "org.aacs.drive")
	if err != nil {
		t.Fatal(err)
	}
	other, err := ecdsa.UnmarshalPublicKey(mustHex(t, drivePublic))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) { return other, nil }); err == nil {
		t.Error("Token verified with the wrong key")
	}
	if _, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) { return "not a key", nil }); err == nil {
		t.Error("Token verified with an invalid key type")
	}
}

func TestSignRejectsInvalidKeyType(t *testing.T) {
	if _, err := es160.Sign("header.payload", []byte("secret")); err != jwt.ErrInvalidKeyType {
		t.Errorf("Expected ErrInvalidKeyType, got %v", err)
	}
}

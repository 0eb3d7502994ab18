// Package sign creates attestations signed by an AACS host key.
package sign

import (
	"encoding/hex"

	"github.com/aacskit/aacs/internal/authentication"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimsForDrive returns a JWT with the provided claims. Only the drive whose certificate carries
// driveID will accept the JWT. To create a JWT for any host application, use [ClaimsForHost].
//
// The function overwrites the audience ("aud") and issuer ("iss") JWT claims.
func ClaimsForDrive(privateKey authentication.HostPrivateKey, driveID []byte, app string, message jwt.MapClaims) (string, error) {
	return authentication.SignMessage(privateKey, message, "org.aacs.drive."+hex.EncodeToString(driveID)+"."+app)
}

// ClaimsForHost returns a JWT with the provided claims addressed to host applications named app.
//
// The function overwrites the audience ("aud") and issuer ("iss") JWT claims.
func ClaimsForHost(privateKey authentication.HostPrivateKey, app string, message jwt.MapClaims) (string, error) {
	// Issuers are identified by their public point
	return authentication.SignMessage(privateKey, message, "org.aacs.host."+app)
}

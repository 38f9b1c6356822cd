package signature

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ofscp/server/internal/apperr"
)

// Header is the parsed form of an X-OFSCP-Signature header value:
// `keyId="...",signature="..."`.
type Header struct {
	KeyID     string
	Signature string
}

// ParseHeader parses an X-OFSCP-Signature header value.
func ParseHeader(value string) (Header, error) {
	var h Header
	parts := strings.Split(value, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case strings.HasPrefix(p, `keyId="`):
			h.KeyID = strings.TrimSuffix(strings.TrimPrefix(p, `keyId="`), `"`)
		case strings.HasPrefix(p, `signature="`):
			h.Signature = strings.TrimSuffix(strings.TrimPrefix(p, `signature="`), `"`)
		}
	}
	if h.KeyID == "" || h.Signature == "" {
		return Header{}, apperr.SignatureInvalid("malformed signature header")
	}
	return h, nil
}

// ToHeaderValue renders h back into an X-OFSCP-Signature header value.
func (h Header) ToHeaderValue() string {
	return fmt.Sprintf(`keyId="%s",signature="%s"`, h.KeyID, h.Signature)
}

// Create signs message with signingKey and base64-encodes the result.
func Create(signingKey ed25519.PrivateKey, message []byte) string {
	sig := ed25519.Sign(signingKey, message)
	return base64.StdEncoding.EncodeToString(sig)
}

// Verify checks a base64-encoded Ed25519 signature against message using a
// base64-encoded public key.
func Verify(publicKeyB64, signatureB64 string, message []byte) error {
	pubBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return apperr.SignatureInvalid("malformed public key")
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return apperr.SignatureInvalid("malformed signature")
	}
	if !ed25519.Verify(ed25519.PublicKey(pubBytes), message, sigBytes) {
		return apperr.SignatureInvalid("signature verification failed")
	}
	return nil
}

package signature

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ofscp/server/internal/apperr"
)

// Verified is the actor identity established by a successful verification.
type Verified struct {
	UserID string // NormalizeActorID form: bare handle if local, "@handle@domain" if foreign
	KeyID  string
}

// Verifier checks signed HTTP requests against a Resolver, enforcing the
// clock-skew window from config.
type Verifier struct {
	resolver  *Resolver
	clockSkew time.Duration
}

func NewVerifier(resolver *Resolver, clockSkew time.Duration) *Verifier {
	return &Verifier{resolver: resolver, clockSkew: clockSkew}
}

// VerifyHeaders verifies a request signed via the X-OFSCP-* headers,
// following original_source's verify_ofscp_signature exactly: parse the
// signature header, read actor/timestamp headers, reconstruct the base
// with the request's method/path/body, verify, return the normalized actor.
func (v *Verifier) VerifyHeaders(ctx context.Context, method, path string, header http.Header, body []byte) (Verified, error) {
	sigHeader := header.Get(HeaderSignature)
	if sigHeader == "" {
		return Verified{}, apperr.SignatureInvalid("missing " + HeaderSignature)
	}
	parsed, err := ParseHeader(sigHeader)
	if err != nil {
		return Verified{}, err
	}

	actor := header.Get(HeaderActor)
	timestamp := header.Get(HeaderTimestamp)
	if actor == "" || timestamp == "" {
		return Verified{}, apperr.SignatureInvalid("missing actor or timestamp header")
	}

	if err := v.checkSkew(timestamp); err != nil {
		return Verified{}, err
	}

	pubKey, err := v.resolver.Resolve(ctx, actor, parsed.KeyID)
	if err != nil {
		return Verified{}, err
	}

	base := ConstructBase(method, path, timestamp, body)
	if err := Verify(pubKey, parsed.Signature, []byte(base)); err != nil {
		return Verified{}, err
	}

	return Verified{UserID: NormalizeActorID(actor, v.resolver.LocalDomain()), KeyID: parsed.KeyID}, nil
}

// VerifyQuery verifies a request signed via query-string parameters
// (actor, timestamp, keyId, signature), the form the WebSocket upgrade
// request uses since it cannot carry custom headers from a browser.
func (v *Verifier) VerifyQuery(ctx context.Context, rawQuery, path string) (Verified, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Verified{}, apperr.BadRequest("malformed query string")
	}

	actor := values.Get("actor")
	timestamp := values.Get("timestamp")
	keyID := values.Get("keyId")
	sig := values.Get("signature")
	if actor == "" || timestamp == "" || keyID == "" || sig == "" {
		return Verified{}, apperr.SignatureInvalid("missing actor, timestamp, keyId, or signature query parameter")
	}

	if err := v.checkSkew(timestamp); err != nil {
		return Verified{}, err
	}

	pubKey, err := v.resolver.Resolve(ctx, actor, keyID)
	if err != nil {
		return Verified{}, err
	}

	base := ConstructBase(http.MethodGet, path, timestamp, nil)
	if err := Verify(pubKey, sig, []byte(base)); err != nil {
		return Verified{}, err
	}

	return Verified{UserID: NormalizeActorID(actor, v.resolver.LocalDomain()), KeyID: keyID}, nil
}

func (v *Verifier) checkSkew(timestamp string) error {
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return apperr.BadRequest("timestamp is not RFC3339")
	}
	diff := time.Since(ts)
	if math.Abs(diff.Minutes()) > v.clockSkew.Minutes() {
		return apperr.SignatureInvalid("timestamp outside allowed clock skew window")
	}
	return nil
}

// IdempotencyKeyFromHeader reads and trims the Idempotency-Key header.
func IdempotencyKeyFromHeader(header http.Header) string {
	return strings.TrimSpace(header.Get(HeaderIdempotencyKey))
}

package middleware

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/signature"
)

type fakeLookup struct {
	handle    string
	publicKey string
}

func (f fakeLookup) LookupActiveKey(ctx context.Context, handle, keyID string) (domain.DeviceKey, error) {
	if handle == f.handle {
		return domain.DeviceKey{KeyID: keyID, UserHandle: handle, PublicKey: f.publicKey}, nil
	}
	return domain.DeviceKey{}, assertNever{}
}

type assertNever struct{}

func (assertNever) Error() string { return "unexpected handle" }

func TestVerifySignatureRejectsMissingHeaders(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	resolver := signature.NewResolver(fakeLookup{handle: "alice", publicKey: base64.StdEncoding.EncodeToString(pub)}, "home.example", time.Second, nil)
	verifier := signature.NewVerifier(resolver, 5*time.Minute)

	handler := VerifySignature(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me/groups", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySignatureAcceptsValidRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	resolver := signature.NewResolver(fakeLookup{handle: "alice", publicKey: base64.StdEncoding.EncodeToString(pub)}, "home.example", time.Second, nil)
	verifier := signature.NewVerifier(resolver, 5*time.Minute)

	var gotActor string
	handler := VerifySignature(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	method := http.MethodGet
	path := "/api/me/groups"
	timestamp := time.Now().UTC().Format(time.RFC3339)
	base := signature.ConstructBase(method, path, timestamp, nil)
	sig := signature.Create(priv, []byte(base))

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(signature.HeaderActor, "alice")
	req.Header.Set(signature.HeaderTimestamp, timestamp)
	req.Header.Set(signature.HeaderSignature, `keyId="k1",signature="`+sig+`"`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", gotActor)
}

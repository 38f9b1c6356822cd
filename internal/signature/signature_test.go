package signature

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

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
)

type stubLocalLookup struct {
	keysByHandleAndID map[string]domain.DeviceKey
}

func (s stubLocalLookup) LookupActiveKey(_ context.Context, handle, keyID string) (domain.DeviceKey, error) {
	key, ok := s.keysByHandleAndID[handle+"/"+keyID]
	if !ok {
		return domain.DeviceKey{}, apperr.NotFound("key not found")
	}
	return key, nil
}

func genKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv, base64.StdEncoding.EncodeToString(pub)
}

func TestHeaderParseRoundTrip(t *testing.T) {
	h := Header{KeyID: "dk_abc", Signature: "c2lnbmF0dXJl"}
	parsed, err := ParseHeader(h.ToHeaderValue())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, pubB64 := genKeyPair(t)
	_ = pub
	base := ConstructBase(http.MethodPost, "/api/groups", time.Now().UTC().Format(time.RFC3339), []byte(`{"a":1}`))
	sig := Create(priv, []byte(base))
	assert.NoError(t, Verify(pubB64, sig, []byte(base)))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	_, priv, pubB64 := genKeyPair(t)
	ts := time.Now().UTC().Format(time.RFC3339)
	base := ConstructBase(http.MethodPost, "/api/groups", ts, []byte(`{"a":1}`))
	sig := Create(priv, []byte(base))

	tamperedBase := ConstructBase(http.MethodPost, "/api/groups", ts, []byte(`{"a":2}`))
	assert.Error(t, Verify(pubB64, sig, []byte(tamperedBase)))
}

func TestNormalizeActorID(t *testing.T) {
	assert.Equal(t, "alice", NormalizeActorID("@alice@example.com", "example.com"))
	assert.Equal(t, "@alice@remote.example", NormalizeActorID("@alice@remote.example", "example.com"))
	assert.Equal(t, "alice", NormalizeActorID("alice", "example.com"))
}

func TestIsLocalAddress(t *testing.T) {
	assert.True(t, domain.IsLocalAddress("localhost:8080"))
	assert.True(t, domain.IsLocalAddress("192.168.1.5"))
	assert.False(t, domain.IsLocalAddress("example.com"))
}

func TestVerifyHeadersEndToEnd(t *testing.T) {
	_, priv, pubB64 := genKeyPair(t)
	lookup := stubLocalLookup{keysByHandleAndID: map[string]domain.DeviceKey{
		"alice/dk_1": {KeyID: "dk_1", UserHandle: "alice", PublicKey: pubB64},
	}}
	resolver := NewResolver(lookup, "example.test", 5*time.Second, nil)
	verifier := NewVerifier(resolver, 5*time.Minute)

	ts := time.Now().UTC().Format(time.RFC3339)
	body := []byte(`{"name":"general"}`)
	base := ConstructBase(http.MethodPost, "/api/groups", ts, body)
	sig := Create(priv, []byte(base))

	req := httptest.NewRequest(http.MethodPost, "/api/groups", nil)
	req.Header.Set(HeaderActor, "alice")
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, Header{KeyID: "dk_1", Signature: sig}.ToHeaderValue())

	verified, err := verifier.VerifyHeaders(context.Background(), http.MethodPost, "/api/groups", req.Header, body)
	require.NoError(t, err)
	assert.Equal(t, "alice", verified.UserID)
	assert.Equal(t, "dk_1", verified.KeyID)
}

func TestVerifyHeadersRejectsStaleTimestamp(t *testing.T) {
	_, priv, pubB64 := genKeyPair(t)
	lookup := stubLocalLookup{keysByHandleAndID: map[string]domain.DeviceKey{
		"alice/dk_1": {KeyID: "dk_1", UserHandle: "alice", PublicKey: pubB64},
	}}
	resolver := NewResolver(lookup, "example.test", 5*time.Second, nil)
	verifier := NewVerifier(resolver, 5*time.Minute)

	staleTs := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
	body := []byte(`{}`)
	base := ConstructBase(http.MethodGet, "/api/groups", staleTs, body)
	sig := Create(priv, []byte(base))

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	req.Header.Set(HeaderActor, "alice")
	req.Header.Set(HeaderTimestamp, staleTs)
	req.Header.Set(HeaderSignature, Header{KeyID: "dk_1", Signature: sig}.ToHeaderValue())

	_, err := verifier.VerifyHeaders(context.Background(), http.MethodGet, "/api/groups", req.Header, body)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindSignatureInvalid, appErr.Kind)
}

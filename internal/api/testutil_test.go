package api

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/federation"
	"github.com/ofscp/server/internal/graph"
	"github.com/ofscp/server/internal/identity"
	"github.com/ofscp/server/internal/middleware"
	"github.com/ofscp/server/internal/realtime"
	"github.com/ofscp/server/internal/signature"
	"github.com/ofscp/server/internal/store/memstore"
)

// testApp wires a complete, in-process OFSCP instance over memstore,
// exactly what cmd/server/main.go wires against a real backend.
type testApp struct {
	domain string
	srv    *httptest.Server
	ident  *identity.Registry
	graph  *graph.Graph
}

// buildServer wires a complete Server over a fresh memstore, exactly what
// cmd/server/main.go wires against a real backend, without starting an
// HTTP listener for it.
func buildServer(domain string) (*Server, *identity.Registry, *graph.Graph) {
	db := memstore.New()
	hasher := identity.NewPasswordHasher(1, 8*1024, 1)
	ident := identity.NewRegistry(db, hasher, domain)
	g := graph.New(db)
	peers := federation.NewPeerLedger(db)
	resolver := signature.NewResolver(ident, domain, 2*time.Second, []string{"127.0.0.1"})
	verifier := signature.NewVerifier(resolver, 5*time.Minute)
	router := federation.NewRouter(domain, 2*time.Second, []string{"127.0.0.1"}, ident, g, peers)
	hubs := realtime.NewRegistry()
	rt := realtime.NewServer(hubs, g, verifier)
	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{MaxCallsPerMinute: 1000, BurstSize: 1000})

	return NewServer(domain, ident, g, router, peers, verifier, rt, rl), ident, g
}

func newTestApp(t *testing.T, domain string) *testApp {
	t.Helper()
	server, ident, g := buildServer(domain)
	httpSrv := httptest.NewServer(server.Router())

	return &testApp{domain: domain, srv: httpSrv, ident: ident, graph: g}
}

// newTestAppOnOwnAddress wires an app whose domain is its own listen
// address, the way a federation scenario needs: a remote instance must be
// able to dial this instance's domain to resolve its public keys, so the
// domain and the address it actually listens on must be the same string.
func newTestAppOnOwnAddress(t *testing.T) *testApp {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	domain := listener.Addr().String()

	server, ident, g := buildServer(domain)
	httpSrv := httptest.NewUnstartedServer(server.Router())
	httpSrv.Listener.Close()
	httpSrv.Listener = listener
	httpSrv.Start()

	return &testApp{domain: domain, srv: httpSrv, ident: ident, graph: g}
}

func (a *testApp) close() { a.srv.Close() }

// registeredUser is an account created through the HTTP register endpoint,
// keeping the device keypair and assigned keyId a signed request needs.
type registeredUser struct {
	handle string
	pub    ed25519.PublicKey
	priv   ed25519.PrivateKey
	keyID  string
}

// registerUser registers handle/password and returns its Ed25519 device
// keypair (generated client-side, as a real OFSCP client would) plus the
// keyId the server assigned to it.
func (a *testApp) registerUser(t *testing.T, handle, password string) registeredUser {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{
		"handle":          handle,
		"password":        password,
		"devicePublicKey": base64.StdEncoding.EncodeToString(pub),
		"deviceName":      "test-device",
	})
	resp, err := http.Post(a.srv.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var decoded struct {
		UserID string `json:"userId"`
		KeyID  string `json:"keyId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotEmpty(t, decoded.KeyID)

	return registeredUser{handle: handle, pub: pub, priv: priv, keyID: decoded.KeyID}
}

// signedRequest builds an HTTP request against this app's server, signed
// as u with u's device key, the same way a real client signs every
// authenticated OFSCP call.
func (a *testApp) signedRequest(t *testing.T, method, path string, u registeredUser, body []byte) *http.Request {
	t.Helper()
	timestamp := time.Now().UTC().Format(time.RFC3339)
	base := signature.ConstructBase(method, path, timestamp, body)
	sig := signature.Create(u.priv, []byte(base))

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader([]byte{})
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set(signature.HeaderActor, u.handle)
	req.Header.Set(signature.HeaderTimestamp, timestamp)
	req.Header.Set(signature.HeaderSignature, `keyId="`+u.keyID+`",signature="`+sig+`"`)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

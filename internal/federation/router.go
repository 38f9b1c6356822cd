// Package federation implements the Federation Router: outbound
// cross-instance calls signed with a server-held delegate key, remote
// capability discovery, and the cross-instance group-join flow — grounded
// on original_source/crates/server/src/federation.rs for the join sequence
// and on the teacher's now-removed internal/federation/handshake.go for the
// outbound-HTTP-with-typed-outcome shape, generalized from a single
// SPIFFE-authenticated peer handshake to a per-call signed request against
// any OFSCP-speaking remote domain.
package federation

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/graph"
	"github.com/ofscp/server/internal/identity"
	"github.com/ofscp/server/internal/metrics"
	"github.com/ofscp/server/internal/signature"
)

// Router mediates every outbound call this instance makes to a remote
// OFSCP instance on behalf of a local user.
type Router struct {
	localDomain          string
	localAddressPrefixes []string
	httpClient           *http.Client
	identity             *identity.Registry
	graph                *graph.Graph
	peers                *PeerLedger
}

func NewRouter(localDomain string, outboundTimeout time.Duration, localAddressPrefixes []string, ident *identity.Registry, g *graph.Graph, peers *PeerLedger) *Router {
	return &Router{
		localDomain:          localDomain,
		localAddressPrefixes: localAddressPrefixes,
		httpClient:           &http.Client{Timeout: outboundTimeout},
		identity:             ident,
		graph:                g,
		peers:                peers,
	}
}

func (r *Router) scheme(host string) string {
	if domain.IsLocalAddress(host, r.localAddressPrefixes...) {
		return "http"
	}
	return "https"
}

// Discover fetches remoteHost's discovery document.
func (r *Router) Discover(ctx context.Context, remoteHost string) (domain.DiscoveryDocument, error) {
	url := fmt.Sprintf("%s://%s/.well-known/ofscp-provider", r.scheme(remoteHost), remoteHost)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.DiscoveryDocument{}, apperr.RemoteUnreachable(err.Error())
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.peers.RecordOutcome(ctx, remoteHost, false, err)
		return domain.DiscoveryDocument{}, apperr.RemoteUnreachable(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("discovery returned status %d", resp.StatusCode)
		r.peers.RecordOutcome(ctx, remoteHost, false, err)
		return domain.DiscoveryDocument{}, apperr.RemoteUnreachable(err.Error())
	}

	var doc domain.DiscoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		r.peers.RecordOutcome(ctx, remoteHost, false, err)
		return domain.DiscoveryDocument{}, apperr.RemoteUnreachable("malformed discovery document")
	}
	r.peers.RecordOutcome(ctx, remoteHost, true, nil)
	return doc, nil
}

// JoinResult reports the outcome of a cross-instance join: either side
// (the remote accept, or the local bookmark write) can fail independently,
// and callers must surface the two outcomes separately rather than
// collapsing them into one opaque error.
type JoinResult struct {
	RemoteAccepted  bool   `json:"remoteAccepted"`
	LocalBookmarked bool   `json:"localBookmarked"`
	RemoteError     string `json:"remoteError,omitempty"`
	LocalError      string `json:"localError,omitempty"`
}

// JoinRemoteGroup signs a join request as userHandle (via their delegate
// key) and POSTs it to remoteHost, bookmarking the group locally on
// acceptance. Partial success is reported through JoinResult rather than
// a single error: a remote accept with a failed local bookmark is not the
// same failure as a rejected join.
func (r *Router) JoinRemoteGroup(ctx context.Context, userHandle, remoteHost, groupID string) (JoinResult, error) {
	_, priv, err := r.identity.EnsureDelegateKey(ctx, userHandle)
	if err != nil {
		return JoinResult{}, err
	}

	path := fmt.Sprintf("/api/groups/%s/join", groupID)
	actor := "@" + userHandle + "@" + r.localDomain
	resp, callErr := r.signedRequest(ctx, priv, actor, http.MethodPost, remoteHost, path, nil)

	result := JoinResult{}
	if callErr != nil {
		result.RemoteError = callErr.Error()
		r.peers.RecordOutcome(ctx, remoteHost, false, callErr)
		return result, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		remoteErr := fmt.Errorf("remote rejected join with status %d: %s", resp.StatusCode, string(body))
		result.RemoteError = remoteErr.Error()
		r.peers.RecordOutcome(ctx, remoteHost, false, remoteErr)
		return result, nil
	}

	result.RemoteAccepted = true
	r.peers.RecordOutcome(ctx, remoteHost, true, nil)

	var groupName string
	var grp domain.Group
	if err := json.NewDecoder(resp.Body).Decode(&grp); err == nil {
		groupName = grp.Name
	}
	if groupName == "" {
		groupName = groupID
	}

	bookmarkErr := r.graph.AddJoinedGroup(ctx, userHandle, domain.AddJoinedGroupRequest{
		GroupID: groupID,
		Host:    remoteHost,
		Name:    groupName,
	})
	if bookmarkErr != nil {
		result.LocalError = bookmarkErr.Error()
		return result, nil
	}
	result.LocalBookmarked = true
	return result, nil
}

// signedRequest builds and sends a signed outbound request, recording the
// outbound-call metric regardless of outcome.
func (r *Router) signedRequest(ctx context.Context, signingKey ed25519.PrivateKey, actor, method, remoteHost, path string, body []byte) (*http.Response, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	base := signature.ConstructBase(method, path, timestamp, body)
	sig := signature.Create(signingKey, []byte(base))

	url := fmt.Sprintf("%s://%s%s", r.scheme(remoteHost), remoteHost, path)
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		metrics.FederationOutboundTotal.WithLabelValues(remoteHost, "build_error").Inc()
		return nil, err
	}
	req.Header.Set(signature.HeaderActor, actor)
	req.Header.Set(signature.HeaderTimestamp, timestamp)
	req.Header.Set(signature.HeaderSignature, fmt.Sprintf(`keyId="delegate",signature="%s"`, sig))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.FederationOutboundTotal.WithLabelValues(remoteHost, "unreachable").Inc()
		return nil, err
	}
	outcome := "ok"
	if resp.StatusCode/100 != 2 {
		outcome = "rejected"
	}
	metrics.FederationOutboundTotal.WithLabelValues(remoteHost, outcome).Inc()
	return resp, nil
}

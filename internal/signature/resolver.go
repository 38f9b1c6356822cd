package signature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
)

// LocalKeyLookup resolves a device key hosted by this instance.
type LocalKeyLookup interface {
	LookupActiveKey(ctx context.Context, handle, keyID string) (domain.DeviceKey, error)
}

// cachedKey is one remote-fetched public key, held until CacheUntil.
type cachedKey struct {
	publicKey  string
	cacheUntil time.Time
}

// Resolver fetches the public key for a (actor, keyId) pair: a local
// lookup for actors of this instance's domain, the remote actor's
// well-known key discovery endpoint for any other domain, caching remote
// results in process until their advertised cache_until.
type Resolver struct {
	local                LocalKeyLookup
	localDomain          string
	localAddressPrefixes []string
	httpClient           *http.Client

	mu    sync.RWMutex
	cache map[string]cachedKey
}

func NewResolver(local LocalKeyLookup, localDomain string, outboundTimeout time.Duration, localAddressPrefixes []string) *Resolver {
	return &Resolver{
		local:                local,
		localDomain:          localDomain,
		localAddressPrefixes: localAddressPrefixes,
		httpClient:           &http.Client{Timeout: outboundTimeout},
		cache:                make(map[string]cachedKey),
	}
}

// LocalDomain returns the domain this resolver treats as home.
func (r *Resolver) LocalDomain() string { return r.localDomain }

// Resolve returns the base64 public key for keyID belonging to actor. A
// local-domain actor is looked up in the local registry only (a miss is
// SignatureInvalid, with no remote fallback); a foreign actor is resolved
// through the cache or its home instance's discovery endpoint.
func (r *Resolver) Resolve(ctx context.Context, actor, keyID string) (string, error) {
	handle, domain := SplitActor(actor, r.localDomain)

	if domain == r.localDomain {
		key, err := r.local.LookupActiveKey(ctx, handle, keyID)
		if err != nil {
			return "", apperr.SignatureInvalid("unknown local key")
		}
		return key.PublicKey, nil
	}

	cacheKey := domain + "/" + handle + "/" + keyID
	r.mu.RLock()
	if cached, ok := r.cache[cacheKey]; ok && time.Now().Before(cached.cacheUntil) {
		r.mu.RUnlock()
		return cached.publicKey, nil
	}
	r.mu.RUnlock()

	pubKey, cacheUntil, err := r.fetchRemote(ctx, domain, handle, keyID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[cacheKey] = cachedKey{publicKey: pubKey, cacheUntil: cacheUntil}
	r.mu.Unlock()

	return pubKey, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, remoteDomain, handle, keyID string) (string, time.Time, error) {
	scheme := "https"
	if domain.IsLocalAddress(remoteDomain, r.localAddressPrefixes...) {
		scheme = "http"
	}
	url := fmt.Sprintf("%s://%s/.well-known/ofscp/users/%s/keys", scheme, remoteDomain, handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", time.Time{}, apperr.RemoteUnreachable("build key discovery request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, apperr.RemoteUnreachable("fetch remote public key: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", time.Time{}, apperr.SignatureInvalid("remote actor or key not found")
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, apperr.RemoteUnreachable(fmt.Sprintf("remote key discovery returned status %d", resp.StatusCode))
	}

	var body domain.PublicKeyDiscoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, apperr.RemoteUnreachable("decode key discovery response")
	}

	for _, k := range body.Keys {
		if k.KeyID == keyID {
			return k.PublicKey, body.CacheUntil, nil
		}
	}
	return "", time.Time{}, apperr.SignatureInvalid("remote key not found")
}

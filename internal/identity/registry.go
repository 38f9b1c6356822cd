package identity

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store"
)

// Registry implements account registration/login and device-key lifecycle
// against a store.DocumentStore, following the exact semantics of
// forumall's auth/device_keys routes (key-id prefixes, revoked-key
// filtering on discovery, non-distinguishing login failures).
type Registry struct {
	db     store.DocumentStore
	hasher *PasswordHasher
	domain string
}

func NewRegistry(db store.DocumentStore, hasher *PasswordHasher, localDomain string) *Registry {
	return &Registry{db: db, hasher: hasher, domain: localDomain}
}

// Register creates a new local account and, optionally, its first device
// key. Returns the FQID user id and the registered key id, if any.
func (r *Registry) Register(ctx context.Context, req domain.RegisterRequest) (domain.LoginResponse, error) {
	if !domain.ValidateResourceName(req.Handle) {
		return domain.LoginResponse{}, apperr.InvalidName("handle must be lowercase alphanumeric plus . _ -")
	}
	if req.Password == "" {
		return domain.LoginResponse{}, apperr.BadRequest("password is required")
	}

	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		Handle:       req.Handle,
		Domain:       r.domain,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.Insert(ctx, store.CollectionUsers, req.Handle, user); err != nil {
		return domain.LoginResponse{}, err
	}

	resp := domain.LoginResponse{UserID: "@" + req.Handle + "@" + r.domain}
	if req.DevicePublicKey != "" {
		keyID, err := r.registerDeviceKey(ctx, req.Handle, req.DevicePublicKey, req.DeviceName)
		if err != nil {
			return domain.LoginResponse{}, err
		}
		resp.KeyID = keyID
	}
	return resp, nil
}

// Login verifies a handle/password pair. Unknown handle and wrong password
// both surface as the same generic apperr.AuthFailure, per §4.A/§7: the
// two causes must not be distinguishable externally.
func (r *Registry) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	var user domain.User
	if err := r.db.Get(ctx, store.CollectionUsers, req.Handle, &user); err != nil {
		return domain.LoginResponse{}, apperr.AuthFailure("invalid handle or password")
	}
	if !r.hasher.Verify(req.Password, user.PasswordHash) {
		return domain.LoginResponse{}, apperr.AuthFailure("invalid handle or password")
	}

	resp := domain.LoginResponse{UserID: "@" + req.Handle + "@" + r.domain}
	if req.DevicePublicKey != "" {
		keyID, err := r.registerDeviceKey(ctx, req.Handle, req.DevicePublicKey, req.DeviceName)
		if err != nil {
			return domain.LoginResponse{}, err
		}
		resp.KeyID = keyID
	}
	return resp, nil
}

func (r *Registry) registerDeviceKey(ctx context.Context, handle, publicKey, deviceName string) (string, error) {
	if deviceName == "" {
		deviceName = "Unknown device"
	}
	keyID := "dk_" + uuid.NewString()
	now := time.Now().UTC()
	key := domain.DeviceKey{
		KeyID:      keyID,
		UserHandle: handle,
		PublicKey:  publicKey,
		DeviceName: deviceName,
		CreatedAt:  now,
		LastUsedAt: now,
		Revoked:    false,
	}
	if err := r.db.Insert(ctx, store.CollectionDeviceKeys, keyID, key); err != nil {
		return "", err
	}
	return keyID, nil
}

// RegisterDeviceKey registers an additional device key for an already
// authenticated user.
func (r *Registry) RegisterDeviceKey(ctx context.Context, handle string, req domain.RegisterDeviceKeyRequest) (string, error) {
	if req.PublicKey == "" || req.DeviceName == "" {
		return "", apperr.BadRequest("publicKey and deviceName are required")
	}
	return r.registerDeviceKey(ctx, handle, req.PublicKey, req.DeviceName)
}

// ListDeviceKeys returns every device key (including revoked ones)
// belonging to handle.
func (r *Registry) ListDeviceKeys(ctx context.Context, handle string) ([]domain.DeviceKey, error) {
	var keys []domain.DeviceKey
	if err := r.db.Query(ctx, store.CollectionDeviceKeys, store.Filter{"userHandle": handle}, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// RevokeDeviceKey revokes keyID if it belongs to handle, else NotFound —
// a combined ownership+existence check collapsed into one error per the
// original's "Key not found or unauthorized" behavior.
func (r *Registry) RevokeDeviceKey(ctx context.Context, handle, keyID string) error {
	var key domain.DeviceKey
	if err := r.db.Get(ctx, store.CollectionDeviceKeys, keyID, &key); err != nil {
		return apperr.NotFound("key not found or unauthorized")
	}
	if key.UserHandle != handle {
		return apperr.NotFound("key not found or unauthorized")
	}
	return r.db.Update(ctx, store.CollectionDeviceKeys, keyID, map[string]interface{}{"revoked": true})
}

// PublicKeys returns the non-revoked device keys for handle, the shape
// served at the public key-discovery endpoint.
func (r *Registry) PublicKeys(ctx context.Context, handle string) (domain.PublicKeyDiscoveryResponse, error) {
	var keys []domain.DeviceKey
	if err := r.db.Query(ctx, store.CollectionDeviceKeys, store.Filter{"userHandle": handle, "revoked": false}, &keys); err != nil {
		return domain.PublicKeyDiscoveryResponse{}, err
	}

	out := make([]domain.DiscoveryKey, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, domain.DiscoveryKey{
			KeyID:     k.KeyID,
			Algorithm: string(domain.PublicKeyAlgEd25519),
			PublicKey: k.PublicKey,
			CreatedAt: k.CreatedAt.Format(time.RFC3339),
		})
	}

	// The federation delegate key, if one has been provisioned, is a
	// discoverable key like any other device key — the Federation Router
	// only relies on a remote being able to resolve it the same way.
	var delegate domain.FederationDelegateKey
	if err := r.db.Get(ctx, store.CollectionFederationDelegateKeys, handle, &delegate); err == nil {
		out = append(out, domain.DiscoveryKey{
			KeyID:     "delegate",
			Algorithm: string(domain.PublicKeyAlgEd25519),
			PublicKey: delegate.PublicKey,
			CreatedAt: delegate.CreatedAt.Format(time.RFC3339),
		})
	}

	return domain.PublicKeyDiscoveryResponse{
		Actor:      "@" + handle + "@" + r.domain,
		Keys:       out,
		CacheUntil: time.Now().UTC().Add(time.Hour),
	}, nil
}

// LookupActiveKey finds a non-revoked key by id, scoped to handle — used
// by the signature engine's local key-resolution path. keyID "delegate"
// resolves against the federation delegate key rather than an ordinary
// device key, since outbound federation calls are signed with the former.
func (r *Registry) LookupActiveKey(ctx context.Context, handle, keyID string) (domain.DeviceKey, error) {
	if keyID == "delegate" {
		var delegate domain.FederationDelegateKey
		if err := r.db.Get(ctx, store.CollectionFederationDelegateKeys, handle, &delegate); err != nil {
			return domain.DeviceKey{}, apperr.NotFound("key not found")
		}
		return domain.DeviceKey{KeyID: "delegate", UserHandle: handle, PublicKey: delegate.PublicKey, CreatedAt: delegate.CreatedAt}, nil
	}

	var keys []domain.DeviceKey
	if err := r.db.Query(ctx, store.CollectionDeviceKeys, store.Filter{
		"userHandle": handle, "keyId": keyID, "revoked": false,
	}, &keys); err != nil {
		return domain.DeviceKey{}, err
	}
	if len(keys) == 0 {
		return domain.DeviceKey{}, apperr.NotFound("key not found")
	}
	return keys[0], nil
}

// EnsureDelegateKey returns handle's federation delegate keypair, generating
// and persisting one on first use. The Federation Router signs outbound
// relayed requests with this key rather than the user's own device key,
// which this instance never holds.
func (r *Registry) EnsureDelegateKey(ctx context.Context, handle string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	var existing domain.FederationDelegateKey
	if err := r.db.Get(ctx, store.CollectionFederationDelegateKeys, handle, &existing); err == nil {
		pub, err := base64.StdEncoding.DecodeString(existing.PublicKey)
		if err != nil {
			return nil, nil, apperr.PersistenceFault("corrupt delegate public key", err)
		}
		priv, err := base64.StdEncoding.DecodeString(existing.PrivateKey)
		if err != nil {
			return nil, nil, apperr.PersistenceFault("corrupt delegate private key", err)
		}
		return ed25519.PublicKey(pub), ed25519.PrivateKey(priv), nil
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, apperr.PersistenceFault("failed to generate delegate key", err)
	}
	rec := domain.FederationDelegateKey{
		UserHandle: handle,
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		PrivateKey: base64.StdEncoding.EncodeToString(priv),
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.Insert(ctx, store.CollectionFederationDelegateKeys, handle, rec); err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// GetProfile returns the public profile for handle.
func (r *Registry) GetProfile(ctx context.Context, handle string) (domain.UserProfile, error) {
	var user domain.User
	if err := r.db.Get(ctx, store.CollectionUsers, handle, &user); err != nil {
		return domain.UserProfile{}, err
	}
	return domain.UserProfile{
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}, nil
}

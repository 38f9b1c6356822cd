// Package store defines the persistence façade: a typed document-store
// contract every OFSCP component persists through, generalized from the
// ocx backend's pattern of wrapping one external data client behind typed
// per-table methods (internal/database/supabase.go in the teacher) into an
// interface with interchangeable backends.
package store

import "context"

// Filter narrows a Query/Update/Delete to documents whose fields match.
// Equality only — the façade offers no range queries; message pagination
// (graph.ListMessages) queries a channel's messages by equality and orders
// and slices them itself.
type Filter map[string]interface{}

// DocumentStore is the persistence façade every domain package depends on.
// Implementations must enforce uniqueness invariants (e.g. a group id, a
// user handle, a device key id) atomically within Insert itself — not as a
// separate check-then-insert at the call site — per the façade's central
// invariant.
type DocumentStore interface {
	// Insert adds doc to collection under id, returning an apperr Conflict
	// error if a document with that id already exists in the collection.
	Insert(ctx context.Context, collection string, id string, doc interface{}) error

	// Get fetches one document by id. Returns an apperr NotFound error if
	// absent.
	Get(ctx context.Context, collection string, id string, out interface{}) error

	// Query returns every document in collection matching filter, decoded
	// into the slice pointed to by out (a *[]T).
	Query(ctx context.Context, collection string, filter Filter, out interface{}) error

	// Update applies a partial field update to one document by id.
	Update(ctx context.Context, collection string, id string, fields map[string]interface{}) error

	// Delete removes one document by id. A missing document is not an error.
	Delete(ctx context.Context, collection string, id string) error

	// DeleteWhere removes every document in collection matching filter.
	DeleteWhere(ctx context.Context, collection string, filter Filter) error

	// Close releases any resources held by the backend.
	Close() error
}

// Collection names: the original schema's collection set
// (original_source/crates/server/src/db.rs), plus the two federation
// collections (delegate keys, peer records) this module adds.
const (
	CollectionUsers           = "users"
	CollectionGroups          = "groups"
	CollectionGroupMembers    = "group_members"
	CollectionChannels        = "channels"
	CollectionMessages        = "messages"
	CollectionIdempotencyKeys = "idempotency_keys"
	CollectionUserJoinedGroups = "user_joined_groups"
	CollectionDeviceKeys      = "device_keys"
	CollectionPresence        = "presence"
	CollectionPrivacySettings = "privacy_settings"
	CollectionFederationDelegateKeys = "federation_delegate_keys"
	CollectionFederationPeers        = "federation_peers"
)

// Package domain holds the OFSCP data model: the records persisted by the
// store and the shapes exchanged over HTTP and the realtime plane.
package domain

import "time"

// User is a local account. Handles are unique per instance and validated
// with ValidateResourceName.
type User struct {
	Handle       string    `json:"handle"`
	Domain       string    `json:"domain"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FQID renders the fully qualified identity for this user.
func (u User) FQID(localDomain string) string {
	return NormalizeFQID(u.Handle, u.Domain, localDomain)
}

// NormalizeFQID renders a bare handle when domain matches the local
// instance and a qualified "@handle@domain" form otherwise.
func NormalizeFQID(handle, domain, localDomain string) string {
	if domain == "" || domain == localDomain {
		return handle
	}
	return "@" + handle + "@" + domain
}

// DeviceKey is a per-device Ed25519 public key registered to a user.
type DeviceKey struct {
	KeyID      string    `json:"keyId"`
	UserHandle string    `json:"userHandle"`
	PublicKey  string    `json:"publicKey"` // base64 standard encoding
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	Revoked    bool      `json:"revoked"`
}

// JoinPolicy controls whether JoinGroup succeeds for a non-member.
type JoinPolicy string

const (
	JoinPolicyOpen   JoinPolicy = "open"
	JoinPolicyClosed JoinPolicy = "closed"
)

// Group is a community hosted by this instance.
type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	JoinPolicy  JoinPolicy `json:"joinPolicy"`
	Owner       string     `json:"owner"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// MemberRole distinguishes the group owner from ordinary members.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// GroupMember records a user's membership in a group.
type GroupMember struct {
	GroupID  string     `json:"groupId"`
	UserID   string     `json:"userId"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

// MessageType distinguishes the three content shapes a channel can carry.
type MessageType string

const (
	MessageTypeMessage MessageType = "message"
	MessageTypeMemo    MessageType = "memo"
	MessageTypeArticle MessageType = "article"
)

// MessageTypePolicy restricts which message types may be posted as roots
// versus replies in a channel. A nil/empty slice means "all types allowed".
type MessageTypePolicy struct {
	RootTypes  []MessageType `json:"rootTypes,omitempty"`
	ReplyTypes []MessageType `json:"replyTypes,omitempty"`
}

// Allows reports whether t is permitted at the given position.
func (p MessageTypePolicy) Allows(t MessageType, isReply bool) bool {
	allowed := p.RootTypes
	if isReply {
		allowed = p.ReplyTypes
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// Channel is a message stream scoped to a group.
type Channel struct {
	ID        string            `json:"id"`
	GroupID   string            `json:"groupId"`
	Name      string            `json:"name"`
	Topic     string            `json:"topic,omitempty"`
	Policy    MessageTypePolicy `json:"messageTypePolicy,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Message is a single posted item in a channel.
type Message struct {
	ID            string      `json:"id"`
	ChannelID     string      `json:"channelId"`
	SenderUserID  string      `json:"senderUserId"`
	Title         string      `json:"title,omitempty"`
	Body          string      `json:"body"`
	MessageType   MessageType `json:"messageType"`
	ParentID      string      `json:"parentId,omitempty"`
	IdempotencyID string      `json:"-"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// UserJoinedGroup records a group (local or remote) a user has bookmarked
// as joined, independent of local GroupMember rows.
type UserJoinedGroup struct {
	UserID    string    `json:"userId"`
	GroupID   string    `json:"groupId"`
	Host      string    `json:"host,omitempty"` // empty for locally hosted groups
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// IdempotencyKey records that a (user, key) pair has already produced a
// message, so retried creates return the original result.
type IdempotencyKey struct {
	UserID    string    `json:"userId"`
	Key       string    `json:"key"`
	MessageID string    `json:"messageId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FederationDelegateKey is a server-held Ed25519 keypair the Federation
// Router signs outbound relayed requests with on a user's behalf. It is
// distinct from the user's own device keys (which remain client-held per
// the no-local-key-storage non-goal): a delegate key only ever signs
// requests this instance itself already authenticated the user for, such
// as a cross-instance group join initiated through this instance's API.
type FederationDelegateKey struct {
	UserHandle string    `json:"userHandle"`
	PublicKey  string    `json:"publicKey"`  // base64 standard encoding
	PrivateKey string    `json:"privateKey"` // base64 standard encoding
	CreatedAt  time.Time `json:"createdAt"`
}

// PeerRecord tracks this instance's outbound-reliability history with one
// remote domain, fed by every federation call the Router makes.
type PeerRecord struct {
	Domain       string    `json:"domain"`
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	LastError    string    `json:"lastError,omitempty"`
}

// PresenceState is the coarse online/away/offline status a user publishes.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceAway    PresenceState = "away"
	PresenceOffline PresenceState = "offline"
)

// Presence is a user's last published status.
type Presence struct {
	UserHandle string        `json:"userHandle"`
	State      PresenceState `json:"state"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// PrivacySettings controls presence and profile visibility to other actors.
type PrivacySettings struct {
	UserHandle        string `json:"userHandle"`
	ShowPresence      bool   `json:"showPresence"`
	ShowProfileToPeer bool   `json:"showProfileToPeer"`
}

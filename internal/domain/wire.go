package domain

import "time"

// PageInfo carries the opaque cursors a paginated listing returns.
type PageInfo struct {
	NextCursor string `json:"nextCursor,omitempty"`
	PrevCursor string `json:"prevCursor,omitempty"`
}

// MessagesPage is the response body for channel message listings.
type MessagesPage struct {
	Items []Message `json:"items"`
	Page  PageInfo  `json:"page"`
}

// DiscoveryKey is one entry in a public-key discovery response.
type DiscoveryKey struct {
	KeyID     string `json:"keyId"`
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"publicKey"`
	CreatedAt string `json:"createdAt"`
}

// PublicKeyDiscoveryResponse answers GET /.well-known/ofscp/users/{handle}/keys.
type PublicKeyDiscoveryResponse struct {
	Actor      string         `json:"actor"`
	Keys       []DiscoveryKey `json:"keys"`
	CacheUntil time.Time      `json:"cacheUntil"`
}

// DiscoveryDocument answers GET /.well-known/ofscp-provider.
type DiscoveryDocument struct {
	Provider     ProviderInfo `json:"provider"`
	Capabilities Capabilities `json:"capabilities"`
	Endpoints    Endpoints    `json:"endpoints"`
}

// ProviderInfo is the nested `provider` object every discovery document
// carries: instance identity, software banner, and the OIDC-style
// authentication endpoint set.
type ProviderInfo struct {
	Domain          string                  `json:"domain"`
	ProtocolVersion string                  `json:"protocolVersion"`
	Software        SoftwareInfo            `json:"software"`
	Contact         string                  `json:"contact,omitempty"`
	Authentication  AuthenticationEndpoints `json:"authentication"`
	PublicKeys      []DiscoveryKey          `json:"publicKeys,omitempty"`
}

type SoftwareInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// AuthenticationEndpoints follows the OIDC discovery-document shape
// rather than naming OFSCP's own register/login routes directly.
type AuthenticationEndpoints struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorizationEndpoint"`
	TokenEndpoint         string `json:"tokenEndpoint"`
	UserinfoEndpoint      string `json:"userinfoEndpoint"`
	JwksUri               string `json:"jwksUri,omitempty"`
}

type PublicKeyAlg string

const PublicKeyAlgEd25519 PublicKeyAlg = "ed25519"

type Capabilities struct {
	MessageTypes     []MessageType      `json:"messageTypes"`
	Discoverability  []string           `json:"discoverability"`
	MetadataSchemas  []MetadataSchemaInfo `json:"metadataSchemas"`
	SignatureAlg     PublicKeyAlg       `json:"signatureAlgorithm"`
}

type MetadataSchemaInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Endpoints struct {
	Identity      string `json:"identity"`
	Groups        string `json:"groups"`
	Notifications string `json:"notifications"`
	Tiers         string `json:"tiers"`
}

// WsEnvelope wraps every realtime-plane frame in both directions.
type WsEnvelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Data          interface{}     `json:"data"`
	Timestamp     time.Time       `json:"ts"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

// Client -> server command kinds.
const (
	CommandSubscribe     = "subscribe"
	CommandUnsubscribe   = "unsubscribe"
	CommandMessageCreate = "message.create"
)

// Server -> client event kinds.
const (
	EventMessageNew = "message.new"
	EventAck        = "ack"
	EventError      = "error"
)

type SubscribeData struct {
	ChannelID string `json:"channelId"`
}

type UnsubscribeData struct {
	ChannelID string `json:"channelId"`
}

type MessageCreateData struct {
	ChannelID string `json:"channelId"`
	Body      string `json:"body"`
	Title     string `json:"title,omitempty"`
	MessageType MessageType `json:"messageType,omitempty"`
	ParentID  string `json:"parentId,omitempty"`
	Nonce     string `json:"nonce"`
}

type MessageNewData struct {
	Message Message `json:"message"`
}

type AckData struct {
	Nonce     string `json:"nonce"`
	MessageID string `json:"messageId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Request/response bodies for the HTTP surface.

type RegisterRequest struct {
	Handle          string `json:"handle"`
	Password        string `json:"password"`
	DevicePublicKey string `json:"devicePublicKey,omitempty"`
	DeviceName      string `json:"deviceName,omitempty"`
}

type LoginRequest struct {
	Handle          string `json:"handle"`
	Password        string `json:"password"`
	DevicePublicKey string `json:"devicePublicKey,omitempty"`
	DeviceName      string `json:"deviceName,omitempty"`
}

type LoginResponse struct {
	UserID string `json:"userId"`
	KeyID  string `json:"keyId,omitempty"`
}

type RegisterDeviceKeyRequest struct {
	PublicKey  string `json:"publicKey"`
	DeviceName string `json:"deviceName"`
}

type RegisterDeviceKeyResponse struct {
	KeyID string `json:"keyId"`
}

type CreateGroupRequest struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	JoinPolicy  JoinPolicy `json:"joinPolicy,omitempty"`
}

type UpdateGroupRequest struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	JoinPolicy  *JoinPolicy `json:"joinPolicy,omitempty"`
}

type AddMemberRequest struct {
	UserHandle string `json:"userHandle"`
}

type CreateChannelRequest struct {
	Name   string             `json:"name"`
	Topic  string             `json:"topic,omitempty"`
	Policy *MessageTypePolicy `json:"messageTypePolicy,omitempty"`
}

type CreateMessageRequest struct {
	Title         string      `json:"title,omitempty"`
	Body          string      `json:"body"`
	MessageType   MessageType `json:"messageType,omitempty"`
	ParentID      string      `json:"parentId,omitempty"`
	IdempotencyKey string     `json:"idempotencyKey,omitempty"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

type AddJoinedGroupRequest struct {
	GroupID string `json:"groupId"`
	Host    string `json:"host,omitempty"`
	Name    string `json:"name"`
}

// FederationJoinRequest is the body of POST /api/federation/groups/join:
// a local user asking their home instance to join a group hosted on
// another OFSCP instance.
type FederationJoinRequest struct {
	RemoteHost string `json:"remoteHost"`
	GroupID    string `json:"groupId"`
}

type UserProfile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	UpdatedAt   string `json:"updatedAt"`
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ofscp/server/internal/federation"
	"github.com/ofscp/server/internal/graph"
	"github.com/ofscp/server/internal/identity"
	"github.com/ofscp/server/internal/middleware"
	"github.com/ofscp/server/internal/realtime"
	"github.com/ofscp/server/internal/signature"
)

// Server holds every component the HTTP/WebSocket surface dispatches into.
type Server struct {
	domain      string
	identity    *identity.Registry
	graph       *graph.Graph
	federation  *federation.Router
	peers       *federation.PeerLedger
	verifier    *signature.Verifier
	realtime    *realtime.Server
	rateLimiter *middleware.RateLimiter
}

func NewServer(
	domain string,
	ident *identity.Registry,
	g *graph.Graph,
	fed *federation.Router,
	peers *federation.PeerLedger,
	verifier *signature.Verifier,
	rt *realtime.Server,
	rateLimiter *middleware.RateLimiter,
) *Server {
	return &Server{
		domain:      domain,
		identity:    ident,
		graph:       g,
		federation:  fed,
		peers:       peers,
		verifier:    verifier,
		realtime:    rt,
		rateLimiter: rateLimiter,
	}
}

// Router builds the complete gorilla/mux router: public well-known and
// account-creation endpoints, signature-verified REST endpoints, the
// WebSocket upgrade (authenticated separately since it carries no custom
// headers), and the Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	identityH := &identityHandlers{server: s}
	groupH := &groupHandlers{server: s}
	channelH := &channelHandlers{server: s}
	messageH := &messageHandlers{server: s}
	joinedH := &joinedGroupHandlers{server: s}
	federationH := &federationHandlers{server: s}
	discoveryH := &discoveryHandlers{server: s}

	// Public, unauthenticated surface.
	public := r.PathPrefix("/").Subrouter()
	public.Use(s.rateLimiter.Middleware)
	public.HandleFunc("/.well-known/ofscp-provider", discoveryH.document).Methods(http.MethodGet)
	public.HandleFunc("/.well-known/ofscp/users/{handle}/keys", discoveryH.publicKeys).Methods(http.MethodGet)
	public.HandleFunc("/api/auth/register", identityH.register).Methods(http.MethodPost)
	public.HandleFunc("/api/auth/login", identityH.login).Methods(http.MethodPost)
	public.HandleFunc("/api/users/{handle}/profile", identityH.getProfile).Methods(http.MethodGet)
	public.HandleFunc("/api/groups/{groupId}", groupH.get).Methods(http.MethodGet)
	public.HandleFunc("/api/ws", s.realtime.HandleUpgrade)
	public.Handle("/metrics", promhttp.Handler())

	// Signature-verified surface: every write operation and every
	// membership-scoped read.
	protected := r.PathPrefix("/").Subrouter()
	protected.Use(middleware.VerifySignature(s.verifier))
	protected.Use(s.rateLimiter.Middleware)

	protected.HandleFunc("/api/auth/device-keys", identityH.registerDeviceKey).Methods(http.MethodPost)
	protected.HandleFunc("/api/auth/device-keys", identityH.listDeviceKeys).Methods(http.MethodGet)
	protected.HandleFunc("/api/auth/device-keys/{keyId}", identityH.revokeDeviceKey).Methods(http.MethodDelete)

	protected.HandleFunc("/api/groups", groupH.create).Methods(http.MethodPost)
	protected.HandleFunc("/api/groups", groupH.listMine).Methods(http.MethodGet)
	protected.HandleFunc("/api/groups/{groupId}", groupH.update).Methods(http.MethodPut)
	protected.HandleFunc("/api/groups/{groupId}", groupH.delete).Methods(http.MethodDelete)
	protected.HandleFunc("/api/groups/{groupId}/join", groupH.join).Methods(http.MethodPost)
	protected.HandleFunc("/api/groups/{groupId}/leave", groupH.leave).Methods(http.MethodPost)
	protected.HandleFunc("/api/groups/{groupId}/members", groupH.addMember).Methods(http.MethodPost)

	protected.HandleFunc("/api/groups/{groupId}/channels", channelH.create).Methods(http.MethodPost)
	protected.HandleFunc("/api/groups/{groupId}/channels", channelH.list).Methods(http.MethodGet)
	protected.HandleFunc("/api/groups/{groupId}/channels/{channelId}", channelH.get).Methods(http.MethodGet)

	protected.HandleFunc("/api/groups/{groupId}/channels/{channelId}/messages", messageH.send).Methods(http.MethodPost)
	protected.HandleFunc("/api/groups/{groupId}/channels/{channelId}/messages", messageH.list).Methods(http.MethodGet)

	protected.HandleFunc("/api/users/{user}/groups", joinedH.listForUser).Methods(http.MethodGet)
	protected.HandleFunc("/api/users/{user}/groups", joinedH.addForUser).Methods(http.MethodPost)
	protected.HandleFunc("/api/me/groups", joinedH.add).Methods(http.MethodPost)
	protected.HandleFunc("/api/me/groups/{groupId}", joinedH.remove).Methods(http.MethodDelete)

	protected.HandleFunc("/api/federation/groups/join", federationH.joinRemoteGroup).Methods(http.MethodPost)
	protected.HandleFunc("/api/federation/peers/{domain}", federationH.peerStatus).Methods(http.MethodGet)

	return r
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/domain"
)

const protocolVersion = "1.0"

type discoveryHandlers struct {
	server *Server
}

func (h *discoveryHandlers) document(w http.ResponseWriter, r *http.Request) {
	base := "https://" + h.server.domain
	doc := domain.DiscoveryDocument{
		Provider: domain.ProviderInfo{
			Domain:          h.server.domain,
			ProtocolVersion: protocolVersion,
			Software: domain.SoftwareInfo{
				Name:    "ofscp-server",
				Version: protocolVersion,
			},
			Contact: "admin@" + h.server.domain,
			Authentication: domain.AuthenticationEndpoints{
				Issuer:                base,
				AuthorizationEndpoint: base + "/api/auth/login",
				TokenEndpoint:         base + "/api/auth/login",
				UserinfoEndpoint:      base + "/api/users/{handle}/profile",
			},
		},
		Capabilities: domain.Capabilities{
			MessageTypes:    []domain.MessageType{domain.MessageTypeMessage, domain.MessageTypeMemo, domain.MessageTypeArticle},
			Discoverability: []string{"public-groups"},
			SignatureAlg:    domain.PublicKeyAlgEd25519,
		},
		Endpoints: domain.Endpoints{
			Identity: "/api/users/{handle}/profile",
			Groups:   "/api/groups",
		},
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *discoveryHandlers) publicKeys(w http.ResponseWriter, r *http.Request) {
	handle := mux.Vars(r)["handle"]
	resp, err := h.server.identity.PublicKeys(r.Context(), handle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/middleware"
)

type federationHandlers struct {
	server *Server
}

func (h *federationHandlers) joinRemoteGroup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	var req domain.FederationJoinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.RemoteHost == "" || req.GroupID == "" {
		writeError(w, r, apperr.BadRequest("remoteHost and groupId are required"))
		return
	}

	result, err := h.server.federation.JoinRemoteGroup(r.Context(), actor, req.RemoteHost, req.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *federationHandlers) peerStatus(w http.ResponseWriter, r *http.Request) {
	remoteDomain := mux.Vars(r)["domain"]
	rec, err := h.server.peers.Get(r.Context(), remoteDomain)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/middleware"
)

type identityHandlers struct {
	server *Server
}

func (h *identityHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.server.identity.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *identityHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.server.identity.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *identityHandlers) registerDeviceKey(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	var req domain.RegisterDeviceKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	keyID, err := h.server.identity.RegisterDeviceKey(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.RegisterDeviceKeyResponse{KeyID: keyID})
}

func (h *identityHandlers) listDeviceKeys(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	keys, err := h.server.identity.ListDeviceKeys(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *identityHandlers) revokeDeviceKey(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	keyID := mux.Vars(r)["keyId"]
	if err := h.server.identity.RevokeDeviceKey(r.Context(), actor, keyID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *identityHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	handle := mux.Vars(r)["handle"]
	profile, err := h.server.identity.GetProfile(r.Context(), handle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

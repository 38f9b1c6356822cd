package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/middleware"
)

type channelHandlers struct {
	server *Server
}

func (h *channelHandlers) create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	var req domain.CreateChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.server.graph.CreateChannel(r.Context(), groupID, actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *channelHandlers) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	channels, err := h.server.graph.ListChannels(r.Context(), groupID, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *channelHandlers) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ch, err := h.server.graph.GetChannel(r.Context(), vars["groupId"], vars["channelId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

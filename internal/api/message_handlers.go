package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/graph"
	"github.com/ofscp/server/internal/middleware"
)

type messageHandlers struct {
	server *Server
}

func (h *messageHandlers) send(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	vars := mux.Vars(r)
	var req domain.CreateMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.server.graph.SendMessage(r.Context(), vars["groupId"], vars["channelId"], actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.SendMessageResponse{Message: msg})
}

func (h *messageHandlers) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	vars := mux.Vars(r)
	q := r.URL.Query()

	opts := graph.ListMessagesOptions{
		Cursor:    q.Get("cursor"),
		Direction: q.Get("direction"),
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.Limit = &n
		}
	}

	page, err := h.server.graph.ListMessages(r.Context(), vars["groupId"], vars["channelId"], actor, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

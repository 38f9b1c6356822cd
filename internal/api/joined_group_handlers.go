package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/middleware"
	"github.com/ofscp/server/internal/signature"
)

type joinedGroupHandlers struct {
	server *Server
}

func (h *joinedGroupHandlers) list(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	joined, err := h.server.graph.ListJoinedGroups(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

// requireSelf normalizes the {user} path segment the same way the signer's
// actor id was normalized and rejects any request for another user's
// joined-group history.
func (h *joinedGroupHandlers) requireSelf(r *http.Request) (string, bool) {
	actor := middleware.ActorFromContext(r.Context())
	user := signature.NormalizeActorID(mux.Vars(r)["user"], h.server.domain)
	return actor, actor == user
}

// listForUser answers GET /api/users/{user}/groups: a user's own
// joined-group bookmarks, reachable by path rather than the /api/me/groups
// shorthand. Only the named user themselves may read it.
func (h *joinedGroupHandlers) listForUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireSelf(r)
	if !ok {
		writeError(w, r, apperr.Forbidden("you can only view your own joined groups"))
		return
	}
	joined, err := h.server.graph.ListJoinedGroups(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

// addForUser answers POST /api/users/{user}/groups, the path-addressed
// twin of POST /api/me/groups.
func (h *joinedGroupHandlers) addForUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireSelf(r)
	if !ok {
		writeError(w, r, apperr.Forbidden("you can only bookmark groups for yourself"))
		return
	}
	var req domain.AddJoinedGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.server.graph.AddJoinedGroup(r.Context(), actor, req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *joinedGroupHandlers) add(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	var req domain.AddJoinedGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.server.graph.AddJoinedGroup(r.Context(), actor, req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *joinedGroupHandlers) remove(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	if err := h.server.graph.RemoveJoinedGroup(r.Context(), actor, groupID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

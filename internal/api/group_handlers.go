package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/middleware"
)

type groupHandlers struct {
	server *Server
}

func (h *groupHandlers) create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	var req domain.CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	group, err := h.server.graph.CreateGroup(r.Context(), req, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *groupHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groups, err := h.server.graph.ListGroups(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *groupHandlers) get(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	group, err := h.server.graph.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *groupHandlers) update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	var req domain.UpdateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	group, err := h.server.graph.UpdateGroup(r.Context(), groupID, actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *groupHandlers) delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	if err := h.server.graph.DeleteGroup(r.Context(), groupID, actor); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *groupHandlers) join(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	if err := h.server.graph.JoinGroup(r.Context(), groupID, actor); err != nil {
		writeError(w, r, err)
		return
	}
	group, err := h.server.graph.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *groupHandlers) leave(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	if err := h.server.graph.LeaveGroup(r.Context(), groupID, actor); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *groupHandlers) addMember(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	groupID := mux.Vars(r)["groupId"]
	var req domain.AddMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.server.graph.AddMember(r.Context(), groupID, actor, req.UserHandle); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

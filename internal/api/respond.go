// Package api implements the HTTP and WebSocket surface: REST handlers for
// every Resource Graph and Identity operation, the two well-known
// discovery endpoints, and the WebSocket upgrade entry point — wired
// together the way the teacher's internal/api/server.go composed its own
// (now removed) handler set over gorilla/mux.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/problem"
)

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.BadRequest("malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	problem.Write(w, r, err)
}

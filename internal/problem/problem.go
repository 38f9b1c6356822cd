// Package problem writes RFC-7807 problem+json error bodies, the single
// error envelope every OFSCP handler uses instead of ad hoc text or JSON
// error bodies.
package problem

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ofscp/server/internal/apperr"
)

// Details is the RFC-7807 problem body. TypeURL is tagged "type" on the
// wire; the Go field is renamed to avoid shadowing the builtin.
type Details struct {
	TypeURL  string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const baseTypeURL = "https://ofscp.dev/problems/"

// Write renders err as a problem+json response, logging server-side faults.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindPersistenceFault
	status := http.StatusInternalServerError
	detail := err.Error()

	if appErr, ok := apperr.As(err); ok {
		kind = appErr.Kind
		status = appErr.Status()
		detail = appErr.Message
	} else {
		slog.Error("unclassified error reached the HTTP boundary", "error", err, "path", r.URL.Path)
	}

	if status >= 500 {
		slog.Error("request failed", "kind", kind, "status", status, "path", r.URL.Path, "error", err)
	}

	body := Details{
		TypeURL:  baseTypeURL + string(kind),
		Title:    string(kind),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

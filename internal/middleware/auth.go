// Package middleware holds the HTTP middleware chain every protected
// OFSCP route runs through: signature verification and rate limiting,
// generalized from the teacher's tenant/governance middleware stack
// (now removed) into OFSCP's actor-centric equivalents.
package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/ofscp/server/internal/problem"
	"github.com/ofscp/server/internal/signature"
)

type contextKey string

const actorContextKey contextKey = "ofscp.actor"

// ActorFromContext returns the verified actor id (bare handle for a local
// actor, "@handle@domain" for a foreign one) a prior
// VerifySignature call placed in the request context, or "" if none.
func ActorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(actorContextKey).(string)
	return v
}

// VerifySignature authenticates every request through verifier, rejecting
// unsigned or invalid requests with a problem+json body before the
// wrapped handler ever runs: 401 for a missing, malformed, stale or
// unverifiable signature, 400 for a non-RFC3339 timestamp, 502 when a
// foreign actor's home instance cannot be reached. The request body is buffered so it can be
// read once for signing verification and again by the handler.
func VerifySignature(verifier *signature.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body []byte
			if r.Body != nil {
				body, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			verified, err := verifier.VerifyHeaders(r.Context(), r.Method, r.URL.Path, r.Header, body)
			if err != nil {
				problem.Write(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), actorContextKey, verified.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

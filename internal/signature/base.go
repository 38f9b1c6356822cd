// Package signature implements the OFSCP Signature Engine: canonical base
// construction, Ed25519 sign/verify, header- and query-carried signature
// parsing, and actor/key resolution with cross-instance discovery — ported
// byte-for-byte from original_source/crates/shared/src/protocol.rs and
// original_source/crates/server/src/middleware/signature.rs, the
// authoritative reference for this protocol's exact wire behavior.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ofscp/server/internal/domain"
)

const (
	HeaderSignature = "X-OFSCP-Signature"
	HeaderActor     = "X-OFSCP-Actor"
	HeaderTimestamp = "X-OFSCP-Timestamp"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// ConstructBase builds the canonical signature base string:
//
//	METHOD\nPATH\nTIMESTAMP\nhex(sha256(body))
func ConstructBase(method, path, timestamp string, body []byte) string {
	digest := sha256.Sum256(body)
	return fmt.Sprintf("%s\n%s\n%s\n%s", method, path, timestamp, hex.EncodeToString(digest[:]))
}

// NormalizeActorID renders actor as a bare handle when it belongs to
// localDomain, or as a full "@handle@domain" FQID otherwise. A foreign
// actor must keep its home domain attached here: it is what every
// membership/ownership record downstream uses to tell a remote user
// apart from a local one with the same handle.
func NormalizeActorID(actor, localDomain string) string {
	handle, actorDomain := SplitActor(actor, localDomain)
	return domain.NormalizeFQID(handle, actorDomain, localDomain)
}

// SplitActor splits an actor id into (handle, domain). A bare handle
// yields defaultDomain.
func SplitActor(actor, defaultDomain string) (handle, domain string) {
	a := strings.TrimPrefix(actor, "@")
	parts := strings.SplitN(a, "@", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], defaultDomain
}

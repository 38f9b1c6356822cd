// Package identity implements the Identity & Key Registry: account
// registration/login and device-key lifecycle management.
package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/ofscp/server/internal/apperr"
)

// PasswordHasher hashes and verifies passwords with Argon2id, encoding the
// parameters into the stored hash string so they can change across
// deployments without breaking existing hashes.
type PasswordHasher struct {
	timeCost    uint32
	memoryKiB   uint32
	parallelism uint8
}

func NewPasswordHasher(timeCost, memoryKiB, parallelism int) *PasswordHasher {
	return &PasswordHasher{
		timeCost:    uint32(timeCost),
		memoryKiB:   uint32(memoryKiB),
		parallelism: uint8(parallelism),
	}
}

const saltLen = 16
const keyLen = 32

// Hash produces an encoded "$argon2id$v=19$m=..,t=..,p=..$salt$hash" string.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", apperr.PersistenceFault("generate salt", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.timeCost, h.memoryKiB, h.parallelism, keyLen)
	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		h.memoryKiB, h.timeCost, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return encoded, nil
}

// Verify reports whether password matches the given encoded hash.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}
	var memoryKiB, timeCost uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKiB, &timeCost, &parallelism); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, timeCost, memoryKiB, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

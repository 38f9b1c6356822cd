package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store/memstore"
)

func newTestRegistry() *Registry {
	return NewRegistry(memstore.New(), NewPasswordHasher(1, 8*1024, 1), "example.test")
}

func TestPasswordHashRoundTrip(t *testing.T) {
	h := NewPasswordHasher(1, 8*1024, 1)
	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, h.Verify("correct horse battery staple", encoded))
	assert.False(t, h.Verify("wrong password", encoded))
}

func TestRegisterRejectsInvalidHandle(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.Register(context.Background(), domain.RegisterRequest{Handle: "Has Spaces", Password: "x"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidName, appErr.Kind)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()
	_, err := reg.Register(ctx, domain.RegisterRequest{Handle: "alice", Password: "secret"})
	require.NoError(t, err)

	_, errUnknown := reg.Login(ctx, domain.LoginRequest{Handle: "bob", Password: "secret"})
	_, errWrongPw := reg.Login(ctx, domain.LoginRequest{Handle: "alice", Password: "nope"})

	unknownErr, ok1 := apperr.As(errUnknown)
	wrongPwErr, ok2 := apperr.As(errWrongPw)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, apperr.KindAuthFailure, unknownErr.Kind)
	assert.Equal(t, apperr.KindAuthFailure, wrongPwErr.Kind)
	assert.Equal(t, unknownErr.Message, wrongPwErr.Message)
}

func TestDeviceKeyLifecycle(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()
	_, err := reg.Register(ctx, domain.RegisterRequest{Handle: "alice", Password: "secret"})
	require.NoError(t, err)

	keyID, err := reg.RegisterDeviceKey(ctx, "alice", domain.RegisterDeviceKeyRequest{
		PublicKey: "base64key", DeviceName: "phone",
	})
	require.NoError(t, err)

	keys, err := reg.ListDeviceKeys(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].Revoked)

	pubResp, err := reg.PublicKeys(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pubResp.Keys, 1)

	require.NoError(t, reg.RevokeDeviceKey(ctx, "alice", keyID))

	pubResp, err = reg.PublicKeys(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pubResp.Keys, "revoked keys must not appear in public discovery")

	err = reg.RevokeDeviceKey(ctx, "bob", keyID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}

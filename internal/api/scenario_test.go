package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/federation"
)

// TestFederatedGroupJoinAcrossInstances exercises the protocol's
// headline cross-instance scenario: a user registered on one OFSCP
// instance joins a group hosted on another, through her own home
// instance's federation endpoint rather than by contacting the remote
// instance directly. Each "instance" here is a full api.Server bound to
// its own address, and the Federation Router makes a real HTTP call from
// one to the other exactly as it would between two deployed instances.
func TestFederatedGroupJoinAcrossInstances(t *testing.T) {
	home := newTestAppOnOwnAddress(t)
	defer home.close()
	remote := newTestAppOnOwnAddress(t)
	defer remote.close()

	alice := home.registerUser(t, "alice", "hunter2hunter2")
	bob := remote.registerUser(t, "bob", "hunter3hunter3")

	groupBody, _ := json.Marshal(domain.CreateGroupRequest{ID: "stargazers", Name: "stargazers", JoinPolicy: domain.JoinPolicyOpen})
	var group domain.Group
	resp := doJSON(t, remote.signedRequest(t, http.MethodPost, "/api/groups", bob, groupBody), &group)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	joinReqBody, _ := json.Marshal(domain.FederationJoinRequest{RemoteHost: remote.domain, GroupID: "stargazers"})
	var result federation.JoinResult
	resp = doJSON(t, home.signedRequest(t, http.MethodPost, "/api/federation/groups/join", alice, joinReqBody), &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.RemoteAccepted, "remote error: %s", result.RemoteError)
	assert.True(t, result.LocalBookmarked, "local error: %s", result.LocalError)
	assert.Empty(t, result.RemoteError)
	assert.Empty(t, result.LocalError)

	remoteActor := "@alice@" + home.domain
	assert.True(t, remote.graph.IsMember(context.Background(), "stargazers", remoteActor))

	var bookmarks []domain.UserJoinedGroup
	resp = doJSON(t, home.signedRequest(t, http.MethodGet, "/api/users/alice/groups", alice, nil), &bookmarks)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "stargazers", bookmarks[0].GroupID)
	assert.Equal(t, remote.domain, bookmarks[0].Host)
}

// TestFederatedGroupJoinSurfacesRemoteRejection covers the partial-success
// path: when the remote instance refuses the join (here, because the
// group requires an invite), the home instance still returns a 200 with
// RemoteAccepted=false and no local bookmark, rather than an opaque error.
func TestFederatedGroupJoinSurfacesRemoteRejection(t *testing.T) {
	home := newTestAppOnOwnAddress(t)
	defer home.close()
	remote := newTestAppOnOwnAddress(t)
	defer remote.close()

	alice := home.registerUser(t, "alice", "hunter2hunter2")
	bob := remote.registerUser(t, "bob", "hunter3hunter3")

	groupBody, _ := json.Marshal(domain.CreateGroupRequest{ID: "invite-only", Name: "invite-only", JoinPolicy: domain.JoinPolicyClosed})
	resp := doJSON(t, remote.signedRequest(t, http.MethodPost, "/api/groups", bob, groupBody), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	joinReqBody, _ := json.Marshal(domain.FederationJoinRequest{RemoteHost: remote.domain, GroupID: "invite-only"})
	var result federation.JoinResult
	resp = doJSON(t, home.signedRequest(t, http.MethodPost, "/api/federation/groups/join", alice, joinReqBody), &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, result.RemoteAccepted)
	assert.False(t, result.LocalBookmarked)
	assert.NotEmpty(t, result.RemoteError)

	var bookmarks []domain.UserJoinedGroup
	resp = doJSON(t, home.signedRequest(t, http.MethodGet, "/api/users/alice/groups", alice, nil), &bookmarks)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, bookmarks, 0)
}

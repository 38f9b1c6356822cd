package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/domain"
)

func doJSON(t *testing.T, req *http.Request, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestRegisterAndGetProfile(t *testing.T) {
	app := newTestApp(t, "home.example")
	defer app.close()

	alice := app.registerUser(t, "alice", "hunter2")
	assert.NotEmpty(t, alice.keyID)

	resp, err := http.Get(app.srv.URL + "/api/users/alice/profile")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var profile domain.UserProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "alice", profile.Handle)
}

func TestUnsignedProtectedRouteRejected(t *testing.T) {
	app := newTestApp(t, "home.example")
	defer app.close()

	resp, err := http.Get(app.srv.URL + "/api/groups")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGroupChannelMessageFlow(t *testing.T) {
	app := newTestApp(t, "home.example")
	defer app.close()

	alice := app.registerUser(t, "alice", "hunter2")

	groupBody, _ := json.Marshal(domain.CreateGroupRequest{ID: "astronomy", Name: "astronomy-club"})
	var group domain.Group
	resp := doJSON(t, app.signedRequest(t, http.MethodPost, "/api/groups", alice, groupBody), &group)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "astronomy", group.ID)
	assert.Equal(t, "alice", group.Owner)

	channelBody, _ := json.Marshal(domain.CreateChannelRequest{Name: "general"})
	var channel domain.Channel
	resp = doJSON(t, app.signedRequest(t, http.MethodPost, "/api/groups/astronomy/channels", alice, channelBody), &channel)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "astronomy", channel.GroupID)

	msgBody, _ := json.Marshal(domain.CreateMessageRequest{Body: "first light", MessageType: domain.MessageTypeMessage})
	var sendResp domain.SendMessageResponse
	resp = doJSON(t, app.signedRequest(t, http.MethodPost, "/api/groups/astronomy/channels/"+channel.ID+"/messages", alice, msgBody), &sendResp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "first light", sendResp.Message.Body)

	var page domain.MessagesPage
	resp = doJSON(t, app.signedRequest(t, http.MethodGet, "/api/groups/astronomy/channels/"+channel.ID+"/messages", alice, nil), &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "first light", page.Items[0].Body)
}

func TestNonMemberCannotListMessages(t *testing.T) {
	app := newTestApp(t, "home.example")
	defer app.close()

	alice := app.registerUser(t, "alice", "hunter2")
	bob := app.registerUser(t, "bob", "hunter3")

	groupBody, _ := json.Marshal(domain.CreateGroupRequest{ID: "astronomy", Name: "astronomy-club", JoinPolicy: domain.JoinPolicyClosed})
	var group domain.Group
	resp := doJSON(t, app.signedRequest(t, http.MethodPost, "/api/groups", alice, groupBody), &group)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	channelBody, _ := json.Marshal(domain.CreateChannelRequest{Name: "general"})
	var channel domain.Channel
	resp = doJSON(t, app.signedRequest(t, http.MethodPost, "/api/groups/astronomy/channels", alice, channelBody), &channel)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app.signedRequest(t, http.MethodGet, "/api/groups/astronomy/channels/"+channel.ID+"/messages", bob, nil), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

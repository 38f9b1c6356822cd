package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store/memstore"
)

func newTestGraph() *Graph {
	return New(memstore.New())
}

func TestJoinGroupIsIdempotent(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)

	require.NoError(t, g.JoinGroup(ctx, "g1", "bob"))
	require.NoError(t, g.JoinGroup(ctx, "g1", "bob"))

	groups, err := g.ListGroups(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestJoinGroupRejectsClosedPolicy(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "closed", JoinPolicy: domain.JoinPolicyClosed}, "alice")
	require.NoError(t, err)

	err = g.JoinGroup(ctx, "g1", "bob")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindForbidden, appErr.Kind)
}

func TestOwnerCannotLeave(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)

	err = g.LeaveGroup(ctx, "g1", "alice")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindForbidden, appErr.Kind)
}

func TestDeleteGroupCascades(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)
	ch, err := g.CreateChannel(ctx, "g1", "alice", domain.CreateChannelRequest{Name: "general"})
	require.NoError(t, err)
	_, err = g.SendMessage(ctx, "g1", ch.ID, "alice", domain.CreateMessageRequest{Body: "hi"})
	require.NoError(t, err)

	require.NoError(t, g.DeleteGroup(ctx, "g1", "alice"))

	_, err = g.GetGroup(ctx, "g1")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)

	_, err = g.GetChannel(ctx, "g1", ch.ID)
	require.Error(t, err)
}

func TestSendMessageIdempotency(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)
	ch, err := g.CreateChannel(ctx, "g1", "alice", domain.CreateChannelRequest{Name: "general"})
	require.NoError(t, err)

	req := domain.CreateMessageRequest{Body: "hello", IdempotencyKey: "idem-1"}
	first, err := g.SendMessage(ctx, "g1", ch.ID, "alice", req)
	require.NoError(t, err)
	second, err := g.SendMessage(ctx, "g1", ch.ID, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestMessageTypePolicyRejectsDisallowedReply(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)
	policy := domain.MessageTypePolicy{ReplyTypes: []domain.MessageType{domain.MessageTypeMessage}}
	ch, err := g.CreateChannel(ctx, "g1", "alice", domain.CreateChannelRequest{Name: "general", Policy: &policy})
	require.NoError(t, err)

	root, err := g.SendMessage(ctx, "g1", ch.ID, "alice", domain.CreateMessageRequest{Body: "root", MessageType: domain.MessageTypeMessage})
	require.NoError(t, err)

	_, err = g.SendMessage(ctx, "g1", ch.ID, "alice", domain.CreateMessageRequest{
		Body: "reply", MessageType: domain.MessageTypeArticle, ParentID: root.ID,
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindForbidden, appErr.Kind)
}

func TestListMessagesLimitClamping(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)
	ch, err := g.CreateChannel(ctx, "g1", "alice", domain.CreateChannelRequest{Name: "general"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := g.SendMessage(ctx, "g1", ch.ID, "alice", domain.CreateMessageRequest{Body: "m"})
		require.NoError(t, err)
	}

	zero := 0
	page, err := g.ListMessages(ctx, "g1", ch.ID, "alice", ListMessagesOptions{Limit: &zero})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1, "limit=0 clamps up to 1")

	page, err = g.ListMessages(ctx, "g1", ch.ID, "alice", ListMessagesOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5, "omitted limit defaults to 50, capped by available messages")

	big := 201
	page, err = g.ListMessages(ctx, "g1", ch.ID, "alice", ListMessagesOptions{Limit: &big})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
}

func TestListMessagesPaginationIsAscending(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)
	ch, err := g.CreateChannel(ctx, "g1", "alice", domain.CreateChannelRequest{Name: "general"})
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		m, err := g.SendMessage(ctx, "g1", ch.ID, "alice", domain.CreateMessageRequest{Body: "m"})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	page, err := g.ListMessages(ctx, "g1", ch.ID, "alice", ListMessagesOptions{Direction: "backward"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	for i := 0; i < len(page.Items)-1; i++ {
		assert.True(t, !page.Items[i].CreatedAt.After(page.Items[i+1].CreatedAt))
	}
}

func TestListMessagesRejectsUnknownDirection(t *testing.T) {
	g := newTestGraph()
	ctx := context.Background()
	_, err := g.CreateGroup(ctx, domain.CreateGroupRequest{ID: "g1", Name: "general"}, "alice")
	require.NoError(t, err)
	ch, err := g.CreateChannel(ctx, "g1", "alice", domain.CreateChannelRequest{Name: "general"})
	require.NoError(t, err)

	_, err = g.ListMessages(ctx, "g1", ch.ID, "alice", ListMessagesOptions{Direction: "sideways"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindBadRequest, appErr.Kind)
}

package graph

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store"
)

// CreateChannel creates a channel in groupID. requesterID must already be
// a group member.
func (g *Graph) CreateChannel(ctx context.Context, groupID, requesterID string, req domain.CreateChannelRequest) (domain.Channel, error) {
	if !domain.ValidateResourceName(req.Name) {
		return domain.Channel{}, apperr.InvalidName("channel name must be lowercase alphanumeric plus . _ -")
	}
	if !g.IsMember(ctx, groupID, requesterID) {
		return domain.Channel{}, apperr.Forbidden("not a group member")
	}

	policy := domain.MessageTypePolicy{}
	if req.Policy != nil {
		policy = *req.Policy
	}

	now := time.Now().UTC()
	ch := domain.Channel{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Name:      req.Name,
		Topic:     req.Topic,
		Policy:    policy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.db.Insert(ctx, store.CollectionChannels, ch.ID, ch); err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

// ListChannels returns every channel in groupID, oldest first. requesterID
// must be a group member.
func (g *Graph) ListChannels(ctx context.Context, groupID, requesterID string) ([]domain.Channel, error) {
	if !g.IsMember(ctx, groupID, requesterID) {
		return nil, apperr.Forbidden("not a group member")
	}
	var channels []domain.Channel
	if err := g.db.Query(ctx, store.CollectionChannels, store.Filter{"groupId": groupID}, &channels); err != nil {
		return nil, err
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].CreatedAt.Before(channels[j].CreatedAt) })
	return channels, nil
}

// GetChannel fetches a channel, verifying it belongs to groupID.
func (g *Graph) GetChannel(ctx context.Context, groupID, channelID string) (domain.Channel, error) {
	ch, err := g.GetChannelByID(ctx, channelID)
	if err != nil {
		return domain.Channel{}, err
	}
	if ch.GroupID != groupID {
		return domain.Channel{}, apperr.NotFound("channel not found")
	}
	return ch, nil
}

// GetChannelByID fetches a channel by ID alone, for callers (the WebSocket
// command dispatch) that only carry a channel ID and must resolve its
// owning group themselves.
func (g *Graph) GetChannelByID(ctx context.Context, channelID string) (domain.Channel, error) {
	var ch domain.Channel
	if err := g.db.Get(ctx, store.CollectionChannels, channelID, &ch); err != nil {
		return domain.Channel{}, apperr.NotFound("channel not found")
	}
	return ch, nil
}

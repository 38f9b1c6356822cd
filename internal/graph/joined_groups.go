package graph

import (
	"context"
	"time"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store"
)

// ListJoinedGroups returns every group (local or remote) userID has
// bookmarked as joined.
func (g *Graph) ListJoinedGroups(ctx context.Context, userID string) ([]domain.UserJoinedGroup, error) {
	var joined []domain.UserJoinedGroup
	if err := g.db.Query(ctx, store.CollectionUserJoinedGroups, store.Filter{"userId": userID}, &joined); err != nil {
		return nil, err
	}
	return joined, nil
}

// AddJoinedGroup records a joined-group bookmark for userID, used both for
// locally hosted groups (Host empty) and federated joins (Host set).
func (g *Graph) AddJoinedGroup(ctx context.Context, userID string, req domain.AddJoinedGroupRequest) error {
	rec := domain.UserJoinedGroup{
		UserID:   userID,
		GroupID:  req.GroupID,
		Host:     req.Host,
		Name:     req.Name,
		JoinedAt: time.Now().UTC(),
	}
	return g.db.Insert(ctx, store.CollectionUserJoinedGroups, memberKey(userID, req.GroupID), rec)
}

// RemoveJoinedGroup removes userID's bookmark for groupID. This does not
// require current group membership — a user can forget a group they were
// removed from or never actually joined locally.
func (g *Graph) RemoveJoinedGroup(ctx context.Context, userID, groupID string) error {
	return g.db.Delete(ctx, store.CollectionUserJoinedGroups, memberKey(userID, groupID))
}

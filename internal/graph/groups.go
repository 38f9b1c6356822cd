// Package graph implements the Resource Graph: groups, membership,
// channels, and messages, including cursor pagination — ported operation
// for operation from original_source/crates/server/src/routes/{groups,
// channels,messages}.rs (cascade-delete order, idempotent join, the
// owner-cannot-leave rule, and the exact pagination algorithm).
package graph

import (
	"context"
	"sort"
	"time"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store"
)

// Graph serves every Resource Graph operation against a store.DocumentStore.
type Graph struct {
	db store.DocumentStore
}

func New(db store.DocumentStore) *Graph {
	return &Graph{db: db}
}

func memberKey(groupID, userID string) string { return groupID + ":" + userID }

// CreateGroup creates a group owned by ownerUserID, inserting the owner's
// membership and joined-group bookmark in the same call.
func (g *Graph) CreateGroup(ctx context.Context, req domain.CreateGroupRequest, ownerUserID string) (domain.Group, error) {
	if !domain.ValidateResourceName(req.Name) {
		return domain.Group{}, apperr.InvalidName("group name must be lowercase alphanumeric plus . _ -")
	}
	if req.ID == "" {
		return domain.Group{}, apperr.BadRequest("group id is required")
	}

	var existing domain.Group
	if err := g.db.Get(ctx, store.CollectionGroups, req.ID, &existing); err == nil {
		return domain.Group{}, apperr.Conflict("group id already in use")
	}

	policy := req.JoinPolicy
	if policy == "" {
		policy = domain.JoinPolicyOpen
	}

	now := time.Now().UTC()
	group := domain.Group{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		JoinPolicy:  policy,
		Owner:       ownerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.db.Insert(ctx, store.CollectionGroups, group.ID, group); err != nil {
		return domain.Group{}, err
	}

	member := domain.GroupMember{GroupID: group.ID, UserID: ownerUserID, Role: domain.RoleOwner, JoinedAt: now}
	if err := g.db.Insert(ctx, store.CollectionGroupMembers, memberKey(group.ID, ownerUserID), member); err != nil {
		return domain.Group{}, err
	}

	joined := domain.UserJoinedGroup{UserID: ownerUserID, GroupID: group.ID, Name: group.Name, JoinedAt: now}
	_ = g.db.Insert(ctx, store.CollectionUserJoinedGroups, memberKey(ownerUserID, group.ID), joined)

	return group, nil
}

// ListGroups returns every group userID is a member of, newest first.
func (g *Graph) ListGroups(ctx context.Context, userID string) ([]domain.Group, error) {
	var memberships []domain.GroupMember
	if err := g.db.Query(ctx, store.CollectionGroupMembers, store.Filter{"userId": userID}, &memberships); err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(memberships))
	for _, m := range memberships {
		var grp domain.Group
		if err := g.db.Get(ctx, store.CollectionGroups, m.GroupID, &grp); err == nil {
			groups = append(groups, grp)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

// GetGroup returns a group by id. Unauthenticated: group metadata is public.
func (g *Graph) GetGroup(ctx context.Context, groupID string) (domain.Group, error) {
	var grp domain.Group
	if err := g.db.Get(ctx, store.CollectionGroups, groupID, &grp); err != nil {
		return domain.Group{}, err
	}
	return grp, nil
}

// UpdateGroup applies a partial update, requiring requesterID to own the group.
func (g *Graph) UpdateGroup(ctx context.Context, groupID, requesterID string, req domain.UpdateGroupRequest) (domain.Group, error) {
	grp, err := g.requireOwner(ctx, groupID, requesterID)
	if err != nil {
		return domain.Group{}, err
	}

	fields := map[string]interface{}{"updatedAt": time.Now().UTC()}
	if req.Name != nil {
		if !domain.ValidateResourceName(*req.Name) {
			return domain.Group{}, apperr.InvalidName("group name must be lowercase alphanumeric plus . _ -")
		}
		fields["name"] = *req.Name
		grp.Name = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
		grp.Description = *req.Description
	}
	if req.JoinPolicy != nil {
		fields["joinPolicy"] = *req.JoinPolicy
		grp.JoinPolicy = *req.JoinPolicy
	}

	if err := g.db.Update(ctx, store.CollectionGroups, groupID, fields); err != nil {
		return domain.Group{}, err
	}
	return grp, nil
}

func (g *Graph) requireOwner(ctx context.Context, groupID, requesterID string) (domain.Group, error) {
	var grp domain.Group
	if err := g.db.Get(ctx, store.CollectionGroups, groupID, &grp); err != nil {
		return domain.Group{}, err
	}
	if grp.Owner != requesterID {
		return domain.Group{}, apperr.Forbidden("only the group owner may perform this action")
	}
	return grp, nil
}

// JoinGroup is idempotent: calling it twice for the same user is a no-op
// success the second time, and the group must be open-join for a new
// member.
func (g *Graph) JoinGroup(ctx context.Context, groupID, userID string) error {
	var existing domain.GroupMember
	alreadyMember := g.db.Get(ctx, store.CollectionGroupMembers, memberKey(groupID, userID), &existing) == nil

	if !alreadyMember {
		var grp domain.Group
		if err := g.db.Get(ctx, store.CollectionGroups, groupID, &grp); err != nil {
			return err
		}
		if grp.JoinPolicy != domain.JoinPolicyOpen {
			return apperr.Forbidden("group is not open for joining")
		}
		member := domain.GroupMember{GroupID: groupID, UserID: userID, Role: domain.RoleMember, JoinedAt: time.Now().UTC()}
		if err := g.db.Insert(ctx, store.CollectionGroupMembers, memberKey(groupID, userID), member); err != nil {
			return err
		}
	}

	var joined domain.UserJoinedGroup
	alreadyJoined := g.db.Get(ctx, store.CollectionUserJoinedGroups, memberKey(userID, groupID), &joined) == nil
	if !alreadyJoined {
		var grp domain.Group
		if err := g.db.Get(ctx, store.CollectionGroups, groupID, &grp); err != nil {
			return err
		}
		rec := domain.UserJoinedGroup{UserID: userID, GroupID: groupID, Name: grp.Name, JoinedAt: time.Now().UTC()}
		_ = g.db.Insert(ctx, store.CollectionUserJoinedGroups, memberKey(userID, groupID), rec)
	}

	return nil
}

// LeaveGroup removes userID's membership. The owner cannot leave; they
// must delete the group instead.
func (g *Graph) LeaveGroup(ctx context.Context, groupID, userID string) error {
	var member domain.GroupMember
	if err := g.db.Get(ctx, store.CollectionGroupMembers, memberKey(groupID, userID), &member); err != nil {
		return apperr.NotFound("not a member of this group")
	}
	if member.Role == domain.RoleOwner {
		return apperr.Forbidden("group owner cannot leave, delete the group instead")
	}
	if err := g.db.Delete(ctx, store.CollectionGroupMembers, memberKey(groupID, userID)); err != nil {
		return err
	}
	return g.db.Delete(ctx, store.CollectionUserJoinedGroups, memberKey(userID, groupID))
}

// DeleteGroup cascades: every channel's messages, then the channel, then
// all memberships, then all joined-group bookmarks, then the group itself
// — the exact order the original implementation uses.
func (g *Graph) DeleteGroup(ctx context.Context, groupID, requesterID string) error {
	if _, err := g.requireOwner(ctx, groupID, requesterID); err != nil {
		return err
	}

	var channels []domain.Channel
	if err := g.db.Query(ctx, store.CollectionChannels, store.Filter{"groupId": groupID}, &channels); err != nil {
		return err
	}
	for _, ch := range channels {
		if err := g.db.DeleteWhere(ctx, store.CollectionMessages, store.Filter{"channelId": ch.ID}); err != nil {
			return err
		}
		if err := g.db.Delete(ctx, store.CollectionChannels, ch.ID); err != nil {
			return err
		}
	}

	if err := g.db.DeleteWhere(ctx, store.CollectionGroupMembers, store.Filter{"groupId": groupID}); err != nil {
		return err
	}
	if err := g.db.DeleteWhere(ctx, store.CollectionUserJoinedGroups, store.Filter{"groupId": groupID}); err != nil {
		return err
	}
	return g.db.Delete(ctx, store.CollectionGroups, groupID)
}

// AddMember adds targetUserID to groupID as a member; requesterID must own
// the group.
func (g *Graph) AddMember(ctx context.Context, groupID, requesterID, targetUserID string) error {
	if _, err := g.requireOwner(ctx, groupID, requesterID); err != nil {
		return err
	}

	var existing domain.GroupMember
	if g.db.Get(ctx, store.CollectionGroupMembers, memberKey(groupID, targetUserID), &existing) == nil {
		return apperr.Conflict("user is already a member")
	}

	member := domain.GroupMember{GroupID: groupID, UserID: targetUserID, Role: domain.RoleMember, JoinedAt: time.Now().UTC()}
	if err := g.db.Insert(ctx, store.CollectionGroupMembers, memberKey(groupID, targetUserID), member); err != nil {
		return err
	}

	var grp domain.Group
	if err := g.db.Get(ctx, store.CollectionGroups, groupID, &grp); err == nil {
		rec := domain.UserJoinedGroup{UserID: targetUserID, GroupID: groupID, Name: grp.Name, JoinedAt: time.Now().UTC()}
		_ = g.db.Insert(ctx, store.CollectionUserJoinedGroups, memberKey(targetUserID, groupID), rec)
	}
	return nil
}

// IsMember reports whether userID belongs to groupID.
func (g *Graph) IsMember(ctx context.Context, groupID, userID string) bool {
	var member domain.GroupMember
	return g.db.Get(ctx, store.CollectionGroupMembers, memberKey(groupID, userID), &member) == nil
}

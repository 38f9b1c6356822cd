package graph

import (
	"context"
	"encoding/base64"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store"
)

// SendMessage posts a message to channelID on behalf of senderUserID, who
// must be a member of groupID. Enforces the channel's message-type policy
// and idempotency.
func (g *Graph) SendMessage(ctx context.Context, groupID, channelID, senderUserID string, req domain.CreateMessageRequest) (domain.Message, error) {
	if req.IdempotencyKey != "" {
		if existing, ok := g.lookupIdempotent(ctx, senderUserID, req.IdempotencyKey); ok {
			var msg domain.Message
			if err := g.db.Get(ctx, store.CollectionMessages, existing, &msg); err == nil {
				return msg, nil
			}
		}
	}

	ch, err := g.GetChannel(ctx, groupID, channelID)
	if err != nil {
		return domain.Message{}, err
	}
	if !g.IsMember(ctx, groupID, senderUserID) {
		return domain.Message{}, apperr.Forbidden("not a group member")
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = domain.MessageTypeMessage
	}
	isReply := req.ParentID != ""
	if !ch.Policy.Allows(msgType, isReply) {
		return domain.Message{}, apperr.Forbidden("message type not permitted by channel policy")
	}

	if isReply {
		var parent domain.Message
		if err := g.db.Get(ctx, store.CollectionMessages, req.ParentID, &parent); err != nil || parent.ChannelID != channelID {
			return domain.Message{}, apperr.NotFound("parent message not found in this channel")
		}
	}

	msg := domain.Message{
		ID:            uuid.NewString(),
		ChannelID:     channelID,
		SenderUserID:  senderUserID,
		Title:         req.Title,
		Body:          req.Body,
		MessageType:   msgType,
		ParentID:      req.ParentID,
		IdempotencyID: req.IdempotencyKey,
		CreatedAt:     time.Now().UTC(),
	}
	if err := g.db.Insert(ctx, store.CollectionMessages, msg.ID, msg); err != nil {
		return domain.Message{}, err
	}

	if req.IdempotencyKey != "" {
		rec := domain.IdempotencyKey{UserID: senderUserID, Key: req.IdempotencyKey, MessageID: msg.ID, CreatedAt: msg.CreatedAt}
		_ = g.db.Insert(ctx, store.CollectionIdempotencyKeys, senderUserID+":"+req.IdempotencyKey, rec)
	}

	return msg, nil
}

// idempotencyWindow bounds how long a previously-seen idempotency key is
// honored; entries older than this are treated as absent and swept lazily.
const idempotencyWindow = 24 * time.Hour

func (g *Graph) lookupIdempotent(ctx context.Context, userID, key string) (string, bool) {
	var rec domain.IdempotencyKey
	if err := g.db.Get(ctx, store.CollectionIdempotencyKeys, userID+":"+key, &rec); err != nil {
		return "", false
	}
	if time.Since(rec.CreatedAt) > idempotencyWindow {
		_ = g.db.Delete(ctx, store.CollectionIdempotencyKeys, userID+":"+key)
		return "", false
	}
	return rec.MessageID, true
}

// ListMessagesOptions are the query parameters for ListMessages. Limit is
// a pointer so an omitted query parameter (nil, defaults to 50) can be
// told apart from an explicit limit=0 (clamped up to 1).
type ListMessagesOptions struct {
	Cursor    string
	Direction string // "forward" | "backward", default "backward"
	Limit     *int   // clamped to [1, 200]; nil defaults to 50
}

// ListMessages returns a cursor-paginated page of messages in channelID,
// following the original's backward-then-reverse algorithm so the
// returned items are always ascending by (createdAt, id).
func (g *Graph) ListMessages(ctx context.Context, groupID, channelID, requesterID string, opts ListMessagesOptions) (domain.MessagesPage, error) {
	if _, err := g.GetChannel(ctx, groupID, channelID); err != nil {
		return domain.MessagesPage{}, err
	}
	if !g.IsMember(ctx, groupID, requesterID) {
		return domain.MessagesPage{}, apperr.Forbidden("not a group member")
	}

	direction := opts.Direction
	if direction == "" {
		direction = "backward"
	}
	if direction != "forward" && direction != "backward" {
		return domain.MessagesPage{}, apperr.BadRequest("direction must be forward or backward")
	}

	limit := 50
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	var all []domain.Message
	if err := g.db.Query(ctx, store.CollectionMessages, store.Filter{"channelId": channelID}, &all); err != nil {
		return domain.MessagesPage{}, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	var cursorTS time.Time
	var cursorID string
	hasCursor := false
	if opts.Cursor != "" {
		ts, id, err := decodeCursor(opts.Cursor)
		if err != nil {
			return domain.MessagesPage{}, apperr.BadRequest("malformed cursor")
		}
		cursorTS, cursorID, hasCursor = ts, id, true
	}

	var items []domain.Message
	if direction == "forward" {
		for _, m := range all {
			if hasCursor && !afterCursor(m, cursorTS, cursorID) {
				continue
			}
			items = append(items, m)
			if len(items) >= limit {
				break
			}
		}
	} else {
		var candidates []domain.Message
		for _, m := range all {
			if hasCursor && !beforeCursor(m, cursorTS, cursorID) {
				continue
			}
			candidates = append(candidates, m)
		}
		// Reverse to take the `limit` items closest to (but before) the
		// cursor, then reverse back so the result stays ascending.
		reverseMessages(candidates)
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		reverseMessages(candidates)
		items = candidates
	}

	page := domain.MessagesPage{Items: items, Page: domain.PageInfo{}}
	if len(items) > 0 {
		page.Page.NextCursor = encodeCursor(items[0].CreatedAt, items[0].ID)
		page.Page.PrevCursor = encodeCursor(items[len(items)-1].CreatedAt, items[len(items)-1].ID)
	}
	return page, nil
}

func afterCursor(m domain.Message, ts time.Time, id string) bool {
	if m.CreatedAt.After(ts) {
		return true
	}
	return m.CreatedAt.Equal(ts) && m.ID > id
}

func beforeCursor(m domain.Message, ts time.Time, id string) bool {
	if m.CreatedAt.Before(ts) {
		return true
	}
	return m.CreatedAt.Equal(ts) && m.ID < id
}

func reverseMessages(m []domain.Message) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}

func encodeCursor(ts time.Time, id string) string {
	raw := ts.Format(time.RFC3339Nano) + "|" + id
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", strconv.ErrSyntax
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}

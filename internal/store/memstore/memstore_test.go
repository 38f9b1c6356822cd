package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/store"
)

type widget struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

func TestInsertEnforcesUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "widgets", "w1", widget{ID: "w1", Owner: "alice"}))

	err := s.Insert(ctx, "widgets", "w1", widget{ID: "w1", Owner: "bob"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
}

func TestGetNotFound(t *testing.T) {
	s := New()
	var out widget
	err := s.Get(context.Background(), "widgets", "missing", &out)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}

func TestQueryFiltersByField(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "widgets", "w1", widget{ID: "w1", Owner: "alice"}))
	require.NoError(t, s.Insert(ctx, "widgets", "w2", widget{ID: "w2", Owner: "bob"}))

	var out []widget
	require.NoError(t, s.Query(ctx, "widgets", store.Filter{"owner": "alice"}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "w1", out[0].ID)
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "widgets", "w1", widget{ID: "w1", Owner: "alice"}))
	require.NoError(t, s.Update(ctx, "widgets", "w1", map[string]interface{}{"owner": "carol"}))

	var out widget
	require.NoError(t, s.Get(ctx, "widgets", "w1", &out))
	assert.Equal(t, "carol", out.Owner)
}

func TestDeleteWhereRemovesMatches(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "widgets", "w1", widget{ID: "w1", Owner: "alice"}))
	require.NoError(t, s.Insert(ctx, "widgets", "w2", widget{ID: "w2", Owner: "alice"}))
	require.NoError(t, s.Insert(ctx, "widgets", "w3", widget{ID: "w3", Owner: "bob"}))

	require.NoError(t, s.DeleteWhere(ctx, "widgets", store.Filter{"owner": "alice"}))

	var out []widget
	require.NoError(t, s.Query(ctx, "widgets", store.Filter{}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0].Owner)
}

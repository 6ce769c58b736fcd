package session

import (
	"context"
	"testing"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedViewUnfollowPrunesAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.photos["jane"] = []model.CatalogPhoto{photoBy("j1", "jane", 4), photoBy("j2", "jane", 0)}
	f.catalog.photos["bob"] = []model.CatalogPhoto{photoBy("b1", "bob", 7)}
	user := &model.Identity{UID: "a"}

	require.NoError(t, f.deps.Follows.Follow(ctx, user, "jane"))
	require.NoError(t, f.deps.Follows.Follow(ctx, user, "bob"))

	view := newFeedView(user, f.deps, 4)
	snap, err := view.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane", "bob"}, snap.Handles)
	assert.Equal(t, []string{"j1", "j2", "b1"}, stateIDs(snap.Photos))
	for _, p := range snap.Photos {
		assert.True(t, p.Following, p.ID)
	}

	snap, err = view.Unfollow(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, snap.Handles)
	assert.Equal(t, []string{"b1"}, stateIDs(snap.Photos))

	following, err := f.deps.Follows.IsFollowing(ctx, "a", "jane")
	require.NoError(t, err)
	assert.False(t, following)

	snap, err = view.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, stateIDs(snap.Photos))
}

func TestFeedViewToggleLikeCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.photos["jane"] = []model.CatalogPhoto{photoBy("j1", "jane", 0)}
	user := &model.Identity{UID: "a"}
	require.NoError(t, f.deps.Follows.Follow(ctx, user, "jane"))

	view := newFeedView(user, f.deps, 4)
	_, err := view.Load(ctx)
	require.NoError(t, err)

	state, err := view.ToggleLike(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 1, state.DisplayLikes)

	state, err = view.ToggleLike(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, 0, state.DisplayLikes)

	state, err = view.ToggleLike(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, state.Liked)

	snap, err := view.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Photos, 1)
	assert.True(t, snap.Photos[0].Liked)
	assert.Equal(t, 0, snap.Photos[0].DisplayLikes)

	_, err = view.ToggleLike(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrResourceNotFound))
}

func TestFeedViewClosed(t *testing.T) {
	f := newFixture()
	view := newFeedView(&model.Identity{UID: "a"}, f.deps, 4)
	closes := 0
	view.onClose = func() { closes++ }

	view.Close()
	view.Close()
	assert.Equal(t, 1, closes)

	_, err := view.Load(context.Background())
	assert.Error(t, err)
}

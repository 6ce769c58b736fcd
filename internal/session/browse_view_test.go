package session

import (
	"context"
	"math/rand"
	"testing"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowseViewPagesAppend(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.pages[1] = []model.CatalogPhoto{photoBy("p1", "jane", 1), photoBy("p2", "bob", 2)}
	f.catalog.pages[2] = []model.CatalogPhoto{photoBy("p3", "jane", 3)}

	view := newBrowseView(&model.Identity{UID: "a"}, f.deps, 4)

	snap, err := view.Search(ctx, "sunset", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, stateIDs(snap.Photos))
	assert.Equal(t, 2, snap.TotalPages)

	snap, err = view.Search(ctx, "sunset", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, stateIDs(snap.Photos))
	assert.Equal(t, 2, snap.Page)

	snap, err = view.Search(ctx, "sunset", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, stateIDs(snap.Photos))

	_, err = view.Search(ctx, "", 1)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestBrowseViewHydratesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.pages[1] = []model.CatalogPhoto{photoBy("p1", "jane", 1), photoBy("p2", "jane", 2)}
	user := &model.Identity{UID: "a"}

	p1 := photoBy("p1", "jane", 1)
	_, err := f.deps.Likes.Like(ctx, user, &p1)
	require.NoError(t, err)
	require.NoError(t, f.deps.Follows.Follow(ctx, user, "jane"))

	view := newBrowseView(user, f.deps, 4)
	snap, err := view.Search(ctx, "mountains", 1)
	require.NoError(t, err)
	require.Len(t, snap.Photos, 2)
	assert.True(t, snap.Photos[0].Liked)
	assert.False(t, snap.Photos[1].Liked)
	assert.True(t, snap.Photos[0].Following)
	assert.True(t, snap.Photos[1].Following)
	assert.Equal(t, 2, f.likes.calls())

	_, err = view.Hydrate(ctx)
	require.NoError(t, err)
	_, err = view.Search(ctx, "mountains", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, f.likes.calls())
}

func TestBrowseViewToggleFollowUpdatesAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.pages[1] = []model.CatalogPhoto{photoBy("p1", "jane", 1), photoBy("p2", "jane", 2), photoBy("p3", "bob", 0)}
	view := newBrowseView(&model.Identity{UID: "a"}, f.deps, 4)

	_, err := view.Search(ctx, "city", 1)
	require.NoError(t, err)

	following, err := view.ToggleFollow(ctx, "jane")
	require.NoError(t, err)
	assert.True(t, following)

	snap := view.Snapshot()
	assert.True(t, snap.Photos[0].Following)
	assert.True(t, snap.Photos[1].Following)
	assert.False(t, snap.Photos[2].Following)

	following, err = view.ToggleFollow(ctx, "jane")
	require.NoError(t, err)
	assert.False(t, following)
	assert.False(t, view.Snapshot().Photos[0].Following)
}

func TestBrowseViewDiscoverUsesTopic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.pages[1] = []model.CatalogPhoto{photoBy("p1", "jane", 1)}
	f.catalog.pages[2] = []model.CatalogPhoto{photoBy("p2", "jane", 1)}

	view := newBrowseView(&model.Identity{UID: "a"}, f.deps, 4)
	view.SetRand(rand.New(rand.NewSource(1)))

	snap, err := view.Discover(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, DiscoverTopics, snap.Query)
	assert.Equal(t, snap.Query, f.catalog.lastQuery())

	next, err := view.Discover(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, snap.Query, next.Query)
	assert.Equal(t, []string{"p1", "p2"}, stateIDs(next.Photos))
}

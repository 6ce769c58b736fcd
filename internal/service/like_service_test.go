package service

import (
	"context"
	"testing"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeParity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := NewLikeService(store.Likes(), nil)
	user := &model.Identity{UID: "u1"}
	photo := photoBy("p1", "jane", 5)

	for n := 1; n <= 6; n++ {
		liked, err := svc.ToggleLike(ctx, user, &photo)
		require.NoError(t, err)
		assert.Equal(t, n%2 == 1, liked)

		exists, err := svc.IsLiked(ctx, "u1", "p1")
		require.NoError(t, err)
		assert.Equal(t, n%2 == 1, exists, "after %d toggles", n)
	}
}

func TestToggleLikeStoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := NewLikeService(store.Likes(), nil)
	photo := photoBy("p1", "jane", 5)
	photo.AltDescription = "sunset"

	_, err := svc.ToggleLike(ctx, &model.Identity{UID: "u1"}, &photo)
	require.NoError(t, err)

	liked, err := svc.LikedByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, "u1_p1", liked[0].ID)
	assert.Equal(t, "https://img/p1", liked[0].PhotoURL)
	assert.Equal(t, "sunset", liked[0].Description)
	assert.Equal(t, 5, liked[0].LikesCount)
}

func TestLikeRequiresIdentityBeforeWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := NewLikeService(store.Likes(), nil)
	photo := photoBy("p1", "jane", 5)

	_, err := svc.ToggleLike(ctx, nil, &photo)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthenticated))

	_, err = svc.Like(ctx, nil, &photo)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthenticated))

	all, err := store.Likes().ListByUser(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLikeAndUnlikeAreIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewLikeService(memory.NewStore(nil).Likes(), nil)
	user := &model.Identity{UID: "u1"}
	photo := photoBy("p1", "jane", 0)

	created, err := svc.Like(ctx, user, &photo)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.Like(ctx, user, &photo)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := svc.Unlike(ctx, user, "p1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.Unlike(ctx, user, "p1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUnlikeByRecord(t *testing.T) {
	ctx := context.Background()
	svc := NewLikeService(memory.NewStore(nil).Likes(), nil)
	owner := &model.Identity{UID: "u1"}
	photo := photoBy("p1", "jane", 0)

	_, err := svc.Like(ctx, owner, &photo)
	require.NoError(t, err)

	err = svc.UnlikeByRecord(ctx, &model.Identity{UID: "u2"}, "u1_p1")
	assert.True(t, errors.IsCode(err, errors.ErrForbidden))

	require.NoError(t, svc.UnlikeByRecord(ctx, owner, "u1_p1"))
	require.NoError(t, svc.UnlikeByRecord(ctx, owner, "u1_p1"))

	liked, err := svc.IsLiked(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, liked)
}

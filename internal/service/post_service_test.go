package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingPosts 写入文档总是失败
type failingPosts struct {
	*memory.PostRepository
}

func (failingPosts) Create(ctx context.Context, post *model.Post) error {
	return stderrors.New("deadline exceeded")
}

var jpeg = model.Upload{Filename: "sunset.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestSunsetScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	svc := NewPostService(store.Posts(), blobs, nil)
	svc.SetClock(func() time.Time { return time.UnixMilli(1700000000000) })
	user := &model.Identity{UID: "a"}

	post, err := svc.CreatePost(ctx, user, jpeg, "sunset")
	require.NoError(t, err)
	assert.Regexp(t, `^posts/a/1700000000000_[0-9a-f]{8}_sunset\.jpg$`, post.StoragePath)
	assert.True(t, blobs.has(post.StoragePath))

	count, err := svc.CountByUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.EditDescription(ctx, user, post.ID, "sunset over the bay")
	require.NoError(t, err)

	reread, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "sunset over the bay", reread.Description)
	assert.Equal(t, post.ID, reread.ID)
	assert.Equal(t, post.PhotoURL, reread.PhotoURL)
	assert.Equal(t, post.StoragePath, reread.StoragePath)
	assert.Equal(t, post.CreatedAt, reread.CreatedAt)
}

func TestCreatePostUploadFailedWritesNoDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	blobs.putErr = stderrors.New("quota exceeded")
	svc := NewPostService(store.Posts(), blobs, nil)

	_, err := svc.CreatePost(ctx, &model.Identity{UID: "a"}, jpeg, "x")
	assert.True(t, errors.IsCode(err, errors.ErrUploadFailed))

	count, err := svc.CountByUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCreatePostRecordFailedReportsOrphan(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	m := metrics.New()
	svc := NewPostService(failingPosts{store.Posts()}, blobs, m)

	_, err := svc.CreatePost(ctx, &model.Identity{UID: "a"}, jpeg, "x")
	assert.True(t, errors.IsCode(err, errors.ErrRecordFailed))
	assert.Equal(t, 1, blobs.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrphanedBlobs))
}

func TestCreatePostRequiresIdentity(t *testing.T) {
	blobs := newMemBlobs()
	svc := NewPostService(memory.NewStore(nil).Posts(), blobs, nil)

	_, err := svc.CreatePost(context.Background(), nil, jpeg, "x")
	assert.True(t, errors.IsCode(err, errors.ErrUnauthenticated))
	assert.Equal(t, 0, blobs.count())
}

func TestDeletePostReleaseFailureKeepsDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	svc := NewPostService(store.Posts(), blobs, nil)
	user := &model.Identity{UID: "a"}

	post, err := svc.CreatePost(ctx, user, jpeg, "x")
	require.NoError(t, err)

	blobs.deleteErr = stderrors.New("permission denied")
	err = svc.DeletePost(ctx, user, post.ID)
	assert.True(t, errors.IsCode(err, errors.ErrReleaseFailed))

	still, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, still.ID)
}

func TestDeletePostReleasesBlobThenDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	svc := NewPostService(store.Posts(), blobs, nil)
	user := &model.Identity{UID: "a"}

	post, err := svc.CreatePost(ctx, user, jpeg, "x")
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, user, post.ID))
	assert.False(t, blobs.has(post.StoragePath))

	_, err = svc.GetPost(ctx, post.ID)
	assert.True(t, errors.IsCode(err, errors.ErrPostNotFound))
}

func TestDeletePostWithMissingBlobStillDeletes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := NewPostService(store.Posts(), newMemBlobs(), nil)
	user := &model.Identity{UID: "a"}

	post := &model.Post{UserID: "a", StoragePath: "posts/a/1_gone.jpg", PhotoURL: "https://x"}
	require.NoError(t, store.Posts().Create(ctx, post))

	require.NoError(t, svc.DeletePost(ctx, user, post.ID))
	_, err := svc.GetPost(ctx, post.ID)
	assert.True(t, errors.IsCode(err, errors.ErrPostNotFound))
}

func TestOnlyOwnerMayEditOrDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := NewPostService(store.Posts(), newMemBlobs(), nil)

	post, err := svc.CreatePost(ctx, &model.Identity{UID: "a"}, jpeg, "x")
	require.NoError(t, err)

	intruder := &model.Identity{UID: "b"}
	_, err = svc.EditDescription(ctx, intruder, post.ID, "mine")
	assert.True(t, errors.IsCode(err, errors.ErrForbidden))
	assert.True(t, errors.IsCode(svc.DeletePost(ctx, intruder, post.ID), errors.ErrForbidden))
}

func TestVisiblePostsSkipsEmptyURL(t *testing.T) {
	posts := []*model.Post{{ID: "1", PhotoURL: "https://x"}, {ID: "2"}}
	visible := VisiblePosts(posts)
	require.Len(t, visible, 1)
	assert.Equal(t, "1", visible[0].ID)
}

package session

import (
	"context"
	"testing"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/changefeed"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// drained 读完缓冲的通知后，通道应已关闭
func drained(ch <-chan struct{}) bool {
	for i := 0; i < 2; i++ {
		if _, open := <-ch; !open {
			return true
		}
	}
	return false
}

func upload(name string) model.Upload {
	return model.Upload{Filename: name, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestProfileViewTracksPostCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := &model.Identity{UID: "a"}

	view, err := openProfileView(ctx, user, f.deps)
	require.NoError(t, err)
	defer view.Close()

	post, err := f.deps.Posts.CreatePost(ctx, user, upload("sunset.jpg"), "sunset")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return view.State().PostsCount == 1 }, waitFor, 10*time.Millisecond)
	state := view.State()
	require.Len(t, state.Posts, 1)
	assert.Equal(t, post.ID, state.Posts[0].ID)

	edited, err := view.EditDescription(ctx, post.ID, "golden hour")
	require.NoError(t, err)
	assert.Equal(t, post.ID, edited.ID)
	assert.Equal(t, post.PhotoURL, edited.PhotoURL)
	assert.Equal(t, "golden hour", view.State().Posts[0].Description)

	require.NoError(t, view.DeletePost(ctx, post.ID))
	assert.Equal(t, 0, view.State().PostsCount)
	assert.Eventually(t, func() bool { return view.State().PostsCount == 0 }, waitFor, 10*time.Millisecond)
}

func TestProfileViewHidesReleasedPost(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWithPosts(func(s *memory.Store) interfaces.PostRepository {
		return brokenPostDelete{PostRepository: s.Posts()}
	})
	user := &model.Identity{UID: "a"}

	post, err := f.deps.Posts.CreatePost(ctx, user, upload("beach.jpg"), "")
	require.NoError(t, err)

	view, err := openProfileView(ctx, user, f.deps)
	require.NoError(t, err)
	defer view.Close()
	assert.Eventually(t, func() bool { return view.State().PostsCount == 1 }, waitFor, 10*time.Millisecond)

	err = view.DeletePost(ctx, post.ID)
	assert.True(t, errors.IsCode(err, errors.ErrRecordFailed))
	// 文档仍在，计入数量但不显示
	assert.Equal(t, 1, view.State().PostsCount)
	assert.Empty(t, view.State().Posts)

	stored, err := f.deps.Posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, stored.ID)
}

func TestProfileViewFollowsAndLikes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := &model.Identity{UID: "a"}
	photo := photoBy("p1", "jane", 3)

	require.NoError(t, f.deps.Follows.Follow(ctx, user, "jane"))
	require.NoError(t, f.deps.Follows.Follow(ctx, user, "bob"))
	_, err := f.deps.Likes.Like(ctx, user, &photo)
	require.NoError(t, err)

	view, err := openProfileView(ctx, user, f.deps)
	require.NoError(t, err)
	defer view.Close()

	assert.Eventually(t, func() bool {
		s := view.State()
		return s.FollowingCount == 2 && len(s.Liked) == 1
	}, waitFor, 10*time.Millisecond)

	require.NoError(t, view.Unfollow(ctx, "jane"))
	state := view.State()
	assert.Equal(t, 1, state.FollowingCount)
	assert.Equal(t, []string{"bob"}, state.Following)

	require.NoError(t, view.UnlikeRecord(ctx, model.LikeKey("a", "p1")))
	assert.Empty(t, view.State().Liked)

	liked, err := f.deps.Likes.IsLiked(ctx, "a", "p1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestProfileViewCloseStopsSubscriptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hub := f.store.Hub()
	user := &model.Identity{UID: "a"}

	view, err := openProfileView(ctx, user, f.deps)
	require.NoError(t, err)

	topics := []string{
		changefeed.Topic(changefeed.KindPosts, "a"),
		changefeed.Topic(changefeed.KindFollows, "a"),
		changefeed.Topic(changefeed.KindLikes, "a"),
	}
	for _, topic := range topics {
		topic := topic
		assert.Eventually(t, func() bool { return hub.Watchers(topic) == 1 }, waitFor, 10*time.Millisecond, topic)
	}

	view.Close()
	for _, topic := range topics {
		topic := topic
		assert.Eventually(t, func() bool { return hub.Watchers(topic) == 0 }, waitFor, 10*time.Millisecond, topic)
	}

	assert.True(t, drained(view.Changes()))

	_, err = f.deps.Posts.CreatePost(ctx, user, upload("late.jpg"), "")
	require.NoError(t, err)
	assert.Equal(t, 0, view.State().PostsCount)
}

func TestProfileViewRequiresIdentity(t *testing.T) {
	_, err := openProfileView(context.Background(), nil, newFixture().deps)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthenticated))
}

func TestProfileViewActionsAfterClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := &model.Identity{UID: "a"}
	photo := photoBy("p1", "jane", 3)

	require.NoError(t, f.deps.Follows.Follow(ctx, user, "jane"))
	_, err := f.deps.Likes.Like(ctx, user, &photo)
	require.NoError(t, err)
	post, err := f.deps.Posts.CreatePost(ctx, user, upload("sunset.jpg"), "sunset")
	require.NoError(t, err)

	view, err := openProfileView(ctx, user, f.deps)
	require.NoError(t, err)
	view.Close()

	assert.NotPanics(t, func() {
		err := view.UnlikeRecord(ctx, model.LikeKey("a", "p1"))
		assert.True(t, errors.IsCode(err, errors.ErrResourceConflict))
	})
	assert.NotPanics(t, func() {
		err := view.DeletePost(ctx, post.ID)
		assert.True(t, errors.IsCode(err, errors.ErrResourceConflict))
	})
	assert.NotPanics(t, func() {
		_, err := view.EditDescription(ctx, post.ID, "late")
		assert.True(t, errors.IsCode(err, errors.ErrResourceConflict))
	})
	assert.NotPanics(t, func() {
		err := view.Unfollow(ctx, "jane")
		assert.True(t, errors.IsCode(err, errors.ErrResourceConflict))
	})

	// 关闭后不再写入存储
	liked, err := f.deps.Likes.IsLiked(ctx, "a", "p1")
	require.NoError(t, err)
	assert.True(t, liked)
	following, err := f.deps.Follows.IsFollowing(ctx, "a", "jane")
	require.NoError(t, err)
	assert.True(t, following)
	stored, err := f.deps.Posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "sunset", stored.Description)
}

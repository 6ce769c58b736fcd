package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	"photoshared-backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 Firestore 模拟器
func emulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST 未设置")
	}
	store, err := NewStore(context.Background(), "photoshared-test", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEmulatorLikeToggle(t *testing.T) {
	ctx := context.Background()
	store := emulatorStore(t)
	likes := store.Likes()
	uid := uuid.NewString()

	liked, err := likes.Toggle(ctx, &model.Like{UserID: uid, PhotoID: "p1"})
	require.NoError(t, err)
	assert.True(t, liked)

	created, err := likes.CreateIfAbsent(ctx, &model.Like{UserID: uid, PhotoID: "p1"})
	require.NoError(t, err)
	assert.False(t, created)

	liked, err = likes.Toggle(ctx, &model.Like{UserID: uid, PhotoID: "p1"})
	require.NoError(t, err)
	assert.False(t, liked)

	removed, err := likes.DeleteIfPresent(ctx, model.LikeKey(uid, "p1"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestEmulatorFollowSubscription(t *testing.T) {
	ctx := context.Background()
	store := emulatorStore(t)
	follows := store.Follows()
	uid := uuid.NewString()

	counts := make(chan int, 16)
	unsubscribe, err := follows.SubscribeByFollower(ctx, uid, func(fs []*model.Follow) { counts <- len(fs) }, func(error) {})
	require.NoError(t, err)
	defer unsubscribe()

	created, err := follows.CreateIfAbsent(ctx, &model.Follow{FollowerID: uid, FollowingID: "jane"})
	require.NoError(t, err)
	assert.True(t, created)

	assert.Eventually(t, func() bool {
		for {
			select {
			case n := <-counts:
				if n == 1 {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 50*time.Millisecond)

	removed, err := follows.DeleteMatching(ctx, uid, "jane")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

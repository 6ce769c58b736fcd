package changefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCoalescesNotifications(t *testing.T) {
	hub := NewHub()
	ch, stop := hub.Watch("posts.u1")
	defer stop()

	hub.Notify("posts.u1")
	hub.Notify("posts.u1")
	hub.Notify("posts.u2")

	select {
	case <-ch:
	default:
		t.Fatal("expected a notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should be coalesced")
	default:
	}
}

func TestStopRemovesWatcher(t *testing.T) {
	hub := NewHub()
	_, stop := hub.Watch("likes.u1")
	assert.Equal(t, 1, hub.Watchers("likes.u1"))
	stop()
	stop()
	assert.Equal(t, 0, hub.Watchers("likes.u1"))
}

func TestRunDeliversSnapshotsUntilUnsubscribed(t *testing.T) {
	hub := NewHub()

	var mu sync.Mutex
	data := []int{1}
	var got [][]int

	unsubscribe := Run(context.Background(), hub, "posts.u1",
		func(context.Context) ([]int, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]int(nil), data...), nil
		},
		func(items []int) {
			mu.Lock()
			got = append(got, items)
			mu.Unlock()
		},
		func(error) { t.Error("unexpected error") },
	)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	data = append(data, 2)
	mu.Unlock()
	hub.Notify("posts.u1")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2 && len(got[1]) == 2
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	require.Eventually(t, func() bool { return hub.Watchers("posts.u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestRunStopsOnError(t *testing.T) {
	hub := NewHub()
	errCh := make(chan error, 1)

	Run(context.Background(), hub, "follows.u1",
		func(context.Context) ([]string, error) { return nil, errors.New("missing index") },
		func([]string) { t.Error("no snapshot expected") },
		func(err error) { errCh <- err },
	)

	select {
	case err := <-errCh:
		assert.EqualError(t, err, "missing index")
	case <-time.After(time.Second):
		t.Fatal("onError not called")
	}
	require.Eventually(t, func() bool { return hub.Watchers("follows.u1") == 0 }, time.Second, 5*time.Millisecond)
}

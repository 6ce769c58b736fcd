package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"photoshared-backend/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	common.RetryBackoff = func(int) time.Duration { return time.Millisecond }
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

const janePhotos = `[{"id":"p1","alt_description":"sunset","likes":7,
  "urls":{"regular":"https://img/p1","thumb":"https://img/p1t"},
  "user":{"username":"jane","name":"Jane","profile_image":{"medium":"https://img/jane"}}}]`

func TestUserPhotosSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/jane/photos", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.Header.Get("Accept-Version"))
		_, _ = w.Write([]byte(janePhotos))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithRateLimit(0))
	photos, err := c.UserPhotos(context.Background(), "jane", 1, 10)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "p1", photos[0].ID)
	assert.Equal(t, 7, photos[0].Likes)
	assert.Equal(t, "https://img/p1", photos[0].URLs.Regular)
	assert.Equal(t, "jane", photos[0].User.Username)
	assert.Equal(t, "https://img/jane", photos[0].User.ProfileImage.Medium)
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "aurora borealis", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"total":1,"total_pages":1,"results":[{"id":"p9"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithRateLimit(0))
	result, err := c.Search(context.Background(), "aurora borealis", 1, 15)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalPages)
	assert.Equal(t, "p9", result.Results[0].ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithRateLimit(0))
	_, err := c.UserPhotos(context.Background(), "ghost", 1, 10)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheServesRepeatRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(janePhotos))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithRateLimit(0), WithCache(&mapCache{data: map[string][]byte{}}))
	for i := 0; i < 3; i++ {
		photos, err := c.UserPhotos(context.Background(), "jane", 1, 10)
		require.NoError(t, err)
		require.Len(t, photos, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

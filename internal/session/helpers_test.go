package session

import (
	"context"
	"fmt"
	"sync"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/repository/memory"
	"photoshared-backend/internal/service"
	"photoshared-backend/internal/storage"
)

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(ctx context.Context, path string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
	return nil
}

func (b *memBlobs) URL(ctx context.Context, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; !ok {
		return "", storage.ErrNotFound
	}
	return "https://blobs.test/" + path, nil
}

func (b *memBlobs) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, path)
	return nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	photos   map[string][]model.CatalogPhoto
	pages    map[int][]model.CatalogPhoto
	queries  []string
	photoHit map[string]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		photos:   make(map[string][]model.CatalogPhoto),
		pages:    make(map[int][]model.CatalogPhoto),
		photoHit: make(map[string]int),
	}
}

func (c *fakeCatalog) UserPhotos(ctx context.Context, handle string, page, perPage int) ([]model.CatalogPhoto, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photoHit[handle]++
	return c.photos[handle], nil
}

func (c *fakeCatalog) Search(ctx context.Context, query string, page, perPage int) (*model.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	results, ok := c.pages[page]
	if !ok {
		return nil, fmt.Errorf("no page %d", page)
	}
	return &model.SearchResult{Total: 30, TotalPages: len(c.pages), Results: results}, nil
}

func (c *fakeCatalog) lastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queries) == 0 {
		return ""
	}
	return c.queries[len(c.queries)-1]
}

// countingLikes 统计点赞状态查询次数
type countingLikes struct {
	*memory.LikeRepository
	mu     sync.Mutex
	exists int
}

func (r *countingLikes) Exists(ctx context.Context, userID, photoID string) (bool, error) {
	r.mu.Lock()
	r.exists++
	r.mu.Unlock()
	return r.LikeRepository.Exists(ctx, userID, photoID)
}

func (r *countingLikes) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exists
}

// brokenPostDelete 文档删除总是失败
type brokenPostDelete struct {
	*memory.PostRepository
}

func (r brokenPostDelete) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("document store unavailable")
}

type fixture struct {
	store   *memory.Store
	blobs   *memBlobs
	catalog *fakeCatalog
	likes   *countingLikes
	deps    *Services
}

func newFixture() *fixture {
	return newFixtureWithPosts(nil)
}

func newFixtureWithPosts(posts func(*memory.Store) interfaces.PostRepository) *fixture {
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	catalog := newFakeCatalog()
	likes := &countingLikes{LikeRepository: store.Likes()}

	var postRepo interfaces.PostRepository = store.Posts()
	if posts != nil {
		postRepo = posts(store)
	}

	follows := service.NewFollowService(store.Follows(), nil)
	deps := &Services{
		Posts:   service.NewPostService(postRepo, blobs, nil),
		Likes:   service.NewLikeService(likes, nil),
		Follows: follows,
		Feeds:   service.NewFeedService(follows, catalog, nil, 4),
	}
	return &fixture{store: store, blobs: blobs, catalog: catalog, likes: likes, deps: deps}
}

func photoBy(id, handle string, likes int) model.CatalogPhoto {
	return model.CatalogPhoto{
		ID:    id,
		Likes: likes,
		URLs:  model.PhotoURLs{Regular: "https://img/" + id, Thumb: "https://img/" + id + "/t"},
		User:  model.CatalogUser{Username: handle, Name: handle},
	}
}

func stateIDs(photos []PhotoState) []string {
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}

package service

import (
	"context"
	"fmt"
	"sync"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/storage"
)

// memBlobs 内存对象存储，可注入错误
type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(ctx context.Context, path string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
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
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.objects[path]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, path)
	return nil
}

func (b *memBlobs) has(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// fakeCatalog 按用户名返回固定图片
type fakeCatalog struct {
	mu      sync.Mutex
	photos  map[string][]model.CatalogPhoto
	failFor map[string]bool
	calls   map[string]int
	search  *model.SearchResult
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		photos:  make(map[string][]model.CatalogPhoto),
		failFor: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (c *fakeCatalog) UserPhotos(ctx context.Context, handle string, page, perPage int) ([]model.CatalogPhoto, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[handle]++
	if c.failFor[handle] {
		return nil, fmt.Errorf("catalog unavailable for %s", handle)
	}
	return c.photos[handle], nil
}

func (c *fakeCatalog) Search(ctx context.Context, query string, page, perPage int) (*model.SearchResult, error) {
	if c.search == nil {
		return &model.SearchResult{}, nil
	}
	return c.search, nil
}

func photoBy(id, handle string, likes int) model.CatalogPhoto {
	return model.CatalogPhoto{
		ID:    id,
		Likes: likes,
		URLs:  model.PhotoURLs{Regular: "https://img/" + id, Thumb: "https://img/" + id + "/t"},
		User:  model.CatalogUser{Username: handle, Name: handle},
	}
}

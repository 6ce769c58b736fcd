package storage

import (
	"context"
	"errors"

	"photoshared-backend/internal/metrics"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("对象不存在")

// BlobStore 对象存储
type BlobStore interface {
	// Put 写入对象，已存在则覆盖
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// URL 返回可访问的地址，对象不存在时返回 ErrNotFound
	URL(ctx context.Context, path string) (string, error)
	// Delete 删除对象，对象不存在时返回 ErrNotFound
	Delete(ctx context.Context, path string) error
}

// Instrumented 为对象存储操作计数
type Instrumented struct {
	BlobStore
	metrics *metrics.Metrics
}

func WithMetrics(store BlobStore, m *metrics.Metrics) *Instrumented {
	return &Instrumented{BlobStore: store, metrics: m}
}

func (s *Instrumented) Put(ctx context.Context, path string, data []byte, contentType string) error {
	err := s.BlobStore.Put(ctx, path, data, contentType)
	s.metrics.ObserveBlob("put", err)
	return err
}

func (s *Instrumented) URL(ctx context.Context, path string) (string, error) {
	url, err := s.BlobStore.URL(ctx, path)
	s.metrics.ObserveBlob("url", ignoreNotFound(err))
	return url, err
}

func (s *Instrumented) Delete(ctx context.Context, path string) error {
	err := s.BlobStore.Delete(ctx, path)
	s.metrics.ObserveBlob("delete", ignoreNotFound(err))
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

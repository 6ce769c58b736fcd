package service

import (
	"context"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// FeedPerPage 每个关注用户拉取的图片数
	FeedPerPage = 10
	// SearchPerPage 搜索每页数量
	SearchPerPage = 15
)

// FeedService 根据关注列表组装动态。动态每次请求都重新计算，不是实时订阅。
type FeedService struct {
	follows  *FollowService
	catalog  interfaces.PhotoCatalog
	metrics  *metrics.Metrics
	parallel int
}

func NewFeedService(follows *FollowService, catalog interfaces.PhotoCatalog, m *metrics.Metrics, parallel int) *FeedService {
	if parallel <= 0 {
		parallel = 4
	}
	return &FeedService{follows: follows, catalog: catalog, metrics: m, parallel: parallel}
}

// Assemble 读取关注列表，逐个拉取图片并按关注顺序拼接。单个用户拉取失败会被跳过并记录。
func (s *FeedService) Assemble(ctx context.Context, id *model.Identity) (feed *model.Feed, err error) {
	defer func() { s.metrics.ObserveOperation("feed.assemble", err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	handles, err := s.follows.FollowingHandles(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	return s.AssembleFor(ctx, handles), nil
}

// AssembleFor 为给定的用户名列表拉取图片
func (s *FeedService) AssembleFor(ctx context.Context, handles []string) *model.Feed {
	results := make([][]model.CatalogPhoto, len(handles))
	failed := make([]bool, len(handles))

	var g errgroup.Group
	g.SetLimit(s.parallel)
	for i, handle := range handles {
		i, handle := i, handle
		g.Go(func() error {
			photos, err := s.catalog.UserPhotos(ctx, handle, 1, FeedPerPage)
			if err != nil {
				util.Logger.Warn("拉取关注用户图片失败，已跳过", zap.String("handle", handle), zap.Error(err))
				failed[i] = true
				return nil
			}
			results[i] = photos
			return nil
		})
	}
	_ = g.Wait()

	feed := &model.Feed{Handles: handles, Photos: []model.CatalogPhoto{}}
	for i := range handles {
		if failed[i] {
			feed.Failed = append(feed.Failed, handles[i])
			continue
		}
		feed.Photos = append(feed.Photos, results[i]...)
	}
	return feed
}

// Search 搜索图片目录
func (s *FeedService) Search(ctx context.Context, query string, page int) (*model.SearchResult, error) {
	if page < 1 {
		page = 1
	}
	result, err := s.catalog.Search(ctx, query, page, SearchPerPage)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCatalogFailed, "搜索图片失败", err)
	}
	return result, nil
}

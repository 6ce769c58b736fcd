package service

import (
	"context"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// LikeService 管理点赞边
type LikeService struct {
	likes   interfaces.LikeRepository
	metrics *metrics.Metrics
}

func NewLikeService(likes interfaces.LikeRepository, m *metrics.Metrics) *LikeService {
	return &LikeService{likes: likes, metrics: m}
}

func validatePhoto(photo *model.CatalogPhoto) error {
	if photo == nil || photo.ID == "" {
		return errors.New(errors.ErrValidation, "缺少图片信息")
	}
	return nil
}

// ToggleLike 在存储端原子切换点赞状态，返回切换后是否已点赞
func (s *LikeService) ToggleLike(ctx context.Context, id *model.Identity, photo *model.CatalogPhoto) (liked bool, err error) {
	defer func() { s.metrics.ObserveOperation("like.toggle", err) }()

	if err := requireIdentity(id); err != nil {
		return false, err
	}
	if err := validatePhoto(photo); err != nil {
		return false, err
	}

	liked, err = s.likes.Toggle(ctx, model.NewLikeSnapshot(id.UID, photo))
	if err != nil {
		util.Logger.Error("切换点赞失败", util.UID(id.UID), zap.String("photo_id", photo.ID), zap.Error(err))
		return false, errors.Wrap(errors.ErrDatabase, "点赞失败", err)
	}

	util.Logger.Info("切换点赞", util.UID(id.UID), zap.String("photo_id", photo.ID), zap.Bool("liked", liked))
	return liked, nil
}

// Like 幂等点赞，返回是否新建
func (s *LikeService) Like(ctx context.Context, id *model.Identity, photo *model.CatalogPhoto) (created bool, err error) {
	defer func() { s.metrics.ObserveOperation("like.create", err) }()

	if err := requireIdentity(id); err != nil {
		return false, err
	}
	if err := validatePhoto(photo); err != nil {
		return false, err
	}

	created, err = s.likes.CreateIfAbsent(ctx, model.NewLikeSnapshot(id.UID, photo))
	if err != nil {
		util.Logger.Error("点赞失败", util.UID(id.UID), zap.String("photo_id", photo.ID), zap.Error(err))
		return false, errors.Wrap(errors.ErrDatabase, "点赞失败", err)
	}
	return created, nil
}

// Unlike 幂等取消点赞，返回是否删除了记录
func (s *LikeService) Unlike(ctx context.Context, id *model.Identity, photoID string) (removed bool, err error) {
	defer func() { s.metrics.ObserveOperation("like.delete", err) }()

	if err := requireIdentity(id); err != nil {
		return false, err
	}

	removed, err = s.likes.DeleteIfPresent(ctx, model.LikeKey(id.UID, photoID))
	if err != nil {
		util.Logger.Error("取消点赞失败", util.UID(id.UID), zap.String("photo_id", photoID), zap.Error(err))
		return false, errors.Wrap(errors.ErrDatabase, "取消点赞失败", err)
	}
	return removed, nil
}

// UnlikeByRecord 按点赞记录ID删除，只能删除自己的记录，记录不存在时视为成功
func (s *LikeService) UnlikeByRecord(ctx context.Context, id *model.Identity, likeID string) (err error) {
	defer func() { s.metrics.ObserveOperation("like.delete_record", err) }()

	if err := requireIdentity(id); err != nil {
		return err
	}

	like, err := s.likes.FindByID(ctx, likeID)
	if err != nil {
		return errors.Wrap(errors.ErrQueryFailed, "查询点赞记录失败", err)
	}
	if like == nil {
		return nil
	}
	if like.UserID != id.UID {
		util.Logger.Warn("尝试删除他人的点赞记录", util.UID(id.UID), zap.String("like_id", likeID))
		return errors.New(errors.ErrForbidden, "无权删除该点赞")
	}

	if _, err := s.likes.DeleteIfPresent(ctx, likeID); err != nil {
		util.Logger.Error("删除点赞记录失败", util.UID(id.UID), zap.String("like_id", likeID), zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "取消点赞失败", err)
	}
	return nil
}

// IsLiked 按复合键判断是否已点赞
func (s *LikeService) IsLiked(ctx context.Context, uid, photoID string) (bool, error) {
	ok, err := s.likes.Exists(ctx, uid, photoID)
	if err != nil {
		return false, errors.Wrap(errors.ErrQueryFailed, "查询点赞状态失败", err)
	}
	return ok, nil
}

// LikedByUser “喜欢”标签页的数据，按时间倒序
func (s *LikeService) LikedByUser(ctx context.Context, uid string) ([]*model.Like, error) {
	likes, err := s.likes.ListByUser(ctx, uid)
	if err != nil {
		util.Logger.Error("查询点赞列表失败", util.UID(uid), zap.Error(err))
		return nil, errors.Wrap(errors.ErrQueryFailed, "查询点赞列表失败", err)
	}
	return likes, nil
}

// SubscribeLiked 实时订阅点赞列表
func (s *LikeService) SubscribeLiked(ctx context.Context, uid string, onSnapshot func([]*model.Like), onError func(error)) (interfaces.Unsubscribe, error) {
	unsubscribe, err := s.likes.SubscribeByUser(ctx, uid, onSnapshot, func(err error) {
		util.Logger.Error("点赞列表订阅失败", util.UID(uid), zap.Error(err))
		onError(errors.Wrap(errors.ErrQueryFailed, "点赞列表加载失败", err))
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrQueryFailed, "订阅点赞列表失败", err)
	}
	return unsubscribe, nil
}

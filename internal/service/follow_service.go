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

// FollowService 管理关注边
type FollowService struct {
	follows interfaces.FollowRepository
	metrics *metrics.Metrics
}

func NewFollowService(follows interfaces.FollowRepository, m *metrics.Metrics) *FollowService {
	return &FollowService{follows: follows, metrics: m}
}

// IsFollowing 按复合键判断是否已关注
func (s *FollowService) IsFollowing(ctx context.Context, followerID, handle string) (bool, error) {
	ok, err := s.follows.Exists(ctx, followerID, handle)
	if err != nil {
		util.Logger.Error("查询关注状态失败", util.UID(followerID), zap.String("handle", handle), zap.Error(err))
		return false, errors.Wrap(errors.ErrQueryFailed, "查询关注状态失败", err)
	}
	return ok, nil
}

// Follow 关注。文档ID由复合键确定，重复调用只保留一条关注边。
func (s *FollowService) Follow(ctx context.Context, id *model.Identity, handle string) (err error) {
	defer func() { s.metrics.ObserveOperation("follow.create", err) }()

	if err := requireIdentity(id); err != nil {
		return err
	}
	if err := validateHandle(handle); err != nil {
		return err
	}

	created, err := s.follows.CreateIfAbsent(ctx, &model.Follow{
		FollowerID:  id.UID,
		FollowingID: handle,
	})
	if err != nil {
		util.Logger.Error("关注失败", util.UID(id.UID), zap.String("handle", handle), zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "关注失败", err)
	}

	util.Logger.Info("关注成功", util.UID(id.UID), zap.String("handle", handle), zap.Bool("created", created))
	return nil
}

// Unfollow 删除所有匹配的关注边，没有匹配时视为成功
func (s *FollowService) Unfollow(ctx context.Context, id *model.Identity, handle string) (removed int, err error) {
	defer func() { s.metrics.ObserveOperation("follow.delete", err) }()

	if err := requireIdentity(id); err != nil {
		return 0, err
	}

	removed, err = s.follows.DeleteMatching(ctx, id.UID, handle)
	if err != nil {
		util.Logger.Error("取消关注失败", util.UID(id.UID), zap.String("handle", handle), zap.Error(err))
		return 0, errors.Wrap(errors.ErrDatabase, "取消关注失败", err)
	}

	util.Logger.Info("取消关注", util.UID(id.UID), zap.String("handle", handle), zap.Int("removed", removed))
	return removed, nil
}

// ToggleFollow 搜索页的关注按钮：先查询再关注或取消
func (s *FollowService) ToggleFollow(ctx context.Context, id *model.Identity, handle string) (bool, error) {
	if err := requireIdentity(id); err != nil {
		return false, err
	}

	following, err := s.IsFollowing(ctx, id.UID, handle)
	if err != nil {
		return false, err
	}
	if following {
		_, err := s.Unfollow(ctx, id, handle)
		return false, err
	}
	return true, s.Follow(ctx, id, handle)
}

// FollowingHandles 返回关注的用户名，按关注时间排序并去重
func (s *FollowService) FollowingHandles(ctx context.Context, uid string) ([]string, error) {
	follows, err := s.follows.ListByFollower(ctx, uid)
	if err != nil {
		util.Logger.Error("查询关注列表失败", util.UID(uid), zap.Error(err))
		return nil, errors.Wrap(errors.ErrQueryFailed, "查询关注列表失败", err)
	}
	return Handles(follows), nil
}

// FollowingCount 关注边的数量
func (s *FollowService) FollowingCount(ctx context.Context, uid string) (int, error) {
	follows, err := s.follows.ListByFollower(ctx, uid)
	if err != nil {
		return 0, errors.Wrap(errors.ErrQueryFailed, "查询关注数量失败", err)
	}
	return len(follows), nil
}

// SubscribeFollowing 实时订阅关注列表
func (s *FollowService) SubscribeFollowing(ctx context.Context, uid string, onSnapshot func([]*model.Follow), onError func(error)) (interfaces.Unsubscribe, error) {
	unsubscribe, err := s.follows.SubscribeByFollower(ctx, uid, onSnapshot, func(err error) {
		util.Logger.Error("关注列表订阅失败", util.UID(uid), zap.Error(err))
		onError(errors.Wrap(errors.ErrQueryFailed, "关注列表加载失败", err))
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrQueryFailed, "订阅关注列表失败", err)
	}
	return unsubscribe, nil
}

// Handles 提取关注边中的用户名，保持顺序并去重
func Handles(follows []*model.Follow) []string {
	seen := make(map[string]bool, len(follows))
	handles := make([]string, 0, len(follows))
	for _, f := range follows {
		if seen[f.FollowingID] {
			continue
		}
		seen[f.FollowingID] = true
		handles = append(handles, f.FollowingID)
	}
	return handles
}

package interfaces

import (
	"context"

	"photoshared-backend/internal/model"
)

// Unsubscribe 结束一个实时订阅，可重复调用
type Unsubscribe func()

// PostRepository 帖子文档 (posts)
type PostRepository interface {
	// Create 写入帖子，ID 为空时由存储分配，CreatedAt 使用服务端时间
	Create(ctx context.Context, post *model.Post) error
	// FindByID 不存在时返回 nil, nil
	FindByID(ctx context.Context, id string) (*model.Post, error)
	UpdateDescription(ctx context.Context, id, description string) error
	Delete(ctx context.Context, id string) error
	// ListByUser 按创建时间倒序
	ListByUser(ctx context.Context, userID string) ([]*model.Post, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// SubscribeByUser 先推送一次当前快照，之后每次变化推送完整快照。
	// 出错时调用 onError 并结束订阅。
	SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Post), onError func(error)) (Unsubscribe, error)
}

// LikeRepository 点赞边 (likes)，文档ID为 LikeKey
type LikeRepository interface {
	FindByID(ctx context.Context, id string) (*model.Like, error)
	Exists(ctx context.Context, userID, photoID string) (bool, error)
	// CreateIfAbsent 已存在时返回 false
	CreateIfAbsent(ctx context.Context, like *model.Like) (bool, error)
	// DeleteIfPresent 不存在时返回 false
	DeleteIfPresent(ctx context.Context, id string) (bool, error)
	// Toggle 在存储端原子地切换：存在则删除，否则写入 like。返回切换后的状态。
	Toggle(ctx context.Context, like *model.Like) (bool, error)
	// ListByUser 按创建时间倒序
	ListByUser(ctx context.Context, userID string) ([]*model.Like, error)
	SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Like), onError func(error)) (Unsubscribe, error)
}

// FollowRepository 关注边 (follows)
type FollowRepository interface {
	// Exists 按 followerId + followingId 字段查询
	Exists(ctx context.Context, followerID, handle string) (bool, error)
	// CreateIfAbsent 使用 follow.ID（为空时用 FollowKey）作为文档ID，已存在时返回 false
	CreateIfAbsent(ctx context.Context, follow *model.Follow) (bool, error)
	// DeleteMatching 删除所有字段匹配的关注边，返回删除数量
	DeleteMatching(ctx context.Context, followerID, handle string) (int, error)
	// ListByFollower 按创建时间正序
	ListByFollower(ctx context.Context, followerID string) ([]*model.Follow, error)
	SubscribeByFollower(ctx context.Context, followerID string, onSnapshot func([]*model.Follow), onError func(error)) (Unsubscribe, error)
}

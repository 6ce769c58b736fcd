package service

import (
	"context"
	stderrors "errors"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/storage"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// PostService 管理帖子的上传、编辑和删除。图片和文档分两步写入，没有跨步骤事务。
type PostService struct {
	posts   interfaces.PostRepository
	blobs   storage.BlobStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPostService(posts interfaces.PostRepository, blobs storage.BlobStore, m *metrics.Metrics) *PostService {
	return &PostService{posts: posts, blobs: blobs, metrics: m, now: time.Now}
}

// SetClock 替换生成存储路径用的时间
func (s *PostService) SetClock(now func() time.Time) {
	s.now = now
}

// CreatePost 先写图片，再写文档
func (s *PostService) CreatePost(ctx context.Context, id *model.Identity, upload model.Upload, description string) (post *model.Post, err error) {
	defer func() { s.metrics.ObserveOperation("post.create", err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if len(upload.Data) == 0 {
		return nil, errors.New(errors.ErrValidation, "请选择要上传的图片")
	}

	path := util.PostObjectPath(id.UID, s.now(), upload.Filename)

	if err := s.blobs.Put(ctx, path, upload.Data, upload.ContentType); err != nil {
		util.Logger.Error("上传帖子图片失败", util.UID(id.UID), zap.String("path", path), zap.Error(err))
		return nil, errors.Wrap(errors.ErrUploadFailed, "上传图片失败", err)
	}

	url, err := s.blobs.URL(ctx, path)
	if err != nil {
		util.Logger.Error("获取图片地址失败", util.UID(id.UID), zap.String("path", path), zap.Error(err))
		s.reportOrphan(id.UID, path)
		return nil, errors.Wrap(errors.ErrUploadFailed, "获取图片地址失败", err)
	}

	post = &model.Post{
		UserID:      id.UID,
		PhotoURL:    url,
		StoragePath: path,
		Description: description,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		util.Logger.Error("写入帖子失败，图片已上传", util.UID(id.UID), zap.String("path", path), zap.Error(err))
		s.reportOrphan(id.UID, path)
		return nil, errors.Wrap(errors.ErrRecordFailed, "保存帖子失败", err)
	}

	util.Logger.Info("帖子创建成功", util.UID(id.UID), zap.String("post_id", post.ID))
	return post, nil
}

func (s *PostService) reportOrphan(uid, path string) {
	s.metrics.OrphanedBlob()
	util.Logger.Warn("存在未被引用的图片", util.UID(uid), zap.String("path", path))
}

// GetPost 读取帖子
func (s *PostService) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrQueryFailed, "查询帖子失败", err)
	}
	if post == nil {
		return nil, errors.New(errors.ErrPostNotFound, "帖子不存在")
	}
	return post, nil
}

func (s *PostService) ownedPost(ctx context.Context, id *model.Identity, postID string) (*model.Post, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != id.UID {
		util.Logger.Warn("尝试修改他人的帖子", util.UID(id.UID), zap.String("post_id", postID))
		return nil, errors.New(errors.ErrForbidden, "只能修改自己的帖子")
	}
	return post, nil
}

// EditDescription 只更新描述字段
func (s *PostService) EditDescription(ctx context.Context, id *model.Identity, postID, description string) (post *model.Post, err error) {
	defer func() { s.metrics.ObserveOperation("post.edit", err) }()

	post, err = s.ownedPost(ctx, id, postID)
	if err != nil {
		return nil, err
	}

	if err := s.posts.UpdateDescription(ctx, postID, description); err != nil {
		util.Logger.Error("更新帖子描述失败", zap.String("post_id", postID), zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabase, "更新帖子失败", err)
	}

	post.Description = description
	return post, nil
}

// DeletePost 先释放图片再删除文档。图片释放失败时保留文档。
func (s *PostService) DeletePost(ctx context.Context, id *model.Identity, postID string) (err error) {
	defer func() { s.metrics.ObserveOperation("post.delete", err) }()

	post, err := s.ownedPost(ctx, id, postID)
	if err != nil {
		return err
	}

	if post.StoragePath != "" {
		err := s.blobs.Delete(ctx, post.StoragePath)
		if err != nil && !stderrors.Is(err, storage.ErrNotFound) {
			util.Logger.Error("释放帖子图片失败，已中止删除", zap.String("post_id", postID), zap.String("path", post.StoragePath), zap.Error(err))
			return errors.Wrap(errors.ErrReleaseFailed, "删除图片失败", err)
		}
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		util.Logger.Error("删除帖子文档失败", zap.String("post_id", postID), zap.Error(err))
		return errors.Wrap(errors.ErrRecordFailed, "删除帖子失败", err)
	}

	util.Logger.Info("帖子已删除", util.UID(id.UID), zap.String("post_id", postID))
	return nil
}

// ListByUser 按时间倒序
func (s *PostService) ListByUser(ctx context.Context, uid string) ([]*model.Post, error) {
	posts, err := s.posts.ListByUser(ctx, uid)
	if err != nil {
		util.Logger.Error("查询帖子列表失败", util.UID(uid), zap.Error(err))
		return nil, errors.Wrap(errors.ErrQueryFailed, "查询帖子失败", err)
	}
	return posts, nil
}

func (s *PostService) CountByUser(ctx context.Context, uid string) (int, error) {
	n, err := s.posts.CountByUser(ctx, uid)
	if err != nil {
		return 0, errors.Wrap(errors.ErrQueryFailed, "查询帖子数量失败", err)
	}
	return n, nil
}

// SubscribePosts 实时订阅用户的帖子
func (s *PostService) SubscribePosts(ctx context.Context, uid string, onSnapshot func([]*model.Post), onError func(error)) (interfaces.Unsubscribe, error) {
	unsubscribe, err := s.posts.SubscribeByUser(ctx, uid, onSnapshot, func(err error) {
		util.Logger.Error("帖子订阅失败", util.UID(uid), zap.Error(err))
		onError(errors.Wrap(errors.ErrQueryFailed, "帖子加载失败", err))
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrQueryFailed, "订阅帖子失败", err)
	}
	return unsubscribe, nil
}

// VisiblePosts 过滤掉没有图片地址的帖子
func VisiblePosts(posts []*model.Post) []*model.Post {
	visible := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if p.PhotoURL != "" {
			visible = append(visible, p)
		}
	}
	return visible
}

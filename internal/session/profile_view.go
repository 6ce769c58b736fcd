package session

import (
	"context"
	stderrors "errors"
	"sync"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/service"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// ProfileState 个人主页的派生状态。每次订阅快照都会整体替换对应部分。
type ProfileState struct {
	PostsCount     int           `json:"postsCount"`
	FollowingCount int           `json:"followingCount"`
	Posts          []*model.Post `json:"posts"`
	Following      []string      `json:"following"`
	Liked          []*model.Like `json:"liked"`
	PostsError     string        `json:"postsError,omitempty"`
	FollowingError string        `json:"followingError,omitempty"`
	LikedError     string        `json:"likedError,omitempty"`
	Version        uint64        `json:"version"`
}

// ProfileView 个人主页：帖子、关注、喜欢三个实时订阅
type ProfileView struct {
	mu   sync.Mutex
	id   *model.Identity
	deps *Services

	posts    []*model.Post
	follows  []*model.Follow
	liked    []*model.Like
	released map[string]bool
	state    ProfileState

	unsubs  []interfaces.Unsubscribe
	changes chan struct{}
	closed  bool
	onClose func()
}

func openProfileView(ctx context.Context, id *model.Identity, deps *Services) (*ProfileView, error) {
	if id == nil {
		return nil, errors.New(errors.ErrUnauthenticated, "用户未登录")
	}
	v := &ProfileView{
		id:       id,
		deps:     deps,
		released: make(map[string]bool),
		changes:  make(chan struct{}, 1),
	}
	v.state.Posts = []*model.Post{}
	v.state.Following = []string{}
	v.state.Liked = []*model.Like{}

	unsub, err := deps.Posts.SubscribePosts(ctx, id.UID, v.onPosts, v.onPostsError)
	if err != nil {
		return nil, err
	}
	v.unsubs = append(v.unsubs, unsub)

	unsub, err = deps.Follows.SubscribeFollowing(ctx, id.UID, v.onFollows, v.onFollowsError)
	if err != nil {
		v.stopAll()
		return nil, err
	}
	v.unsubs = append(v.unsubs, unsub)

	unsub, err = deps.Likes.SubscribeLiked(ctx, id.UID, v.onLiked, v.onLikedError)
	if err != nil {
		v.stopAll()
		return nil, err
	}
	v.unsubs = append(v.unsubs, unsub)

	util.Logger.Debug("个人主页订阅已建立", util.UID(id.UID))
	return v, nil
}

func (v *ProfileView) onPosts(posts []*model.Post) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.posts = posts
	v.state.PostsError = ""
	v.derivePostsLocked()
	v.changedLocked()
}

func (v *ProfileView) onPostsError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.posts = nil
	v.state.PostsError = errorMessage(err)
	v.derivePostsLocked()
	v.changedLocked()
}

func (v *ProfileView) onFollows(follows []*model.Follow) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.follows = follows
	v.state.FollowingError = ""
	v.deriveFollowsLocked()
	v.changedLocked()
}

func (v *ProfileView) onFollowsError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.follows = nil
	v.state.FollowingError = errorMessage(err)
	v.deriveFollowsLocked()
	v.changedLocked()
}

func (v *ProfileView) onLiked(likes []*model.Like) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.liked = likes
	v.state.LikedError = ""
	v.state.Liked = append([]*model.Like{}, likes...)
	v.changedLocked()
}

func (v *ProfileView) onLikedError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.liked = nil
	v.state.LikedError = errorMessage(err)
	v.state.Liked = []*model.Like{}
	v.changedLocked()
}

// derivePostsLocked 数量按帖子文档计算；图片已释放的帖子不再显示，即使文档删除失败
func (v *ProfileView) derivePostsLocked() {
	kept := make([]*model.Post, 0, len(v.posts))
	for _, p := range v.posts {
		if !v.released[p.ID] {
			kept = append(kept, p)
		}
	}
	v.state.PostsCount = len(v.posts)
	v.state.Posts = service.VisiblePosts(kept)
}

func (v *ProfileView) deriveFollowsLocked() {
	v.state.FollowingCount = len(v.follows)
	v.state.Following = service.Handles(v.follows)
}

// changedLocked 视图关闭后通道已关闭，不再通知
func (v *ProfileView) changedLocked() {
	if v.closed {
		return
	}
	v.state.Version++
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

// Changes 状态变化通知，多次变化会合并为一次。视图关闭后通道被关闭。
func (v *ProfileView) Changes() <-chan struct{} {
	return v.changes
}

// State 返回当前状态的副本
func (v *ProfileView) State() ProfileState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Posts = append([]*model.Post{}, v.state.Posts...)
	s.Following = append([]string{}, v.state.Following...)
	s.Liked = append([]*model.Like{}, v.state.Liked...)
	return s
}

func (v *ProfileView) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// UnlikeRecord 从“喜欢”列表中取消一条点赞
func (v *ProfileView) UnlikeRecord(ctx context.Context, likeID string) error {
	if v.isClosed() {
		return errViewClosed
	}
	if err := v.deps.Likes.UnlikeByRecord(ctx, v.id, likeID); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	kept := v.liked[:0:0]
	for _, l := range v.liked {
		if l.ID != likeID {
			kept = append(kept, l)
		}
	}
	v.liked = kept
	v.state.Liked = append([]*model.Like{}, kept...)
	v.changedLocked()
	return nil
}

// DeletePost 删除帖子。图片已释放但文档删除失败时，帖子同样从列表中移除。
func (v *ProfileView) DeletePost(ctx context.Context, postID string) error {
	if v.isClosed() {
		return errViewClosed
	}
	err := v.deps.Posts.DeletePost(ctx, v.id, postID)
	if err != nil && !errors.IsCode(err, errors.ErrRecordFailed) {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return err
	}
	v.released[postID] = true
	if err == nil {
		kept := v.posts[:0:0]
		for _, p := range v.posts {
			if p.ID != postID {
				kept = append(kept, p)
			}
		}
		v.posts = kept
	}
	v.derivePostsLocked()
	v.changedLocked()
	return err
}

// EditDescription 修改帖子描述并同步更新列表
func (v *ProfileView) EditDescription(ctx context.Context, postID, description string) (*model.Post, error) {
	if v.isClosed() {
		return nil, errViewClosed
	}
	post, err := v.deps.Posts.EditDescription(ctx, v.id, postID, description)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return post, nil
	}
	for i, p := range v.posts {
		if p.ID == postID {
			updated := *p
			updated.Description = description
			v.posts[i] = &updated
		}
	}
	v.derivePostsLocked()
	v.changedLocked()
	return post, nil
}

// Unfollow 取消关注并同步更新关注列表
func (v *ProfileView) Unfollow(ctx context.Context, handle string) error {
	if v.isClosed() {
		return errViewClosed
	}
	if _, err := v.deps.Follows.Unfollow(ctx, v.id, handle); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	kept := v.follows[:0:0]
	for _, f := range v.follows {
		if f.FollowingID != handle {
			kept = append(kept, f)
		}
	}
	v.follows = kept
	v.deriveFollowsLocked()
	v.changedLocked()
	return nil
}

func (v *ProfileView) stopAll() {
	for _, unsub := range v.unsubs {
		unsub()
	}
	v.unsubs = nil
}

// Close 取消所有订阅
func (v *ProfileView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	close(v.changes)
	onClose := v.onClose
	v.mu.Unlock()

	v.stopAll()
	util.Logger.Debug("个人主页订阅已关闭", util.UID(v.id.UID))
	if onClose != nil {
		onClose()
	}
}

func errorMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	util.Logger.Warn("未识别的订阅错误", zap.Error(err))
	return err.Error()
}

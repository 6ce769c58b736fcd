package session

import (
	"context"
	"sync"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// FeedSnapshot 动态页当前状态
type FeedSnapshot struct {
	Handles []string     `json:"handles"`
	Photos  []PhotoState `json:"photos"`
	Failed  []string     `json:"failed,omitempty"`
}

// FeedView 动态页。每次 Load 重新计算，取消关注会同步移除该作者的图片。
type FeedView struct {
	mu       sync.Mutex
	id       *model.Identity
	deps     *Services
	parallel int

	eng     engagement
	handles []string
	photos  []model.CatalogPhoto
	failed  []string
	gen     uint64
	closed  bool
	onClose func()
}

func newFeedView(id *model.Identity, deps *Services, parallel int) *FeedView {
	return &FeedView{id: id, deps: deps, parallel: parallel, eng: newEngagement()}
}

func (v *FeedView) setIdentity(id *model.Identity) {
	v.mu.Lock()
	v.id = id
	v.mu.Unlock()
}

// Load 重新组装动态并解析点赞状态。关注列表中的作者都视为已关注。
func (v *FeedView) Load(ctx context.Context) (FeedSnapshot, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return FeedSnapshot{}, errViewClosed
	}
	v.gen++
	gen := v.gen
	id := v.id
	v.mu.Unlock()

	feed, err := v.deps.Feeds.Assemble(ctx, id)
	if err != nil {
		return FeedSnapshot{}, err
	}

	v.mu.Lock()
	var photoIDs []string
	if !v.closed && gen == v.gen {
		photoIDs, _ = v.eng.pending(feed.Photos)
	}
	v.mu.Unlock()

	h := resolve(ctx, v.deps.Likes, v.deps.Follows, id.UID, photoIDs, nil, v.parallel)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		util.Logger.Debug("动态页已关闭或有更新的请求，丢弃结果", util.UID(id.UID))
		return v.snapshotLocked(), nil
	}

	v.handles = feed.Handles
	v.photos = feed.Photos
	v.failed = feed.Failed
	v.eng.fetched(feed.Photos)
	h.merge(&v.eng)
	for _, handle := range feed.Handles {
		v.eng.following[handle] = true
	}
	return v.snapshotLocked(), nil
}

// ToggleLike 切换动态中某张图片的点赞
func (v *FeedView) ToggleLike(ctx context.Context, photoID string) (PhotoState, error) {
	v.mu.Lock()
	photo, ok := findPhoto(v.photos, photoID)
	id := v.id
	closed := v.closed
	v.mu.Unlock()

	if closed {
		return PhotoState{}, errViewClosed
	}
	if !ok {
		return PhotoState{}, errors.New(errors.ErrResourceNotFound, "动态中没有这张图片")
	}

	liked, err := v.deps.Likes.ToggleLike(ctx, id, &photo)
	if err != nil {
		return PhotoState{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.eng.applyToggle(photo, liked)
	return v.eng.state(photo), nil
}

// Unfollow 取消关注，并同步移除该作者在当前动态中的所有图片
func (v *FeedView) Unfollow(ctx context.Context, handle string) (FeedSnapshot, error) {
	v.mu.Lock()
	id := v.id
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return FeedSnapshot{}, errViewClosed
	}

	if _, err := v.deps.Follows.Unfollow(ctx, id, handle); err != nil {
		return FeedSnapshot{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pruneLocked(handle)
	util.Logger.Info("已从动态中移除作者", util.UID(id.UID), zap.String("handle", handle))
	return v.snapshotLocked(), nil
}

func (v *FeedView) pruneLocked(handle string) {
	photos := v.photos[:0:0]
	for _, p := range v.photos {
		if p.User.Username != handle {
			photos = append(photos, p)
		}
	}
	v.photos = photos

	handles := v.handles[:0:0]
	for _, h := range v.handles {
		if h != handle {
			handles = append(handles, h)
		}
	}
	v.handles = handles
	v.eng.following[handle] = false
}

// Snapshot 返回当前状态的副本
func (v *FeedView) Snapshot() FeedSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *FeedView) snapshotLocked() FeedSnapshot {
	return FeedSnapshot{
		Handles: append([]string{}, v.handles...),
		Photos:  v.eng.states(v.photos),
		Failed:  append([]string(nil), v.failed...),
	}
}

// Close 关闭视图，之后到达的结果会被丢弃
func (v *FeedView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	onClose := v.onClose
	v.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// DiscoverTopics 首页随机浏览使用的主题
var DiscoverTopics = []string{
	"people having fun",
	"landscapes",
	"selfies",
	"friends",
	"aesthetic houses",
	"streets",
	"urban",
	"headbanger",
	"rock concerts",
	"aurora borealis",
}

// BrowseSnapshot 搜索/浏览页当前状态
type BrowseSnapshot struct {
	Query      string       `json:"query"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
	Photos     []PhotoState `json:"photos"`
}

// BrowseView 搜索和随机浏览。第1页替换结果，后续页追加。
// 点赞/关注状态在会话内只解析一次。
type BrowseView struct {
	mu       sync.Mutex
	id       *model.Identity
	deps     *Services
	parallel int
	rnd      *rand.Rand

	eng        engagement
	query      string
	page       int
	totalPages int
	photos     []model.CatalogPhoto
	gen        uint64
	closed     bool
	onClose    func()
}

func newBrowseView(id *model.Identity, deps *Services, parallel int) *BrowseView {
	return &BrowseView{
		id:       id,
		deps:     deps,
		parallel: parallel,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		eng:      newEngagement(),
	}
}

// SetRand 替换随机源，测试用
func (v *BrowseView) SetRand(r *rand.Rand) {
	v.mu.Lock()
	v.rnd = r
	v.mu.Unlock()
}

func (v *BrowseView) setIdentity(id *model.Identity) {
	v.mu.Lock()
	v.id = id
	v.mu.Unlock()
}

// Search 按关键词搜索
func (v *BrowseView) Search(ctx context.Context, query string, page int) (BrowseSnapshot, error) {
	if query == "" {
		return BrowseSnapshot{}, errors.New(errors.ErrValidation, "搜索关键词不能为空")
	}
	return v.fetch(ctx, query, page)
}

// Discover 随机选择一个主题浏览。第1页重新抽取主题，后续页沿用当前主题。
func (v *BrowseView) Discover(ctx context.Context, page int) (BrowseSnapshot, error) {
	v.mu.Lock()
	query := v.query
	if page <= 1 || query == "" {
		topics := append([]string{}, DiscoverTopics...)
		v.rnd.Shuffle(len(topics), func(i, j int) { topics[i], topics[j] = topics[j], topics[i] })
		query = topics[0]
	}
	v.mu.Unlock()
	return v.fetch(ctx, query, page)
}

func (v *BrowseView) fetch(ctx context.Context, query string, page int) (BrowseSnapshot, error) {
	if page < 1 {
		page = 1
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return BrowseSnapshot{}, errViewClosed
	}
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	result, err := v.deps.Feeds.Search(ctx, query, page)
	if err != nil {
		return BrowseSnapshot{}, err
	}

	v.mu.Lock()
	if v.closed || gen != v.gen {
		defer v.mu.Unlock()
		util.Logger.Debug("丢弃过期的搜索结果", zap.String("query", query), zap.Int("page", page))
		return v.snapshotLocked(), nil
	}
	if page == 1 || query != v.query {
		v.photos = append([]model.CatalogPhoto{}, result.Results...)
	} else {
		v.photos = append(v.photos, result.Results...)
	}
	v.query = query
	v.page = page
	v.totalPages = result.TotalPages
	v.eng.fetched(result.Results)
	v.mu.Unlock()

	return v.Hydrate(ctx)
}

// Hydrate 解析当前结果中尚未解析的点赞和关注状态
func (v *BrowseView) Hydrate(ctx context.Context) (BrowseSnapshot, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return BrowseSnapshot{}, errViewClosed
	}
	id := v.id
	if id == nil {
		defer v.mu.Unlock()
		return v.snapshotLocked(), nil
	}
	photoIDs, handles := v.eng.pending(v.photos)
	v.mu.Unlock()

	if len(photoIDs) > 0 || len(handles) > 0 {
		h := resolve(ctx, v.deps.Likes, v.deps.Follows, id.UID, photoIDs, handles, v.parallel)
		v.mu.Lock()
		if !v.closed {
			h.merge(&v.eng)
		}
		v.mu.Unlock()
	}
	return v.Snapshot(), nil
}

// ToggleLike 切换结果中某张图片的点赞
func (v *BrowseView) ToggleLike(ctx context.Context, photoID string) (PhotoState, error) {
	v.mu.Lock()
	photo, ok := findPhoto(v.photos, photoID)
	id := v.id
	closed := v.closed
	v.mu.Unlock()

	if closed {
		return PhotoState{}, errViewClosed
	}
	if !ok {
		return PhotoState{}, errors.New(errors.ErrResourceNotFound, "结果中没有这张图片")
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

// ToggleFollow 切换对作者的关注，结果中该作者的所有图片同步更新
func (v *BrowseView) ToggleFollow(ctx context.Context, handle string) (bool, error) {
	v.mu.Lock()
	id := v.id
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return false, errViewClosed
	}

	following, err := v.deps.Follows.ToggleFollow(ctx, id, handle)
	if err != nil {
		return false, err
	}

	v.mu.Lock()
	v.eng.following[handle] = following
	v.mu.Unlock()
	return following, nil
}

// Snapshot 返回当前状态的副本
func (v *BrowseView) Snapshot() BrowseSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *BrowseView) snapshotLocked() BrowseSnapshot {
	return BrowseSnapshot{
		Query:      v.query,
		Page:       v.page,
		TotalPages: v.totalPages,
		Photos:     v.eng.states(v.photos),
	}
}

// Close 关闭视图
func (v *BrowseView) Close() {
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

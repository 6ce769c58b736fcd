package session

import (
	"context"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/service"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PhotoState 目录图片加上当前用户的互动状态
type PhotoState struct {
	model.CatalogPhoto
	Liked        bool `json:"liked"`
	Following    bool `json:"following"`
	DisplayLikes int  `json:"displayLikes"`
}

// engagement 一个视图在会话内已解析的点赞/关注状态和乐观计数。调用方持有视图锁。
type engagement struct {
	liked     map[string]bool
	following map[string]bool
	counters  map[string]*LikeCounter
}

func newEngagement() engagement {
	return engagement{
		liked:     make(map[string]bool),
		following: make(map[string]bool),
		counters:  make(map[string]*LikeCounter),
	}
}

// fetched 图片刚从目录拉取，计数以上报值为准
func (e *engagement) fetched(photos []model.CatalogPhoto) {
	for _, p := range photos {
		if c, ok := e.counters[p.ID]; ok {
			c.Reset(p.Likes)
		} else {
			e.counters[p.ID] = NewLikeCounter(p.Likes)
		}
	}
}

func (e *engagement) applyToggle(photo model.CatalogPhoto, liked bool) {
	e.liked[photo.ID] = liked
	c, ok := e.counters[photo.ID]
	if !ok {
		c = NewLikeCounter(photo.Likes)
		e.counters[photo.ID] = c
	}
	c.Apply(liked)
}

func (e *engagement) state(p model.CatalogPhoto) PhotoState {
	display := p.Likes
	if c, ok := e.counters[p.ID]; ok {
		display = c.Display()
	}
	return PhotoState{
		CatalogPhoto: p,
		Liked:        e.liked[p.ID],
		Following:    e.following[p.User.Username],
		DisplayLikes: display,
	}
}

func (e *engagement) states(photos []model.CatalogPhoto) []PhotoState {
	out := make([]PhotoState, len(photos))
	for i, p := range photos {
		out[i] = e.state(p)
	}
	return out
}

// pending 返回还没有解析过的图片ID和用户名
func (e *engagement) pending(photos []model.CatalogPhoto) (photoIDs, handles []string) {
	seenPhoto := make(map[string]bool)
	seenHandle := make(map[string]bool)
	for _, p := range photos {
		if _, ok := e.liked[p.ID]; !ok && !seenPhoto[p.ID] {
			seenPhoto[p.ID] = true
			photoIDs = append(photoIDs, p.ID)
		}
		h := p.User.Username
		if h == "" {
			continue
		}
		if _, ok := e.following[h]; !ok && !seenHandle[h] {
			seenHandle[h] = true
			handles = append(handles, h)
		}
	}
	return photoIDs, handles
}

// hydration 一批状态查询的结果
type hydration struct {
	liked     map[string]bool
	following map[string]bool
}

func (h hydration) merge(e *engagement) {
	for id, v := range h.liked {
		e.liked[id] = v
	}
	for handle, v := range h.following {
		e.following[handle] = v
	}
}

// resolve 并发查询点赞和关注状态。单个查询失败只记录日志，对应条目保持未解析，下次再试。
func resolve(ctx context.Context, likes *service.LikeService, follows *service.FollowService, uid string, photoIDs, handles []string, parallel int) hydration {
	liked := make([]bool, len(photoIDs))
	likedOK := make([]bool, len(photoIDs))
	following := make([]bool, len(handles))
	followingOK := make([]bool, len(handles))

	if parallel <= 0 {
		parallel = defaultParallel
	}
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, photoID := range photoIDs {
		i, photoID := i, photoID
		g.Go(func() error {
			ok, err := likes.IsLiked(ctx, uid, photoID)
			if err != nil {
				util.Logger.Warn("查询点赞状态失败", util.UID(uid), zap.String("photo_id", photoID), zap.Error(err))
				return nil
			}
			liked[i], likedOK[i] = ok, true
			return nil
		})
	}
	for i, handle := range handles {
		i, handle := i, handle
		g.Go(func() error {
			ok, err := follows.IsFollowing(ctx, uid, handle)
			if err != nil {
				util.Logger.Warn("查询关注状态失败", util.UID(uid), zap.String("handle", handle), zap.Error(err))
				return nil
			}
			following[i], followingOK[i] = ok, true
			return nil
		})
	}
	_ = g.Wait()

	h := hydration{liked: make(map[string]bool), following: make(map[string]bool)}
	for i, id := range photoIDs {
		if likedOK[i] {
			h.liked[id] = liked[i]
		}
	}
	for i, handle := range handles {
		if followingOK[i] {
			h.following[handle] = following[i]
		}
	}
	return h
}

func findPhoto(photos []model.CatalogPhoto, photoID string) (model.CatalogPhoto, bool) {
	for _, p := range photos {
		if p.ID == photoID {
			return p, true
		}
	}
	return model.CatalogPhoto{}, false
}

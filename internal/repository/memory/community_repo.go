package memory

import (
	"context"
	"fmt"
	"sort"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/changefeed"
	"photoshared-backend/internal/repository/interfaces"

	"github.com/google/uuid"
)

type PostRepository struct{ s *Store }

var _ interfaces.PostRepository = (*PostRepository)(nil)

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	r.s.mu.Lock()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if _, ok := r.s.posts[post.ID]; ok {
		r.s.mu.Unlock()
		return fmt.Errorf("帖子已存在: %s", post.ID)
	}
	post.CreatedAt = r.s.now()
	r.s.posts[post.ID] = postRow{post: *post, seq: r.s.nextSeq()}
	r.s.mu.Unlock()

	r.s.hub.Notify(changefeed.Topic(changefeed.KindPosts, post.UserID))
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	p := row.post
	return &p, nil
}

func (r *PostRepository) UpdateDescription(ctx context.Context, id, description string) error {
	r.s.mu.Lock()
	row, ok := r.s.posts[id]
	if !ok {
		r.s.mu.Unlock()
		return fmt.Errorf("帖子不存在: %s", id)
	}
	row.post.Description = description
	r.s.posts[id] = row
	r.s.mu.Unlock()

	r.s.hub.Notify(changefeed.Topic(changefeed.KindPosts, row.post.UserID))
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	row, ok := r.s.posts[id]
	delete(r.s.posts, id)
	r.s.mu.Unlock()

	if ok {
		r.s.hub.Notify(changefeed.Topic(changefeed.KindPosts, row.post.UserID))
	}
	return nil
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string) ([]*model.Post, error) {
	r.s.mu.RLock()
	rows := make([]postRow, 0)
	for _, row := range r.s.posts {
		if row.post.UserID == userID {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})

	posts := make([]*model.Post, len(rows))
	for i := range rows {
		p := rows[i].post
		posts[i] = &p
	}
	return posts, nil
}

func (r *PostRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, row := range r.s.posts {
		if row.post.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *PostRepository) SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Post), onError func(error)) (interfaces.Unsubscribe, error) {
	load := func(ctx context.Context) ([]*model.Post, error) { return r.ListByUser(ctx, userID) }
	return changefeed.Run(ctx, r.s.hub, changefeed.Topic(changefeed.KindPosts, userID), load, onSnapshot, onError), nil
}

type LikeRepository struct{ s *Store }

var _ interfaces.LikeRepository = (*LikeRepository)(nil)

func (r *LikeRepository) FindByID(ctx context.Context, id string) (*model.Like, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.likes[id]
	if !ok {
		return nil, nil
	}
	l := row.like
	return &l, nil
}

func (r *LikeRepository) Exists(ctx context.Context, userID, photoID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.likes[model.LikeKey(userID, photoID)]
	return ok, nil
}

func (r *LikeRepository) CreateIfAbsent(ctx context.Context, like *model.Like) (bool, error) {
	r.s.mu.Lock()
	created := r.insertLocked(like)
	r.s.mu.Unlock()

	if created {
		r.s.hub.Notify(changefeed.Topic(changefeed.KindLikes, like.UserID))
	}
	return created, nil
}

func (r *LikeRepository) insertLocked(like *model.Like) bool {
	if like.ID == "" {
		like.ID = model.LikeKey(like.UserID, like.PhotoID)
	}
	if _, ok := r.s.likes[like.ID]; ok {
		return false
	}
	like.CreatedAt = r.s.now()
	r.s.likes[like.ID] = likeRow{like: *like, seq: r.s.nextSeq()}
	return true
}

func (r *LikeRepository) DeleteIfPresent(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	row, ok := r.s.likes[id]
	delete(r.s.likes, id)
	r.s.mu.Unlock()

	if ok {
		r.s.hub.Notify(changefeed.Topic(changefeed.KindLikes, row.like.UserID))
	}
	return ok, nil
}

func (r *LikeRepository) Toggle(ctx context.Context, like *model.Like) (bool, error) {
	if like.ID == "" {
		like.ID = model.LikeKey(like.UserID, like.PhotoID)
	}

	r.s.mu.Lock()
	liked := true
	if _, ok := r.s.likes[like.ID]; ok {
		delete(r.s.likes, like.ID)
		liked = false
	} else {
		r.insertLocked(like)
	}
	r.s.mu.Unlock()

	r.s.hub.Notify(changefeed.Topic(changefeed.KindLikes, like.UserID))
	return liked, nil
}

func (r *LikeRepository) ListByUser(ctx context.Context, userID string) ([]*model.Like, error) {
	r.s.mu.RLock()
	rows := make([]likeRow, 0)
	for _, row := range r.s.likes {
		if row.like.UserID == userID {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.like.CreatedAt.Equal(b.like.CreatedAt) {
			return a.like.CreatedAt.After(b.like.CreatedAt)
		}
		return a.seq > b.seq
	})

	likes := make([]*model.Like, len(rows))
	for i := range rows {
		l := rows[i].like
		likes[i] = &l
	}
	return likes, nil
}

func (r *LikeRepository) SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Like), onError func(error)) (interfaces.Unsubscribe, error) {
	load := func(ctx context.Context) ([]*model.Like, error) { return r.ListByUser(ctx, userID) }
	return changefeed.Run(ctx, r.s.hub, changefeed.Topic(changefeed.KindLikes, userID), load, onSnapshot, onError), nil
}

type FollowRepository struct{ s *Store }

var _ interfaces.FollowRepository = (*FollowRepository)(nil)

func (r *FollowRepository) Exists(ctx context.Context, followerID, handle string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.follows {
		if row.follow.FollowerID == followerID && row.follow.FollowingID == handle {
			return true, nil
		}
	}
	return false, nil
}

func (r *FollowRepository) CreateIfAbsent(ctx context.Context, follow *model.Follow) (bool, error) {
	if follow.ID == "" {
		follow.ID = model.FollowKey(follow.FollowerID, follow.FollowingID)
	}

	r.s.mu.Lock()
	if _, ok := r.s.follows[follow.ID]; ok {
		r.s.mu.Unlock()
		return false, nil
	}
	follow.CreatedAt = r.s.now()
	r.s.follows[follow.ID] = followRow{follow: *follow, seq: r.s.nextSeq()}
	r.s.mu.Unlock()

	r.s.hub.Notify(changefeed.Topic(changefeed.KindFollows, follow.FollowerID))
	return true, nil
}

func (r *FollowRepository) DeleteMatching(ctx context.Context, followerID, handle string) (int, error) {
	r.s.mu.Lock()
	removed := 0
	for id, row := range r.s.follows {
		if row.follow.FollowerID == followerID && row.follow.FollowingID == handle {
			delete(r.s.follows, id)
			removed++
		}
	}
	r.s.mu.Unlock()

	if removed > 0 {
		r.s.hub.Notify(changefeed.Topic(changefeed.KindFollows, followerID))
	}
	return removed, nil
}

func (r *FollowRepository) ListByFollower(ctx context.Context, followerID string) ([]*model.Follow, error) {
	r.s.mu.RLock()
	rows := make([]followRow, 0)
	for _, row := range r.s.follows {
		if row.follow.FollowerID == followerID {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.follow.CreatedAt.Equal(b.follow.CreatedAt) {
			return a.follow.CreatedAt.Before(b.follow.CreatedAt)
		}
		return a.seq < b.seq
	})

	follows := make([]*model.Follow, len(rows))
	for i := range rows {
		f := rows[i].follow
		follows[i] = &f
	}
	return follows, nil
}

func (r *FollowRepository) SubscribeByFollower(ctx context.Context, followerID string, onSnapshot func([]*model.Follow), onError func(error)) (interfaces.Unsubscribe, error) {
	load := func(ctx context.Context) ([]*model.Follow, error) { return r.ListByFollower(ctx, followerID) }
	return changefeed.Run(ctx, r.s.hub, changefeed.Topic(changefeed.KindFollows, followerID), load, onSnapshot, onError), nil
}

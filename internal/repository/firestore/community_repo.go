package firestore

import (
	"context"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

type PostRepository struct{ client *firestore.Client }

var _ interfaces.PostRepository = (*PostRepository)(nil)

func setPostID(p *model.Post, id string) { p.ID = id }

func (r *PostRepository) byUser(userID string) firestore.Query {
	return r.client.Collection(colPosts).Where("userId", "==", userID)
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	col := r.client.Collection(colPosts)
	ref := col.NewDoc()
	if post.ID != "" {
		ref = col.Doc(post.ID)
	}
	if _, err := ref.Create(ctx, post); err != nil {
		util.Logger.Error("创建帖子失败", zap.Error(err))
		return err
	}
	post.ID = ref.ID
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return getOne(ctx, r.client.Collection(colPosts).Doc(id), setPostID)
}

func (r *PostRepository) UpdateDescription(ctx context.Context, id, description string) error {
	_, err := r.client.Collection(colPosts).Doc(id).Update(ctx, []firestore.Update{
		{Path: "description", Value: description},
	})
	return err
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(colPosts).Doc(id).Delete(ctx)
	return err
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string) ([]*model.Post, error) {
	return queryAll(ctx, r.byUser(userID).OrderBy("createdAt", firestore.Desc), setPostID)
}

func (r *PostRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	return count(ctx, r.byUser(userID))
}

func (r *PostRepository) SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Post), onError func(error)) (interfaces.Unsubscribe, error) {
	q := r.byUser(userID).OrderBy("createdAt", firestore.Desc)
	return subscribe(ctx, q, setPostID, onSnapshot, onError), nil
}

type LikeRepository struct{ client *firestore.Client }

var _ interfaces.LikeRepository = (*LikeRepository)(nil)

func setLikeID(l *model.Like, id string) { l.ID = id }

func (r *LikeRepository) doc(like *model.Like) *firestore.DocumentRef {
	if like.ID == "" {
		like.ID = model.LikeKey(like.UserID, like.PhotoID)
	}
	return r.client.Collection(colLikes).Doc(like.ID)
}

func (r *LikeRepository) FindByID(ctx context.Context, id string) (*model.Like, error) {
	return getOne(ctx, r.client.Collection(colLikes).Doc(id), setLikeID)
}

func (r *LikeRepository) Exists(ctx context.Context, userID, photoID string) (bool, error) {
	like, err := r.FindByID(ctx, model.LikeKey(userID, photoID))
	if err != nil {
		return false, err
	}
	return like != nil, nil
}

func (r *LikeRepository) CreateIfAbsent(ctx context.Context, like *model.Like) (bool, error) {
	if _, err := r.doc(like).Create(ctx, like); err != nil {
		if isAlreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *LikeRepository) DeleteIfPresent(ctx context.Context, id string) (bool, error) {
	if _, err := r.client.Collection(colLikes).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Toggle 在事务中读取后创建或删除
func (r *LikeRepository) Toggle(ctx context.Context, like *model.Like) (bool, error) {
	ref := r.doc(like)
	var liked bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		switch {
		case err == nil:
			liked = false
			return tx.Delete(ref)
		case isNotFound(err):
			liked = true
			return tx.Create(ref, like)
		default:
			return err
		}
	})
	if err != nil {
		util.Logger.Error("切换点赞失败", zap.String("like_id", like.ID), zap.Error(err))
		return false, err
	}
	return liked, nil
}

func (r *LikeRepository) byUser(userID string) firestore.Query {
	return r.client.Collection(colLikes).Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc)
}

func (r *LikeRepository) ListByUser(ctx context.Context, userID string) ([]*model.Like, error) {
	return queryAll(ctx, r.byUser(userID), setLikeID)
}

func (r *LikeRepository) SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Like), onError func(error)) (interfaces.Unsubscribe, error) {
	return subscribe(ctx, r.byUser(userID), setLikeID, onSnapshot, onError), nil
}

type FollowRepository struct{ client *firestore.Client }

var _ interfaces.FollowRepository = (*FollowRepository)(nil)

func setFollowID(f *model.Follow, id string) { f.ID = id }

func (r *FollowRepository) matching(followerID, handle string) firestore.Query {
	return r.client.Collection(colFollows).
		Where("followerId", "==", followerID).
		Where("followingId", "==", handle)
}

func (r *FollowRepository) Exists(ctx context.Context, followerID, handle string) (bool, error) {
	docs, err := r.matching(followerID, handle).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func (r *FollowRepository) CreateIfAbsent(ctx context.Context, follow *model.Follow) (bool, error) {
	if follow.ID == "" {
		follow.ID = model.FollowKey(follow.FollowerID, follow.FollowingID)
	}
	if _, err := r.client.Collection(colFollows).Doc(follow.ID).Create(ctx, follow); err != nil {
		if isAlreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteMatching 同时清理旧版本随机ID留下的重复关注边
func (r *FollowRepository) DeleteMatching(ctx context.Context, followerID, handle string) (int, error) {
	docs, err := r.matching(followerID, handle).Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, doc := range docs {
		if _, err := doc.Ref.Delete(ctx); err != nil {
			util.Logger.Error("删除关注边失败", zap.String("follow_id", doc.Ref.ID), zap.Error(err))
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (r *FollowRepository) byFollower(followerID string) firestore.Query {
	return r.client.Collection(colFollows).Where("followerId", "==", followerID).OrderBy("createdAt", firestore.Asc)
}

func (r *FollowRepository) ListByFollower(ctx context.Context, followerID string) ([]*model.Follow, error) {
	return queryAll(ctx, r.byFollower(followerID), setFollowID)
}

func (r *FollowRepository) SubscribeByFollower(ctx context.Context, followerID string, onSnapshot func([]*model.Follow), onError func(error)) (interfaces.Unsubscribe, error) {
	return subscribe(ctx, r.byFollower(followerID), setFollowID, onSnapshot, onError), nil
}

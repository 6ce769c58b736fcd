package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/changefeed"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type postRepository struct {
	db  *sql.DB
	hub *changefeed.Hub
}

var _ interfaces.PostRepository = (*postRepository)(nil)

func NewPostRepository(db *sql.DB, hub *changefeed.Hub) *postRepository {
	return &postRepository{db: db, hub: hub}
}

const postColumns = `id, user_id, photo_url, storage_path, description, created_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*model.Post, error) {
	var p model.Post
	if err := row.Scan(&p.ID, &p.UserID, &p.PhotoURL, &p.StoragePath, &p.Description, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = now()

	query := `INSERT INTO posts (` + postColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.UserID, post.PhotoURL, post.StoragePath, post.Description, post.CreatedAt)
	if err != nil {
		util.Logger.Error("创建帖子失败", zap.Error(err))
		return err
	}

	notify(r.hub, changefeed.KindPosts, post.UserID)
	util.Logger.Info("帖子创建成功", zap.String("post_id", post.ID))
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		util.Logger.Error("查找帖子失败", zap.String("post_id", id), zap.Error(err))
		return nil, err
	}
	return post, nil
}

func (r *postRepository) UpdateDescription(ctx context.Context, id, description string) error {
	var userID string
	if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = ?`, id).Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("帖子不存在: %s", id)
		}
		return err
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE posts SET description = ? WHERE id = ?`, description, id); err != nil {
		util.Logger.Error("更新帖子失败", zap.String("post_id", id), zap.Error(err))
		return err
	}

	notify(r.hub, changefeed.KindPosts, userID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	var userID string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = ?`, id).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		util.Logger.Error("删除帖子失败", zap.String("post_id", id), zap.Error(err))
		return err
	}

	notify(r.hub, changefeed.KindPosts, userID)
	return nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = ? ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

func (r *postRepository) SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Post), onError func(error)) (interfaces.Unsubscribe, error) {
	if r.hub == nil {
		return nil, fmt.Errorf("未配置变更通知")
	}
	load := func(ctx context.Context) ([]*model.Post, error) { return r.ListByUser(ctx, userID) }
	return changefeed.Run(ctx, r.hub, changefeed.Topic(changefeed.KindPosts, userID), load, onSnapshot, onError), nil
}

type likeRepository struct {
	db  *sql.DB
	hub *changefeed.Hub
}

var _ interfaces.LikeRepository = (*likeRepository)(nil)

func NewLikeRepository(db *sql.DB, hub *changefeed.Hub) *likeRepository {
	return &likeRepository{db: db, hub: hub}
}

const likeColumns = `id, user_id, photo_id, source, photo_url, thumb, description,
	author_username, author_name, author_profile_image, likes_count, created_at`

func scanLike(row interface{ Scan(...interface{}) error }) (*model.Like, error) {
	var l model.Like
	err := row.Scan(&l.ID, &l.UserID, &l.PhotoID, &l.Source, &l.PhotoURL, &l.Thumb, &l.Description,
		&l.AuthorUsername, &l.AuthorName, &l.AuthorProfileImage, &l.LikesCount, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// execer 事务和连接共用的写接口
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertLikeIgnore(ctx context.Context, db execer, like *model.Like) (bool, error) {
	if like.ID == "" {
		like.ID = model.LikeKey(like.UserID, like.PhotoID)
	}
	like.CreatedAt = now()

	query := `INSERT IGNORE INTO likes (` + likeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		like.ID, like.UserID, like.PhotoID, like.Source, like.PhotoURL, like.Thumb, like.Description,
		like.AuthorUsername, like.AuthorName, like.AuthorProfileImage, like.LikesCount, like.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *likeRepository) FindByID(ctx context.Context, id string) (*model.Like, error) {
	query := `SELECT ` + likeColumns + ` FROM likes WHERE id = ?`
	like, err := scanLike(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return like, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, photoID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM likes WHERE id = ?`, model.LikeKey(userID, photoID)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *likeRepository) CreateIfAbsent(ctx context.Context, like *model.Like) (bool, error) {
	created, err := insertLikeIgnore(ctx, r.db, like)
	if err != nil {
		util.Logger.Error("点赞失败", util.UID(like.UserID), zap.String("photo_id", like.PhotoID), zap.Error(err))
		return false, err
	}
	if created {
		notify(r.hub, changefeed.KindLikes, like.UserID)
	}
	return created, nil
}

func (r *likeRepository) DeleteIfPresent(ctx context.Context, id string) (bool, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM likes WHERE id = ?`, id).Scan(&userID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE id = ?`, id)
	if err != nil {
		util.Logger.Error("取消点赞失败", zap.String("like_id", id), zap.Error(err))
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		notify(r.hub, changefeed.KindLikes, userID)
	}
	return n > 0, nil
}

// Toggle 在一个事务中先尝试插入，已存在则删除
func (r *likeRepository) Toggle(ctx context.Context, like *model.Like) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	liked, err := insertLikeIgnore(ctx, tx, like)
	if err != nil {
		util.Logger.Error("切换点赞失败", zap.String("like_id", like.ID), zap.Error(err))
		return false, err
	}
	if !liked {
		if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE id = ?`, like.ID); err != nil {
			util.Logger.Error("切换点赞失败", zap.String("like_id", like.ID), zap.Error(err))
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return false, err
	}

	notify(r.hub, changefeed.KindLikes, like.UserID)
	return liked, nil
}

func (r *likeRepository) ListByUser(ctx context.Context, userID string) ([]*model.Like, error) {
	query := `SELECT ` + likeColumns + ` FROM likes WHERE user_id = ? ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	likes := make([]*model.Like, 0)
	for rows.Next() {
		like, err := scanLike(rows)
		if err != nil {
			return nil, err
		}
		likes = append(likes, like)
	}
	return likes, rows.Err()
}

func (r *likeRepository) SubscribeByUser(ctx context.Context, userID string, onSnapshot func([]*model.Like), onError func(error)) (interfaces.Unsubscribe, error) {
	if r.hub == nil {
		return nil, fmt.Errorf("未配置变更通知")
	}
	load := func(ctx context.Context) ([]*model.Like, error) { return r.ListByUser(ctx, userID) }
	return changefeed.Run(ctx, r.hub, changefeed.Topic(changefeed.KindLikes, userID), load, onSnapshot, onError), nil
}

type followRepository struct {
	db  *sql.DB
	hub *changefeed.Hub
}

var _ interfaces.FollowRepository = (*followRepository)(nil)

func NewFollowRepository(db *sql.DB, hub *changefeed.Hub) *followRepository {
	return &followRepository{db: db, hub: hub}
}

func (r *followRepository) Exists(ctx context.Context, followerID, handle string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ? LIMIT 1`, followerID, handle).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *followRepository) CreateIfAbsent(ctx context.Context, follow *model.Follow) (bool, error) {
	if follow.ID == "" {
		follow.ID = model.FollowKey(follow.FollowerID, follow.FollowingID)
	}
	follow.CreatedAt = now()

	result, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO follows (id, follower_id, following_id, created_at) VALUES (?, ?, ?, ?)`,
		follow.ID, follow.FollowerID, follow.FollowingID, follow.CreatedAt)
	if err != nil {
		util.Logger.Error("关注失败", util.UID(follow.FollowerID), zap.String("handle", follow.FollowingID), zap.Error(err))
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		notify(r.hub, changefeed.KindFollows, follow.FollowerID)
	}
	return n > 0, nil
}

func (r *followRepository) DeleteMatching(ctx context.Context, followerID, handle string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`, followerID, handle)
	if err != nil {
		util.Logger.Error("取消关注失败", util.UID(followerID), zap.String("handle", handle), zap.Error(err))
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		notify(r.hub, changefeed.KindFollows, followerID)
	}
	return int(n), nil
}

func (r *followRepository) ListByFollower(ctx context.Context, followerID string) ([]*model.Follow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, follower_id, following_id, created_at FROM follows
		 WHERE follower_id = ? ORDER BY created_at ASC, seq ASC`, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	follows := make([]*model.Follow, 0)
	for rows.Next() {
		var f model.Follow
		if err := rows.Scan(&f.ID, &f.FollowerID, &f.FollowingID, &f.CreatedAt); err != nil {
			return nil, err
		}
		follows = append(follows, &f)
	}
	return follows, rows.Err()
}

func (r *followRepository) SubscribeByFollower(ctx context.Context, followerID string, onSnapshot func([]*model.Follow), onError func(error)) (interfaces.Unsubscribe, error) {
	if r.hub == nil {
		return nil, fmt.Errorf("未配置变更通知")
	}
	load := func(ctx context.Context) ([]*model.Follow, error) { return r.ListByFollower(ctx, followerID) }
	return changefeed.Run(ctx, r.hub, changefeed.Topic(changefeed.KindFollows, followerID), load, onSnapshot, onError), nil
}

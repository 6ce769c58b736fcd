// Package memory 进程内文档存储，用于本地开发和测试。重启后数据丢失。
package memory

import (
	"sync"
	"time"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/changefeed"
)

// Store 所有集合共享一把锁和一个变更通知中心
type Store struct {
	mu  sync.RWMutex
	hub *changefeed.Hub
	seq int64
	now func() time.Time

	users    map[string]model.User
	accounts map[string]model.Account
	posts    map[string]postRow
	likes    map[string]likeRow
	follows  map[string]followRow
}

type postRow struct {
	post model.Post
	seq  int64
}

type likeRow struct {
	like model.Like
	seq  int64
}

type followRow struct {
	follow model.Follow
	seq    int64
}

// NewStore 创建内存存储，hub 为 nil 时自动创建
func NewStore(hub *changefeed.Hub) *Store {
	if hub == nil {
		hub = changefeed.NewHub()
	}
	return &Store{
		hub:      hub,
		now:      time.Now,
		users:    make(map[string]model.User),
		accounts: make(map[string]model.Account),
		posts:    make(map[string]postRow),
		likes:    make(map[string]likeRow),
		follows:  make(map[string]followRow),
	}
}

// SetClock 替换服务端时间来源
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Hub 返回变更通知中心
func (s *Store) Hub() *changefeed.Hub {
	return s.hub
}

// nextSeq 调用方需持有写锁
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Users() *UserRepository       { return &UserRepository{s} }
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s} }
func (s *Store) Posts() *PostRepository       { return &PostRepository{s} }
func (s *Store) Likes() *LikeRepository       { return &LikeRepository{s} }
func (s *Store) Follows() *FollowRepository   { return &FollowRepository{s} }

package session

import (
	"context"
	"sync"

	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

const (
	viewFeed    = "feed"
	viewBrowse  = "browse"
	viewProfile = "profile"
)

// sessionViews 一个登录会话（设备或标签页）的视图
type sessionViews struct {
	feed     *FeedView
	browse   *BrowseView
	profiles map[*ProfileView]struct{}
}

func (sv *sessionViews) closeAll() int {
	closed := 0
	if sv.feed != nil {
		sv.feed.Close()
		closed++
	}
	if sv.browse != nil {
		sv.browse.Close()
		closed++
	}
	for v := range sv.profiles {
		v.Close()
		closed++
	}
	return closed
}

// Manager 按用户和会话管理视图的生命周期。
// 会话登出只关闭该会话的视图；账号删除时关闭该用户的所有视图。
type Manager struct {
	mu       sync.Mutex
	deps     *Services
	metrics  *metrics.Metrics
	parallel int
	users    map[string]map[string]*sessionViews
}

func NewManager(deps *Services, m *metrics.Metrics, parallel int) *Manager {
	if parallel <= 0 {
		parallel = defaultParallel
	}
	return &Manager{
		deps:     deps,
		metrics:  m,
		parallel: parallel,
		users:    make(map[string]map[string]*sessionViews),
	}
}

func (m *Manager) viewsLocked(uid, key string) *sessionViews {
	sessions, ok := m.users[uid]
	if !ok {
		sessions = make(map[string]*sessionViews)
		m.users[uid] = sessions
	}
	sv, ok := sessions[key]
	if !ok {
		sv = &sessionViews{profiles: make(map[*ProfileView]struct{})}
		sessions[key] = sv
	}
	return sv
}

// lookupLocked 不创建
func (m *Manager) lookupLocked(uid, key string) (*sessionViews, bool) {
	sv, ok := m.users[uid][key]
	return sv, ok
}

// Feed 返回会话的动态视图，不存在时创建
func (m *Manager) Feed(id *model.Identity, key string) *FeedView {
	m.mu.Lock()
	defer m.mu.Unlock()

	sv := m.viewsLocked(id.UID, key)
	if sv.feed != nil {
		sv.feed.setIdentity(id)
		return sv.feed
	}

	v := newFeedView(id, m.deps, m.parallel)
	v.onClose = func() {
		m.mu.Lock()
		if sv, ok := m.lookupLocked(id.UID, key); ok && sv.feed == v {
			sv.feed = nil
		}
		m.mu.Unlock()
		m.metrics.ViewClosed(viewFeed)
	}
	sv.feed = v
	m.metrics.ViewOpened(viewFeed)
	return v
}

// Browse 返回会话的搜索视图，不存在时创建
func (m *Manager) Browse(id *model.Identity, key string) *BrowseView {
	m.mu.Lock()
	defer m.mu.Unlock()

	sv := m.viewsLocked(id.UID, key)
	if sv.browse != nil {
		sv.browse.setIdentity(id)
		return sv.browse
	}

	v := newBrowseView(id, m.deps, m.parallel)
	v.onClose = func() {
		m.mu.Lock()
		if sv, ok := m.lookupLocked(id.UID, key); ok && sv.browse == v {
			sv.browse = nil
		}
		m.mu.Unlock()
		m.metrics.ViewClosed(viewBrowse)
	}
	sv.browse = v
	m.metrics.ViewOpened(viewBrowse)
	return v
}

// OpenProfile 打开个人主页视图。每个连接一个视图，ctx 结束时订阅随之结束，调用方负责 Close。
func (m *Manager) OpenProfile(ctx context.Context, id *model.Identity, key string) (*ProfileView, error) {
	v, err := openProfileView(ctx, id, m.deps)
	if err != nil {
		return nil, err
	}
	v.onClose = func() {
		m.mu.Lock()
		if sv, ok := m.lookupLocked(id.UID, key); ok {
			delete(sv.profiles, v)
		}
		m.mu.Unlock()
		m.metrics.ViewClosed(viewProfile)
	}

	m.mu.Lock()
	m.viewsLocked(id.UID, key).profiles[v] = struct{}{}
	m.mu.Unlock()
	m.metrics.ViewOpened(viewProfile)
	return v, nil
}

// HandleAuthState 身份状态变化回调，id 为 nil 表示账号已删除
func (m *Manager) HandleAuthState(uid string, id *model.Identity) {
	if id != nil {
		return
	}
	m.CloseUser(uid)
}

// CloseSession 关闭一个会话的视图，同一用户的其他会话不受影响
func (m *Manager) CloseSession(uid, key string) {
	m.mu.Lock()
	sv, ok := m.lookupLocked(uid, key)
	if ok {
		delete(m.users[uid], key)
		if len(m.users[uid]) == 0 {
			delete(m.users, uid)
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	closed := sv.closeAll()
	util.Logger.Info("已关闭会话视图", util.UID(uid), zap.Int("views", closed))
}

// CloseUser 关闭用户所有会话的视图
func (m *Manager) CloseUser(uid string) {
	m.mu.Lock()
	sessions, ok := m.users[uid]
	delete(m.users, uid)
	m.mu.Unlock()
	if !ok {
		return
	}

	closed := 0
	for _, sv := range sessions {
		closed += sv.closeAll()
	}
	util.Logger.Info("已关闭用户视图", util.UID(uid), zap.Int("sessions", len(sessions)), zap.Int("views", closed))
}

// Close 关闭所有视图
func (m *Manager) Close() {
	m.mu.Lock()
	uids := make([]string, 0, len(m.users))
	for uid := range m.users {
		uids = append(uids, uid)
	}
	m.mu.Unlock()

	for _, uid := range uids {
		m.CloseUser(uid)
	}
}

// Package changefeed 为没有原生实时订阅的存储（MySQL、内存）提供变更通知，
// 可选通过 NATS 在多个实例之间转发。
package changefeed

import (
	"strings"
	"sync"

	"photoshared-backend/internal/util"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix NATS 主题前缀
const SubjectPrefix = "photoshared.changes."

const (
	KindPosts   = "posts"
	KindLikes   = "likes"
	KindFollows = "follows"
)

// Topic 返回某个用户某类集合的变更主题
func Topic(kind, uid string) string {
	return kind + "." + uid
}

// Hub 按主题分发变更通知。通知是合并的：订阅者只知道“有变化”，需要自行重新读取。
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[int]chan struct{}
	nextID   int

	origin string
	nc     *nats.Conn
	sub    *nats.Subscription
}

func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[int]chan struct{}),
		origin:   uuid.NewString(),
	}
}

// ConnectNATS 连接 NATS，把本实例的变更广播给其他实例，并接收其他实例的变更
func (h *Hub) ConnectNATS(url string) error {
	nc, err := nats.Connect(url, nats.Name("photoshared-changefeed"))
	if err != nil {
		return err
	}

	sub, err := nc.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		if string(msg.Data) == h.origin {
			return
		}
		h.notifyLocal(strings.TrimPrefix(msg.Subject, SubjectPrefix))
	})
	if err != nil {
		nc.Close()
		return err
	}

	h.mu.Lock()
	h.nc = nc
	h.sub = sub
	h.mu.Unlock()

	util.Logger.Info("变更通知已连接 NATS", zap.String("url", url))
	return nil
}

// Watch 订阅主题。返回的通道容量为1，多次变更会合并为一次通知。
func (h *Hub) Watch(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.watchers[topic] == nil {
		h.watchers[topic] = make(map[int]chan struct{})
	}
	h.watchers[topic][id] = ch
	h.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers[topic], id)
			if len(h.watchers[topic]) == 0 {
				delete(h.watchers, topic)
			}
			h.mu.Unlock()
		})
	}
	return ch, stop
}

// Notify 通知本实例的订阅者，并在连接了 NATS 时广播
func (h *Hub) Notify(topic string) {
	h.notifyLocal(topic)

	h.mu.Lock()
	nc := h.nc
	h.mu.Unlock()
	if nc == nil {
		return
	}
	if err := nc.Publish(SubjectPrefix+topic, []byte(h.origin)); err != nil {
		util.Logger.Warn("广播变更失败", zap.String("topic", topic), zap.Error(err))
	}
}

func (h *Hub) notifyLocal(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.watchers[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watchers 返回主题当前的订阅数
func (h *Hub) Watchers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[topic])
}

// Close 断开 NATS
func (h *Hub) Close() {
	h.mu.Lock()
	sub, nc := h.sub, h.nc
	h.sub, h.nc = nil, nil
	h.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if nc != nil {
		nc.Close()
	}
}

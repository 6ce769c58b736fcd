package changefeed

import (
	"context"
	"sync"

	"photoshared-backend/internal/repository/interfaces"
)

// Run 启动一个快照订阅：立即读取一次并推送，之后每次收到主题变更就重新读取并推送完整快照。
// 读取失败时调用 onError 并结束订阅。ctx 取消或调用返回的函数都会结束订阅。
func Run[T any](
	ctx context.Context,
	hub *Hub,
	topic string,
	load func(context.Context) ([]T, error),
	onSnapshot func([]T),
	onError func(error),
) interfaces.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	changes, stop := hub.Watch(topic)

	go func() {
		defer stop()
		for {
			items, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			onSnapshot(items)

			select {
			case <-ctx.Done():
				return
			case <-changes:
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

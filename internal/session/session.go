package session

import (
	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/service"

	"github.com/google/uuid"
)

const defaultParallel = 8

var errViewClosed = errors.New(errors.ErrResourceConflict, "视图已关闭")

// Services 视图依赖的业务服务
type Services struct {
	Posts   *service.PostService
	Likes   *service.LikeService
	Follows *service.FollowService
	Feeds   *service.FeedService
}

var sessionNamespace = uuid.MustParse("6f1c3a52-9d0e-4b7a-8f0e-2a4c5d6e7f80")

// SessionKey 由登录令牌得到会话键。同一令牌的请求共享视图，内存中不保存令牌本身。
func SessionKey(token string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(token)).String()
}

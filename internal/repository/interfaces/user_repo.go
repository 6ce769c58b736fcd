package interfaces

import (
	"context"

	"photoshared-backend/internal/model"
)

// UserRepository 用户资料文档 (users)
type UserRepository interface {
	// FindByID 文档不存在时返回 nil, nil
	FindByID(ctx context.Context, id string) (*model.User, error)
	// Merge 创建或合并更新资料文档
	Merge(ctx context.Context, id string, patch model.UserPatch) error
	Delete(ctx context.Context, id string) error
}

// AccountRepository 本地身份提供方的账号存储 (accounts)
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	// FindByID / FindByEmail 不存在时返回 nil, nil
	FindByID(ctx context.Context, uid string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, uid string) error
}

package interfaces

import (
	"context"

	"photoshared-backend/internal/model"
)

// AuthStateListener 身份变化回调，id 为 nil 表示该用户已登出或已删除
type AuthStateListener func(uid string, id *model.Identity)

// IdentityProvider 身份提供方
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*model.Identity, string, error)
	SignIn(ctx context.Context, email, password string) (*model.Identity, string, error)
	SignOut(ctx context.Context, token string) error
	// VerifyToken 校验令牌并返回当前身份
	VerifyToken(ctx context.Context, token string) (*model.Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	UpdateDisplayName(ctx context.Context, id *model.Identity, name string) error
	UpdateEmail(ctx context.Context, id *model.Identity, email string) error
	UpdatePassword(ctx context.Context, id *model.Identity, password string) error
	UpdatePhotoURL(ctx context.Context, id *model.Identity, photoURL string) error
	DeleteAccount(ctx context.Context, id *model.Identity) error
	OnAuthStateChanged(listener AuthStateListener) (unsubscribe func())
}

// Package identitytest 提供身份提供方的测试替身
package identitytest

import (
	"context"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider 是 IdentityProvider 的模拟实现
type MockIdentityProvider struct {
	mock.Mock
}

var _ interfaces.IdentityProvider = (*MockIdentityProvider)(nil)

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (*model.Identity, string, error) {
	args := m.Called(ctx, email, password, displayName)
	id, _ := args.Get(0).(*model.Identity)
	return id, args.String(1), args.Error(2)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*model.Identity, string, error) {
	args := m.Called(ctx, email, password)
	id, _ := args.Get(0).(*model.Identity)
	return id, args.String(1), args.Error(2)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockIdentityProvider) VerifyToken(ctx context.Context, token string) (*model.Identity, error) {
	args := m.Called(ctx, token)
	id, _ := args.Get(0).(*model.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return m.Called(ctx, resetToken, newPassword).Error(0)
}

func (m *MockIdentityProvider) UpdateDisplayName(ctx context.Context, id *model.Identity, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *MockIdentityProvider) UpdateEmail(ctx context.Context, id *model.Identity, email string) error {
	return m.Called(ctx, id, email).Error(0)
}

func (m *MockIdentityProvider) UpdatePassword(ctx context.Context, id *model.Identity, password string) error {
	return m.Called(ctx, id, password).Error(0)
}

func (m *MockIdentityProvider) UpdatePhotoURL(ctx context.Context, id *model.Identity, photoURL string) error {
	return m.Called(ctx, id, photoURL).Error(0)
}

func (m *MockIdentityProvider) DeleteAccount(ctx context.Context, id *model.Identity) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIdentityProvider) OnAuthStateChanged(listener interfaces.AuthStateListener) func() {
	m.Called(listener)
	return func() {}
}

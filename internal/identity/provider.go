// Package identity 是本地身份提供方：账号存储在文档库中，密码使用 bcrypt，会话使用 JWT。
package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength 密码最短长度
const MinPasswordLength = 6

type LocalProvider struct {
	accounts    interfaces.AccountRepository
	tokens      *TokenIssuer
	mailer      Mailer
	frontendURL string
	now         func() time.Time

	tokenBlacklist map[string]time.Time
	blacklistMutex sync.RWMutex

	listenersMu  sync.Mutex
	listeners    map[int]interfaces.AuthStateListener
	nextListener int
}

var _ interfaces.IdentityProvider = (*LocalProvider)(nil)

func NewLocalProvider(accounts interfaces.AccountRepository, tokens *TokenIssuer, mailer Mailer, frontendURL string) *LocalProvider {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &LocalProvider{
		accounts:       accounts,
		tokens:         tokens,
		mailer:         mailer,
		frontendURL:    strings.TrimRight(frontendURL, "/"),
		now:            time.Now,
		tokenBlacklist: make(map[string]time.Time),
		listeners:      make(map[int]interfaces.AuthStateListener),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errors.Wrap(errors.ErrValidation, "无效的邮箱格式", err)
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", errors.New(errors.ErrWeakPassword, fmt.Sprintf("密码至少需要%d个字符", MinPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(errors.ErrInternal, "生成密码哈希失败", err)
	}
	return string(hashed), nil
}

// SignUp 注册并直接登录
func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (*model.Identity, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	existing, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
	}
	if existing != nil {
		return nil, "", errors.New(errors.ErrUserExists, "邮箱已被注册")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, "", err
	}

	now := p.now()
	account := &model.Account{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		util.Logger.Error("创建账号失败", zap.Error(err))
		return nil, "", errors.Wrap(errors.ErrDatabase, "创建账号失败", err)
	}

	token, err := p.tokens.Issue(account.UID)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrInternal, "生成令牌失败", err)
	}

	id := account.Identity()
	util.Logger.Info("用户注册成功", util.UID(id.UID))
	p.emit(id.UID, id)
	return id, token, nil
}

// SignIn 邮箱密码登录
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*model.Identity, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", errors.New(errors.ErrInvalidCredentials, "邮箱或密码错误")
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
	}
	if account == nil {
		util.Logger.Info("登录失败，未找到用户", zap.String("email", email))
		return nil, "", errors.New(errors.ErrInvalidCredentials, "邮箱或密码错误")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		util.Logger.Info("登录失败，密码不正确", util.UID(account.UID))
		return nil, "", errors.New(errors.ErrInvalidCredentials, "邮箱或密码错误")
	}

	token, err := p.tokens.Issue(account.UID)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrInternal, "生成令牌失败", err)
	}

	id := account.Identity()
	util.Logger.Info("用户登录成功", util.UID(id.UID))
	p.emit(id.UID, id)
	return id, token, nil
}

// SignOut 令牌加入黑名单直到过期。只影响这一个会话，不触发身份状态变化。
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	uid, expiresAt, err := p.tokens.Parse(token)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidToken, "无效或过期的令牌", err)
	}

	p.blacklistMutex.Lock()
	p.tokenBlacklist[token] = expiresAt
	p.blacklistMutex.Unlock()

	util.Logger.Info("用户注销，令牌已加入黑名单", util.UID(uid))
	return nil
}

func (p *LocalProvider) isTokenBlacklisted(token string) bool {
	p.blacklistMutex.RLock()
	expiry, exists := p.tokenBlacklist[token]
	p.blacklistMutex.RUnlock()
	if !exists {
		return false
	}
	if p.now().After(expiry) {
		p.blacklistMutex.Lock()
		delete(p.tokenBlacklist, token)
		p.blacklistMutex.Unlock()
		return false
	}
	return true
}

// VerifyToken 校验令牌并读取最新的账号资料
func (p *LocalProvider) VerifyToken(ctx context.Context, token string) (*model.Identity, error) {
	if p.isTokenBlacklisted(token) {
		return nil, errors.New(errors.ErrUnauthorized, "令牌已被撤销")
	}

	uid, _, err := p.tokens.Parse(token)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidToken, "无效或过期的令牌", err)
	}

	account, err := p.accounts.FindByID(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
	}
	if account == nil {
		return nil, errors.New(errors.ErrUnauthorized, "账号不存在")
	}
	return account.Identity(), nil
}

// SendPasswordReset 发送密码重置邮件
func (p *LocalProvider) SendPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
	}
	if account == nil {
		return errors.New(errors.ErrUserNotFound, "用户不存在")
	}

	token, err := p.tokens.IssueReset(email)
	if err != nil {
		util.Logger.Error("生成密码重置令牌失败", zap.Error(err))
		return errors.Wrap(errors.ErrInternal, "生成密码重置令牌失败", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", p.frontendURL, token)
	if err := p.mailer.Send(email, "重置您的密码 - PhotoShared", passwordResetBody(link)); err != nil {
		return errors.Wrap(errors.ErrInternal, "发送密码重置邮件失败", err)
	}
	return nil
}

// ResetPassword 使用重置令牌设置新密码
func (p *LocalProvider) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	email, err := p.tokens.ParseReset(resetToken)
	if err != nil {
		util.Logger.Error("验证密码重置令牌失败", zap.Error(err))
		return errors.Wrap(errors.ErrInvalidToken, "无效的重置令牌", err)
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
	}
	if account == nil {
		return errors.New(errors.ErrUserNotFound, "用户不存在")
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hashed
	return p.save(ctx, account, "密码重置成功")
}

func (p *LocalProvider) UpdateDisplayName(ctx context.Context, id *model.Identity, name string) error {
	return p.update(ctx, id, "显示名称已更新", func(a *model.Account) error {
		a.DisplayName = strings.TrimSpace(name)
		return nil
	})
}

func (p *LocalProvider) UpdateEmail(ctx context.Context, id *model.Identity, email string) error {
	return p.update(ctx, id, "邮箱已更新", func(a *model.Account) error {
		normalized, err := normalizeEmail(email)
		if err != nil {
			return err
		}
		if normalized == a.Email {
			return nil
		}
		other, err := p.accounts.FindByEmail(ctx, normalized)
		if err != nil {
			return errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
		}
		if other != nil {
			return errors.New(errors.ErrUserExists, "邮箱已被注册")
		}
		a.Email = normalized
		return nil
	})
}

func (p *LocalProvider) UpdatePassword(ctx context.Context, id *model.Identity, password string) error {
	return p.update(ctx, id, "密码已更新", func(a *model.Account) error {
		hashed, err := hashPassword(password)
		if err != nil {
			return err
		}
		a.PasswordHash = hashed
		return nil
	})
}

func (p *LocalProvider) UpdatePhotoURL(ctx context.Context, id *model.Identity, photoURL string) error {
	return p.update(ctx, id, "头像地址已更新", func(a *model.Account) error {
		a.PhotoURL = photoURL
		return nil
	})
}

// DeleteAccount 删除账号，之后该用户的令牌全部失效
func (p *LocalProvider) DeleteAccount(ctx context.Context, id *model.Identity) error {
	if id == nil {
		return errors.New(errors.ErrUnauthenticated, "需要登录")
	}
	if err := p.accounts.Delete(ctx, id.UID); err != nil {
		util.Logger.Error("删除账号失败", util.UID(id.UID), zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "删除账号失败", err)
	}
	util.Logger.Info("账号已删除", util.UID(id.UID))
	p.emit(id.UID, nil)
	return nil
}

func (p *LocalProvider) update(ctx context.Context, id *model.Identity, msg string, mutate func(*model.Account) error) error {
	if id == nil {
		return errors.New(errors.ErrUnauthenticated, "需要登录")
	}
	account, err := p.accounts.FindByID(ctx, id.UID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询账号失败", err)
	}
	if account == nil {
		return errors.New(errors.ErrUserNotFound, "用户不存在")
	}
	if err := mutate(account); err != nil {
		return err
	}
	if err := p.save(ctx, account, msg); err != nil {
		return err
	}
	p.emit(account.UID, account.Identity())
	return nil
}

func (p *LocalProvider) save(ctx context.Context, account *model.Account, msg string) error {
	account.UpdatedAt = p.now()
	if err := p.accounts.Update(ctx, account); err != nil {
		util.Logger.Error("更新账号失败", util.UID(account.UID), zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "更新账号失败", err)
	}
	util.Logger.Info(msg, util.UID(account.UID))
	return nil
}

// OnAuthStateChanged 注册身份变化监听，返回取消函数
func (p *LocalProvider) OnAuthStateChanged(listener interfaces.AuthStateListener) func() {
	p.listenersMu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = listener
	p.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.listenersMu.Lock()
			delete(p.listeners, id)
			p.listenersMu.Unlock()
		})
	}
}

func (p *LocalProvider) emit(uid string, id *model.Identity) {
	p.listenersMu.Lock()
	listeners := make([]interfaces.AuthStateListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.listenersMu.Unlock()

	for _, l := range listeners {
		l(uid, id)
	}
}

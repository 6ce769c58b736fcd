package user

import (
	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/session"
	"photoshared-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionCloser 登出时关闭该会话打开的视图
type SessionCloser interface {
	CloseSession(uid, key string)
}

// AuthHandler 处理与认证相关的HTTP请求
type AuthHandler struct {
	identity interfaces.IdentityProvider
	sessions SessionCloser
}

// NewAuthHandler 创建一个新的 AuthHandler 实例，sessions 可以为 nil
func NewAuthHandler(identity interfaces.IdentityProvider, sessions SessionCloser) *AuthHandler {
	return &AuthHandler{identity: identity, sessions: sessions}
}

// Register 处理用户注册请求
func (h *AuthHandler) Register(c *gin.Context) {
	var registerData struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&registerData); err != nil {
		util.Logger.Warn("注册失败，无效的请求数据", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	id, token, err := h.identity.SignUp(c.Request.Context(), registerData.Email, registerData.Password, registerData.DisplayName)
	if err != nil {
		util.Logger.Warn("注册失败", zap.String("email", registerData.Email), zap.Error(err))
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"token": token,
		"user":  id,
	}, "注册成功")
}

// Login 处理用户登录请求
func (h *AuthHandler) Login(c *gin.Context) {
	var loginData struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	id, token, err := h.identity.SignIn(c.Request.Context(), loginData.Email, loginData.Password)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"token": token,
		"user":  id,
	}, "登录成功")
}

// Logout 处理用户登出，只关闭当前会话的视图，其他设备不受影响
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.CurrentToken(c)
	if err := h.identity.SignOut(c.Request.Context(), token); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrInternal, "登出失败", err))
		return
	}
	if h.sessions != nil {
		h.sessions.CloseSession(middleware.CurrentIdentity(c).UID, session.SessionKey(token))
	}
	errors.HandleSuccess(c, nil, "已成功登出")
}

// RequestPasswordReset 处理密码重置请求。邮箱不存在时同样返回成功。
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var requestData struct {
		Email string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&requestData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的邮箱格式", err))
		return
	}

	if err := h.identity.SendPasswordReset(c.Request.Context(), requestData.Email); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrInternal, "请求密码重置失败", err))
		return
	}

	errors.HandleSuccess(c, nil, "密码重置邮件已发送")
}

// ResetPassword 处理密码重置
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var resetData struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&resetData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	if err := h.identity.ResetPassword(c.Request.Context(), resetData.Token, resetData.NewPassword); err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, nil, "密码重置成功")
}

// Me 返回当前身份
func (h *AuthHandler) Me(c *gin.Context) {
	errors.HandleSuccess(c, gin.H{"user": middleware.CurrentIdentity(c)}, "")
}

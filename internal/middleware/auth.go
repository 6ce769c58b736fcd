package middleware

import (
	"context"
	"strings"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

// BearerToken 从 Authorization 头中取出令牌。WebSocket 握手无法设置请求头，允许使用 token 查询参数。
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			if token := c.Query("token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *gin.Context, provider interfaces.IdentityProvider) (*model.Identity, error) {
	token, ok := BearerToken(c)
	if !ok {
		return nil, errors.New(errors.ErrUnauthenticated, "需要认证")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id, err := provider.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	c.Set(identityKey, id)
	c.Set(tokenKey, token)
	return id, nil
}

// AuthMiddleware 要求请求携带有效令牌
func AuthMiddleware(provider interfaces.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		util.Logger.Debug("进入认证中间件",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method))

		if _, err := authenticate(c, provider); err != nil {
			errors.HandleError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth 有令牌时解析身份，没有或无效时按未登录继续
func OptionalAuth(provider interfaces.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := BearerToken(c); ok {
			if _, err := authenticate(c, provider); err != nil {
				util.Logger.Debug("可选认证失败，按未登录处理", zap.Error(err))
			}
		}
		c.Next()
	}
}

// CurrentIdentity 返回当前请求的身份，未登录时为 nil
func CurrentIdentity(c *gin.Context) *model.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*model.Identity)
	return id
}

// CurrentToken 返回当前请求使用的令牌
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

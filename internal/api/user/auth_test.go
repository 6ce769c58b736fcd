package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/identity/identitytest"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	closed []string
}

func (r *recordingCloser) CloseSession(uid, key string) {
	r.closed = append(r.closed, uid+"/"+key)
}

func postJSON(router http.Handler, path, body string, header ...string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRegister 测试注册处理器
func TestRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)

	idp := new(identitytest.MockIdentityProvider)
	handler := NewAuthHandler(idp, nil)

	router := gin.New()
	router.POST("/register", handler.Register)

	user := &model.Identity{UID: "u1", Email: "test@example.com", DisplayName: "Test"}
	idp.On("SignUp", mock.Anything, "test@example.com", "secret1", "Test").Return(user, "tok", nil).Once()

	w := postJSON(router, "/register", `{"displayName": "Test", "email": "test@example.com", "password": "secret1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Token string          `json:"token"`
			User  *model.Identity `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tok", resp.Data.Token)
	assert.Equal(t, "u1", resp.Data.User.UID)

	// 模拟注册失败（邮箱已存在）
	idp.On("SignUp", mock.Anything, "test@example.com", "secret1", "Test").
		Return(nil, "", errors.New(errors.ErrUserExists, "邮箱已被注册")).Once()

	w = postJSON(router, "/register", `{"displayName": "Test", "email": "test@example.com", "password": "secret1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(router, "/register", `{"email": "not-an-email", "password": "secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	idp.AssertExpectations(t)
}

// TestLogin 测试登录处理器
func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	idp := new(identitytest.MockIdentityProvider)
	handler := NewAuthHandler(idp, nil)

	router := gin.New()
	router.POST("/login", handler.Login)

	user := &model.Identity{UID: "u1", Email: "test@example.com"}
	idp.On("SignIn", mock.Anything, "test@example.com", "password123").Return(user, "tok", nil)
	idp.On("SignIn", mock.Anything, "test@example.com", "wrong").
		Return(nil, "", errors.New(errors.ErrInvalidCredentials, "邮箱或密码错误"))

	w := postJSON(router, "/login", `{"email": "test@example.com", "password": "password123"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/login", `{"email": "test@example.com", "password": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	idp.AssertExpectations(t)
}

func TestLogoutRevokesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	idp := new(identitytest.MockIdentityProvider)
	closer := &recordingCloser{}
	handler := NewAuthHandler(idp, closer)

	router := gin.New()
	router.POST("/logout", middleware.AuthMiddleware(idp), handler.Logout)

	idp.On("VerifyToken", mock.Anything, "tok").Return(&model.Identity{UID: "u1"}, nil)
	idp.On("SignOut", mock.Anything, "tok").Return(nil)

	w := postJSON(router, "/logout", `{}`, "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusOK, w.Code)
	idp.AssertExpectations(t)

	// 只关闭当前令牌对应的会话
	assert.Equal(t, []string{"u1/" + session.SessionKey("tok")}, closer.closed)
}

func TestPasswordReset(t *testing.T) {
	gin.SetMode(gin.TestMode)

	idp := new(identitytest.MockIdentityProvider)
	handler := NewAuthHandler(idp, nil)

	router := gin.New()
	router.POST("/password-reset/request", handler.RequestPasswordReset)
	router.POST("/password-reset", handler.ResetPassword)

	idp.On("SendPasswordReset", mock.Anything, "test@example.com").Return(nil)
	idp.On("ResetPassword", mock.Anything, "reset-tok", "123").
		Return(errors.New(errors.ErrWeakPassword, "密码至少需要6位"))

	w := postJSON(router, "/password-reset/request", `{"email": "test@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/password-reset", `{"token": "reset-tok", "new_password": "123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	idp.AssertExpectations(t)
}

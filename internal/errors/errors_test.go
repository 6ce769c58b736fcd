package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrapped(t *testing.T) {
	base := stderrors.New("boom")
	appErr := Wrap(ErrReleaseFailed, "删除图片失败", base)
	wrapped := fmt.Errorf("delete post: %w", appErr)

	assert.Equal(t, ErrReleaseFailed, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrReleaseFailed))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, ErrInternal, CodeOf(base))
	assert.False(t, IsCode(nil, ErrInternal))
}

func TestHandleErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{New(ErrUnauthenticated, "需要登录"), http.StatusUnauthorized},
		{New(ErrUploadFailed, "上传失败"), http.StatusBadGateway},
		{New(ErrQueryFailed, "查询失败"), http.StatusServiceUnavailable},
		{New(ErrForbidden, "无权限"), http.StatusForbidden},
		{fmt.Errorf("x: %w", New(ErrResourceNotFound, "不存在")), http.StatusNotFound},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		HandleError(c, tt.err)
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}

func TestAnalyticsPatterns(t *testing.T) {
	a := NewErrorAnalytics()
	a.Record(NewTracedError(New(ErrRecordFailed, "x"), ErrorContext{Path: "/api/v1/posts"}))
	a.Record(NewTracedError(stderrors.New("plain"), ErrorContext{Path: "/api/v1/posts"}))

	stats := a.GetStats()
	assert.Equal(t, 2, stats["total_errors"])
	assert.Equal(t, 2, stats["errors_by_path"].(map[string]int)["/api/v1/posts"])
	assert.Equal(t, 1, stats["error_patterns"].(map[string]int)["orphaned_blob"])
}

func TestTracedErrorKeepsStackForServerErrors(t *testing.T) {
	client := NewTracedError(New(ErrValidation, "bad"), ErrorContext{})
	assert.Equal(t, 400, client.Status)
	assert.Equal(t, "client", client.Pattern)
	assert.Empty(t, client.Stack)

	server := NewTracedError(stderrors.New("boom"), ErrorContext{UserID: "u1"})
	assert.Equal(t, ErrInternal, server.Code)
	assert.Equal(t, 500, server.Status)
	assert.NotEmpty(t, server.Stack)
	assert.Len(t, server.Fields(), 8)
}

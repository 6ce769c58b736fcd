package middleware

import (
	"strconv"
	"sync"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

type ErrorMonitor struct {
	errorCounts map[errors.ErrorCode]int
	mu          sync.RWMutex
	analytics   *errors.ErrorAnalytics
	metrics     *metrics.Metrics
}

func NewErrorMonitor(m *metrics.Metrics) *ErrorMonitor {
	return &ErrorMonitor{
		errorCounts: make(map[errors.ErrorCode]int),
		analytics:   errors.NewErrorAnalytics(),
		metrics:     m,
	}
}

func (m *ErrorMonitor) RecordError(err *errors.TracedError) {
	m.mu.Lock()
	m.errorCounts[err.Code]++
	m.mu.Unlock()

	m.analytics.Record(err)
	m.metrics.HTTPError(strconv.Itoa(int(err.Code)))
}

func (m *ErrorMonitor) GetErrorCounts() map[errors.ErrorCode]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[errors.ErrorCode]int)
	for code, count := range m.errorCounts {
		counts[code] = count
	}
	return counts
}

// Stats 错误分析统计
func (m *ErrorMonitor) Stats() map[string]interface{} {
	return m.analytics.GetStats()
}

// RequestID 为每个请求分配ID并写入响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func ErrorMonitorMiddleware(monitor *ErrorMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		errCtx := errors.ErrorContext{
			RequestID: c.GetString(requestIDKey),
			Path:      c.FullPath(),
			Method:    c.Request.Method,
		}
		if id := CurrentIdentity(c); id != nil {
			errCtx.UserID = id.UID
		}

		for _, e := range c.Errors {
			traced := errors.NewTracedError(e.Err, errCtx)
			monitor.RecordError(traced)

			if traced.Status >= 500 {
				util.Logger.Error("请求处理错误", append(traced.Fields(), zap.String("stack", traced.Stack))...)
			} else {
				util.Logger.Warn("请求被拒绝", traced.Fields()...)
			}
		}
	}
}

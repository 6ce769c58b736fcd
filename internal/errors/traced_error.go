package errors

import (
	stderrors "errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// TracedError 请求链路上记录下来的错误
type TracedError struct {
	*AppError
	Status    int
	Pattern   string
	Stack     string
	Timestamp time.Time
	Context   ErrorContext
}

// ErrorContext 错误发生时的请求信息
type ErrorContext struct {
	RequestID string
	UserID    string
	Path      string
	Method    string
}

// NewTracedError 非 AppError 按内部错误处理；只有服务端错误才保留调用栈
func NewTracedError(err error, ctx ErrorContext) *TracedError {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = &AppError{
			Code:    ErrInternal,
			Message: err.Error(),
			Err:     err,
		}
	}

	traced := &TracedError{
		AppError:  appErr,
		Status:    StatusOf(appErr.Code),
		Timestamp: time.Now(),
		Context:   ctx,
	}
	traced.Pattern = identifyPattern(traced)
	if traced.Status >= 500 {
		traced.Stack = string(debug.Stack())
	}
	return traced
}

// Fields 日志字段
func (e *TracedError) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("error_code", int(e.Code)),
		zap.String("error_message", e.Message),
		zap.Int("status", e.Status),
		zap.String("request_id", e.Context.RequestID),
		zap.String("path", e.Context.Path),
		zap.String("method", e.Context.Method),
	}
	if e.Context.UserID != "" {
		fields = append(fields, zap.String("uid", e.Context.UserID))
	}
	if e.Pattern != "" {
		fields = append(fields, zap.String("pattern", e.Pattern))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	return fields
}

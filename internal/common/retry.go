package common

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"
)

// IsTemporary 判断是否为临时性错误
func IsTemporary(err error) bool {
	var temp interface{ Temporary() bool }
	if stderrors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}

// IsRetryable 判断是否可重试
func IsRetryable(err error) bool {
	return IsTemporary(err) || stderrors.Is(err, sql.ErrConnDone)
}

// RetryBackoff 第 i 次失败后的等待时间
var RetryBackoff = func(i int) time.Duration {
	return time.Second * time.Duration(i+1)
}

// WithRetry 通用重试机制，ctx 取消时立即返回
func WithRetry(ctx context.Context, maxRetries int, operation func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if !IsRetryable(err) || i == maxRetries-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(RetryBackoff(i)):
		}
	}
	return err
}

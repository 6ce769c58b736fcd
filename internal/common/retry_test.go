package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type tempErr struct{}

func (tempErr) Error() string   { return "temporary" }
func (tempErr) Temporary() bool { return true }

func init() {
	RetryBackoff = func(int) time.Duration { return time.Millisecond }
}

func TestWithRetryRetriesTemporary(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return tempErr{}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := WithRetry(context.Background(), 3, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RetryBackoff = func(int) time.Duration { return time.Hour }
	defer func() { RetryBackoff = func(int) time.Duration { return time.Millisecond } }()

	err := WithRetry(ctx, 5, func() error { return tempErr{} })
	assert.ErrorIs(t, err, context.Canceled)
}

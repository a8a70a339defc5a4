package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/resetwatch/resetwatch/pkg/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	t.Run("completes full duration", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		result := utils.ContextSleep(t.Context(), 50*time.Millisecond)

		assert.Equal(t, utils.SleepCompleted, result)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("cancelled mid-sleep", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		result := utils.ContextSleep(ctx, 5*time.Second)

		assert.Equal(t, utils.SleepCancelled, result)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestContextSleepUntil(t *testing.T) {
	t.Parallel()

	t.Run("past target returns immediately", func(t *testing.T) {
		t.Parallel()

		result := utils.ContextSleepUntil(t.Context(), time.Now().Add(-time.Minute))
		assert.Equal(t, utils.SleepCompleted, result)
	})

	t.Run("waits for future target", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		result := utils.ContextSleepUntil(t.Context(), time.Now().Add(50*time.Millisecond))

		assert.Equal(t, utils.SleepCompleted, result)
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})
}

func TestContextGuard(t *testing.T) {
	t.Parallel()

	t.Run("active context", func(t *testing.T) {
		t.Parallel()
		assert.False(t, utils.ContextGuard(t.Context()))
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		assert.True(t, utils.ContextGuard(ctx))
		assert.True(t, utils.ContextGuardWithLog(ctx, zaptest.NewLogger(t), "stopping"))
	})
}

func TestErrorSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.False(t, utils.ErrorSleep(ctx, time.Minute, zaptest.NewLogger(t), "test worker"))
	assert.True(t, utils.ErrorSleep(t.Context(), 10*time.Millisecond, zaptest.NewLogger(t), "test worker"))
}

package dbretry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/resetwatch/resetwatch/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("relation does not exist")

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "nil error", err: nil, retryable: false},
		{name: "context deadline", err: context.DeadlineExceeded, retryable: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), retryable: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), retryable: true},
		{name: "io timeout", err: errors.New("read tcp: i/o timeout"), retryable: true},
		{name: "query error", err: errPermanent, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.retryable, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestOperation(t *testing.T) {
	t.Parallel()

	t.Run("permanent error stops immediately", func(t *testing.T) {
		t.Parallel()

		calls := 0

		_, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
			calls++
			return 0, errPermanent
		})

		require.ErrorIs(t, err, errPermanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("retryable error is retried", func(t *testing.T) {
		t.Parallel()

		calls := 0

		result, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("connection refused")
			}

			return 7, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, result)
		assert.Equal(t, 3, calls)
	})
}

func TestNoResult(t *testing.T) {
	t.Parallel()

	calls := 0

	err := dbretry.NoResult(t.Context(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"

	"github.com/stretchr/testify/assert"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("connector", "failed to connect", originalErr)

	assert.Equal(t, "connector", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.Equal(t, "[connector] failed to connect: db connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be := exception.NewBatchErrorf("reader", "table %s missing", "stores")
	assert.Nil(t, be.Unwrap())
	assert.False(t, be.IsRetryable())
	assert.Equal(t, "[reader] table stores missing", be.Error())

	wrapped := fmt.Errorf("%w: syntax error", exception.ErrQueryFailed)
	be = exception.NewBatchErrorf("reader", "query on %s failed", "stores", wrapped)
	assert.ErrorIs(t, be, exception.ErrQueryFailed)
	assert.Equal(t, "query on stores failed", be.Message)
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(context.DeadlineExceeded))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: i/o timeout")))
	assert.False(t, exception.IsTemporary(errors.New("password authentication failed")))

	be := exception.NewBatchError("connector", "auth", errors.New("password authentication failed"))
	assert.False(t, exception.IsTemporary(fmt.Errorf("wrapped: %w", be)))
}

func TestIsBatchErrorAndExtractMessage(t *testing.T) {
	be := exception.NewBatchError("writer", "records file", exception.ErrWriteFailed)
	wrapped := fmt.Errorf("run: %w", be)

	assert.True(t, exception.IsBatchError(wrapped))
	assert.False(t, exception.IsBatchError(errors.New("plain")))
	assert.Equal(t, "records file", exception.ExtractErrorMessage(wrapped))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}

package fluxerr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := map[fluxerr.Kind]string{
		fluxerr.KindUnknown:         "unknown",
		fluxerr.KindConfigMissing:   "configuration.missing",
		fluxerr.KindConfigInvalid:   "configuration.invalid",
		fluxerr.KindStoreConnection: "connection.store",
		fluxerr.KindTimeout:         "timeout",
		fluxerr.KindScriptExecution: "script.execution",
		fluxerr.KindRuleExecution:   "rule.execution",
		fluxerr.KindNotification:    "notification",
		fluxerr.KindCircuitOpen:     "circuit.open",
		fluxerr.KindInvalidKey:      "invalid.key",
		fluxerr.KindInvalidArgument: "invalid.argument",
		fluxerr.KindSerialization:   "serialization",
	}

	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}

func TestNew_DefaultRetryClassification(t *testing.T) {
	t.Parallel()

	retryable := []fluxerr.Kind{
		fluxerr.KindStoreConnection,
		fluxerr.KindTimeout,
		fluxerr.KindScriptExecution,
		fluxerr.KindRuleExecution,
	}
	for _, k := range retryable {
		assert.True(t, fluxerr.IsRetryable(fluxerr.New(k, "op", nil)), "kind %s", k)
	}

	fatal := []fluxerr.Kind{
		fluxerr.KindConfigMissing,
		fluxerr.KindConfigInvalid,
		fluxerr.KindNotification,
		fluxerr.KindCircuitOpen,
		fluxerr.KindInvalidKey,
		fluxerr.KindInvalidArgument,
		fluxerr.KindSerialization,
	}
	for _, k := range fatal {
		assert.False(t, fluxerr.IsRetryable(fluxerr.New(k, "op", nil)), "kind %s", k)
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fluxerr.New(fluxerr.KindStoreConnection, "bucketstore.tryconsume", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bucketstore.tryconsume")
	assert.Contains(t, err.Error(), "connection.store")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	t.Run("tagged error", func(t *testing.T) {
		t.Parallel()
		err := fluxerr.New(fluxerr.KindScriptExecution, "op", nil)
		assert.Equal(t, fluxerr.KindScriptExecution, fluxerr.KindOf(err))
	})

	t.Run("wrapped tagged error", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("outer: %w", fluxerr.New(fluxerr.KindNotification, "op", nil))
		assert.Equal(t, fluxerr.KindNotification, fluxerr.KindOf(err))
	})

	t.Run("context deadline classifies as timeout", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, fluxerr.KindTimeout, fluxerr.KindOf(context.DeadlineExceeded))
		assert.True(t, fluxerr.IsRetryable(context.DeadlineExceeded))
	})

	t.Run("plain error is unknown and not retryable", func(t *testing.T) {
		t.Parallel()
		err := errors.New("boom")
		assert.Equal(t, fluxerr.KindUnknown, fluxerr.KindOf(err))
		assert.False(t, fluxerr.IsRetryable(err))
	})
}

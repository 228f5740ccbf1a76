package redisconn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, ModeStandalone.Valid())
	assert.True(t, ModeCluster.Valid())
	assert.False(t, Mode("SENTINEL").Valid())
	assert.False(t, Mode("").Valid())
}

func TestConfig_NormalizedMode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ModeCluster, Config{Mode: "cluster"}.normalizedMode())
	assert.Equal(t, ModeStandalone, Config{Mode: "Standalone"}.normalizedMode())
}

func TestClusterURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single host unchanged",
			in:   "redis://localhost:6379",
			want: "redis://localhost:6379",
		},
		{
			name: "two hosts",
			in:   "redis://a:6379,b:6380",
			want: "redis://a:6379?addr=b:6380",
		},
		{
			name: "three hosts",
			in:   "redis://a:6379,b:6380,c:6381",
			want: "redis://a:6379?addr=b:6380&addr=c:6381",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clusterURL(tt.in))
		})
	}
}

func TestConnect_ConfigErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Timeout:        time.Second,
		RetryAttempts:  1,
		RetryInterval:  time.Millisecond,
		ConnectTimeout: time.Second,
	}

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.URL = "not-a-url"
		cfg.Mode = ModeStandalone
		_, err := Connect(context.Background(), cfg)
		require.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.URL = "redis://localhost:6379"
		cfg.Mode = "SENTINEL"
		_, err := Connect(context.Background(), cfg)
		require.ErrorIs(t, err, ErrInvalidMode)
	})
}

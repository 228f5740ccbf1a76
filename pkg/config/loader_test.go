package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate/fluxgate/pkg/config"
)

type serverConfig struct {
	Host string `env:"TEST_LOADER_HOST" envDefault:"localhost"`
	Port int    `env:"TEST_LOADER_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Token string `env:"TEST_LOADER_TOKEN,required"`
}

type cachedConfig struct {
	Value string `env:"TEST_LOADER_CACHED" envDefault:"initial"`
}

func TestLoad_ParsesEnvironment(t *testing.T) {
	t.Setenv("TEST_LOADER_HOST", "example.com")
	t.Setenv("TEST_LOADER_PORT", "9090")

	var cfg serverConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "example.com", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("TEST_LOADER_CACHED", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	require.Equal(t, "first", first.Value)

	// The environment changed, but the cached copy wins.
	t.Setenv("TEST_LOADER_CACHED", "second")
	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()

	err := config.Load[serverConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

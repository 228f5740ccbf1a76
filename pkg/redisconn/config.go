package redisconn

import (
	"strings"
	"time"
)

// Mode selects the store deployment topology.
type Mode string

const (
	// ModeStandalone talks to a single Redis node (or a proxy in front of
	// one).
	ModeStandalone Mode = "STANDALONE"
	// ModeCluster talks to a Redis Cluster.
	ModeCluster Mode = "CLUSTER"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeStandalone || m == ModeCluster
}

// Config describes the shared key-value store connection.
type Config struct {
	// URL is the connection string, "redis://[:password@]host:port/db".
	// In cluster mode it may list several hosts separated by commas.
	URL string `env:"FLUXGATE_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Mode selects STANDALONE or CLUSTER.
	Mode Mode `env:"FLUXGATE_STORE_MODE" envDefault:"STANDALONE"`

	// Timeout bounds each store operation.
	Timeout time.Duration `env:"FLUXGATE_STORE_TIMEOUT" envDefault:"2s"`

	// RetryAttempts is how many times Connect pings before giving up.
	RetryAttempts int `env:"FLUXGATE_REDIS_RETRY_ATTEMPTS" envDefault:"3"`

	// RetryInterval is the pause between connect attempts.
	RetryInterval time.Duration `env:"FLUXGATE_REDIS_RETRY_INTERVAL" envDefault:"2s"`

	// ConnectTimeout bounds the whole connect loop.
	ConnectTimeout time.Duration `env:"FLUXGATE_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// normalizedMode folds case so "cluster" works in env files.
func (c Config) normalizedMode() Mode {
	return Mode(strings.ToUpper(string(c.Mode)))
}

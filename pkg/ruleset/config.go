package ruleset

import "time"

// CacheConfig tunes the rule-set cache.
type CacheConfig struct {
	// MaxSize bounds how many rule sets stay cached.
	MaxSize int `env:"FLUXGATE_CACHE_MAX_SIZE" envDefault:"100"`

	// TTL expires cached sets even without a reload event. Zero keeps
	// entries until invalidated or evicted.
	TTL time.Duration `env:"FLUXGATE_CACHE_TTL" envDefault:"0"`
}

// NewCacheFromConfig builds a cache per the configuration.
func NewCacheFromConfig(cfg CacheConfig) *Cache {
	opts := []CacheOption{}
	if cfg.TTL > 0 {
		opts = append(opts, WithTTL(cfg.TTL))
	}
	return NewCache(cfg.MaxSize, opts...)
}

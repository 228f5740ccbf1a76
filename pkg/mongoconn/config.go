package mongoconn

import "time"

// Config describes the rule store connection.
type Config struct {
	URL             string        `env:"FLUXGATE_MONGODB_URL,required"`
	Database        string        `env:"FLUXGATE_MONGODB_DATABASE" envDefault:"fluxgate"`
	ConnectTimeout  time.Duration `env:"FLUXGATE_MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"FLUXGATE_MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"FLUXGATE_MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"FLUXGATE_MONGODB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	RetryAttempts   int           `env:"FLUXGATE_MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"FLUXGATE_MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

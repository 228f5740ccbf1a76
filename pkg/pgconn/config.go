package pgconn

import "time"

// Config describes the Postgres rule store connection.
type Config struct {
	URL               string        `env:"FLUXGATE_PG_URL,required"`
	MaxOpenConns      int32         `env:"FLUXGATE_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MinConns          int32         `env:"FLUXGATE_PG_MIN_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"FLUXGATE_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"FLUXGATE_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"FLUXGATE_PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	RetryAttempts     int           `env:"FLUXGATE_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval     time.Duration `env:"FLUXGATE_PG_RETRY_INTERVAL" envDefault:"5s"`
}

// Package config loads typed configuration structs from environment
// variables.
//
// Struct fields carry env tags:
//
//	type StoreConfig struct {
//		URL     string        `env:"FLUXGATE_REDIS_URL,required"`
//		Timeout time.Duration `env:"FLUXGATE_STORE_TIMEOUT" envDefault:"2s"`
//	}
//
// Load parses a .env file once per process (missing files are fine), then
// parses the environment into the struct. Each struct type is parsed once
// and cached, so every component asking for the same config type sees the
// same values.
package config

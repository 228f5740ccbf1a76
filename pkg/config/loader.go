package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = make(map[string]any)
)

// Load parses environment variables into v. The first call for a given
// struct type does the parsing; later calls return the cached copy, so a
// config type holds the same values everywhere in the process.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// Missing .env files are expected outside development.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = *v
	return nil
}

// MustLoad is Load for configs the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

func typeName[T any]() string {
	t := reflect.TypeOf(*new(T))
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}

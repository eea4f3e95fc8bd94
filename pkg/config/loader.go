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
	cacheMu sync.Mutex
	cache   = make(map[reflect.Type]any)

	defaultEnvLoaded sync.Once
)

// LoadEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are an error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses environment variables into v according to its `env` tags.
// The default .env file is read once on first use if present. Each
// configuration type is parsed once; later calls for the same type return
// the cached copy. Failed parses are not cached.
//
//	type PushConfig struct {
//		Endpoint string        `env:"PUSH_ENDPOINT,required"`
//		Timeout  time.Duration `env:"PUSH_TIMEOUT" envDefault:"60s"`
//	}
//
//	var cfg PushConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Reset drops every cached configuration. Intended for tests.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	clear(cache)
}

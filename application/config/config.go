// Package config loads and validates the host runtime configuration.
package config

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/go-playground/validator/v10"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "CFXWASM_"

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the host runtime configuration.
type Config struct {
	// ResourceName names the loaded module in logs and ref names.
	ResourceName string `env:"RESOURCE_NAME" envDefault:"script" json:"resource_name" validate:"required,max=64,excludesall=:"`

	// LogLevel is the minimum host log level.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" json:"log_level" validate:"oneof=debug info warn error"`

	// TickInterval is how often the host loop ticks modules and flushes
	// routed events.
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"50ms" json:"tick_interval" validate:"gte=1ms,lte=10s"`

	// MemoryLimitPages caps guest linear memory in 64 KiB pages.
	MemoryLimitPages uint32 `env:"MEMORY_LIMIT_PAGES" envDefault:"4096" json:"memory_limit_pages" validate:"gte=1,lte=65536"`

	// MaxRequestSize bounds any single region the host reads out of guest
	// memory while decoding a call.
	MaxRequestSize uint32 `env:"MAX_REQUEST_SIZE" envDefault:"1048576" json:"max_request_size" validate:"gte=1024"`

	// Server selects server mode: WASI console output and server-side
	// event routing.
	Server bool `env:"SERVER" envDefault:"true" json:"server"`
}

// Default returns the configuration Load produces with an empty environment.
func Default() Config {
	cfg, err := parse(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads the configuration from the process environment and validates it.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from environ (the process environment when
// nil) and validates it.
func LoadFrom(environ map[string]string) (Config, error) {
	cfg, err := parse(environ)
	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, &errors.ConfigError{Err: fmt.Errorf("parse env: %w", err)}
	}
	return cfg, nil
}

// Validate checks cfg against its validation tags. Every failing field is
// reported as a *errors.ConfigError, joined into one error.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stdErrors.As(err, &verrs) {
		return &errors.ConfigError{Err: err}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &errors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return stdErrors.Join(errs...)
}

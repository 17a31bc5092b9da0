package matmul

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
)

// DefaultMaxCiphertexts bounds the number of left ciphertexts one product may
// use.
const DefaultMaxCiphertexts = 1 << 20

// WorkersEnv overrides Config.Workers when set.
const WorkersEnv = "SECLINK_WORKERS"

// ErrConfig is matched by every *ConfigError via errors.Is.
var ErrConfig = errors.New("invalid engine configuration")

// ConfigError reports an engine configuration that cannot serve a product.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string   { return "matmul: " + e.Reason }
func (e *ConfigError) Is(t error) bool { return t == ErrConfig }

func configErr(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Config is the immutable engine configuration.
type Config struct {
	// Workers is the number of goroutines a product is sharded over. It
	// must divide the number of left ciphertexts. 1 runs sequentially.
	Workers int `json:"workers"`

	// MaxCiphertexts caps the number of left ciphertexts.
	MaxCiphertexts int `json:"max_ciphertexts"`

	// Relinearize reduces products to degree one when the evaluation keys
	// carry a relinearization key.
	Relinearize bool `json:"relinearize"`

	Logger *slog.Logger `json:"-"`
}

// WithDefaults fills zero fields. Workers falls back to SECLINK_WORKERS,
// then to 1. A nil Logger discards everything.
func (c Config) WithDefaults() Config {
	if c.Workers == 0 {
		if n, err := strconv.Atoi(os.Getenv(WorkersEnv)); err == nil && n > 0 {
			c.Workers = n
		} else {
			c.Workers = 1
		}
	}
	if c.MaxCiphertexts == 0 {
		c.MaxCiphertexts = DefaultMaxCiphertexts
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Validate checks the configuration on its own.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return configErr("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxCiphertexts < 1 {
		return configErr("max ciphertexts must be at least 1, got %d", c.MaxCiphertexts)
	}
	return nil
}

// checkCount validates the configuration against n left ciphertexts.
func (c Config) checkCount(n int) error {
	if n < 1 {
		return configErr("no left ciphertexts")
	}
	if n > c.MaxCiphertexts {
		return configErr("%d left ciphertexts exceed the limit of %d", n, c.MaxCiphertexts)
	}
	if n%c.Workers != 0 {
		return configErr("%d workers do not divide %d left ciphertexts", c.Workers, n)
	}
	return nil
}

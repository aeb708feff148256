// Package config loads session defaults from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the tunables of a serterm run. Flags override these;
// prompts fill in whatever is still missing.
type Config struct {
	// Device skips the selection menu when set.
	Device string `env:"SERTERM_DEVICE"`
	// Baud is the default transmission speed offered at the prompt.
	Baud int `env:"SERTERM_BAUD" envDefault:"115200"`
	// PollTimeout bounds each device read poll.
	PollTimeout time.Duration `env:"SERTERM_POLL_TIMEOUT" envDefault:"10ms"`
	// ReadBuffer is the per-poll device read size.
	ReadBuffer int `env:"SERTERM_READ_BUFFER" envDefault:"1024"`
	// DebugLog enables debug logging to the given file.
	DebugLog string `env:"SERTERM_DEBUG_LOG"`
}

// FromEnv parses the environment, falling back to defaults if parsing
// fails.
func FromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{
			Baud:        115200,
			PollTimeout: 10 * time.Millisecond,
			ReadBuffer:  1024,
		}
	}
	return cfg
}

package stress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	HeapAllocator = "heap"
	LibcAllocator = "libc"
)

var ErrConfig = errors.New("stress: invalid config")

// Config describes one workload run.
type Config struct {
	Ops       int    `json:"ops"`
	Seed      uint64 `json:"seed"`
	Allocator string `json:"allocator"`
	// DBPath enables snapshotting the final vector into a pebble database.
	DBPath   string `json:"db"`
	LogLevel string `json:"log_level"`
	LogJSON  bool   `json:"log_json"`
}

func DefaultConfig() Config {
	return Config{
		Ops:       100_000,
		Seed:      1,
		Allocator: HeapAllocator,
		LogLevel:  "info",
	}
}

// LoadConfig reads a JSON config file on top of the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("error reading file: %w", err)
	}
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Ops < 0 {
		return fmt.Errorf("%w: ops must not be negative, got %d", ErrConfig, c.Ops)
	}
	switch c.Allocator {
	case HeapAllocator, LibcAllocator:
	default:
		return fmt.Errorf("%w: unknown allocator %q", ErrConfig, c.Allocator)
	}
	return nil
}

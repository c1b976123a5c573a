// Package config loads tunable parameters for the transformer engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the canonical location of the transformer tuning
// defaults file, relative to a binary's working directory.
const DefaultConfigPath = "config/transformer.defaults.json"

// TuningConfig holds the overridable tuning knobs for a Transformer. Every
// field is a pointer so a partial JSON document only overrides the fields
// it mentions; the Get* accessors fall back to the engine's defaults.
type TuningConfig struct {
	// Priority is the default stream priority assigned to dynamic transform
	// streams auto-created by PushDynamicTransformation.
	Priority *int `json:"priority,omitempty"`

	// Timeout bounds how long the aligner waits on a period-0 stream with
	// an empty buffer before treating it as expired, expressed as a
	// duration string like "100ms".
	Timeout *string `json:"timeout,omitempty"`

	// DefaultBufferCap is the buffer capacity applied to auto-created
	// dynamic transform streams. Zero means unbounded.
	DefaultBufferCap *int `json:"default_buffer_cap,omitempty"`

	// MaxSeekDepth bounds the BFS chain search in the frame graph.
	MaxSeekDepth *int `json:"max_seek_depth,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their default values via the Get* accessors.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and a few common
// parent directories. Panics if the file cannot be found; intended for
// tests and binaries that have already validated config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that any set fields hold valid values.
func (c *TuningConfig) Validate() error {
	if c.Timeout != nil && *c.Timeout != "" {
		if _, err := time.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", *c.Timeout, err)
		}
	}
	if c.DefaultBufferCap != nil && *c.DefaultBufferCap < 0 {
		return fmt.Errorf("default_buffer_cap must be non-negative, got %d", *c.DefaultBufferCap)
	}
	if c.MaxSeekDepth != nil && *c.MaxSeekDepth <= 0 {
		return fmt.Errorf("max_seek_depth must be positive, got %d", *c.MaxSeekDepth)
	}
	return nil
}

// GetPriority returns the configured default stream priority, or -10 — the
// same default the original Rock transformer library ships.
func (c *TuningConfig) GetPriority() int {
	if c.Priority == nil {
		return -10
	}
	return *c.Priority
}

// GetTimeout parses and returns the Timeout as a time.Duration, defaulting
// to zero (no timeout — period-0 streams block indefinitely).
func (c *TuningConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetDefaultBufferCap returns the default buffer capacity for auto-created
// dynamic transform streams, defaulting to unbounded (0).
func (c *TuningConfig) GetDefaultBufferCap() int {
	if c.DefaultBufferCap == nil {
		return 0
	}
	return *c.DefaultBufferCap
}

// GetMaxSeekDepth returns the configured BFS depth bound, defaulting to 20
// to match the original Rock transformer library.
func (c *TuningConfig) GetMaxSeekDepth() int {
	if c.MaxSeekDepth == nil {
		return 20
	}
	return *c.MaxSeekDepth
}

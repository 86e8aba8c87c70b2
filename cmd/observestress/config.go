package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// StressConfig describes one stress run.
type StressConfig struct {
	// Subjects is the number of registrars.
	Subjects int `yaml:"subjects"`
	// Properties is the number of properties per subject.
	Properties int `yaml:"properties"`
	// Sessions is the number of tracking sessions installed.
	Sessions int `yaml:"sessions"`
	// ReadsPerSession is the number of random property reads per session.
	ReadsPerSession int `yaml:"reads_per_session"`
	// Writers is the number of goroutines mutating properties during the run.
	Writers int `yaml:"writers"`
	// Seed makes property selection reproducible.
	Seed int64 `yaml:"seed"`
}

// DefaultStressConfig returns the configuration used when no file or flag overrides it.
func DefaultStressConfig() StressConfig {
	return StressConfig{
		Subjects:        8,
		Properties:      4,
		Sessions:        1000,
		ReadsPerSession: 3,
		Writers:         4,
		Seed:            1,
	}
}

// LoadStressConfig reads a YAML config file on top of the defaults.
// Unknown fields are rejected.
func LoadStressConfig(path string) (StressConfig, error) {
	cfg := DefaultStressConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// Validate checks that every count is usable.
func (c StressConfig) Validate() error {
	switch {
	case c.Subjects < 1:
		return fmt.Errorf("subjects must be at least 1, got %d", c.Subjects)
	case c.Properties < 1:
		return fmt.Errorf("properties must be at least 1, got %d", c.Properties)
	case c.Sessions < 0:
		return fmt.Errorf("sessions must not be negative, got %d", c.Sessions)
	case c.ReadsPerSession < 1:
		return fmt.Errorf("reads_per_session must be at least 1, got %d", c.ReadsPerSession)
	case c.Writers < 0:
		return fmt.Errorf("writers must not be negative, got %d", c.Writers)
	}
	return nil
}

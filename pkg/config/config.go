// Package config loads YAML configuration files with environment variable
// expansion, validates them, and reloads them when they change on disk.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that parsed but failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads filename into target. Values already set on target act as
// defaults for keys the file omits. Validation failures match ErrInvalid.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

// Reload loads filename into a fresh value built by newTarget, so defaults
// apply the same way they do at startup.
func Reload[T any](filename string, newTarget func() *T) (*T, error) {
	target := newTarget()
	if err := Load(filename, target); err != nil {
		return nil, err
	}
	return target, nil
}

// LoadWithDefaults loads filename, or defaultFile when filename does not exist.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target)
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
}

func decode[T any](name string, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", name, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config file %s: %w: %w", name, ErrInvalid, err)
		}
	}
	return nil
}

package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var pathPattern = regexp.MustCompile(`^/[A-Za-z0-9/_.-]*$`)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Store backends.
const (
	StoreBackendFS     = "fs"
	StoreBackendBadger = "badger"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Agent     AgentConfig       `yaml:"agent"`
	Store     StoreConfig       `yaml:"store"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Events    EventsConfig      `yaml:"events"`
	Reconcile ReconcileConfig   `yaml:"reconcile"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level    `yaml:"log_level"`
	HTTP     HTTPConfig    `yaml:"http"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the metrics configuration.
func (c *MetricsConfig) Validate() error {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Match(pathPattern)),
	)
}

// AgentConfig identifies the local agent. An empty ID is replaced with a
// random UUID at startup.
type AgentConfig struct {
	ID string `yaml:"id"`
}

// StoreConfig selects and tunes the record store.
type StoreConfig struct {
	Backend  string      `yaml:"backend"`
	Path     string      `yaml:"path"`
	InMemory bool        `yaml:"in_memory"`
	Cache    CacheConfig `yaml:"cache"`
	// GCInterval is the Badger value log GC period; zero disables GC.
	GCInterval time.Duration `yaml:"gc_interval"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = StoreBackendFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(StoreBackendFS, StoreBackendBadger)),
		validation.Field(&c.Path, validation.When(!c.InMemory, validation.Required)),
		validation.Field(&c.InMemory, validation.When(c.Backend == StoreBackendFS, validation.Empty.Error("in_memory requires the badger backend"))),
		validation.Field(&c.Cache),
	)
}

// CacheConfig sizes the in-process entry cache.
type CacheConfig struct {
	Enabled     bool  `yaml:"enabled"`
	MaxCost     int64 `yaml:"max_cost"`
	NumCounters int64 `yaml:"num_counters"`
}

// Validate validates the cache configuration.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxCost, validation.Min(int64(0))),
		validation.Field(&c.NumCounters, validation.Min(int64(0))),
	)
}

// SQLiteConfig holds SQLite link index configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig tunes the SSE broker.
type EventsConfig struct {
	AnchorThrottle time.Duration `yaml:"anchor_throttle"`
}

// ReconcileConfig controls the dangling-link sweep.
type ReconcileConfig struct {
	OnStart bool `yaml:"on_start"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Store: StoreConfig{
			Backend: StoreBackendFS,
			Path:    "./data/entries",
			Cache: CacheConfig{
				Enabled: true,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./data/othala.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			AnchorThrottle: 2 * time.Second,
		},
	}
}

package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/holocron/internal/catalog"
	"github.com/starford/holocron/internal/patchstore"
	"github.com/starford/holocron/internal/swapi"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Patch store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverFS     = "fs"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Remote   RemoteConfig      `yaml:"remote"`
	Store    StoreConfig       `yaml:"store"`
	Auth     AuthConfig        `yaml:"auth"`
	Sessions SessionsConfig    `yaml:"sessions"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Sessions.Validate(); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
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

// RemoteConfig points at the upstream Star Wars API.
type RemoteConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// StoreConfig selects and configures the local patch store backend.
type StoreConfig struct {
	Driver string            `yaml:"driver"`
	SQLite SQLiteStoreConfig `yaml:"sqlite"`
	FS     FSStoreConfig     `yaml:"fs"`
	Redis  RedisStoreConfig  `yaml:"redis"`
}

// Validate validates the store configuration for the selected driver only.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(StoreDriverSQLite, StoreDriverFS, StoreDriverRedis, StoreDriverMemory)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case StoreDriverSQLite:
		return validation.ValidateStruct(&c.SQLite, validation.Field(&c.SQLite.Path, validation.Required))
	case StoreDriverFS:
		return validation.ValidateStruct(&c.FS, validation.Field(&c.FS.Path, validation.Required))
	case StoreDriverRedis:
		return validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
			validation.Field(&c.Redis.DB, validation.Min(0)),
		)
	}
	return nil
}

// SQLiteStoreConfig holds SQLite database configuration.
type SQLiteStoreConfig struct {
	Path string `yaml:"path"`
}

// FSStoreConfig holds the patch directory. Watch enables change events for
// files written by other processes.
type FSStoreConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// RedisStoreConfig holds Redis connection settings.
type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SessionsConfig controls the HTTP edit session registry.
type SessionsConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Validate validates the sessions configuration.
func (c *SessionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Second)),
	)
}

// EventsConfig controls the SSE broker.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Remote: RemoteConfig{
			BaseURL:  swapi.DefaultBaseURL,
			Timeout:  swapi.DefaultTimeout,
			PageSize: catalog.DefaultPageSize,
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
			SQLite: SQLiteStoreConfig{Path: "./holocron.db"},
			FS:     FSStoreConfig{Path: "./patches"},
			Redis:  RedisStoreConfig{Addr: "localhost:6379", Prefix: patchstore.DefaultRedisPrefix},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Sessions: SessionsConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}

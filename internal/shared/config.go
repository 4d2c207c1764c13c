package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Registry RegistryConfig `toml:"registry"`
	Manager  ManagerConfig  `toml:"manager"`
	Engines  []EngineConfig `toml:"engines"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DatabaseConfig contains the manager store connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains admin HTTP server settings.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   float64  `toml:"rate_limit"`
	RateBurst   int      `toml:"rate_burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig contains bearer token verification settings.
//
// An empty secret disables authentication.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	Issuer    string `toml:"issuer"`
}

// RegistryConfig contains engine handle cache settings, in seconds.
type RegistryConfig struct {
	IdleTimeout     int `toml:"idle_timeout"`
	CleanupInterval int `toml:"cleanup_interval"`
}

// IdleTTL returns the idle timeout as a [time.Duration].
func (r RegistryConfig) IdleTTL() time.Duration {
	return time.Duration(r.IdleTimeout) * time.Second
}

// Cleanup returns the cleanup interval as a [time.Duration].
func (r RegistryConfig) Cleanup() time.Duration {
	return time.Duration(r.CleanupInterval) * time.Second
}

// ManagerConfig describes the engines container shown in the admin UI.
type ManagerConfig struct {
	Label string `toml:"label"`
}

// EngineConfig declares a static engine registered at start-up.
//
// Pointer fields distinguish "unset" from false/zero so model defaults apply.
type EngineConfig struct {
	Name        string `toml:"name"`
	DSN         string `toml:"dsn"`
	Echo        bool   `toml:"echo"`
	UsePool     *bool  `toml:"use_pool"`
	PoolSize    *int   `toml:"pool_size"`
	PoolRecycle *int   `toml:"pool_recycle"`
	PoolTimeout *int   `toml:"pool_timeout"`
	EchoPool    bool   `toml:"echo_pool"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Engines = nil
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}

	seen := make(map[string]bool, len(c.Engines))
	for i, e := range c.Engines {
		if e.Name == "" {
			return fmt.Errorf("%w: engines[%d] has no name", ErrInvalidConfig, i)
		}
		if seen[e.Name] {
			return fmt.Errorf("%w: engine %q declared twice", ErrInvalidConfig, e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrDefault loads the config at path, or returns defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

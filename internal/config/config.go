package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config represents the main configuration structure
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	BigCache  BigCacheConfig  `yaml:"bigcache"`
	KeyDB     KeyDBConfig     `yaml:"keydb"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	License   LicenseConfig   `yaml:"license"`
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
}

// CacheConfig controls the shared cache semantics
type CacheConfig struct {
	// Version is the cache format version; entries written under another version are misses
	Version       string        `yaml:"version" validate:"required"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
	MarkerStore   string        `yaml:"marker_store" validate:"oneof=keydb file none"`
	MarkerFile    string        `yaml:"marker_file"`
}

// BigCacheConfig configures the in-memory local store
type BigCacheConfig struct {
	Size         int           `yaml:"size" validate:"gte=0"` // MB, 0 means unbounded
	LifeWindow   time.Duration `yaml:"life_window" validate:"gt=0"`
	MaxEntrySize int           `yaml:"max_entry_size" validate:"gt=0"`
}

// KeyDBConfig configures the KeyDB/Redis connection
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
	MarkerKey  string           `yaml:"marker_key"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout"`
}

// BroadcastConfig configures cross-instance propagation
type BroadcastConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
	// MaxMessageAge drops messages older than this by embedded timestamp; 0 disables the check
	MaxMessageAge time.Duration `yaml:"max_message_age" validate:"gte=0"`
}

// LicenseConfig configures license resolution
type LicenseConfig struct {
	CacheTTL     time.Duration     `yaml:"cache_ttl" validate:"gt=0"`
	Validator    string            `yaml:"validator" validate:"oneof=postgres http"`
	FunctionName string            `yaml:"function_name" validate:"required"`
	Timeout      time.Duration     `yaml:"timeout" validate:"gt=0"`
	HTTP         HTTPValidatorConf `yaml:"http"`
	Postgres     PostgresConf      `yaml:"postgres"`
}

// HTTPValidatorConf configures the PostgREST-style validator
type HTTPValidatorConf struct {
	BaseURL string `yaml:"base_url"`
}

// PostgresConf configures the direct database validator
type PostgresConf struct {
	MaxConns int32  `yaml:"max_conns"`
	LogLevel string `yaml:"log_level"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	SocketPath   string        `yaml:"socket_path"` // serve on a Unix socket instead of Addr
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// Upstream, when set, is reverse proxied behind the guard middleware
	Upstream       string        `yaml:"upstream" validate:"omitempty,url"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl" validate:"gte=0"`
}

// SessionConfig configures access-token parsing
type SessionConfig struct {
	Audience string `yaml:"audience"`
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var config Config
	config.ApplyDefaults()
	return &config
}

// ApplyDefaults sets default values for missing configuration
func (c *Config) ApplyDefaults() {
	if c.Cache.Version == "" {
		c.Cache.Version = "1"
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = time.Minute
	}
	if c.Cache.MarkerStore == "" {
		c.Cache.MarkerStore = "file"
	}
	if c.Cache.MarkerFile == "" {
		c.Cache.MarkerFile = "/tmp/route-guard.version"
	}

	if c.BigCache.LifeWindow == 0 {
		c.BigCache.LifeWindow = 24 * time.Hour
	}
	if c.BigCache.MaxEntrySize == 0 {
		c.BigCache.MaxEntrySize = 64 * 1024
	}

	if c.KeyDB.Connection.ConnectTimeout == 0 {
		c.KeyDB.Connection.ConnectTimeout = 2 * time.Second
	}
	if c.KeyDB.Connection.SendTimeout == 0 {
		c.KeyDB.Connection.SendTimeout = time.Second
	}
	if c.KeyDB.Connection.ReadTimeout == 0 {
		c.KeyDB.Connection.ReadTimeout = time.Second
	}
	if c.KeyDB.Keepalive.PoolSize == 0 {
		c.KeyDB.Keepalive.PoolSize = 10
	}
	if c.KeyDB.Keepalive.MaxIdleTimeout == 0 {
		c.KeyDB.Keepalive.MaxIdleTimeout = 5 * time.Minute
	}
	if c.KeyDB.MarkerKey == "" {
		c.KeyDB.MarkerKey = "route-guard:cache-version"
	}

	if c.Broadcast.Channel == "" {
		c.Broadcast.Channel = "route-guard:cache"
	}

	if c.License.CacheTTL == 0 {
		c.License.CacheTTL = 5 * time.Minute
	}
	if c.License.Validator == "" {
		c.License.Validator = "http"
	}
	if c.License.FunctionName == "" {
		c.License.FunctionName = "validate_user_license_complete"
	}
	if c.License.Timeout == 0 {
		c.License.Timeout = 5 * time.Second
	}
	if c.License.Postgres.MaxConns == 0 {
		c.License.Postgres.MaxConns = 4
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.SessionIdleTTL == 0 {
		c.Server.SessionIdleTTL = 30 * time.Minute
	}

	if c.Session.Audience == "" {
		c.Session.Audience = "authenticated"
	}
}

// Validate checks the configuration after defaults were applied
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Cache.MarkerStore == "keydb" && !c.KeyDB.Enabled {
		return fmt.Errorf("invalid configuration: marker_store 'keydb' requires keydb.enabled")
	}
	if c.Broadcast.Enabled && !c.KeyDB.Enabled {
		return fmt.Errorf("invalid configuration: broadcast requires keydb.enabled")
	}
	if c.License.Validator == "http" && c.License.HTTP.BaseURL == "" {
		return fmt.Errorf("invalid configuration: license.http.base_url is required for the http validator")
	}
	return nil
}

// GetReadTimeout returns the KeyDB read timeout
func (c *Config) GetReadTimeout() time.Duration {
	return c.KeyDB.Connection.ReadTimeout
}

// GetSendTimeout returns the KeyDB send timeout
func (c *Config) GetSendTimeout() time.Duration {
	return c.KeyDB.Connection.SendTimeout
}

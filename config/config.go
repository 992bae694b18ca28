package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/framerelay/internal/placeholder"
	"github.com/spf13/viper"
)

// Config holds all configuration for the relay
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Server      ServerConfig      `mapstructure:"server"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Placeholder PlaceholderConfig `mapstructure:"placeholder"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	UploadTimeout   time.Duration `mapstructure:"upload_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the listen address for the configured port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

func (s ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("server.port must be within 1-65535, got %d", s.Port)
	}
	if s.UploadTimeout < 0 {
		return fmt.Errorf("server.upload_timeout cannot be negative")
	}
	return nil
}

// RelayConfig controls frame admission and housekeeping.
type RelayConfig struct {
	// Expire is the frame TTL in seconds.
	Expire        int           `mapstructure:"expire"`
	MimeType      string        `mapstructure:"mime_type"`
	MaxFrameBytes int64         `mapstructure:"max_frame_bytes"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// SweepSchedule is a cron expression; when set it replaces SweepInterval.
	SweepSchedule string        `mapstructure:"sweep_schedule"`
	SweepGrace    time.Duration `mapstructure:"sweep_grace"`
}

// TTL returns the frame expiry as a duration.
func (r RelayConfig) TTL() time.Duration {
	return time.Duration(r.Expire) * time.Second
}

// SweepEnabled reports whether orphan sweeping runs in the server.
func (r RelayConfig) SweepEnabled() bool {
	return r.SweepSchedule != "" || r.SweepInterval > 0
}

// Schedule parses SweepSchedule, returning nil when it is empty.
func (r RelayConfig) Schedule() (*cronexpr.Expression, error) {
	if r.SweepSchedule == "" {
		return nil, nil
	}
	expr, err := cronexpr.Parse(r.SweepSchedule)
	if err != nil {
		return nil, fmt.Errorf("relay.sweep_schedule %q: %w", r.SweepSchedule, err)
	}
	return expr, nil
}

func (r RelayConfig) Normalize() RelayConfig {
	r.SweepSchedule = strings.TrimSpace(r.SweepSchedule)
	r.MimeType = strings.TrimSpace(r.MimeType)
	if r.MimeType == "" {
		r.MimeType = "image/jpeg"
	}
	if r.SweepGrace <= 0 {
		r.SweepGrace = 10 * time.Minute
	}
	return r
}

func (r RelayConfig) Validate() error {
	if r.Expire <= 0 {
		return fmt.Errorf("relay.expire must be > 0 seconds, got %d", r.Expire)
	}
	if r.SweepInterval < 0 {
		return fmt.Errorf("relay.sweep_interval cannot be negative")
	}
	if _, err := r.Schedule(); err != nil {
		return err
	}
	return nil
}

// PlaceholderConfig shapes the "no data" image.
type PlaceholderConfig struct {
	AspectRatio string        `mapstructure:"aspect_ratio"`
	Height      int           `mapstructure:"height"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Ratio parses AspectRatio.
func (p PlaceholderConfig) Ratio() (placeholder.Ratio, error) {
	return placeholder.ParseRatio(p.AspectRatio)
}

func (p PlaceholderConfig) Validate() error {
	if p.Height <= 0 {
		return fmt.Errorf("placeholder.height must be > 0, got %d", p.Height)
	}
	if _, err := p.Ratio(); err != nil {
		return fmt.Errorf("placeholder.aspect_ratio: %w", err)
	}
	return nil
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// TelemetryConfig toggles the Prometheus endpoint.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// envAliases keeps the plain environment names operators already use.
var envAliases = map[string][]string{
	"relay.expire":             {"EXPIRE"},
	"relay.mime_type":          {"MIMETYPE"},
	"relay.max_frame_bytes":    {"MAX_FRAME_BYTES"},
	"relay.sweep_schedule":     {"SWEEP_SCHEDULE"},
	"server.port":              {"PORT"},
	"server.upload_timeout":    {"UPLOAD_TIMEOUT"},
	"placeholder.aspect_ratio": {"NODATA_ASPECT_RATIO"},
	"placeholder.height":       {"NODATA_HEIGHT"},
	"placeholder.base_url":     {"NODATA_BASE_URL"},
	"storage.redis.host":       {"REDIS_HOST"},
	"storage.redis.port":       {"REDIS_PORT"},
	"storage.redis.password":   {"REDIS_PASSWORD"},
	"storage.redis.db":         {"REDIS_DB"},
	"storage.redis.timeout":    {"REDIS_TIMEOUT"},
	"general.log_level":        {"LOG_LEVEL"},
	"general.log_pretty":       {"LOG_PRETTY"},
}

const envPrefix = "FRAMERELAY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_pretty", false)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.upload_timeout", time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("relay.expire", 120)
	v.SetDefault("relay.mime_type", "image/jpeg")
	v.SetDefault("relay.max_frame_bytes", int64(16<<20))
	v.SetDefault("relay.sweep_interval", 5*time.Minute)
	v.SetDefault("relay.sweep_schedule", "")
	v.SetDefault("relay.sweep_grace", 10*time.Minute)
	v.SetDefault("placeholder.aspect_ratio", "16:9")
	v.SetDefault("placeholder.height", 720)
	v.SetDefault("placeholder.base_url", placeholder.DefaultBaseURL)
	v.SetDefault("placeholder.timeout", 5*time.Second)
	v.SetDefault("storage.redis.host", "redis")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig reads defaults, an optional JSON config file and the
// environment, in increasing order of precedence. With an empty path a
// missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Relay = cfg.Relay.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Relay.Validate(); err != nil {
		return err
	}
	if err := c.Placeholder.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Redis.Validate(); err != nil {
		return err
	}
	if c.Relay.SweepEnabled() {
		if c.Server.UploadTimeout <= 0 {
			return fmt.Errorf("server.upload_timeout must be set while orphan sweeping is enabled")
		}
		if c.Relay.SweepGrace < c.Server.UploadTimeout {
			return fmt.Errorf("relay.sweep_grace (%s) must not be shorter than server.upload_timeout (%s)", c.Relay.SweepGrace, c.Server.UploadTimeout)
		}
	}
	return nil
}

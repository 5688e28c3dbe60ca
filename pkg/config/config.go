package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the feed client
type Config struct {
	// Instagram identity used for login
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// HTTP transport settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Caller-side retry policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Session cache backend
	Session SessionConfig `yaml:"session" json:"session"`

	// Feed display defaults
	Feed FeedConfig `yaml:"feed" json:"feed"`

	// Resume cursors
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Media archive downloads
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the login identity
type InstagramConfig struct {
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// HTTPConfig holds transport settings. The timeout is the only cancellation the
// client relies on; it never times out on its own.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Rate limiting strategies
const (
	StrategySlidingWindow = "sliding_window"
	StrategyTokenBucket   = "token_bucket"
)

// RateLimitConfig holds rate limiting configuration. Zero RequestsPerMinute
// disables pacing.
type RateLimitConfig struct {
	Strategy          string `yaml:"strategy" json:"strategy"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds the retry policy callers apply around client operations
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// Session cache backends
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendEncrypted = "encrypted"
	BackendKeyring   = "keyring"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
)

// SessionConfig selects and configures where login sessions are persisted
type SessionConfig struct {
	Backend       string        `yaml:"backend" json:"backend"`
	Directory     string        `yaml:"directory" json:"directory"`
	Passphrase    string        `yaml:"passphrase" json:"-"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"-"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
	SQLitePath    string        `yaml:"sqlite_path" json:"sqlite_path"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
}

// FeedConfig holds the item count and cache hints of the display layer.
// CacheMinutes is passed through untouched; the client does not cache results.
type FeedConfig struct {
	DefaultCount int `yaml:"default_count" json:"default_count"`
	MaxCount     int `yaml:"max_count" json:"max_count"`
	CacheMinutes int `yaml:"cache_minutes" json:"cache_minutes"`
}

// CheckpointConfig holds where resume cursors are written
type CheckpointConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// DownloadConfig holds where and how concurrently media files are archived.
// An empty Directory means downloads must be requested with a path.
type DownloadConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Workers   int    `yaml:"workers" json:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// ClampCount applies the feed defaults to a requested item count: zero or
// negative selects DefaultCount, anything above MaxCount is capped.
func (f FeedConfig) ClampCount(n int) int {
	if n <= 0 {
		n = f.DefaultCount
	}
	if f.MaxCount > 0 && n > f.MaxCount {
		n = f.MaxCount
	}
	return n
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".config", "igfeed")

	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Strategy:          StrategySlidingWindow,
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Session: SessionConfig{
			Backend:    BackendFile,
			Directory:  filepath.Join(dataDir, "sessions"),
			RedisAddr:  "localhost:6379",
			SQLitePath: filepath.Join(dataDir, "sessions.db"),
			TTL:        30 * 24 * time.Hour,
		},
		Feed: FeedConfig{
			DefaultCount: 10,
			MaxCount:     20,
			CacheMinutes: 10,
		},
		Checkpoint: CheckpointConfig{
			Directory: filepath.Join(dataDir, "checkpoints"),
		},
		Download: DownloadConfig{
			Workers: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from IGFEED_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Instagram.Username, "IGFEED_USERNAME")
	setString(&c.Instagram.Password, "IGFEED_PASSWORD")
	setString(&c.Instagram.UserAgent, "IGFEED_USER_AGENT")
	setString(&c.Session.Backend, "IGFEED_SESSION_BACKEND")
	setString(&c.Session.Directory, "IGFEED_SESSION_DIR")
	setString(&c.Session.Passphrase, "IGFEED_PASSPHRASE")
	setString(&c.Session.RedisAddr, "IGFEED_REDIS_ADDR")
	setString(&c.Session.RedisPassword, "IGFEED_REDIS_PASSWORD")
	setString(&c.Session.SQLitePath, "IGFEED_SQLITE_PATH")
	setString(&c.RateLimit.Strategy, "IGFEED_RATE_LIMIT_STRATEGY")
	setString(&c.Checkpoint.Directory, "IGFEED_CHECKPOINT_DIR")
	setString(&c.Download.Directory, "IGFEED_DOWNLOAD_DIR")
	setString(&c.Logging.Level, "IGFEED_LOG_LEVEL")
	setString(&c.Logging.File, "IGFEED_LOG_FILE")

	if err := setInt(&c.RateLimit.RequestsPerMinute, "IGFEED_REQUESTS_PER_MINUTE"); err != nil {
		errs = append(errs, err)
	}
	if err := setInt(&c.Session.RedisDB, "IGFEED_REDIS_DB"); err != nil {
		errs = append(errs, err)
	}
	if err := setInt(&c.Feed.DefaultCount, "IGFEED_FEED_COUNT"); err != nil {
		errs = append(errs, err)
	}
	if err := setInt(&c.Download.Workers, "IGFEED_DOWNLOAD_WORKERS"); err != nil {
		errs = append(errs, err)
	}
	if err := setDuration(&c.HTTP.Timeout, "IGFEED_HTTP_TIMEOUT"); err != nil {
		errs = append(errs, err)
	}
	if err := setDuration(&c.Session.TTL, "IGFEED_SESSION_TTL"); err != nil {
		errs = append(errs, err)
	}
	if v := os.Getenv("IGFEED_RETRY_ENABLED"); v != "" {
		c.Retry.Enabled = strings.ToLower(v) == "true"
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igfeed.yaml",
		".igfeed.yml",
		filepath.Join(home, ".config", "igfeed", "config.yaml"),
		filepath.Join(home, ".config", "igfeed", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http timeout cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	switch c.RateLimit.Strategy {
	case StrategySlidingWindow, StrategyTokenBucket:
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit strategy %q", c.RateLimit.Strategy))
	}
	if c.Retry.Enabled && c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive when retry is enabled"))
	}
	if c.Feed.DefaultCount <= 0 {
		errs = append(errs, errors.New("feed default count must be positive"))
	}
	if c.Feed.MaxCount > 0 && c.Feed.DefaultCount > c.Feed.MaxCount {
		errs = append(errs, errors.New("feed default count exceeds max count"))
	}

	if c.Download.Workers < 1 || c.Download.Workers > 10 {
		errs = append(errs, errors.New("download workers must be between 1 and 10"))
	}

	switch strings.ToLower(c.Session.Backend) {
	case BackendMemory, BackendKeyring:
	case BackendFile:
		if c.Session.Directory == "" {
			errs = append(errs, errors.New("session directory is required for the file backend"))
		}
	case BackendEncrypted:
		if c.Session.Directory == "" {
			errs = append(errs, errors.New("session directory is required for the encrypted backend"))
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis backend"))
		}
	case BackendSQLite:
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Instagram.Username = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Instagram.Password = v
	}
	if v, ok := flags["session-backend"].(string); ok && v != "" {
		c.Session.Backend = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["retry"].(bool); ok {
		c.Retry.Enabled = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfeed.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

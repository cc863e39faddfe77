package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds the configuration for the Votify server and its dependencies.
type Config struct {
	// Listen is the address the Votify server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Production toggles production behaviour such as secure cookies.
	Production bool `yaml:"production" mapstructure:"production"`
	// ServerURL is the base URL of the Votify server, used in notification links.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// Redis holds the key-value store configuration.
	Redis *RedisConfig `yaml:"redis" mapstructure:"redis"`
	// Session holds the auth session token configuration.
	Session *SessionConfig `yaml:"session" mapstructure:"session"`
	// RateLimit holds the login rate limit configuration.
	RateLimit *RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	// Cache holds the session list cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Email holds the email notification configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
	// Scheduler holds the background job configuration.
	Scheduler *SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	// DefaultGroup holds the well-known default group attributes.
	DefaultGroup *DefaultGroupConfig `yaml:"default_group" mapstructure:"default_group"`
}

// RedisConfig holds the key-value store configuration.
type RedisConfig struct {
	// Addr is the Redis server address. When empty, an embedded store is started.
	Addr string `yaml:"addr" mapstructure:"addr"`
	// Password is the Redis password.
	Password string `yaml:"password" mapstructure:"password"`
	// DB is the Redis database number.
	DB int `yaml:"db" mapstructure:"db"`
}

// SessionConfig holds the auth session token configuration.
type SessionConfig struct {
	// CookieName is the name of the session cookie.
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
	// MaxAge is the session token lifetime in seconds.
	MaxAge int `yaml:"max_age" mapstructure:"max_age"`
}

// RateLimitConfig holds the login rate limit configuration.
type RateLimitConfig struct {
	// Enabled indicates whether login rate limiting is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxAttempts is the number of login attempts allowed per window.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// WindowMinutes is the length of the rate limit window in minutes.
	WindowMinutes int `yaml:"window_minutes" mapstructure:"window_minutes"`
}

// CacheConfig holds the session list cache configuration.
type CacheConfig struct {
	// TTLSeconds is how long a cached session list stays fresh.
	TTLSeconds int `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	// RedisAddr selects a Redis-backed cache when set, in-memory otherwise.
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// EmailConfig holds the email notification configuration.
type EmailConfig struct {
	// Enabled indicates whether email notifications are enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SMTPHost is the SMTP server host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// FromEmail is the email address from which notifications are sent.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the name from which notifications are sent.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// UseTLS indicates whether to use STARTTLS for the SMTP connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// InsecureSkipVerify indicates whether to skip TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// SchedulerConfig holds the background job configuration.
type SchedulerConfig struct {
	// CacheRefreshMinutes is the interval for the session list cache refresh job.
	CacheRefreshMinutes int `yaml:"cache_refresh_minutes" mapstructure:"cache_refresh_minutes"`
	// NotifyMinutes is the interval for the open-session notification job.
	NotifyMinutes int `yaml:"notify_minutes" mapstructure:"notify_minutes"`
}

// DefaultGroupConfig holds the attributes of the default group every user joins.
type DefaultGroupConfig struct {
	// ID is the well-known identifier of the default group.
	ID string `yaml:"id" mapstructure:"id"`
	// Name is the display name of the default group.
	Name string `yaml:"name" mapstructure:"name"`
	// Description is the description of the default group.
	Description string `yaml:"description" mapstructure:"description"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("VOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.votify")
		v.AddConfigPath("/etc/votify")
	}

	if err := v.ReadInConfig(); err != nil {
		// Running on defaults and env vars alone is fine.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("production", false)
	v.SetDefault("server_url", "http://localhost:3000")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.cookie_name", "sessionId")
	v.SetDefault("session.max_age", 3600) // 1 hour

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_attempts", 5)
	v.SetDefault("rate_limit.window_minutes", 15)

	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("cache.redis_addr", "")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_name", "Votify")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.insecure_skip_verify", false)

	v.SetDefault("scheduler.cache_refresh_minutes", 5)
	v.SetDefault("scheduler.notify_minutes", 1)

	v.SetDefault("default_group.id", "default")
	v.SetDefault("default_group.name", "General")
	v.SetDefault("default_group.description", "Default group for all registered users")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.Session == nil || c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max_age must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie_name is required")
	}

	if c.RateLimit != nil && c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return fmt.Errorf("rate limit max_attempts must be positive")
		}
		if c.RateLimit.WindowMinutes <= 0 {
			return fmt.Errorf("rate limit window_minutes must be positive")
		}
	}

	if c.Email != nil && c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required when email is enabled")
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("from email is required when email is enabled")
		}
	}

	if c.DefaultGroup == nil || c.DefaultGroup.ID == "" {
		return fmt.Errorf("default group id is required")
	}

	return nil
}

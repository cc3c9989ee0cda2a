package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Guestbook GuestbookConfig `mapstructure:"guestbook"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// GuestbookConfig 留言板业务配置
type GuestbookConfig struct {
	RecentLimit int `mapstructure:"recent_limit"`
}

// RedisConfig 最近留言缓存
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	CacheSize    int           `mapstructure:"cache_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// RateLimitConfig 限流配置（按客户端 IP）
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	SubmitPerMinute int  `mapstructure:"submit_per_minute"`
	SubmitBurst     int  `mapstructure:"submit_burst"`
	GlobalPerHour   int  `mapstructure:"global_per_hour"` // 0 表示不限制
}

// SecurityConfig 安全相关配置
type SecurityConfig struct {
	SecretKey  string        `mapstructure:"secret_key"`
	ForceHTTPS bool          `mapstructure:"force_https"`
	HSTSMaxAge time.Duration `mapstructure:"hsts_max_age"`
	FlashTTL   time.Duration `mapstructure:"flash_ttl"`
}

// TracingConfig OpenTelemetry 链路追踪
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

// SentryConfig 错误上报
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

const envPrefix = "GUESTBOOK"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 8*1024)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "guestbook.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("guestbook.recent_limit", 100)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_size", 100)
	v.SetDefault("redis.poll_interval", 10*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.submit_per_minute", 10)
	v.SetDefault("rate_limit.submit_burst", 10)
	v.SetDefault("rate_limit.global_per_hour", 0)

	v.SetDefault("security.secret_key", "")
	v.SetDefault("security.force_https", false)
	v.SetDefault("security.hsts_max_age", 365*24*time.Hour)
	v.SetDefault("security.flash_ttl", time.Minute)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "guestbook")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}

// Load 读取配置：默认值 < config.yaml < 环境变量（GUESTBOOK_ 前缀）
func Load() (*Config, error) {
	// .env 可选，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Guestbook.RecentLimit <= 0 {
		return fmt.Errorf("invalid guestbook.recent_limit %d", c.Guestbook.RecentLimit)
	}
	if c.Redis.Enabled && c.Redis.CacheSize <= 0 {
		return fmt.Errorf("invalid redis.cache_size %d", c.Redis.CacheSize)
	}
	return nil
}

package config

import "time"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
	Quota    QuotaConfig    `yaml:"quota"`
	Redis    RedisConfig    `yaml:"redis"`
	Routing  RoutingConfig  `yaml:"routing"`
	Uploads  UploadsConfig  `yaml:"uploads"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// SessionsConfig bounds the in-memory session arena. Sessions idle
// longer than TTL are evicted; the arena never holds more than
// MaxEntries at once.
type SessionsConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// QuotaConfig caps images per session per day. A limit of 0 means
// unlimited.
type QuotaConfig struct {
	HomeDailyLimit       int `yaml:"home_daily_limit"`
	EnterpriseDailyLimit int `yaml:"enterprise_daily_limit"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`

	// RequestsPerMinute rate-limits /chat and /refine per session when
	// Redis is configured. 0 disables the limiter.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// RoutingConfig bounds provider gateway calls. DefaultTimeout applies
// to providers that do not set their own; OverallTimeout caps one whole
// generate call across the fallback chain.
type RoutingConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	OverallTimeout time.Duration `yaml:"overall_timeout"`
}

type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     180 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Sessions: SessionsConfig{
			MaxEntries: 1024,
			TTL:        24 * time.Hour,
		},
		Quota: QuotaConfig{
			HomeDailyLimit:       5,
			EnterpriseDailyLimit: 100,
		},
		Redis: RedisConfig{
			PoolSize:          50,
			RequestsPerMinute: 30,
		},
		Routing: RoutingConfig{
			DefaultTimeout: 45 * time.Second,
			OverallTimeout: 150 * time.Second,
		},
		Uploads: UploadsConfig{
			Dir: "uploads",
		},
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	RabbitMQ  *RabbitMQConfig  `mapstructure:"rabbitmq"`
	SMTP      *SMTPConfig      `mapstructure:"smtp"`
	Cache     *CacheConfig     `mapstructure:"cache"`
	RateLimit *RateLimitConfig `mapstructure:"rate_limit"`
	Booking   *BookingConfig   `mapstructure:"booking"`
	Invoice   *InvoiceConfig   `mapstructure:"invoice"`
	Workers   *WorkersConfig   `mapstructure:"workers"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl"`
	PaymentReturnURL   string        `mapstructure:"payment_return_url"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DB           string `mapstructure:"db"`
	SSLMode      string `mapstructure:"ssl_mode"`
	TimeZone     string `mapstructure:"time_zone"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// DSN builds a key/value connection string understood by pgx.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DB, c.Port, c.SSLMode, c.TimeZone)
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Queue    string `mapstructure:"queue"`
	Prefetch int    `mapstructure:"prefetch"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Capacity       int           `mapstructure:"capacity"`
	RefillTokens   int           `mapstructure:"refill_tokens"`
	RefillInterval time.Duration `mapstructure:"refill_interval"`
	Prefix         string        `mapstructure:"prefix"`
}

type BookingConfig struct {
	PaymentGateway  string `mapstructure:"payment_gateway"`
	SendTicketEmail bool   `mapstructure:"send_ticket_email"`
}

type InvoiceConfig struct {
	ProviderURL   string        `mapstructure:"provider_url"`
	Latency       time.Duration `mapstructure:"latency"`
	SuccessRate   float64       `mapstructure:"success_rate"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
}

type WorkersConfig struct {
	Count  int `mapstructure:"count"`
	Buffer int `mapstructure:"buffer"`
}

// Load reads the yaml file at path. Every key can be overridden by an
// environment variable named after it, e.g. POSTGRES_HOST or API_PORT.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	overrideFromURLs(conf)

	if err := conf.validate(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		// Only logged: the running server keeps the values it started with.
		zap.L().Info("config file changed, restart to apply", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()

	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "3001")
	v.SetDefault("api.jwt_ttl", 24*time.Hour)
	v.SetDefault("gin.mode", "release")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.time_zone", "UTC")
	v.SetDefault("postgres.max_idle_conns", 10)
	v.SetDefault("postgres.max_open_conns", 100)
	v.SetDefault("redis.url", "")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", "booking.tasks")
	v.SetDefault("rabbitmq.prefetch", 50)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.prefix", "eventpass")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.capacity", 20)
	v.SetDefault("rate_limit.refill_tokens", 20)
	v.SetDefault("rate_limit.refill_interval", time.Minute)
	v.SetDefault("rate_limit.prefix", "ratelimit")
	v.SetDefault("booking.payment_gateway", "MOMO")
	v.SetDefault("booking.send_ticket_email", true)
	v.SetDefault("invoice.latency", 2*time.Second)
	v.SetDefault("invoice.success_rate", 0.9)
	v.SetDefault("invoice.sweep_interval", time.Minute)
	v.SetDefault("invoice.stale_after", 5*time.Minute)
	v.SetDefault("invoice.max_attempts", 3)
	v.SetDefault("workers.count", 4)
	v.SetDefault("workers.buffer", 256)
}

// overrideFromURLs lets PaaS style connection URLs win over the yaml values.
func overrideFromURLs(conf *AppConfig) {
	if u := os.Getenv("REDIS_URL"); u != "" {
		conf.Redis.URL = u
	}
	if u := os.Getenv("RABBITMQ_URL"); u != "" {
		conf.RabbitMQ.URL = u
	}
	if p := os.Getenv("PORT"); p != "" {
		conf.API.Port = p
	}
}

func (c *AppConfig) validate() error {
	if c.API == nil || c.Postgres == nil || c.Gin == nil {
		return fmt.Errorf("config is missing one of the api, gin or postgres sections")
	}
	if c.API.JWTSigningKey == "" {
		return fmt.Errorf("api.jwt_signing_key must be set")
	}
	if c.Invoice != nil && (c.Invoice.SuccessRate < 0 || c.Invoice.SuccessRate > 1) {
		return fmt.Errorf("invoice.success_rate must be within [0, 1], got %v", c.Invoice.SuccessRate)
	}
	if c.Workers != nil && c.Workers.Count < 1 {
		return fmt.Errorf("workers.count must be at least 1")
	}

	return nil
}

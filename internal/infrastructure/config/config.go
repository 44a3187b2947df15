package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig                       `mapstructure:"server"`
	Database      DatabaseConfig                     `mapstructure:"database"`
	Redis         RedisConfig                        `mapstructure:"redis"`
	Payment       PaymentConfig                      `mapstructure:"payment"`
	Providers     map[string]providers.VariantConfig `mapstructure:"providers"`
	Observability ObservabilityConfig                `mapstructure:"observability"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

// DatabaseDSN builds the connection string.
func (c DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    uint          `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// RedisAddr builds the host:port address.
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type PaymentConfig struct {
	// SuccessURL and FailureURL are where hosted checkouts send the
	// buyer back after the gateway-side flow.
	SuccessURL string        `mapstructure:"success_url"`
	FailureURL string        `mapstructure:"failure_url"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PAYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/payhub")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit_per_min", 300)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "payhub")
	v.SetDefault("database.password", "payhub")
	v.SetDefault("database.database", "payhub")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	v.SetDefault("payment.success_url", "http://localhost:8080/payment/success")
	v.SetDefault("payment.failure_url", "http://localhost:8080/payment/failure")
	v.SetDefault("payment.lock_ttl", "30s")

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)
}

// Validate rejects misconfigured variants at load time. An unknown provider
// kind is a boot failure, never a first-request surprise.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Payment.SuccessURL == "" || c.Payment.FailureURL == "" {
		return fmt.Errorf("payment.success_url and payment.failure_url are required")
	}
	for variant, vc := range c.Providers {
		if err := vc.Validate(variant); err != nil {
			return err
		}
	}
	return nil
}

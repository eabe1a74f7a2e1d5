package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Trainer  TrainerConfig  `mapstructure:"trainer"`
	Shopify  ShopifyConfig  `mapstructure:"shopify"`
	Widget   WidgetConfig   `mapstructure:"widget"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig configures the external auth backend and the local session
// cookie that wraps its sessions.
type AuthConfig struct {
	BackendURL        string        `mapstructure:"backend_url"`
	BackendKey        string        `mapstructure:"backend_key"`
	GoogleRedirectURL string        `mapstructure:"google_redirect_url"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	CookieName        string        `mapstructure:"cookie_name"`
	CookieDomain      string        `mapstructure:"cookie_domain"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
}

// TrainerConfig configures the chatbot training/ingestion API.
type TrainerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ShopifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	Scopes       string `mapstructure:"scopes"`
}

type WidgetConfig struct {
	Domain string `mapstructure:"domain"`
}

type SecurityConfig struct {
	EncryptionKey    string          `mapstructure:"encryption_key"`
	MaxAudioUploadMB int64           `mapstructure:"max_audio_upload_mb"`
	MaxBatchFiles    int             `mapstructure:"max_batch_files"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "60s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chatbuddy")
	v.SetDefault("database.database", "chatbuddy")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.session_ttl", "168h") // 7 days
	v.SetDefault("auth.cookie_name", "cb_session")
	v.SetDefault("auth.cookie_secure", false)

	// Trainer
	v.SetDefault("trainer.timeout", "120s")

	// Widget
	v.SetDefault("widget.domain", "localhost:3001")

	// Security
	v.SetDefault("security.max_audio_upload_mb", 100)
	v.SetDefault("security.max_batch_files", 10)
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth backend
	v.BindEnv("auth.backend_url", "AUTH_BACKEND_URL")
	v.BindEnv("auth.backend_key", "AUTH_BACKEND_KEY")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// Trainer
	v.BindEnv("trainer.base_url", "TRAINER_BASE_URL")
	v.BindEnv("trainer.api_key", "TRAINER_API_KEY")

	// Shopify
	v.BindEnv("shopify.client_id", "SHOPIFY_CLIENT_ID")
	v.BindEnv("shopify.client_secret", "SHOPIFY_CLIENT_SECRET")

	// Security
	v.BindEnv("security.encryption_key", "ENCRYPTION_KEY")
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither a flag nor PRIZEWHEEL_CONFIG names a file.
const DefaultConfigPath = "config.yaml"

// AppConfig carries process-level inputs from the command line.
type AppConfig struct {
	ConfigPath string // Path given with -config.
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Promo    PromoConfig    `yaml:"promo"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port               int           `yaml:"port"`
	PublicBaseURL      string        `yaml:"public_base_url"`      // Used in redirect_url when the webhook has no Origin.
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"` // "*" allows any origin.
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects and tunes the database.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	TimeZone     string `yaml:"timezone"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// JWTConfig signs admin tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RedisConfig enables the shared wheel session store when Addr is set.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LoggingConfig controls log level and optional rotating file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PromoConfig holds the promotion rules.
type PromoConfig struct {
	SpinAllowance int           `yaml:"spin_allowance"` // Spins granted per confirmed purchase.
	SpinDuration  time.Duration `yaml:"spin_duration"`  // Wheel animation length; results are held until it elapses.
	Issuer        string        `yaml:"issuer"`         // Name shown in authenticator apps.
}

// WebhookConfig holds provider credentials.
type WebhookConfig struct {
	KiwifySecret           string `yaml:"kiwify_secret"`
	MercadoPagoAccessToken string `yaml:"mercadopago_access_token"`
	MercadoPagoAPIBase     string `yaml:"mercadopago_api_base"`
}

// Default returns the configuration used before the file and environment are applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			CORSAllowedOrigins: []string{"*"},
			ShutdownTimeout:    10 * time.Second,
		},
		Database: DatabaseConfig{DSN: "file:data/prizewheel.db"},
		JWT:      JWTConfig{Expiry: 24 * time.Hour},
		Redis:    RedisConfig{SessionTTL: 2 * time.Hour},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Promo: PromoConfig{
			SpinAllowance: 5,
			SpinDuration:  5 * time.Second,
			Issuer:        "PrizeWheel",
		},
		Webhooks: WebhookConfig{MercadoPagoAPIBase: "https://api.mercadopago.com"},
	}
}

// ResolveConfigPath picks the config file from the flag, then PRIZEWHEEL_CONFIG, then the default.
func ResolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("PRIZEWHEEL_CONFIG")); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads .env, the YAML file at path and environment overrides, in that order.
// A missing file is not an error.
func Load(path string) (Config, error) {
	if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", errEnv)
	}

	cfg := Default()
	if path != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errYAML := yaml.Unmarshal(data, &cfg); errYAML != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errYAML)
			}
		case errors.Is(errRead, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	if errEnv := applyEnv(&cfg); errEnv != nil {
		return Config{}, errEnv
	}
	cfg.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.PublicBaseURL), "/")
	return cfg, nil
}

// Validate reports configuration that would keep the server from running correctly.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.JWT.Expiry <= 0 {
		return errors.New("config: jwt.expiry must be positive")
	}
	if c.Promo.SpinAllowance < 1 {
		return errors.New("config: promo.spin_allowance must be at least 1")
	}
	if c.Promo.SpinDuration < 0 {
		return errors.New("config: promo.spin_duration must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func applyEnv(cfg *Config) error {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setInt := func(name string, dst *int) error {
		v, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, errAtoi := strconv.Atoi(strings.TrimSpace(v))
		if errAtoi != nil {
			return fmt.Errorf("config: %s: %w", name, errAtoi)
		}
		*dst = n
		return nil
	}

	setString("PUBLIC_BASE_URL", &cfg.Server.PublicBaseURL)
	setString("DATABASE_URL", &cfg.Database.DSN)
	setString("JWT_SECRET", &cfg.JWT.Secret)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FILE", &cfg.Logging.File)
	setString("KIWIFY_WEBHOOK_SECRET", &cfg.Webhooks.KiwifySecret)
	setString("MERCADOPAGO_ACCESS_TOKEN", &cfg.Webhooks.MercadoPagoAccessToken)
	if errPort := setInt("PORT", &cfg.Server.Port); errPort != nil {
		return errPort
	}
	if errAllowance := setInt("SPIN_ALLOWANCE", &cfg.Promo.SpinAllowance); errAllowance != nil {
		return errAllowance
	}
	return nil
}

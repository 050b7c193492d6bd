package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Storage StorageConfig `mapstructure:"storage"`
	Shop    ShopConfig    `mapstructure:"shop"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Environment    string   `mapstructure:"environment" validate:"oneof=development production test"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds the upstream shop catalog configuration
type CatalogConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	CatalogPath   string        `mapstructure:"catalog_path" validate:"required,startswith=/"`
	CosmeticsURL  string        `mapstructure:"cosmetics_url" validate:"required,url"`
	ImageBaseURL  string        `mapstructure:"image_base_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=1"`
	MaxRetries    int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
}

// StorageConfig selects and configures the durable cache store
type StorageConfig struct {
	Type       string       `mapstructure:"type" validate:"oneof=memory sqlite valkey"` // "memory", "sqlite" or "valkey"
	SQLitePath string       `mapstructure:"sqlite_path"`
	Valkey     ValkeyConfig `mapstructure:"valkey"`
}

// ValkeyConfig holds Valkey connection settings
type ValkeyConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ShopConfig holds cache validity and refresh scheduling configuration
type ShopConfig struct {
	FallbackTTL       time.Duration `mapstructure:"fallback_ttl" validate:"gt=0"`
	ResetSchedule     string        `mapstructure:"reset_schedule" validate:"required"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout" validate:"gte=0"` // 0 disables the timeout
	CountdownInterval time.Duration `mapstructure:"countdown_interval" validate:"gt=0"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var validate = validator.New()

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rewind-shop/")

	// REWIND_SHOP_FALLBACK_TTL -> shop.fallback_ttl
	v.SetEnvPrefix("REWIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults are enough
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnvFile loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3580")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"tauri://localhost", "http://localhost:*"})

	// Catalog defaults
	v.SetDefault("catalog.base_url", "http://127.0.0.1:3551")
	v.SetDefault("catalog.catalog_path", "/fortnite/api/storefront/v2/catalog")
	v.SetDefault("catalog.cosmetics_url", "https://fortnite-api.com/v2/cosmetics/br")
	v.SetDefault("catalog.image_base_url", "https://fortnite-api.com/images/cosmetics/br")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.rate_per_second", 5)
	v.SetDefault("catalog.burst", 20)
	v.SetDefault("catalog.max_retries", 3)

	// Storage defaults
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/shop_cache.db")
	v.SetDefault("storage.valkey.address", "")
	v.SetDefault("storage.valkey.password", "")
	v.SetDefault("storage.valkey.db", 0)
	v.SetDefault("storage.valkey.key_prefix", "rewind")

	// Shop defaults
	v.SetDefault("shop.fallback_ttl", "30m")
	v.SetDefault("shop.reset_schedule", "CRON_TZ=America/New_York 1 20 * * *")
	v.SetDefault("shop.retry_delay", "1m")
	v.SetDefault("shop.fetch_timeout", "30s")
	v.SetDefault("shop.countdown_interval", "1s")

	v.SetDefault("log.level", "info")
}

// Validate checks struct constraints and the cross-field rules tags cannot express
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	if config.Storage.Type == "sqlite" && strings.TrimSpace(config.Storage.SQLitePath) == "" {
		return fmt.Errorf("sqlite path is required when storage type is 'sqlite'")
	}

	if config.Storage.Type == "valkey" && strings.TrimSpace(config.Storage.Valkey.Address) == "" {
		return fmt.Errorf("valkey address is required when storage type is 'valkey'")
	}

	if _, err := cron.ParseStandard(config.Shop.ResetSchedule); err != nil {
		return fmt.Errorf("invalid shop reset schedule %q: %w", config.Shop.ResetSchedule, err)
	}

	return nil
}

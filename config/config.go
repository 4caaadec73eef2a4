package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrConfiguration is returned when a required setting is missing at startup
var ErrConfiguration = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	DB            DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Replenishment ReplenishmentConfig `mapstructure:"replenishment"`
	Azure         AzureConfig         `mapstructure:"azure"`
	Elastic       ElasticConfig       `mapstructure:"elastic"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	ReadOnlyDSN     string        `mapstructure:"read_only_dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// CacheConfig controls how long provider responses are kept
type CacheConfig struct {
	WeatherTTL time.Duration `mapstructure:"weather_ttl"`
	RouteTTL   time.Duration `mapstructure:"route_ttl"`
}

// ProvidersConfig holds the external distance and weather provider settings
type ProvidersConfig struct {
	Distance DistanceProviderConfig `mapstructure:"distance"`
	Weather  WeatherProviderConfig  `mapstructure:"weather"`
	Timeout  time.Duration          `mapstructure:"timeout"`
}

// DistanceProviderConfig configures the driving-distance matrix API
type DistanceProviderConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// WeatherProviderConfig configures the point-forecast API
type WeatherProviderConfig struct {
	URL string `mapstructure:"url"`
}

// ReplenishmentConfig controls the batch replenishment cycle
type ReplenishmentConfig struct {
	Schedule     time.Duration `mapstructure:"schedule"`
	ForecastDays int           `mapstructure:"forecast_days"`
	TopK         int           `mapstructure:"top_k"`
	Workers      int           `mapstructure:"workers"`
}

// AzureConfig holds Azure Service Bus configuration
type AzureConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	QueueConnStr string `mapstructure:"queue_conn_str"`
	QueueName    string `mapstructure:"queue_name"`
}

// ElasticConfig holds Elasticsearch configuration
type ElasticConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	Index    string `mapstructure:"index"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"license_key"`
	AppName        string `mapstructure:"app_name"`
	LogEnabled     bool   `mapstructure:"log_enabled"`
	DistribTracing bool   `mapstructure:"distributed_tracing_enabled"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Try to read the YAML config first
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			v.SetConfigName("app")
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				// Continue even if no config file is found - we'll use ENV vars and defaults
				fmt.Printf("Warning: No configuration file found: %v\n", err)
			}
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ARX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if config.DB.ReadOnlyDSN == "" {
		config.DB.ReadOnlyDSN = config.DB.DSN
	}

	return config, nil
}

// Validate checks the settings the process cannot start without
func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.DSN) == "" {
		return errors.Wrap(ErrConfiguration, "database.dsn is required")
	}
	if c.Providers.Timeout <= 0 {
		return errors.Wrap(ErrConfiguration, "providers.timeout must be positive")
	}
	if c.Replenishment.TopK <= 0 || c.Replenishment.Workers <= 0 {
		return errors.Wrap(ErrConfiguration, "replenishment.top_k and replenishment.workers must be positive")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("environment", "development")
	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.timeout", "30s")

	// Database settings
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.read_only_dsn", "")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")

	// Redis settings
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("cache.weather_ttl", "15m")
	v.SetDefault("cache.route_ttl", "24h")

	// Provider settings
	v.SetDefault("providers.distance.url", "https://maps.googleapis.com/maps/api/distancematrix/json")
	v.SetDefault("providers.distance.api_key", "")
	v.SetDefault("providers.weather.url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("providers.timeout", "5s")

	// Replenishment settings
	v.SetDefault("replenishment.schedule", "24h")
	v.SetDefault("replenishment.forecast_days", 3)
	v.SetDefault("replenishment.top_k", 3)
	v.SetDefault("replenishment.workers", 3)

	// Azure settings
	v.SetDefault("azure.enabled", false)
	v.SetDefault("azure.queue_conn_str", "")
	v.SetDefault("azure.queue_name", "solution-cards")

	// Elasticsearch settings
	v.SetDefault("elastic.enabled", false)
	v.SetDefault("elastic.url", "http://localhost:9200")
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.prefix", "arogyayaan")
	v.SetDefault("elastic.index", "solution-cards")

	// Tracing settings
	v.SetDefault("tracing.license_key", "")
	v.SetDefault("tracing.app_name", "Replenishment Service")
	v.SetDefault("tracing.log_enabled", true)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	// Logging settings
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// FormatIndex formats an Elasticsearch index name with the configured prefix
func FormatIndex(cfg ElasticConfig, index string) string {
	return cfg.Prefix + "-" + index
}

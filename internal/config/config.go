package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `env:", prefix=SERVER_"`
	Database   DatabaseConfig   `env:", prefix=DB_"`
	Kafka      KafkaConfig      `env:", prefix=KAFKA_"`
	Redis      RedisConfig      `env:", prefix=REDIS_"`
	MarketData MarketDataConfig `env:", prefix=MARKETDATA_"`
	Logging    LoggingConfig    `env:", prefix=LOG_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `env:"PORT, default=8080"`
	Host            string        `env:"HOST, default=0.0.0.0"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT, default=60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `env:"HOST, default=localhost"`
	Port           string `env:"PORT, default=5432"`
	User           string `env:"USER, default=postgres"`
	Password       string `env:"PASSWORD, default=postgres"`
	DBName         string `env:"NAME, default=marketreturns"`
	SSLMode        string `env:"SSLMODE, default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH, default=db/migrations"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `env:"ENABLED, default=false"`
	Brokers     []string `env:"BROKERS, default=localhost:9092"`
	Topic       string   `env:"TOPIC, default=returns-events"`
	PricesTopic string   `env:"PRICES_TOPIC, default=price-bars"`
	GroupID     string   `env:"GROUP_ID, default=market-returns"`
}

// RedisConfig holds the price cache connection
type RedisConfig struct {
	Enabled     bool          `env:"ENABLED, default=false"`
	Addr        string        `env:"ADDR, default=localhost:6379"`
	Password    string        `env:"PASSWORD"`
	DB          int           `env:"DB, default=0"`
	KeyPrefix   string        `env:"KEY_PREFIX, default=returns:"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT, default=5s"`
}

// MarketDataConfig selects and tunes the price provider
type MarketDataConfig struct {
	// Provider is "yahoo" or "database"
	Provider     string        `env:"PROVIDER, default=yahoo"`
	YahooBaseURL string        `env:"YAHOO_BASE_URL, default=https://query1.finance.yahoo.com"`
	Timeout      time.Duration `env:"TIMEOUT, default=15s"`
	CacheTTL     time.Duration `env:"CACHE_TTL, default=600s"`
	CatalogPath  string        `env:"CATALOG_PATH"`
}

// LoggingConfig holds logrus settings
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=text"`
	Output string `env:"OUTPUT, default=stdout"`
}

// Load reads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.MarketData.Provider {
	case ProviderYahoo, ProviderDatabase:
	default:
		return nil, fmt.Errorf("unknown market data provider: %q", cfg.MarketData.Provider)
	}
	return &cfg, nil
}

// Market data provider names
const (
	ProviderYahoo    = "yahoo"
	ProviderDatabase = "database"
)

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Package config loads the storefront settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPPort           string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	JWTSecret  string        `env:"JWT_SECRET,required"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	GoogleKeysFile string `env:"GOOGLE_KEYS_FILE"`

	CatalogDBPath         string `env:"CATALOG_DB_PATH" envDefault:"./data/catalog.db"`
	CatalogMigrationsPath string `env:"CATALOG_MIGRATIONS_PATH" envDefault:"./internal/catalog/migrations"`
	AssetBaseURL          string `env:"ASSET_BASE_URL" envDefault:"http://localhost:8080/assets"`
	// AssetDir is served under /assets when set.
	AssetDir string `env:"ASSET_DIR"`

	IdentityDBPath         string `env:"IDENTITY_DB_PATH" envDefault:"./data/identity.db"`
	IdentityMigrationsPath string `env:"IDENTITY_MIGRATIONS_PATH" envDefault:"./internal/identity/migrations"`

	MongoURI            string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase       string        `env:"MONGO_DATABASE" envDefault:"tienda"`
	MongoMaxPoolSize    uint64        `env:"MONGO_MAX_POOL_SIZE" envDefault:"20"`
	MongoMinPoolSize    uint64        `env:"MONGO_MIN_POOL_SIZE" envDefault:"2"`
	MongoConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CartTTL       time.Duration `env:"CART_SESSION_TTL" envDefault:"2h"`

	DBHost                string `env:"DB_HOST" envDefault:"localhost"`
	DBPort                int    `env:"DB_PORT" envDefault:"5432"`
	DBUser                string `env:"DB_USER" envDefault:"postgres"`
	DBPassword            string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName                string `env:"DB_NAME" envDefault:"tienda"`
	LedgerMigrationsPath  string `env:"MIGRATIONS_PATH" envDefault:"./internal/repository/migrations"`
	HistoryMigrationsPath string `env:"HISTORY_MIGRATIONS_PATH" envDefault:"./internal/orders/migrations"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	PaymentBaseURL   string        `env:"PAYMENT_BASE_URL" envDefault:"http://localhost:8090"`
	PaymentReturnURL string        `env:"PAYMENT_RETURN_URL" envDefault:"http://localhost:8080/api/v1/checkout/complete"`
	PaymentTimeout   time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"5s"`
	Recipient        string        `env:"PAYMENT_RECIPIENT" envDefault:"pagos@tienda.example"`
	Currency         string        `env:"CURRENCY" envDefault:"USD"`

	DeletionCountdown int `env:"DELETION_COUNTDOWN" envDefault:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	if cfg.DeletionCountdown < 0 {
		return nil, fmt.Errorf("DELETION_COUNTDOWN cannot be negative")
	}
	if len(cfg.Currency) != 3 {
		return nil, fmt.Errorf("CURRENCY must be a 3-letter code, got %q", cfg.Currency)
	}
	return &cfg, nil
}

// PaymentSimConfig configures cmd/payment-sim.
type PaymentSimConfig struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8090"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// AlwaysApprove turns off the random declines.
	AlwaysApprove bool `env:"PAYMENT_SIM_ALWAYS_APPROVE" envDefault:"false"`
}

func LoadPaymentSim() (*PaymentSimConfig, error) {
	var cfg PaymentSimConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

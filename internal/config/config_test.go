package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.DeletionCountdown)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, uint64(20), cfg.MongoMaxPoolSize)
	assert.Equal(t, uint64(2), cfg.MongoMinPoolSize)
	assert.Equal(t, 5*time.Second, cfg.MongoConnectTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DELETION_COUNTDOWN", "3")
	t.Setenv("CART_SESSION_TTL", "30m")
	t.Setenv("MONGO_MAX_POOL_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.DeletionCountdown)
	assert.Equal(t, 30*time.Minute, cfg.CartTTL)
	assert.Equal(t, uint64(50), cfg.MongoMaxPoolSize)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("short secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "short")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "0123456789abcdef-secret")
		t.Setenv("REQUEST_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad currency", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "0123456789abcdef-secret")
		t.Setenv("CURRENCY", "DOLLARS")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadPaymentSim(t *testing.T) {
	t.Setenv("PAYMENT_SIM_ALWAYS_APPROVE", "true")

	cfg, err := LoadPaymentSim()
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.HTTPPort)
	assert.True(t, cfg.AlwaysApprove)
}

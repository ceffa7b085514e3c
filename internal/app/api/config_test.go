package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

var configKeys = []string{
	"PORT", "ORDER_STORE", "POSTGRES_DSN", "MONGO_URI", "MONGO_DATABASE",
	"TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_DISABLED", "ADMIN_EMAILS",
	"AUTH_JWT_SECRET", "AUTH_JWT_ISSUER", "CORS_ALLOWED_ORIGINS", "ORDER_STATUS_POLICY", "STATS_TIMEZONE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, client.DefaultHostPort, cfg.TemporalAddress)
	assert.False(t, cfg.TemporalDisabled)
	assert.Equal(t, "permissive", cfg.StatusPolicy.Name())
	assert.True(t, cfg.AdminEmails.Contains("info@agromyfoods.com"))
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_STORE", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("ADMIN_EMAILS", " ops@example.com ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, http://localhost:5173")
	t.Setenv("ORDER_STATUS_POLICY", "strict")
	t.Setenv("STATS_TIMEZONE", "Africa/Lagos")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, defaultMongoDatabase, cfg.MongoDatabase)
	assert.True(t, cfg.TemporalDisabled)
	assert.True(t, cfg.AdminEmails.Contains("OPS@example.com"))
	assert.False(t, cfg.AdminEmails.Contains("info@agromyfoods.com"))
	assert.Equal(t, []string{"https://shop.example.com", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, orderdomain.StrictTransitions{}, cfg.StatusPolicy)
	assert.Equal(t, "Africa/Lagos", cfg.StatsLocation.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":        {"ORDER_STORE": "sqlite"},
		"postgres without dsn": {"ORDER_STORE": "postgres"},
		"mongo without uri":    {"ORDER_STORE": "mongo"},
		"unknown policy":       {"ORDER_STATUS_POLICY": "lenient"},
		"unknown stats zone":   {"STATS_TIMEZONE": "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestConfig_DurableCheckout(t *testing.T) {
	assert.False(t, Config{Store: StoreMemory}.DurableCheckout())
	assert.True(t, Config{Store: StorePostgres}.DurableCheckout())
	assert.False(t, Config{Store: StorePostgres, TemporalDisabled: true}.DurableCheckout())
	assert.True(t, Config{Store: StoreMongo}.DurableCheckout())
}

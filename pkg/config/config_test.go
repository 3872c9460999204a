package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.App.StorageDriver)
	assert.Equal(t, NegativeStockBlock, cfg.Stock.NegativePolicy)
	assert.Equal(t, "basic", cfg.Identity.Validation)
	assert.Equal(t, 3, cfg.Identity.UpsertAttempts)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Enrichment.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STOCK_NEGATIVE_POLICY", "WARN")
	v.Set("STORAGE_DRIVER", "memory")
	v.Set("DB_PORT", "6543")
	v.Set("IDENTITY_UPSERT_ATTEMPTS", 0)
	v.Set("ENRICHMENT_URL", "http://gst.local/lookup")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, NegativeStockWarn, cfg.Stock.NegativePolicy)
	assert.Equal(t, "memory", cfg.App.StorageDriver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 1, cfg.Identity.UpsertAttempts)
	assert.True(t, cfg.Enrichment.Enabled())
}

func TestFromViper_InvalidPolicy(t *testing.T) {
	v := viper.New()
	v.Set("STOCK_NEGATIVE_POLICY", "maybe")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionStrings(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/ledger?sslmode=disable", c.ConnectionString())
	assert.Equal(t, c.ConnectionString(), c.PrivilegedConnectionString())

	c.PrivilegedURL = "postgres://registry@db:5432/ledger"
	assert.Equal(t, "postgres://registry@db:5432/ledger", c.PrivilegedConnectionString())
}

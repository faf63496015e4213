package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 60, cfg.RateLimitWrites)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LAND_ADDR", ":9090")
	t.Setenv("LAND_STORE_DRIVER", "sqlite")
	t.Setenv("LAND_SUPERADMINS", "0x01,0x02")
	t.Setenv("LAND_KAFKA_BROKERS", "localhost:9092")
	t.Setenv("LAND_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"0x01", "0x02"}, cfg.Superadmins)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LAND_STORE_DRIVER", "mongo")
	_, err := FromEnv()
	require.ErrorContains(t, err, "unknown store driver")
}

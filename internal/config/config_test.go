package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearStorageEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"STORAGE_DRIVER", "POSTGRES_DSN", "MONGO_URI", "REDIS_DB"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SETTINGS_CACHE_TTL_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 15*time.Second, cfg.Settings.CacheTTL())
	assert.Equal(t, "helpdesk", cfg.NATS.SubjectPrefix)
}

func TestLoadInfersDriver(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, cfg.Storage.Driver)

	t.Setenv("POSTGRES_DSN", "postgres://localhost/helpdesk")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
}

func TestLoadRejectsBadDriver(t *testing.T) {
	tests := []struct {
		name   string
		driver string
	}{
		{"unknown", "cassandra"},
		{"postgres without dsn", "postgres"},
		{"mongo without uri", "mongo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearStorageEnv(t)
			t.Setenv("STORAGE_DRIVER", tt.driver)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadInvalidRedisDB(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSealingKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // "0123456789abcdef0123456789abcdef"

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "photolab-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "photolab", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "stub", cfg.Storage.Driver)
		assert.False(t, cfg.Redis.Enabled)
	})

	t.Run("applies provider defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		w := cfg.Providers.WHCC
		assert.Equal(t, "https://sandbox.apps.whcc.com", w.SandboxURL)
		assert.Equal(t, "https://apps.whcc.com", w.ProductionURL)
		assert.Equal(t, 96, w.ShippingAttributeUID)
		assert.Equal(t, 545, w.PackagingAttributeUID)
		assert.Equal(t, 10000, w.DefaultNodeID)
		assert.Equal(t, cfg.Checkout.DefaultAddress, w.ShipFrom)
		assert.Equal(t, 10*time.Second, cfg.Providers.ROES.CaptureTimeout)
		assert.Equal(t, uint32(5), cfg.Providers.Breaker.ConsecutiveFailures)
		assert.Equal(t, "US", cfg.Checkout.DefaultAddress.Country)
	})

	t.Run("loads values from environment variables with PHOTOLAB prefix", func(t *testing.T) {
		t.Setenv("PHOTOLAB_APP_PORT", "9000")
		t.Setenv("PHOTOLAB_DATABASE_HOST", "testdb.local")
		t.Setenv("PHOTOLAB_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("PHOTOLAB_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("PHOTOLAB_PROVIDERS_WHCC_SHIPPING_ATTRIBUTE_UID", "100")
		t.Setenv("PHOTOLAB_PROVIDERS_ROES_CAPTURE_TIMEOUT", "3s")
		t.Setenv("PHOTOLAB_CHECKOUT_DEFAULT_ADDRESS_CITY", "Austin")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 100, cfg.Providers.WHCC.ShippingAttributeUID)
		assert.Equal(t, 3*time.Second, cfg.Providers.ROES.CaptureTimeout)
		assert.Equal(t, "Austin", cfg.Checkout.DefaultAddress.City)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("PHOTOLAB_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("PHOTOLAB_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown storage driver", func(t *testing.T) {
		t.Setenv("PHOTOLAB_STORAGE_DRIVER", "gcs")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.driver")
	})

	t.Run("s3 driver requires bucket", func(t *testing.T) {
		t.Setenv("PHOTOLAB_STORAGE_DRIVER", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})

	t.Run("rejects malformed sealing key", func(t *testing.T) {
		t.Setenv("PHOTOLAB_SECRETS_SEALING_KEY", "c2hvcnQ=")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("PHOTOLAB_APP_ENV", "production")
		t.Setenv("PHOTOLAB_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("PHOTOLAB_DATABASE_PASSWORD", "secure-password")
		t.Setenv("PHOTOLAB_DATABASE_SSLMODE", "require")
		t.Setenv("PHOTOLAB_STORAGE_DRIVER", "s3")
		t.Setenv("PHOTOLAB_STORAGE_BUCKET", "photos")
		t.Setenv("PHOTOLAB_SECRETS_SEALING_KEY", testSealingKey)
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
	})

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"requires jwt.secret", "PHOTOLAB_JWT_SECRET", "short", "jwt.secret must be at least 32 characters"},
		{"requires SSL", "PHOTOLAB_DATABASE_SSLMODE", "disable", "database.sslmode cannot be 'disable'"},
		{"rejects stub storage", "PHOTOLAB_STORAGE_DRIVER", "stub", "storage.driver cannot be 'stub'"},
		{"rejects studio header", "PHOTOLAB_HTTP_ALLOW_STUDIO_HEADER", "true", "allow_studio_header"},
		{"rejects development sealing key", "PHOTOLAB_SECRETS_SEALING_KEY", developmentSealingKey, "secrets.sealing_key must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setValidProductionBase(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecretsConfig_Key(t *testing.T) {
	key, err := SecretsConfig{SealingKey: testSealingKey}.Key()
	require.NoError(t, err)
	assert.Equal(t, byte('0'), key[0])

	_, err = SecretsConfig{SealingKey: "!!!"}.Key()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

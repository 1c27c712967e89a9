package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"HUB_APP_NAME":              os.Getenv("HUB_APP_NAME"),
		"HUB_APP_ENV":               os.Getenv("HUB_APP_ENV"),
		"HUB_APP_PORT":              os.Getenv("HUB_APP_PORT"),
		"HUB_DATABASE_HOST":         os.Getenv("HUB_DATABASE_HOST"),
		"HUB_DATABASE_PORT":         os.Getenv("HUB_DATABASE_PORT"),
		"HUB_DATABASE_USER":         os.Getenv("HUB_DATABASE_USER"),
		"HUB_DATABASE_PASSWORD":     os.Getenv("HUB_DATABASE_PASSWORD"),
		"HUB_DATABASE_DBNAME":       os.Getenv("HUB_DATABASE_DBNAME"),
		"HUB_DATABASE_SSLMODE":      os.Getenv("HUB_DATABASE_SSLMODE"),
		"HUB_JWT_SECRET":            os.Getenv("HUB_JWT_SECRET"),
		"HUB_CRYPTO_ENCRYPTION_KEY": os.Getenv("HUB_CRYPTO_ENCRYPTION_KEY"),
		"HUB_OAUTH_STATE_SECRET":    os.Getenv("HUB_OAUTH_STATE_SECRET"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "commercehub-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "commercehub", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "10m0s", cfg.OAuthState.MaxAge.String())
		assert.Equal(t, 50, cfg.Sync.PageSize)
	})

	t.Run("loads values from environment variables with HUB prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("HUB_APP_NAME", "test-app")
		os.Setenv("HUB_APP_PORT", "9000")
		os.Setenv("HUB_DATABASE_HOST", "testdb.local")
		os.Setenv("HUB_DATABASE_PORT", "5433")
		os.Setenv("HUB_DATABASE_PASSWORD", "testpass")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
	})

	t.Run("production requires strong secrets", func(t *testing.T) {
		clearEnv()
		os.Setenv("HUB_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})

	t.Run("production rejects short encryption key", func(t *testing.T) {
		clearEnv()
		os.Setenv("HUB_APP_ENV", "production")
		os.Setenv("HUB_JWT_SECRET", "jwt0secret0long0enough0for0prod00000")
		os.Setenv("HUB_CRYPTO_ENCRYPTION_KEY", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crypto.encryption_key")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "hub",
		Password: "p@ss:word",
		DBName:   "commercehub",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password are escaped
	assert.NotContains(t, dsn, "p@ss:word@")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.ServerPort)
		assert.Equal(t, 24*time.Hour, cfg.JWTExpiration)
		assert.Equal(t, 100, cfg.DefaultPageLimit)
		assert.Equal(t, 1000, cfg.MaxPageLimit)
		assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
		assert.Equal(t, 20, cfg.AuthRateLimit)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("SERVER_PORT", ":9090")
		t.Setenv("JWT_EXPIRATION_HOURS", "bogus")
		t.Setenv("DEFAULT_PAGE_LIMIT", "500")
		t.Setenv("MAX_PAGE_LIMIT", "200")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.ServerPort)
		assert.Equal(t, 24*time.Hour, cfg.JWTExpiration)
		assert.Equal(t, 200, cfg.DefaultPageLimit)
		assert.Equal(t, 200, cfg.MaxPageLimit)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	})
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "flowcraft", cfg.Database.Name)
	assert.Equal(t, 3, cfg.Quota.FreeTierVersions)
	assert.Equal(t, "@hourly", cfg.Quota.SweepSpec)
	assert.Equal(t, 120*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, float64(10), cfg.Server.GenerationPerMinute)
	assert.Equal(t, 3, cfg.Server.GenerationBurst)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.False(t, cfg.App.DevAuthBypass)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("QUOTA_FREE_TIER_VERSIONS", "10")
	t.Setenv("GENERATION_TIMEOUT", "45s")
	t.Setenv("GENERATION_RATE_PER_MINUTE", "2.5")
	t.Setenv("GENERATION_RATE_BURST", "5")
	t.Setenv("DEV_AUTH_BYPASS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Quota.FreeTierVersions)
	assert.Equal(t, 45*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 2.5, cfg.Server.GenerationPerMinute)
	assert.Equal(t, 5, cfg.Server.GenerationBurst)
	assert.True(t, cfg.App.DevAuthBypass)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("QUOTA_FREE_TIER_VERSIONS", "lots")
	t.Setenv("GENERATION_TIMEOUT", "soon")
	t.Setenv("GENERATION_RATE_PER_MINUTE", "fast")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Quota.FreeTierVersions)
	assert.Equal(t, 120*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, float64(10), cfg.Server.GenerationPerMinute)
}

func TestValidate(t *testing.T) {
	t.Run("api key required outside development", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("OPENAI_API_KEY", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("api key satisfied in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		_, err := Load()
		assert.NoError(t, err)
	})
}

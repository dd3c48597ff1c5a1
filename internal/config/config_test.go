package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("CONSOLE_COLLATION", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, language.Japanese, cfg.Console.Collation)
	assert.True(t, cfg.Console.ActivateOnVerify)
	assert.Equal(t, 10*time.Second, cfg.Console.LockTTL())
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, 24*60, cfg.Auth.EmailVerificationTTLMinutes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CONSOLE_COLLATION", "en-US")
	t.Setenv("CONSOLE_LOCK_TTL_SECONDS", "5")
	t.Setenv("CONSOLE_ACTIVATE_ON_VERIFY", "false")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, language.AmericanEnglish, cfg.Console.Collation)
	assert.Equal(t, 5*time.Second, cfg.Console.LockTTL())
	assert.False(t, cfg.Console.ActivateOnVerify)
	assert.True(t, cfg.Notification.Enabled())
	assert.Equal(t, 12, cfg.Auth.BcryptCost, "malformed ints fall back to defaults")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "zero")
		_, err := Load()
		assert.ErrorContains(t, err, "REDIS_DB")
	})

	t.Run("collation", func(t *testing.T) {
		t.Setenv("CONSOLE_COLLATION", "not a tag!")
		_, err := Load()
		assert.ErrorContains(t, err, "CONSOLE_COLLATION")
	})
}

func TestConsoleConfig_PageSize(t *testing.T) {
	c := ConsoleConfig{DefaultPageSize: 20, MaxPageSize: 100}
	assert.Equal(t, 20, c.PageSize(0))
	assert.Equal(t, 50, c.PageSize(50))
	assert.Equal(t, 100, c.PageSize(500))
	assert.Equal(t, 20, ConsoleConfig{}.PageSize(-1))
}

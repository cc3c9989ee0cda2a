package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "guestbook.db", cfg.Database.DSN)
	assert.Equal(t, int64(8*1024), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 100, cfg.Guestbook.RecentLimit)
	assert.Equal(t, 10, cfg.RateLimit.SubmitPerMinute)
	assert.Equal(t, 10*time.Second, cfg.Redis.PollInterval)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GUESTBOOK_SERVER_PORT", "9090")
	t.Setenv("GUESTBOOK_DATABASE_DRIVER", "postgres")
	t.Setenv("GUESTBOOK_DATABASE_DSN", "host=localhost user=postgres dbname=guestbook")
	t.Setenv("GUESTBOOK_REDIS_ENABLED", "true")
	t.Setenv("GUESTBOOK_REDIS_POLL_INTERVAL", "3s")
	t.Setenv("GUESTBOOK_SECURITY_SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Redis.PollInterval)
	assert.Equal(t, "s3cret", cfg.Security.SecretKey)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("GUESTBOOK_DATABASE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database.driver")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:    ServerConfig{Port: 8080},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Guestbook: GuestbookConfig{RecentLimit: 10},
	}
	require.NoError(t, valid.Validate())

	noDSN := valid
	noDSN.Database.DSN = "  "
	assert.Error(t, noDSN.Validate())

	badPort := valid
	badPort.Server.Port = 0
	assert.Error(t, badPort.Validate())

	badCache := valid
	badCache.Redis = RedisConfig{Enabled: true}
	assert.Error(t, badCache.Validate())
}

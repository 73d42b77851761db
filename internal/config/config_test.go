package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BLUEPRINT_DB_USERNAME", "market")
	t.Setenv("BLUEPRINT_DB_DATABASE", "market")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 32, cfg.SessionBuffer)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
	assert.Equal(t, 10*time.Minute, cfg.ReminderAfter)
	assert.Equal(t, "notifications_fanout", cfg.AMQP.Exchange)
	assert.Empty(t, cfg.AMQP.URL)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REMINDER_AFTER", "90s")
	t.Setenv("BLUEPRINT_DB_HOST", "db")
	t.Setenv("BLUEPRINT_DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 90*time.Second, cfg.ReminderAfter)
	assert.Equal(t, "postgres://market:pw@db:5432/market?sslmode=disable&search_path=public", cfg.DB.DSN())
}

func TestLoadReportsEveryProblem(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BLUEPRINT_DB_USERNAME", "")
	t.Setenv("BLUEPRINT_DB_DATABASE", "")
	t.Setenv("SESSION_BUFFER", "lots")
	t.Setenv("REMINDER_INTERVAL", "often")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{"JWT_SECRET", "BLUEPRINT_DB_USERNAME", "BLUEPRINT_DB_DATABASE", "SESSION_BUFFER", "REMINDER_INTERVAL"} {
		assert.Contains(t, err.Error(), key)
	}
}

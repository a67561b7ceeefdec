package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"db", "push", "log"}, cfg.Notification.Consumers)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ConsumersFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("NOTIFICATION_CONSUMERS", "DB, broker")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "broker"}, cfg.Notification.Consumers)
}

func TestLoad_UnknownConsumer(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("NOTIFICATION_CONSUMERS", "db,sms")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms")
}

func TestLoad_PageSize(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAGE_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", DB: "porto", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=porto sslmode=disable", p.DSN())

	p.URL = "postgres://x"
	assert.Equal(t, "postgres://x", p.DSN())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	c := LoadConfig()

	assert.Equal(t, 8080, c.ServerPort)
	assert.Equal(t, "mongodb://localhost:27017", c.Database.URI)
	assert.Equal(t, "userhub", c.Database.DBName)
	assert.Equal(t, 24*time.Hour, c.JWT.AccessTTL)
	assert.Equal(t, 24*time.Hour, c.JWT.CookieTTL)
	assert.Equal(t, "log", c.Mail.Backend)
	assert.Equal(t, "mail-jobs", c.Mail.Queue)
	assert.Equal(t, 587, c.Mail.SMTP.Port)
	assert.Equal(t, "minio", c.Storage.Backend)
	assert.True(t, c.RabbitMQ.QueueDurable)
	assert.Equal(t, "-sub", c.PubSub.SubscriptionSuffix)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DB", "users_test")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("MAIL_BACKEND", "rabbitmq")
	t.Setenv("RABBITMQ_QUEUE_DURABLE", "false")

	c := LoadConfig()

	require.Equal(t, 9090, c.ServerPort)
	assert.Equal(t, "mongodb://db:27017", c.Database.URI)
	assert.Equal(t, "users_test", c.Database.DBName)
	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.Equal(t, 15*time.Minute, c.JWT.AccessTTL)
	assert.Equal(t, "rabbitmq", c.Mail.Backend)
	assert.False(t, c.RabbitMQ.QueueDurable)
}

func TestIsProduction(t *testing.T) {
	assert.False(t, Config{Env: "dev"}.IsProduction())
	assert.True(t, Config{Env: "production"}.IsProduction())
	assert.True(t, Config{Env: "prod"}.IsProduction())
}

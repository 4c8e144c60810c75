package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_KEYS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, map[string]string{"tenant-key-123": "tenant1"}, cfg.APIKeys)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "dataLayer", cfg.RedisListKey)
	assert.Equal(t, "storefront.events", cfg.NATSSubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.KafkaWriteTimeout)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("API_KEYS", "shop1:k1, shop2:k2")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("KAFKA_TOPIC", "datalayer")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"k1": "shop1", "k2": "shop2"}, cfg.APIKeys)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "datalayer", cfg.KafkaTopic)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "malformed api keys", env: map[string]string{"API_KEYS": "no-colon"}},
		{name: "empty tenant", env: map[string]string{"API_KEYS": ":key"}},
		{name: "brokers without topic", env: map[string]string{"KAFKA_BROKERS": "k:9092", "KAFKA_TOPIC": ""}},
		{name: "negative rate", env: map[string]string{"RATE_LIMIT_RPS": "-1"}},
		{name: "nats publish equals subscribe", env: map[string]string{
			"NATS_SUBJECT_PREFIX": "storefront.events", "NATS_PUBLISH_PREFIX": "storefront.events",
		}},
		{name: "nats publish under subscribe", env: map[string]string{
			"NATS_SUBJECT_PREFIX": "storefront.events", "NATS_PUBLISH_PREFIX": "storefront.events.out",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNATSLoop(t *testing.T) {
	assert.True(t, natsLoop("a.b", "a.b"))
	assert.True(t, natsLoop("a.b", "a.b.c"))
	assert.False(t, natsLoop("a.b", "a.bc"))
	assert.False(t, natsLoop("a.b.c", "a.b"))
	assert.False(t, natsLoop("storefront.events", "analytics.datalayer"))
	assert.False(t, natsLoop("", "a"))
}

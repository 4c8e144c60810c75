package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config contains runtime configuration required by the service.
// Every output backend is optional; with none configured records go to an in-memory queue.
type Config struct {
	AppEnv   string
	HTTPAddr string

	DBURL   string
	APIKeys map[string]string // apiKey -> tenantID

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	RedisURL     string
	RedisListKey string

	KafkaBrokers      []string
	KafkaTopic        string
	KafkaWriteTimeout time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	NATSQueueGroup    string
	NATSPublishPrefix string

	SQSQueueURL string
}

// Load reads values from a local .env file (if any) and the environment.
// API_KEYS format: "tenant1:key1,tenant2:key2"
func Load() (Config, error) {
	// Real environment wins over .env; a missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	apiKeys, err := parseAPIKeys(v.GetString("API_KEYS"))
	if err != nil {
		return Config{}, err
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(apiKeys) == 0 {
		apiKeys["tenant-key-123"] = "tenant1"
	}

	cfg := Config{
		AppEnv:            strings.TrimSpace(v.GetString("APP_ENV")),
		HTTPAddr:          strings.TrimSpace(v.GetString("HTTP_ADDR")),
		DBURL:             strings.TrimSpace(v.GetString("DB_URL")),
		APIKeys:           apiKeys,
		CORSOrigins:       csv(v.GetString("CORS_ORIGINS")),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		RedisURL:          strings.TrimSpace(v.GetString("REDIS_URL")),
		RedisListKey:      strings.TrimSpace(v.GetString("REDIS_LIST_KEY")),
		KafkaBrokers:      csv(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:        strings.TrimSpace(v.GetString("KAFKA_TOPIC")),
		KafkaWriteTimeout: v.GetDuration("KAFKA_WRITE_TIMEOUT"),
		NATSURL:           strings.TrimSpace(v.GetString("NATS_URL")),
		NATSSubjectPrefix: strings.TrimSpace(v.GetString("NATS_SUBJECT_PREFIX")),
		NATSQueueGroup:    strings.TrimSpace(v.GetString("NATS_QUEUE_GROUP")),
		NATSPublishPrefix: strings.TrimSpace(v.GetString("NATS_PUBLISH_PREFIX")),
		SQSQueueURL:       strings.TrimSpace(v.GetString("SQS_QUEUE_URL")),
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return Config{}, errors.New("KAFKA_TOPIC required when KAFKA_BROKERS is set")
	}
	if natsLoop(cfg.NATSSubjectPrefix, cfg.NATSPublishPrefix) {
		return Config{}, errors.New("NATS_PUBLISH_PREFIX must not equal or sit under NATS_SUBJECT_PREFIX")
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		return Config{}, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}

	return cfg, nil
}

// natsLoop reports whether records published under pub would be picked up again by
// the subscription on sub.>.
func natsLoop(sub, pub string) bool {
	if sub == "" || pub == "" {
		return false
	}
	return pub == sub || strings.HasPrefix(pub, sub+".")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REDIS_LIST_KEY", "dataLayer")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "5s")
	v.SetDefault("NATS_SUBJECT_PREFIX", "storefront.events")
	v.SetDefault("NATS_QUEUE_GROUP", "pixel-analytics-bridge")
	v.SetDefault("NATS_PUBLISH_PREFIX", "analytics.datalayer")
}

func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apiKeys, nil
	}

	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "tenant:key,tenant:key"`)
		}
		tenant := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if tenant == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "tenant:key,tenant:key"`)
		}
		apiKeys[key] = tenant
	}
	return apiKeys, nil
}

func csv(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotEnvFile is loaded, if present, before environment variables are read.
// Variables already set in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays values from environment variables. Malformed numeric or
// duration values are ignored and the previous value is kept.
func parseEnv(config *Config) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load(dotEnvFile)

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.SessionSecretKey, "SESSION_SECRET_KEY")
	envString(&config.SessionIssuer, "SESSION_ISSUER")
	envString(&config.StripeSecretKey, "STRIPE_SECRET_KEY")
	envString(&config.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
	envString(&config.Currency, "CHECKOUT_CURRENCY")
	envString(&config.PublicAppURL, "PUBLIC_APP_URL")
	envString(&config.CORSAllowOrigins, "CORS_ALLOW_ORIGINS")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envInt(&config.RedisDB, "REDIS_DB")
	envString(&config.KafkaBrokers, "KAFKA_BROKERS")
	envString(&config.ElasticsearchAddr, "ELASTICSEARCH_ADDR")
	envDuration(&config.NotificationPollInterval, "NOTIFICATION_POLL_INTERVAL")
	envDuration(&config.UnreadCacheTTL, "UNREAD_CACHE_TTL")
	envDuration(&config.HealthCheckInterval, "HEALTH_CHECK_INTERVAL")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

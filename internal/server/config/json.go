package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bazaar/internal/flagx"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Interval fields
// use timex.Duration so both "15s" and integer nanoseconds are accepted.
// Absent (zero) fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP         string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC         string         `json:"endpoint_addr_grpc"`
	DatabaseDSN              string         `json:"database_dsn"`
	LogLevel                 string         `json:"log_level"`
	SessionSecretKey         string         `json:"session_secret_key"`
	SessionIssuer            string         `json:"session_issuer"`
	StripeSecretKey          string         `json:"stripe_secret_key"`
	StripeWebhookSecret      string         `json:"stripe_webhook_secret"`
	Currency                 string         `json:"currency"`
	PublicAppURL             string         `json:"public_app_url"`
	CORSAllowOrigins         string         `json:"cors_allow_origins"`
	S3RootUser               string         `json:"s3_root_user"`
	S3RootPassword           string         `json:"s3_root_password"`
	S3Bucket                 string         `json:"s3_bucket"`
	S3Region                 string         `json:"s3_region"`
	S3BaseEndpoint           string         `json:"s3_base_endpoint"`
	S3PublicBaseURL          string         `json:"s3_public_base_url"`
	RedisAddr                string         `json:"redis_addr"`
	RedisPassword            string         `json:"redis_password"`
	RedisDB                  int            `json:"redis_db"`
	KafkaBrokers             string         `json:"kafka_brokers"`
	ElasticsearchAddr        string         `json:"elasticsearch_addr"`
	NotificationPollInterval timex.Duration `json:"notification_poll_interval"`
	UnreadCacheTTL           timex.Duration `json:"unread_cache_ttl"`
	HealthCheckInterval      timex.Duration `json:"health_check_interval"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $BAZAAR_CONFIG). Nothing happens when no file is named. An unreadable
// file or invalid JSON panics: the server must not start half-configured.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SessionSecretKey, c.SessionSecretKey)
	setString(&config.SessionIssuer, c.SessionIssuer)
	setString(&config.StripeSecretKey, c.StripeSecretKey)
	setString(&config.StripeWebhookSecret, c.StripeWebhookSecret)
	setString(&config.Currency, c.Currency)
	setString(&config.PublicAppURL, c.PublicAppURL)
	setString(&config.CORSAllowOrigins, c.CORSAllowOrigins)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	setString(&config.KafkaBrokers, c.KafkaBrokers)
	setString(&config.ElasticsearchAddr, c.ElasticsearchAddr)
	if c.NotificationPollInterval.Duration != 0 {
		config.NotificationPollInterval = c.NotificationPollInterval.Duration
	}
	if c.UnreadCacheTTL.Duration != 0 {
		config.UnreadCacheTTL = c.UnreadCacheTTL.Duration
	}
	if c.HealthCheckInterval.Duration != 0 {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
}

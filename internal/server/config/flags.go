package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/bazaar/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-l string   log level
//	-k string   Stripe secret key
//	-w string   Stripe webhook secret
//	-u string   public app URL
//	-r string   Redis address
//	-q string   Kafka brokers (comma-separated)
//	-e string   Elasticsearch address
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// loaders (-c/-config) do not abort parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-l", "-k", "-w", "-u", "-r", "-q", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run the gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecretKey, "s", config.SessionSecretKey, "session token secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.StripeSecretKey, "k", config.StripeSecretKey, "Stripe secret key")
	fs.StringVar(&config.StripeWebhookSecret, "w", config.StripeWebhookSecret, "Stripe webhook secret")
	fs.StringVar(&config.PublicAppURL, "u", config.PublicAppURL, "public app URL")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.KafkaBrokers, "q", config.KafkaBrokers, "Kafka brokers")
	fs.StringVar(&config.ElasticsearchAddr, "e", config.ElasticsearchAddr, "Elasticsearch address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file
// in the working directory is loaded first if present; real environment
// variables win over .env entries (godotenv does not override).
//
// Recognized variables:
//
//	IDVAULT_HTTP_ADDR
//	IDVAULT_DATABASE_DSN
//	IDVAULT_SECRET_KEY
//	IDVAULT_ACCESS_TOKEN_TTL        (time.ParseDuration format)
//	IDVAULT_REVOCATION_PRUNE_EVERY  (time.ParseDuration format)
//	IDVAULT_S3_USER / IDVAULT_S3_PASSWORD / IDVAULT_S3_BUCKET
//	IDVAULT_S3_REGION / IDVAULT_S3_ENDPOINT
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString("IDVAULT_HTTP_ADDR", &config.EndpointAddrHTTP)
	setString("IDVAULT_DATABASE_DSN", &config.DatabaseDSN)
	setString("IDVAULT_SECRET_KEY", &config.SecretKey)
	setDuration("IDVAULT_ACCESS_TOKEN_TTL", &config.AccessTokenTTL)
	setDuration("IDVAULT_REVOCATION_PRUNE_EVERY", &config.RevocationPruneInterval)
	setString("IDVAULT_S3_USER", &config.S3RootUser)
	setString("IDVAULT_S3_PASSWORD", &config.S3RootPassword)
	setString("IDVAULT_S3_BUCKET", &config.S3Bucket)
	setString("IDVAULT_S3_REGION", &config.S3Region)
	setString("IDVAULT_S3_ENDPOINT", &config.S3BaseEndpoint)
}

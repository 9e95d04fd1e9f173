// Package config provides configuration loading and management for the Proof of Vibes service.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// In development, it loads .env and .env.local files if they exist.
// In production, it relies solely on system environment variables.
// The loading order ensures that system environment variables take precedence over .env files.
func init() {
	// godotenv.Load() does not override already-set environment variables,
	// preserving OS env > .env precedence

	// Load .env file if it exists (for shared development config)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// Load .env.local if it exists (for local overrides, gitignored)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the Proof of Vibes service.
type Config struct {
	Env         string // Deployment environment (dev, staging, prod)
	Port        string // HTTP server port
	DatabaseDSN string // Database connection string (PostgreSQL); empty selects the in-memory store
	NATSURL     string // NATS server URL; empty disables event streaming
	S3Endpoint  string // S3-compatible storage endpoint; empty disables photo archival
	S3Region    string // S3 region
	S3Bucket    string // S3 bucket name for photo archival
	S3AccessKey string // S3 access key
	S3SecretKey string // S3 secret key

	AdminJWTSecret string // HS256 secret for the admin reset endpoint; empty disables the endpoint
	MailRelayURL   string // Mail relay for claim-link notifications; empty disables sending

	EventName string // Event name stamped on new collectibles

	// Photo limits
	MaxPhotoSize int64 // Maximum inline photo size in bytes (default 10MB)

	// Seed data
	SeedGallery bool // Whether to inject the sample gallery records at boot

	// CORS configuration
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
}

// Default configuration values used when environment variables are not set
const (
	defaultPort      = "8080"           // Default HTTP server port
	defaultS3Region  = "us-east-1"      // Default S3 region
	defaultEnv       = "dev"            // Default environment
	defaultEventName = "Proof of Vibes" // Default event name
)

// Load reads environment variables and produces a Config suitable for wiring the service.
// It handles both required and optional configuration parameters, providing defaults where appropriate.
func Load() (Config, error) {
	cfg := Config{}

	if env, exists := os.LookupEnv("POV_ENV"); exists {
		cfg.Env = env
	} else {
		cfg.Env = defaultEnv
	}

	if port, exists := os.LookupEnv("POV_PORT"); exists {
		cfg.Port = port
	} else {
		cfg.Port = defaultPort
	}

	// Optional backends: absence selects the in-memory / noop alternative
	if dsn, exists := os.LookupEnv("POV_DB_DSN"); exists {
		cfg.DatabaseDSN = dsn
	}

	if natsURL, exists := os.LookupEnv("POV_NATS_URL"); exists {
		cfg.NATSURL = natsURL
	}

	if s3Endpoint, exists := os.LookupEnv("POV_S3_ENDPOINT"); exists {
		cfg.S3Endpoint = s3Endpoint
	}

	if s3Region, exists := os.LookupEnv("POV_S3_REGION"); exists {
		cfg.S3Region = s3Region
	} else {
		cfg.S3Region = defaultS3Region
	}

	if s3Bucket, exists := os.LookupEnv("POV_S3_BUCKET"); exists {
		cfg.S3Bucket = s3Bucket
	}

	if s3AccessKey, exists := os.LookupEnv("POV_S3_ACCESS_KEY"); exists {
		cfg.S3AccessKey = s3AccessKey
	}

	if s3SecretKey, exists := os.LookupEnv("POV_S3_SECRET_KEY"); exists {
		cfg.S3SecretKey = s3SecretKey
	}

	if secret, exists := os.LookupEnv("POV_ADMIN_JWT_SECRET"); exists {
		cfg.AdminJWTSecret = secret
	}

	if relayURL, exists := os.LookupEnv("POV_MAIL_RELAY_URL"); exists {
		cfg.MailRelayURL = relayURL
	}

	if eventName, exists := os.LookupEnv("POV_EVENT_NAME"); exists {
		cfg.EventName = eventName
	} else {
		cfg.EventName = defaultEventName
	}

	// Handle photo limits
	if maxPhotoSize, exists := os.LookupEnv("POV_MAX_PHOTO_SIZE"); exists {
		if size, err := strconv.ParseInt(maxPhotoSize, 10, 64); err == nil {
			cfg.MaxPhotoSize = size
		}
	}
	if cfg.MaxPhotoSize <= 0 {
		// Default to 10MB
		cfg.MaxPhotoSize = 10 * 1024 * 1024
	}

	// Seed the gallery by default; production can turn it off
	if seed, exists := os.LookupEnv("POV_SEED_GALLERY"); exists {
		cfg.SeedGallery = parseBool(seed)
	} else {
		cfg.SeedGallery = true
	}

	// Handle CORS configuration
	if corsOrigins, exists := os.LookupEnv("POV_CORS_ALLOWED_ORIGINS"); exists {
		cfg.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		// Trim whitespace from each origin
		for i, origin := range cfg.CORSAllowedOrigins {
			cfg.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	return cfg, nil
}

// parseBool converts a string to a boolean value, returning false if parsing fails
func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

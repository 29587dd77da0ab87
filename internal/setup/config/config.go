package config

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var ErrMissingPublicKey = errors.New("discord public key is required")

// snowflakePattern matches Discord snowflake IDs (17-19 decimal digits).
var snowflakePattern = regexp.MustCompile(`^\d{17,19}$`)

// Config represents the entire application configuration, loaded from the
// environment. A .env file in the working directory is applied first if present.
type Config struct {
	Server     Server     `envPrefix:"SERVER_"`
	Discord    Discord    `envPrefix:"DISCORD_"`
	Upstream   Upstream   `envPrefix:"UPSTREAM_"`
	PostgreSQL PostgreSQL `envPrefix:"POSTGRES_"`
	Redis      Redis      `envPrefix:"REDIS_"`
	Debug      Debug      `envPrefix:"DEBUG_"`
}

// Server contains the HTTP listener configuration.
type Server struct {
	// Address the webhook server listens on.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
}

// Discord contains Discord application configuration.
type Discord struct {
	// Application ID of the bot.
	ApplicationID uint64 `env:"APPLICATION_ID"`
	// Bot token for the messaging REST API.
	Token string `env:"TOKEN"`
	// Hex-encoded Ed25519 public key used to verify inbound webhooks.
	PublicKey string `env:"PUBLIC_KEY"`
	// Comma-separated list of moderator user IDs.
	ModeratorIDs string `env:"MODERATOR_IDS"`
	// Channel where moderation subcommands are honored. Zero means unset,
	// which fails closed.
	ModChannelID uint64 `env:"MOD_CHANNEL_ID"`
	// Optional channel for moderation log messages. Zero skips logging.
	LogChannelID uint64 `env:"LOG_CHANNEL_ID"`
}

// Upstream contains preset API configuration.
type Upstream struct {
	// Base URL of the preset API. Ignored when an in-process binding is used.
	BaseURL string `env:"BASE_URL"`
	// Bearer token for API authentication.
	Token string `env:"TOKEN"`
	// Shared secret for request signing. Empty disables signing.
	SigningSecret string `env:"SIGNING_SECRET"`
	// Request timeout in milliseconds.
	RequestTimeout int `env:"REQUEST_TIMEOUT" envDefault:"5000"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"5432"`
	User         string `env:"USER" envDefault:"postgres"`
	Password     string `env:"PASSWORD"`
	DBName       string `env:"DB_NAME" envDefault:"overseer"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"8"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"4"`
	// Connection lifetime in minutes.
	MaxLifetime int `env:"MAX_LIFETIME" envDefault:"10"`
	// Idle timeout in minutes.
	MaxIdleTime int `env:"MAX_IDLE_TIME" envDefault:"5"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig loads the configuration from the environment.
func LoadConfig() (*Config, error) {
	// Missing .env is fine, real deployments set variables directly
	_ = godotenv.Load()

	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, err
	}

	if config.Discord.PublicKey == "" {
		return nil, ErrMissingPublicKey
	}

	return &config, nil
}

// ParseModeratorIDs splits and validates the configured moderator allow-list.
// Entries that do not look like Discord snowflakes are dropped with a warning
// so a typo never silently grants permissions to an unexpected identity.
func ParseModeratorIDs(raw string, logger *zap.Logger) []uint64 {
	if raw == "" {
		return nil
	}

	var ids []uint64

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !snowflakePattern.MatchString(entry) {
			logger.Warn("Dropping malformed moderator ID", zap.String("entry", entry))
			continue
		}

		id, err := strconv.ParseUint(entry, 10, 64)
		if err != nil {
			logger.Warn("Dropping malformed moderator ID", zap.String("entry", entry))
			continue
		}

		ids = append(ids, id)
	}

	return ids
}

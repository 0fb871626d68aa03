package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the bot.
type Config struct {
	BotToken string
	Env      string
	Debug    bool

	DB       DBConfig
	Sessions SessionConfig
	Redis    RedisConfig
	Bot      BotConfig
	HTTP     HTTPConfig
}

// DBConfig selects and locates the catalog store.
type DBConfig struct {
	Driver        string
	Path          string
	MongoURI      string
	MongoDatabase string
}

type SessionConfig struct {
	Store string
	TTL   time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BotConfig tunes the conversation.
type BotConfig struct {
	ItemsPerPage       int
	TypoThreshold      int
	DuplicateThreshold int
}

type HTTPConfig struct {
	Port          string
	WebhookURL    string
	WebhookSecret string
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

var ErrNoToken = errors.New("BOT_TOKEN is required")

// Load reads configuration from environment variables, after loading .env
// if present. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		raw := getEnv(key, strconv.Itoa(fallback))
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", key, raw))
			return fallback
		}
		return n
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "0s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SESSION_TTL: %w", err))
	}

	cfg := &Config{
		BotToken: strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		Env:      getEnv("ENV", "dev"),
		Debug:    parseBool(os.Getenv("DEBUG")),
		DB: DBConfig{
			Driver:        strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:          getEnv("DB_PATH", "data/movies.db"),
			MongoURI:      getEnv("MONGODB_URI", ""),
			MongoDatabase: getEnv("MONGODB_DATABASE", "moviebot"),
		},
		Sessions: SessionConfig{
			Store: strings.ToLower(getEnv("SESSION_STORE", SessionsMemory)),
			TTL:   ttl,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
		},
		Bot: BotConfig{
			ItemsPerPage:       intVar("ITEMS_PER_PAGE", 5),
			TypoThreshold:      intVar("TYPO_THRESHOLD", 75),
			DuplicateThreshold: intVar("DUPLICATE_THRESHOLD", 70),
		},
		HTTP: HTTPConfig{
			Port:          getEnv("PORT", ""),
			WebhookURL:    getEnv("WEBHOOK_URL", ""),
			WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		},
	}

	switch cfg.DB.Driver {
	case DriverSQLite:
	case DriverMongo:
		if cfg.DB.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for DB_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", cfg.DB.Driver))
	}
	switch cfg.Sessions.Store {
	case SessionsMemory, SessionsRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE: unknown store %q", cfg.Sessions.Store))
	}
	if cfg.Sessions.TTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if cfg.Bot.ItemsPerPage <= 0 {
		errs = append(errs, errors.New("ITEMS_PER_PAGE must be positive"))
	}
	for key, v := range map[string]int{"TYPO_THRESHOLD": cfg.Bot.TypoThreshold, "DUPLICATE_THRESHOLD": cfg.Bot.DuplicateThreshold} {
		if v < 1 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be within 1..100, got %d", key, v))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// RequireToken reports ErrNoToken for commands that talk to Telegram.
func (c *Config) RequireToken() error {
	if c.BotToken == "" {
		return ErrNoToken
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

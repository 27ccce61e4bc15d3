package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath    string     `env:"DB_PATH" envDefault:"data/alias.db"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	PublicURL string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Optional. Refresh tokens live in Redis and chat fans out through NATS
	// when set.
	RedisURL string `env:"REDIS_URL"`
	NATSURL  string `env:"NATS_URL"`

	ChatRatePerSecond float64 `env:"CHAT_RATE_PER_SECOND" envDefault:"2"`
	ChatBurst         int     `env:"CHAT_BURST" envDefault:"5"`

	WordsFile string `env:"WORDS_FILE"`
	SeedRooms int    `env:"SEED_ROOMS" envDefault:"1"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &cfg, nil
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"trivia-quiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	OpenTDB OpenTDB
	Quiz    Quiz
	Redis   Redis
	Session Session
}

// OpenTDB configures the question service client.
type OpenTDB struct {
	BaseURL     string        `env:"OPENTDB_BASE_URL" envDefault:"https://opentdb.com"`
	HTTPTimeout time.Duration `env:"OPENTDB_HTTP_TIMEOUT" envDefault:"10s"`
}

// Quiz groups gameplay defaults.
type Quiz struct {
	MinInterval     time.Duration `env:"QUESTION_MIN_INTERVAL" envDefault:"10s"`
	MaxWrongAnswers int           `env:"MAX_WRONG_ANSWERS" envDefault:"3"`
}

// Redis holds the optional throttle store. An empty address keeps request
// timestamps in memory.
type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Session configures browser sessions.
type Session struct {
	Secret        string        `env:"SESSION_SECRET,notEmpty"`
	CookieTTL     time.Duration `env:"SESSION_COOKIE_TTL" envDefault:"24h"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Quiz.MaxWrongAnswers <= 0 {
		return nil, fmt.Errorf("parse config: MAX_WRONG_ANSWERS must be positive, got %d", cfg.Quiz.MaxWrongAnswers)
	}
	if cfg.Quiz.MinInterval < 0 {
		return nil, fmt.Errorf("parse config: QUESTION_MIN_INTERVAL must not be negative")
	}
	return cfg, nil
}

// CLI is the terminal client's configuration. It needs no secret and logs
// quietly unless asked.
type CLI struct {
	Name     string `env:"APP_NAME" envDefault:"trivia-quiz"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	OpenTDB OpenTDB
	Quiz    Quiz
}

// LoadCLI parses environment variables into CLI config.
func LoadCLI(ctx context.Context) (*CLI, error) {
	cfg := &CLI{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Quiz.MaxWrongAnswers <= 0 {
		return nil, fmt.Errorf("parse config: MAX_WRONG_ANSWERS must be positive, got %d", cfg.Quiz.MaxWrongAnswers)
	}
	return cfg, nil
}

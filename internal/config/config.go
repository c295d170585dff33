package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"emoji_riddle"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	DBMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`

	// Redis (game state + job queue)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// JWT (shared across all installations)
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// Admin
	AdminEmails    string `env:"ADMIN_EMAILS"`
	AdminUserIDs   string `env:"ADMIN_USER_IDS"`
	AdminUsernames string `env:"ADMIN_USERNAMES"`
	AdminToken     string `env:"ADMIN_TOKEN"`

	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	SentryDSN   string `env:"SENTRY_DSN"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`

	// System log retention
	LogRetention time.Duration `env:"LOG_RETENTION" envDefault:"720h"`

	// App registry
	AppsConfigPath string `env:"APPS_CONFIG_PATH" envDefault:"apps.json"`

	Game Game
	Jobs Jobs
}

// Game holds the scoring tunables and submission limits.
type Game struct {
	GuesserSolvePoints       int64         `env:"POINTS_GUESSER_SOLVE" envDefault:"1"`
	GuesserFirstSolvePoints  int64         `env:"POINTS_GUESSER_FIRST_SOLVE" envDefault:"2"`
	AuthorCorrectGuessPoints int64         `env:"POINTS_AUTHOR_CORRECT_GUESS" envDefault:"1"`
	AuthorSubmitPoints       int64         `env:"POINTS_AUTHOR_SUBMIT" envDefault:"1"`
	FeedbackDuration         int           `env:"FEEDBACK_DURATION" envDefault:"10"`
	DefaultRiddleCategories  []string      `env:"DEFAULT_RIDDLE_CATEGORIES" envDefault:"Riddle" envSeparator:","`
	SubmitLockWindow         time.Duration `env:"SUBMIT_LOCK_WINDOW" envDefault:"5s"`
	FirstSolverCommentDelay  time.Duration `env:"FIRST_SOLVER_COMMENT_DELAY" envDefault:"5m"`
}

type Jobs struct {
	PollInterval      time.Duration `env:"JOB_POLL_INTERVAL" envDefault:"1s"`
	VisibilityTimeout time.Duration `env:"JOB_VISIBILITY_TIMEOUT" envDefault:"1m"`
	BatchSize         int           `env:"JOB_BATCH_SIZE" envDefault:"20"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

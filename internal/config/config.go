// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"karma"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"karma_tracker"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Часовой пояс границ календарных недель. Границы сравниваются
	// с временными метками в базе, поэтому пояс фиксирован на весь
	// процесс и один для всех пользователей.
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Oracle (AI-сервис) ---
	// Пустой ключ включает сценарный фейк вместо реального клиента —
	// удобно для локальной разработки.
	OracleAPIKey  string        `envconfig:"ORACLE_API_KEY" default:""`
	OracleBaseURL string        `envconfig:"ORACLE_BASE_URL" default:"https://api.openai.com/v1"`
	OracleModel   string        `envconfig:"ORACLE_MODEL" default:"gpt-4o-mini"`
	OracleTimeout time.Duration `envconfig:"ORACLE_TIMEOUT" default:"30s"`

	// --- Workers (очереди задач) ---
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"1s"`
	WorkerMaxAttempts  int           `envconfig:"WORKER_MAX_ATTEMPTS" default:"3"`
	WorkerRetryDelay   time.Duration `envconfig:"WORKER_RETRY_DELAY" default:"1m"`
	// Через сколько зависшая running-задача возвращается в работу
	WorkerStaleAfter time.Duration `envconfig:"WORKER_STALE_AFTER" default:"5m"`

	// --- Suggestions ---
	SuggestionLookbackDays int `envconfig:"SUGGESTION_LOOKBACK_DAYS" default:"21"`
	SuggestionMaxEvents    int `envconfig:"SUGGESTION_MAX_EVENTS" default:"20"`

	// --- Leaderboard ---
	LeaderboardSize int `envconfig:"LEADERBOARD_SIZE" default:"10"`

	// --- Reconciliation (сверка застрявших событий) ---
	FeedbackSweepAge   time.Duration `envconfig:"FEEDBACK_SWEEP_AGE" default:"1h"`
	FeedbackSweepLimit int           `envconfig:"FEEDBACK_SWEEP_LIMIT" default:"500"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location загружает часовой пояс из настроек.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return nil, fmt.Errorf("некорректный APP_TIMEZONE %q: %w", c.AppTimezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.WorkerMaxAttempts <= 0 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS должен быть > 0")
	}
	if c.WorkerPollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL должен быть > 0")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT должен быть > 0")
	}
	if c.SuggestionLookbackDays <= 0 || c.SuggestionMaxEvents <= 0 {
		return fmt.Errorf("некорректные настройки SUGGESTION_*")
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE должен быть > 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

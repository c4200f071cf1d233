// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы,
// шину сигналов, воркеры очередей и планировщик, и собирает всё
// в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-tracker/internal/config"
	"serotonyl.ru/karma-tracker/internal/db/postgres"
	"serotonyl.ru/karma-tracker/internal/events"
	"serotonyl.ru/karma-tracker/internal/features/badges"
	"serotonyl.ru/karma-tracker/internal/features/karma"
	"serotonyl.ru/karma-tracker/internal/features/leaderboard"
	"serotonyl.ru/karma-tracker/internal/features/suggestions"
	"serotonyl.ru/karma-tracker/internal/features/users"
	"serotonyl.ru/karma-tracker/internal/jobs"
	"serotonyl.ru/karma-tracker/internal/oracle"
	"serotonyl.ru/karma-tracker/internal/queue"
)

// App содержит все компоненты приложения.
type App struct {
	DB        *pgxpool.Pool
	Scheduler *jobs.Scheduler
	Workers   []*queue.Worker

	Users       *users.Service
	Karma       *karma.Service
	Suggestions *suggestions.Service
	Badges      *badges.Engine
	Leaderboard *leaderboard.Service
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// === 2. Оракул ===
	// Без API-ключа работаем на сценарном фейке — удобно для локалки.
	var scorer oracle.Oracle
	if cfg.OracleAPIKey == "" {
		log.Warn("ORACLE_API_KEY не задан, оценки и рекомендации генерирует фейк")
		scorer = &oracle.Fake{}
	} else {
		scorer = oracle.NewClient(cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.OracleModel, cfg.OracleTimeout)
	}

	// === 3. Шина сигналов и очередь задач ===
	bus := events.NewBus()
	store := queue.NewPGStore(pool)

	// === 4. Репозитории ===
	userRepo := users.NewRepository(pool)
	karmaRepo := karma.NewRepository(pool)
	suggestionRepo := suggestions.NewRepository(pool)
	badgeRepo := badges.NewRepository(pool)
	leaderboardRepo := leaderboard.NewRepository(pool)

	// === 5. Сервисы ===
	userService := users.NewService(userRepo)
	karmaService := karma.NewService(karmaRepo, store, bus, scorer)
	suggestionService := suggestions.NewService(
		suggestionRepo, karmaRepo, userRepo, store, bus, scorer,
		suggestions.Config{
			LookbackDays: cfg.SuggestionLookbackDays,
			MaxEvents:    cfg.SuggestionMaxEvents,
			Location:     loc,
		},
	)
	leaderboardService := leaderboard.NewService(leaderboardRepo, userRepo, bus, loc, cfg.LeaderboardSize)

	// === 6. Движок бейджей ===
	// Подписываем до запуска воркеров, чтобы не потерять ранние сигналы.
	badgeEngine := badges.NewEngine(badgeRepo)
	badgeEngine.Register(bus)

	// === 7. Воркеры очередей ===
	policy := queue.Policy{
		MaxAttempts:  cfg.WorkerMaxAttempts,
		RetryDelay:   cfg.WorkerRetryDelay,
		StaleRunning: cfg.WorkerStaleAfter,
	}

	feedbackWorker := queue.NewWorker(store, queue.QueueFeedback,
		func(ctx context.Context, job *queue.Job) error {
			var p karma.FeedbackPayload
			if err := queue.DecodePayload(job, &p); err != nil {
				return fmt.Errorf("битая полезная нагрузка: %w", err)
			}
			// ClaimNext уже увеличил счётчик попыток
			lastAttempt := job.Attempts >= policy.MaxAttempts
			return karmaService.ProcessFeedback(ctx, p.EventID, lastAttempt)
		},
		policy, cfg.WorkerPollInterval,
	)

	suggestionWorker := queue.NewWorker(store, queue.QueueSuggestion,
		func(ctx context.Context, job *queue.Job) error {
			var p suggestions.SuggestionPayload
			if err := queue.DecodePayload(job, &p); err != nil {
				return fmt.Errorf("битая полезная нагрузка: %w", err)
			}
			return suggestionService.ProcessSuggestions(ctx, p.UserID, p.Week)
		},
		policy, cfg.WorkerPollInterval,
	)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(loc, suggestionService, karmaService, userService,
		cfg.FeedbackSweepAge, cfg.FeedbackSweepLimit)

	return &App{
		DB:          pool,
		Scheduler:   scheduler,
		Workers:     []*queue.Worker{feedbackWorker, suggestionWorker},
		Users:       userService,
		Karma:       karmaService,
		Suggestions: suggestionService,
		Badges:      badgeEngine,
		Leaderboard: leaderboardService,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002KarmaEvents},
		{3, migration003Suggestions},
		{4, migration004Badges},
		{5, migration005UserBadges},
		{6, migration006Jobs},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) UNIQUE NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

var migration002KarmaEvents = `
CREATE TABLE IF NOT EXISTS karma_events (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    action TEXT NOT NULL,
    reflection TEXT NOT NULL DEFAULT '',
    intensity INTEGER,
    feedback TEXT,
    feedback_generated BOOLEAN NOT NULL DEFAULT FALSE,
    feedback_failed BOOLEAN NOT NULL DEFAULT FALSE,
    occurred_at TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_karma_events_user_id ON karma_events(user_id);
CREATE INDEX IF NOT EXISTS idx_karma_events_occurred_at ON karma_events(occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_karma_events_unscored
    ON karma_events(created_at)
    WHERE feedback_generated = FALSE AND feedback_failed = FALSE;
`

var migration003Suggestions = `
CREATE TABLE IF NOT EXISTS suggestions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    text TEXT NOT NULL,
    week INTEGER NOT NULL,
    used BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_suggestions_user_id ON suggestions(user_id);
`

var migration004Badges = `
CREATE TABLE IF NOT EXISTS badges (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(64) UNIQUE NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon VARCHAR(32) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE
);
INSERT INTO badges (code, name, description, icon) VALUES
    ('first_event', 'Первый шаг', 'Записано первое событие кармы', '🌱'),
    ('events_10', 'Десятка', 'Записано 10 событий кармы', '🔟'),
    ('events_50', 'Полсотни', 'Записано 50 событий кармы', '🌟'),
    ('events_100', 'Сотня', 'Записано 100 событий кармы', '💯'),
    ('first_suggestion', 'Первый совет', 'Получен первый набор рекомендаций', '💡'),
    ('top10', 'В десятке', 'Попадание в топ-10 недельного рейтинга', '🏆')
ON CONFLICT (code) DO NOTHING;
`

var migration005UserBadges = `
CREATE TABLE IF NOT EXISTS user_badges (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    badge_id BIGINT NOT NULL REFERENCES badges(id),
    awarded_at TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, badge_id)
);
CREATE INDEX IF NOT EXISTS idx_user_badges_user_id ON user_badges(user_id);
`

var migration006Jobs = `
CREATE TABLE IF NOT EXISTS jobs (
    id UUID PRIMARY KEY,
    queue VARCHAR(64) NOT NULL,
    payload JSONB NOT NULL,
    dedup_key VARCHAR(255) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'queued',
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    last_error_at TIMESTAMP,
    locked_at TIMESTAMP,
    heartbeat_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_dedup
    ON jobs(queue, dedup_key)
    WHERE status IN ('queued', 'running');
CREATE INDEX IF NOT EXISTS idx_jobs_claim ON jobs(queue, status, created_at);
`

// Package leaderboard — repository.go: агрегатные выборки по karma_events.
// Оба запроса считают только оценённые события: у неоценённых нет
// интенсивности, усреднять нечего.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository выполняет агрегатные запросы рейтинга.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рейтинга.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// WeeklyAverages возвращает средние интенсивности всех пользователей
// за окно времени одним агрегатным запросом — без запроса на
// пользователя.
func (r *Repository) WeeklyAverages(ctx context.Context, from, to time.Time) ([]UserAverage, error) {
	query := `
		SELECT e.user_id, u.username, AVG(e.intensity)::float8, COUNT(*)
		FROM karma_events e
		JOIN users u ON u.id = e.user_id
		WHERE e.feedback_generated = TRUE
		      AND e.occurred_at BETWEEN $1 AND $2
		GROUP BY e.user_id, u.username
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации недельного рейтинга: %w", err)
	}
	defer rows.Close()

	var out []UserAverage
	for rows.Next() {
		var ua UserAverage
		if err := rows.Scan(&ua.UserID, &ua.Username, &ua.AvgIntensity, &ua.Events); err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

// ScoredEvents возвращает все оценённые события пользователя по
// порядку — один массовый запрос, разбивка по неделям делается
// в памяти.
func (r *Repository) ScoredEvents(ctx context.Context, userID int64) ([]EventPoint, error) {
	query := `
		SELECT occurred_at, intensity
		FROM karma_events
		WHERE user_id = $1 AND feedback_generated = TRUE
		ORDER BY occurred_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки событий пользователя %d: %w", userID, err)
	}
	defer rows.Close()

	var out []EventPoint
	for rows.Next() {
		var p EventPoint
		if err := rows.Scan(&p.OccurredAt, &p.Intensity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

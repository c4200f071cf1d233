// Package karma — repository.go выполняет операции с таблицей karma_events.
package karma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/karma-tracker/internal/common"
)

const eventColumns = `id, user_id, action, reflection, intensity, feedback,
	feedback_generated, feedback_failed, occurred_at, created_at, updated_at`

// Repository работает с таблицей karma_events.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий событий кармы.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новое событие в состоянии «ожидает оценки».
func (r *Repository) Create(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO karma_events (user_id, action, reflection, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, e.UserID, e.Action, e.Reflection, e.OccurredAt).Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания события кармы: %w", err)
	}
	return nil
}

// GetByID возвращает событие по id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM karma_events WHERE id = $1`
	e, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения события %d: %w", id, err)
	}
	return e, nil
}

// ListByUser возвращает события пользователя, новые первыми.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM karma_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

// ListByUserBetween возвращает события пользователя в окне времени,
// новые первыми. Используется конвейером рекомендаций.
func (r *Repository) ListByUserBetween(ctx context.Context, userID int64, from, to time.Time, limit int) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM karma_events
		WHERE user_id = $1 AND occurred_at BETWEEN $2 AND $3
		ORDER BY occurred_at DESC
		LIMIT $4
	`
	return r.list(ctx, query, userID, from, to, limit)
}

// CountByUser возвращает общее число событий пользователя.
func (r *Repository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM karma_events WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта событий: %w", err)
	}
	return count, nil
}

// SetFeedback записывает оценку оракула. Условие feedback_generated=FALSE
// делает запись одноразовой: флаг взводится ровно один раз и не
// откатывается. Возвращает false, если событие уже было оценено.
func (r *Repository) SetFeedback(ctx context.Context, id int64, intensity int, feedback string) (bool, error) {
	query := `
		UPDATE karma_events
		SET intensity = $2, feedback = $3, feedback_generated = TRUE,
		    feedback_failed = FALSE, updated_at = NOW()
		WHERE id = $1 AND feedback_generated = FALSE
	`
	tag, err := r.db.Exec(ctx, query, id, intensity, feedback)
	if err != nil {
		return false, fmt.Errorf("ошибка записи оценки события %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFeedbackFailed взводит терминальный флаг «оценка не удалась».
// Ставится только на неоценённых событиях.
func (r *Repository) MarkFeedbackFailed(ctx context.Context, id int64) error {
	query := `
		UPDATE karma_events
		SET feedback_failed = TRUE, updated_at = NOW()
		WHERE id = $1 AND feedback_generated = FALSE
	`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("ошибка пометки события %d: %w", id, err)
	}
	return nil
}

// ListUnscoredBefore возвращает id событий без оценки и без
// терминального флага, созданных раньше cutoff.
// Используется часовой сверкой для повторной постановки задач.
func (r *Repository) ListUnscoredBefore(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM karma_events
		WHERE feedback_generated = FALSE AND feedback_failed = FALSE
		      AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки неоценённых событий: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки событий: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.UserID, &e.Action, &e.Reflection, &e.Intensity, &e.Feedback,
		&e.FeedbackGenerated, &e.FeedbackFailed, &e.OccurredAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Package suggestions — repository.go выполняет операции с таблицей suggestions.
package suggestions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей suggestions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рекомендаций.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ReplaceForUser целиком заменяет набор рекомендаций пользователя.
// Удаление и вставка выполняются в одной транзакции под advisory-локом
// по id пользователя: конкурирующие запуски для одного пользователя
// сериализуются, а упавший между delete и insert процесс откатывает
// транзакцию целиком — пользователь никогда не остаётся без набора
// «на полпути».
func (r *Repository) ReplaceForUser(ctx context.Context, userID int64, week int, texts []string, createdAt time.Time) ([]*Suggestion, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Лок снимется сам при commit/rollback
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения лока пользователя %d: %w", userID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM suggestions WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("ошибка удаления старых рекомендаций: %w", err)
	}

	out := make([]*Suggestion, 0, len(texts))
	for _, text := range texts {
		s := &Suggestion{UserID: userID, Text: text, Week: week, CreatedAt: createdAt}
		err := tx.QueryRow(ctx, `
			INSERT INTO suggestions (user_id, text, week, used, created_at)
			VALUES ($1, $2, $3, FALSE, $4)
			RETURNING id
		`, userID, text, week, createdAt).Scan(&s.ID)
		if err != nil {
			return nil, fmt.Errorf("ошибка вставки рекомендации: %w", err)
		}
		out = append(out, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации замены рекомендаций: %w", err)
	}
	return out, nil
}

// CountByUser возвращает число рекомендаций пользователя.
func (r *Repository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM suggestions WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта рекомендаций: %w", err)
	}
	return count, nil
}

// ListByUser возвращает рекомендации пользователя, новые первыми.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Suggestion, error) {
	query := `
		SELECT id, user_id, text, week, used, created_at
		FROM suggestions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки рекомендаций: %w", err)
	}
	defer rows.Close()

	var out []*Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.UserID, &s.Text, &s.Week, &s.Used, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// MarkUsed взводит флаг used. Переход односторонний, повторный вызов
// безвреден. Возвращает false, если рекомендация не принадлежит
// пользователю или не существует.
func (r *Repository) MarkUsed(ctx context.Context, userID, suggestionID int64) (bool, error) {
	query := `
		UPDATE suggestions
		SET used = TRUE
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, suggestionID, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка пометки рекомендации %d: %w", suggestionID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Package badges — repository.go выполняет операции с таблицами
// badges и user_badges.
package badges

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/karma-tracker/internal/common"
)

// Repository работает с таблицами badges и user_badges.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий бейджей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByCode возвращает бейдж каталога по коду.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Badge, error) {
	query := `
		SELECT id, code, name, description, icon, active
		FROM badges WHERE code = $1
	`
	var b Badge
	err := r.db.QueryRow(ctx, query, code).Scan(
		&b.ID, &b.Code, &b.Name, &b.Description, &b.Icon, &b.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrBadgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения бейджа %s: %w", code, err)
	}
	return &b, nil
}

// ListActive возвращает активные бейджи каталога.
func (r *Repository) ListActive(ctx context.Context) ([]*Badge, error) {
	query := `
		SELECT id, code, name, description, icon, active
		FROM badges WHERE active ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки каталога бейджей: %w", err)
	}
	defer rows.Close()

	var out []*Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.Icon, &b.Active); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// Award выдаёт бейдж пользователю идемпотентно.
// UNIQUE(user_id, badge_id) + ON CONFLICT DO NOTHING: повторная выдача
// (в том числе гонка двух конкурирующих сигналов) — тихий no-op.
// Возвращает true, если запись действительно создана.
func (r *Repository) Award(ctx context.Context, userID, badgeID int64) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("ошибка выдачи бейджа %d пользователю %d: %w", badgeID, userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser возвращает бейджи пользователя с данными каталога.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Awarded, error) {
	query := `
		SELECT b.id, b.code, b.name, b.description, b.icon, b.active, ub.awarded_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.awarded_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки бейджей пользователя: %w", err)
	}
	defer rows.Close()

	var out []*Awarded
	for rows.Next() {
		var a Awarded
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Icon, &a.Active, &a.AwardedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

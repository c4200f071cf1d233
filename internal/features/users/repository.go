// Package users — repository.go выполняет операции с таблицей users.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/karma-tracker/internal/common"
)

// Repository работает с таблицей users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий пользователей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create сохраняет нового пользователя и заполняет ID и даты.
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash).Scan(
		&u.ID, &u.JoinedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uniqueViolation(pgErr)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

// uniqueViolation решает по имени нарушенного ограничения, что именно
// занято: адрес почты или имя пользователя.
func uniqueViolation(pgErr *pgconn.PgError) error {
	if strings.Contains(pgErr.ConstraintName, "email") {
		return common.ErrEmailTaken
	}
	return common.ErrUsernameTaken
}

// GetByID возвращает пользователя по id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByUsername возвращает пользователя по имени.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, `WHERE username = $1`, username)
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, joined_at, created_at, updated_at
		FROM users ` + where
	var u User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.JoinedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}
	return &u, nil
}

// ListIDs возвращает id всех пользователей.
// Используется планировщиком для еженедельной генерации рекомендаций.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
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

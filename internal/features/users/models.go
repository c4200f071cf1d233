// Package users реализует учётные записи пользователей.
// models.go описывает структуру таблицы users.
package users

import "time"

// User — учётная запись. Корневой агрегат: события кармы,
// рекомендации и бейджи принадлежат пользователю.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	JoinedAt     time.Time `db:"joined_at"` // точка отсчёта персональных недель
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Package users — service.go содержит бизнес-логику учётных записей.
// Сервис отвечает за регистрацию (с хешированием пароля) и проверку
// учётных данных. Выпуск токенов — забота внешнего API-слоя.
package users

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-tracker/internal/common"
)

// Repo — хранилище пользователей, нужное сервису.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// Service управляет учётными записями.
type Service struct {
	repo Repo
}

// NewService создаёт сервис пользователей.
func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// Register регистрирует нового пользователя.
// Пароль хешируется Argon2id, в открытом виде нигде не хранится.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, common.ErrEmptyUsername
	}
	if password == "" {
		return nil, common.ErrEmptyPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":  u.ID,
		"username": u.Username,
	}).Info("Зарегистрирован новый пользователь")

	return u, nil
}

// Authenticate проверяет имя и пароль, возвращает пользователя.
// Несуществующий пользователь и неверный пароль неразличимы для
// вызывающего: одна и та же ошибка ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return nil, common.ErrInvalidCredentials
	}
	return u, nil
}

// GetByID возвращает пользователя по id.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListIDs возвращает id всех пользователей.
func (s *Service) ListIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListIDs(ctx)
}

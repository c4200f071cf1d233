// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях сервиса.
// Ошибки делятся на классы: валидация, «не найдено», авторизация —
// по классу ошибки внешний API-слой выбирает код ответа.
package common

import "errors"

// Ошибки валидации — отклоняются синхронно, до постановки задач в очередь.
var (
	// ErrEmptyAction — событие кармы без описания действия
	ErrEmptyAction = errors.New("описание действия не может быть пустым")
	// ErrEmptyUsername — регистрация без имени пользователя
	ErrEmptyUsername = errors.New("имя пользователя не может быть пустым")
	// ErrEmptyPassword — регистрация без пароля
	ErrEmptyPassword = errors.New("пароль не может быть пустым")
)

// Ошибки «не найдено» — на этапе обработки фоновой задачи такая ошибка
// фатальна для задачи, но не для воркера.
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrEventNotFound — событие кармы не найдено
	ErrEventNotFound = errors.New("событие кармы не найдено")
	// ErrSuggestionNotFound — рекомендация не найдена
	ErrSuggestionNotFound = errors.New("рекомендация не найдена")
	// ErrBadgeNotFound — бейдж не найден в каталоге
	ErrBadgeNotFound = errors.New("бейдж не найден")
)

// Ошибки авторизации
var (
	// ErrInvalidCredentials — неверное имя пользователя или пароль
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	// ErrUsernameTaken — имя пользователя уже занято
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	// ErrEmailTaken — адрес почты уже занят
	ErrEmailTaken = errors.New("адрес почты уже занят")
)

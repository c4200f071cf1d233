// Package badges реализует каталог бейджей и их выдачу.
// models.go описывает структуры таблиц badges и user_badges.
package badges

import "time"

// Коды бейджей из каталога (засеиваются миграцией).
const (
	CodeFirstEvent      = "first_event"
	CodeEvents10        = "events_10"
	CodeEvents50        = "events_50"
	CodeEvents100       = "events_100"
	CodeFirstSuggestion = "first_suggestion"
	CodeTop10           = "top10"
)

// Badge — запись каталога. Справочные данные, конвейеры их не создают.
type Badge struct {
	ID          int64  `db:"id"`
	Code        string `db:"code"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Icon        string `db:"icon"`
	Active      bool   `db:"active"`
}

// UserBadge — факт выдачи бейджа пользователю.
// На пару (пользователь, бейдж) существует не больше одной записи.
type UserBadge struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	BadgeID   int64     `db:"badge_id"`
	AwardedAt time.Time `db:"awarded_at"`
}

// Awarded — бейдж пользователя вместе с данными каталога.
type Awarded struct {
	Badge
	AwardedAt time.Time `db:"awarded_at"`
}

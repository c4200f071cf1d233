// Package suggestions реализует недельные рекомендации.
// models.go описывает структуру таблицы suggestions.
package suggestions

import "time"

// Suggestion — одна рекомендация из недельного набора.
//
// Наборы не накапливаются: каждый запуск конвейера целиком заменяет
// прежние рекомендации пользователя новым набором. Флаг Used ставит
// сам пользователь, обратно не снимается.
type Suggestion struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Text      string    `db:"text"`
	Week      int       `db:"week"` // номер недели пользователя от регистрации
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

// SuggestionPayload — полезная нагрузка задачи очереди karma_suggestion.
type SuggestionPayload struct {
	UserID int64 `json:"user_id"`
	Week   int   `json:"week"`
}

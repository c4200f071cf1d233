// Package oracle описывает интерфейс внешнего AI-сервиса.
// Сервис оценивает события кармы (интенсивность −1..10 и текст обратной
// связи) и генерирует недельные рекомендации по истории событий.
//
// Вызовы медленные и могут падать — ретраи и тайм-ауты лежат на
// вызывающем слое задач, клиент лишь ограничивает один запрос.
package oracle

import (
	"context"
	"time"
)

// Диапазон интенсивности, который обязан вернуть оракул.
const (
	MinIntensity = -1
	MaxIntensity = 10
)

// Score — результат оценки одного события.
type Score struct {
	Intensity int    // в диапазоне [MinIntensity, MaxIntensity]
	Feedback  string // текст обратной связи для пользователя
}

// EventSummary — краткая запись события для генерации рекомендаций.
// Оракулу не нужна вся строка из базы, только содержательная часть.
type EventSummary struct {
	Action     string
	Reflection string
	Intensity  *int // nil, если событие ещё не оценено
	OccurredAt time.Time
}

// Oracle — внешний AI-сервис.
// Повторный вызов с теми же аргументами безопасен, но содержимое
// ответа недетерминировано — тесты проверяют структуру, не текст.
type Oracle interface {
	// ScoreEvent оценивает одно событие кармы.
	ScoreEvent(ctx context.Context, action, reflection string) (Score, error)

	// GenerateSuggestions генерирует рекомендации по списку недавних
	// событий (новые первыми, не больше окна в ~20 штук).
	// Длина ответа не фиксирована.
	GenerateSuggestions(ctx context.Context, userID int64, events []EventSummary) ([]string, error)
}

// ClampIntensity приводит интенсивность к допустимому диапазону.
// Модель изредка выходит за рамки подсказки — обрезаем, а не падаем.
func ClampIntensity(v int) int {
	if v < MinIntensity {
		return MinIntensity
	}
	if v > MaxIntensity {
		return MaxIntensity
	}
	return v
}

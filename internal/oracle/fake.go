// Package oracle — fake.go: сценарная реализация оракула.
// Используется в тестах и при локальном запуске без API-ключа.
package oracle

import "context"

// Fake — оракул с подменяемым поведением.
// Нулевое значение отдаёт нейтральную оценку и одну рекомендацию.
type Fake struct {
	ScoreFn   func(action, reflection string) (Score, error)
	SuggestFn func(userID int64, events []EventSummary) ([]string, error)
}

// ScoreEvent возвращает сценарный или нейтральный результат.
func (f *Fake) ScoreEvent(_ context.Context, action, reflection string) (Score, error) {
	if f.ScoreFn != nil {
		return f.ScoreFn(action, reflection)
	}
	return Score{Intensity: 5, Feedback: "Так держать!"}, nil
}

// GenerateSuggestions возвращает сценарный или фиксированный список.
func (f *Fake) GenerateSuggestions(_ context.Context, userID int64, events []EventSummary) ([]string, error) {
	if f.SuggestFn != nil {
		return f.SuggestFn(userID, events)
	}
	return []string{"Сделай сегодня одно маленькое доброе дело"}, nil
}

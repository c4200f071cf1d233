// Package karma реализует события кармы и конвейер обратной связи.
// models.go описывает структуру таблицы karma_events.
package karma

import "time"

// Event — одно записанное пользователем доброе дело.
//
// Жизненный цикл: создаётся в состоянии «ожидает оценки»
// (FeedbackGenerated=false, Intensity=nil), ровно один раз оценивается
// фоновой задачей и переходит в терминальное состояние. Обратного
// перехода нет. Если оракул исчерпал попытки — взводится
// FeedbackFailed, чтобы клиент перестал опрашивать.
type Event struct {
	ID                int64      `db:"id"`
	UserID            int64      `db:"user_id"`
	Action            string     `db:"action"`
	Reflection        string     `db:"reflection"`
	Intensity         *int       `db:"intensity"` // nil, пока не оценено; диапазон -1..10
	Feedback          *string    `db:"feedback"`
	FeedbackGenerated bool       `db:"feedback_generated"`
	FeedbackFailed    bool       `db:"feedback_failed"`
	OccurredAt        time.Time  `db:"occurred_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// FeedbackPayload — полезная нагрузка задачи очереди karma_feedback.
type FeedbackPayload struct {
	EventID int64 `json:"event_id"`
}

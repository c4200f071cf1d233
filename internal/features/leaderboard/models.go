// Package leaderboard реализует агрегацию оценок и недельный рейтинг.
// models.go описывает выходные структуры агрегатора.
package leaderboard

import "time"

// Entry — строка рейтинга.
type Entry struct {
	UserID   int64
	Username string
	Score    int // нормированный 0..100
	Events   int
}

// WeekScore — оценка одной персональной недели пользователя.
type WeekScore struct {
	Week   int // номер недели от регистрации
	Score  int // нормированный 0..100
	Events int
}

// UserAverage — сырой агрегат по пользователю за окно времени.
type UserAverage struct {
	UserID       int64
	Username     string
	AvgIntensity float64
	Events       int
}

// EventPoint — минимум данных о событии для персональной истории.
type EventPoint struct {
	OccurredAt time.Time
	Intensity  int
}

// Package common — week.go вычисляет календарные недели.
// Неделя везде считается по ISO: понедельник 00:00:00 — воскресенье
// 23:59:59.999999999. Воскресенье — последний день недели, не первый.
//
// Все границы недель считаются в одном часовом поясе (APP_TIMEZONE),
// потому что они сравниваются с временными метками в базе.
package common

import (
	"math"
	"time"
)

// CalendarWeekForDate возвращает границы календарной недели,
// содержащей дату t. Граница считается в часовом поясе самой даты.
//
// Примеры:
//
//	среда 15.01      → (понедельник 13.01 00:00, воскресенье 19.01 23:59:59.999…)
//	воскресенье 19.01 → (понедельник 13.01 00:00, воскресенье 19.01 23:59:59.999…)
func CalendarWeekForDate(t time.Time) (time.Time, time.Time) {
	// time.Weekday нумерует воскресенье нулём — переносим его в конец недели
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	year, month, day := t.AddDate(0, 0, -(weekday - 1)).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// CurrentCalendarWeek возвращает границы текущей календарной недели
// в заданном часовом поясе.
func CurrentCalendarWeek(loc *time.Location) (time.Time, time.Time) {
	return CalendarWeekForDate(time.Now().In(loc))
}

// WeeksSinceJoin возвращает номер недели пользователя, отсчитанный
// от даты регистрации: max(1, ceil(прошедшие дни / 7)).
// Неделя регистрации — всегда первая, даже в день регистрации.
func WeeksSinceJoin(joinedAt, now time.Time) int {
	days := now.Sub(joinedAt).Hours() / 24
	weeks := int(math.Ceil(days / 7))
	if weeks < 1 {
		return 1
	}
	return weeks
}

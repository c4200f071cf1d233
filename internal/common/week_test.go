package common

import (
	"testing"
	"time"
)

func TestCalendarWeekForDate_Wednesday(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	// Среда 15 января 2025
	wed := time.Date(2025, 1, 15, 14, 30, 0, 0, loc)

	start, end := CalendarWeekForDate(wed)

	wantStart := time.Date(2025, 1, 13, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("начало недели = %v, ожидалось %v", start, wantStart)
	}
	wantEnd := time.Date(2025, 1, 19, 23, 59, 59, 999999999, loc)
	if !end.Equal(wantEnd) {
		t.Errorf("конец недели = %v, ожидалось %v", end, wantEnd)
	}
}

func TestCalendarWeekForDate_SundayIsLastDay(t *testing.T) {
	loc := time.UTC
	// Воскресенье 19 января 2025 — должно попасть в неделю с 13 января,
	// а не открывать новую.
	sun := time.Date(2025, 1, 19, 10, 0, 0, 0, loc)

	start, _ := CalendarWeekForDate(sun)

	wantStart := time.Date(2025, 1, 13, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("начало недели = %v, ожидалось %v", start, wantStart)
	}
}

func TestCalendarWeekForDate_Monday(t *testing.T) {
	loc := time.UTC
	mon := time.Date(2025, 1, 13, 0, 0, 0, 0, loc)

	start, end := CalendarWeekForDate(mon)

	if !start.Equal(mon) {
		t.Errorf("понедельник должен открывать собственную неделю: %v", start)
	}
	if !end.After(start) {
		t.Errorf("конец недели раньше начала: %v < %v", end, start)
	}
}

func TestCurrentCalendarWeek_ContainsNow(t *testing.T) {
	loc := time.UTC
	start, end := CurrentCalendarWeek(loc)

	now := time.Now().In(loc)
	if now.Before(start) || now.After(end) {
		t.Errorf("текущий момент %v вне окна [%v, %v]", now, start, end)
	}
	if end.Sub(start) >= 7*24*time.Hour {
		t.Errorf("окно недели длиннее семи суток: %v", end.Sub(start))
	}
}

func TestWeeksSinceJoin(t *testing.T) {
	join := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"день регистрации", join, 1},
		{"через три дня", join.AddDate(0, 0, 3), 1},
		{"ровно неделя", join.AddDate(0, 0, 7), 1},
		{"восьмой день", join.AddDate(0, 0, 8), 2},
		{"через месяц", join.AddDate(0, 0, 30), 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WeeksSinceJoin(join, tc.now); got != tc.want {
				t.Errorf("WeeksSinceJoin = %d, ожидалось %d", got, tc.want)
			}
		})
	}
}

func TestWeeksSinceJoin_NeverZero(t *testing.T) {
	join := time.Now()
	if got := WeeksSinceJoin(join, join.Add(-time.Hour)); got != 1 {
		t.Errorf("номер недели должен быть минимум 1, получили %d", got)
	}
}

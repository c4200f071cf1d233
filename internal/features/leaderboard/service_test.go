package leaderboard

import (
	"context"
	"testing"
	"time"

	"serotonyl.ru/karma-tracker/internal/common"
	"serotonyl.ru/karma-tracker/internal/events"
	"serotonyl.ru/karma-tracker/internal/features/users"
)

type fakeRepo struct {
	averages []UserAverage
	points   map[int64][]EventPoint
}

func (f *fakeRepo) WeeklyAverages(_ context.Context, _, _ time.Time) ([]UserAverage, error) {
	return f.averages, nil
}

func (f *fakeRepo) ScoredEvents(_ context.Context, userID int64) ([]EventPoint, error) {
	return f.points[userID], nil
}

type fakeUsers struct {
	users map[int64]*users.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*users.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrUserNotFound
}

type fakeBus struct {
	signals []events.Signal
}

func (f *fakeBus) Publish(s events.Signal) { f.signals = append(f.signals, s) }

func TestNormalizedScore(t *testing.T) {
	cases := []struct {
		avg  float64
		want int
	}{
		{-1, 0},
		{10, 100},
		{4.5, 50},
		{0, 9},
		// Вне диапазона — обрезается
		{-5, 0},
		{42, 100},
	}
	for _, tc := range cases {
		if got := NormalizedScore(tc.avg); got != tc.want {
			t.Errorf("NormalizedScore(%v) = %d, ожидалось %d", tc.avg, got, tc.want)
		}
	}
}

func TestWeekly_RankingAndExclusion(t *testing.T) {
	// A — средняя 10, B — средняя -1. C без событий на неделе —
	// в агрегате его просто нет, в рейтинг он не попадает.
	repo := &fakeRepo{averages: []UserAverage{
		{UserID: 2, Username: "b", AvgIntensity: -1, Events: 3},
		{UserID: 1, Username: "a", AvgIntensity: 10, Events: 2},
	}}
	bus := &fakeBus{}
	svc := NewService(repo, &fakeUsers{}, bus, time.UTC, 10)

	got, err := svc.Weekly(context.Background())
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("строк рейтинга: %d", len(got))
	}
	if got[0].Username != "a" || got[0].Score != 100 {
		t.Errorf("первое место: %+v", got[0])
	}
	if got[1].Username != "b" || got[1].Score != 0 {
		t.Errorf("второе место: %+v", got[1])
	}
}

func TestWeekly_TruncatesToSize(t *testing.T) {
	repo := &fakeRepo{}
	for i := 1; i <= 15; i++ {
		repo.averages = append(repo.averages, UserAverage{
			UserID: int64(i), Username: "u", AvgIntensity: float64(i % 11), Events: 1,
		})
	}
	bus := &fakeBus{}
	svc := NewService(repo, &fakeUsers{}, bus, time.UTC, 10)

	got, err := svc.Weekly(context.Background())
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("строк рейтинга: %d, ожидалось не больше 10", len(got))
	}
	// Сигнал top10 — для каждого вошедшего, и только для них
	if len(bus.signals) != 10 {
		t.Errorf("сигналов: %d, ожидалось 10", len(bus.signals))
	}
	for _, s := range bus.signals {
		if s.Kind != events.Top10Ranked {
			t.Errorf("лишний сигнал %v", s)
		}
	}
}

func TestWeekly_TiesBrokenByUserID(t *testing.T) {
	repo := &fakeRepo{averages: []UserAverage{
		{UserID: 9, Username: "девятый", AvgIntensity: 5, Events: 1},
		{UserID: 2, Username: "второй", AvgIntensity: 5, Events: 4},
	}}
	svc := NewService(repo, &fakeUsers{}, &fakeBus{}, time.UTC, 10)

	got, _ := svc.Weekly(context.Background())
	if got[0].UserID != 2 || got[1].UserID != 9 {
		t.Errorf("равный балл должен упорядочиваться по id: %+v", got)
	}
}

func TestWeeklyScores_BucketsByJoinWeek(t *testing.T) {
	join := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{points: map[int64][]EventPoint{
		1: {
			// Первая неделя: 8 и 6 → средняя 7 → 73
			{OccurredAt: join.AddDate(0, 0, 1), Intensity: 8},
			{OccurredAt: join.AddDate(0, 0, 3), Intensity: 6},
			// Третья неделя: 10 → 100
			{OccurredAt: join.AddDate(0, 0, 16), Intensity: 10},
		},
	}}
	us := &fakeUsers{users: map[int64]*users.User{1: {ID: 1, JoinedAt: join}}}
	svc := NewService(repo, us, &fakeBus{}, time.UTC, 10)

	got, err := svc.WeeklyScores(context.Background(), 1)
	if err != nil {
		t.Fatalf("WeeklyScores: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("корзин: %d, ожидалось 2 (%+v)", len(got), got)
	}
	if got[0].Week != 1 || got[0].Score != 73 || got[0].Events != 2 {
		t.Errorf("первая неделя: %+v", got[0])
	}
	if got[1].Week != 3 || got[1].Score != 100 || got[1].Events != 1 {
		t.Errorf("третья неделя: %+v", got[1])
	}
}

func TestWeeklyScores_UnknownUser(t *testing.T) {
	svc := NewService(&fakeRepo{}, &fakeUsers{}, &fakeBus{}, time.UTC, 10)
	if _, err := svc.WeeklyScores(context.Background(), 99); err == nil {
		t.Error("ожидалась ошибка для неизвестного пользователя")
	}
}

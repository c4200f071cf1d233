// Package leaderboard — service.go содержит бизнес-логику рейтинга.
//
// Рейтинг считается по текущей календарной неделе, одинаковой для
// всех пользователей. Персональная история — по неделям от даты
// регистрации каждого пользователя.
package leaderboard

import (
	"context"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-tracker/internal/common"
	"serotonyl.ru/karma-tracker/internal/events"
	"serotonyl.ru/karma-tracker/internal/features/users"
)

// Repo — агрегатные выборки, нужные сервису.
type Repo interface {
	WeeklyAverages(ctx context.Context, from, to time.Time) ([]UserAverage, error)
	ScoredEvents(ctx context.Context, userID int64) ([]EventPoint, error)
}

// UserSource — данные пользователя (дата регистрации).
type UserSource interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// Service считает рейтинг и персональные оценки.
type Service struct {
	repo    Repo
	usersDB UserSource
	bus     events.Publisher
	loc     *time.Location
	size    int // размер рейтинга (топ-10)
}

// NewService создаёт сервис рейтинга.
func NewService(repo Repo, usersDB UserSource, bus events.Publisher, loc *time.Location, size int) *Service {
	return &Service{repo: repo, usersDB: usersDB, bus: bus, loc: loc, size: size}
}

// NormalizedScore переводит среднюю интенсивность в балл 0..100.
// Область интенсивности [-1, 10] (размах 11) линейно растягивается
// в проценты. Значение обрезается: импортированные данные вне
// диапазона не должны ломать контракт 0..100.
func NormalizedScore(avgIntensity float64) int {
	score := int(math.Round((avgIntensity + 1) / 11 * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Weekly возвращает топ пользователей текущей календарной недели.
//
// Один агрегатный запрос по всем пользователям, сортировка по баллу
// (при равенстве — по id, чтобы порядок был детерминированным),
// усечение до size. Пользователи без событий на неделе в рейтинг
// не попадают. Для каждой строки результата публикуется сигнал
// top10_ranked — при каждом вычислении, выдача бейджа идемпотентна.
func (s *Service) Weekly(ctx context.Context) ([]Entry, error) {
	start, end := common.CurrentCalendarWeek(s.loc)

	averages, err := s.repo.WeeklyAverages(ctx, start, end)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(averages))
	for _, ua := range averages {
		entries = append(entries, Entry{
			UserID:   ua.UserID,
			Username: ua.Username,
			Score:    NormalizedScore(ua.AvgIntensity),
			Events:   ua.Events,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})

	if len(entries) > s.size {
		entries = entries[:s.size]
	}

	for _, e := range entries {
		s.bus.Publish(events.Signal{Kind: events.Top10Ranked, UserID: e.UserID})
	}

	log.WithField("entries", len(entries)).Debug("Недельный рейтинг пересчитан")
	return entries, nil
}

// WeeklyScores возвращает персональную историю пользователя:
// средний балл по каждой неделе от регистрации. Все события берутся
// одним запросом и раскладываются по корзинам в памяти.
func (s *Service) WeeklyScores(ctx context.Context, userID int64) ([]WeekScore, error) {
	u, err := s.usersDB.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	points, err := s.repo.ScoredEvents(ctx, userID)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		sum   int
		count int
	}
	buckets := make(map[int]*bucket)
	for _, p := range points {
		week := common.WeeksSinceJoin(u.JoinedAt, p.OccurredAt)
		b, ok := buckets[week]
		if !ok {
			b = &bucket{}
			buckets[week] = b
		}
		b.sum += p.Intensity
		b.count++
	}

	out := make([]WeekScore, 0, len(buckets))
	for week, b := range buckets {
		out = append(out, WeekScore{
			Week:   week,
			Score:  NormalizedScore(float64(b.sum) / float64(b.count)),
			Events: b.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: еженедельная генерация
// рекомендаций и ежечасная сверка незаскоренных событий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// SuggestionTrigger ставит пользователю задачу генерации рекомендаций.
type SuggestionTrigger interface {
	TriggerGeneration(ctx context.Context, userID int64) error
}

// FeedbackSweeper возвращает в очередь события, застрявшие без оценки.
type FeedbackSweeper interface {
	ReenqueueStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// UserLister отдаёт идентификаторы всех зарегистрированных пользователей.
type UserLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron        *cron.Cron
	suggestions SuggestionTrigger
	sweeper     FeedbackSweeper
	users       UserLister
	sweepAge    time.Duration
	sweepLimit  int
}

// NewScheduler создаёт планировщик задач в заданном часовом поясе.
func NewScheduler(loc *time.Location, suggestions SuggestionTrigger, sweeper FeedbackSweeper, users UserLister, sweepAge time.Duration, sweepLimit int) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		suggestions: suggestions,
		sweeper:     sweeper,
		users:       users,
		sweepAge:    sweepAge,
		sweepLimit:  sweepLimit,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Еженедельный запуск генерации рекомендаций: понедельник, 00:05.
	// Пять минут после полуночи — чтобы окно новой календарной недели
	// уже точно открылось.
	s.cron.AddFunc("5 0 * * 1", func() {
		log.Info("[CRON] Еженедельная генерация рекомендаций")
		if err := s.fanOutSuggestions(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка постановки задач генерации")
		}
	})

	// Ежечасная сверка: события без оценки возвращаются в очередь
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Сверка незаскоренных событий")
		n, err := s.sweeper.ReenqueueStale(ctx, s.sweepAge, s.sweepLimit)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки")
			return
		}
		if n > 0 {
			log.WithField("count", n).Info("[CRON] Возвращено в очередь событий")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// fanOutSuggestions ставит задачу генерации каждому пользователю.
// Ошибка по одному пользователю не прерывает обход остальных.
func (s *Scheduler) fanOutSuggestions(ctx context.Context) error {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.suggestions.TriggerGeneration(ctx, id); err != nil {
			log.WithError(err).WithField("user_id", id).Error("[CRON] Не удалось поставить задачу генерации")
		}
	}

	log.WithField("users", len(ids)).Info("[CRON] Задачи генерации поставлены")
	return nil
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

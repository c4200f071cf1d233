// Package karma — service.go содержит бизнес-логику событий кармы.
//
// Приём события синхронный: валидация, запись в базу в состоянии
// «ожидает оценки», постановка фоновой задачи. Оценка асинхронная:
// воркер очереди karma_feedback вызывает ProcessFeedback.
package karma

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-tracker/internal/common"
	"serotonyl.ru/karma-tracker/internal/events"
	"serotonyl.ru/karma-tracker/internal/oracle"
	"serotonyl.ru/karma-tracker/internal/queue"
)

// Repo — хранилище событий, нужное сервису.
type Repo interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Event, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	SetFeedback(ctx context.Context, id int64, intensity int, feedback string) (bool, error)
	MarkFeedbackFailed(ctx context.Context, id int64) error
	ListUnscoredBefore(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
}

// Enqueuer — постановка задач в очередь.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, dedupKey string, payload any) error
}

// Service управляет событиями кармы.
type Service struct {
	repo   Repo
	queue  Enqueuer
	bus    events.Publisher
	oracle oracle.Oracle
}

// NewService создаёт сервис событий кармы.
func NewService(repo Repo, q Enqueuer, bus events.Publisher, o oracle.Oracle) *Service {
	return &Service{repo: repo, queue: q, bus: bus, oracle: o}
}

// CreateEvent принимает новое событие.
// Событие сразу сохраняется и доступно в списках; оценка придёт позже
// из фоновой задачи. Вызов не ждёт оракула.
func (s *Service) CreateEvent(ctx context.Context, userID int64, action, reflection string, occurredAt *time.Time) (*Event, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, common.ErrEmptyAction
	}

	e := &Event{
		UserID:     userID,
		Action:     action,
		Reflection: strings.TrimSpace(reflection),
		OccurredAt: time.Now(),
	}
	if occurredAt != nil {
		e.OccurredAt = *occurredAt
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	if err := s.enqueueFeedback(ctx, e.ID); err != nil {
		// Событие уже в базе — часовая сверка доставит задачу позже
		log.WithError(err).WithField("event_id", e.ID).
			Error("Не удалось поставить задачу оценки, подберёт сверка")
	}

	log.WithFields(log.Fields{
		"event_id": e.ID,
		"user_id":  userID,
	}).Info("Записано новое событие кармы")

	return e, nil
}

// ListMyEvents возвращает события пользователя, новые первыми.
func (s *Service) ListMyEvents(ctx context.Context, userID int64, limit int) ([]*Event, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// ProcessFeedback — обработчик задачи очереди karma_feedback.
// lastAttempt=true означает последнюю попытку: при ошибке оракула
// событие получает терминальный флаг feedback_failed.
func (s *Service) ProcessFeedback(ctx context.Context, eventID int64, lastAttempt bool) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if errors.Is(err, common.ErrEventNotFound) {
		// Событие исчезло — задача фатальна, но повторять бессмысленно
		log.WithField("event_id", eventID).Warn("Событие для оценки не найдено, задача снята")
		return nil
	}
	if err != nil {
		return err
	}
	if e.FeedbackGenerated {
		// Повторная доставка задачи — оценка уже на месте
		return nil
	}

	score, err := s.oracle.ScoreEvent(ctx, e.Action, e.Reflection)
	if err != nil {
		if lastAttempt {
			if mErr := s.repo.MarkFeedbackFailed(ctx, eventID); mErr != nil {
				log.WithError(mErr).WithField("event_id", eventID).
					Error("Не удалось взвести терминальный флаг")
			}
		}
		return fmt.Errorf("оценка события %d: %w", eventID, err)
	}

	updated, err := s.repo.SetFeedback(ctx, eventID, score.Intensity, score.Feedback)
	if err != nil {
		return err
	}
	if !updated {
		// Конкурирующая задача успела первой — это не ошибка
		return nil
	}

	log.WithFields(log.Fields{
		"event_id":  eventID,
		"user_id":   e.UserID,
		"intensity": score.Intensity,
	}).Info("Событие кармы оценено")

	s.emitMilestones(ctx, e.UserID)
	return nil
}

// ReenqueueStale — часовая сверка: заново ставит задачи оценки для
// событий, застрявших без оценки (например, постановка задачи
// потерялась при падении процесса). Дедупликация очереди делает
// повторную постановку безопасной.
func (s *Service) ReenqueueStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	ids, err := s.repo.ListUnscoredBefore(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.enqueueFeedback(ctx, id); err != nil {
			log.WithError(err).WithField("event_id", id).Warn("Сверка не смогла поставить задачу")
		}
	}
	return len(ids), nil
}

func (s *Service) enqueueFeedback(ctx context.Context, eventID int64) error {
	return s.queue.Enqueue(ctx, queue.QueueFeedback,
		fmt.Sprintf("event:%d", eventID),
		FeedbackPayload{EventID: eventID},
	)
}

// emitMilestones публикует сигналы порогов по общему числу событий.
func (s *Service) emitMilestones(ctx context.Context, userID int64) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось посчитать события для порогов")
		return
	}

	var kind events.Kind
	switch count {
	case 1:
		kind = events.FirstEvent
	case 10:
		kind = events.Milestone10
	case 50:
		kind = events.Milestone50
	case 100:
		kind = events.Milestone100
	default:
		return
	}
	s.bus.Publish(events.Signal{Kind: kind, UserID: userID})
}

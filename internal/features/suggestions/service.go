// Package suggestions — service.go содержит бизнес-логику рекомендаций.
//
// Генерация запускается триггером (вручную или планировщиком),
// задача уходит в очередь karma_suggestion, воркер вызывает
// ProcessSuggestions. Набор рекомендаций заменяется целиком.
package suggestions

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-tracker/internal/common"
	"serotonyl.ru/karma-tracker/internal/events"
	"serotonyl.ru/karma-tracker/internal/features/karma"
	"serotonyl.ru/karma-tracker/internal/features/users"
	"serotonyl.ru/karma-tracker/internal/oracle"
	"serotonyl.ru/karma-tracker/internal/queue"
)

// Repo — хранилище рекомендаций, нужное сервису.
type Repo interface {
	ReplaceForUser(ctx context.Context, userID int64, week int, texts []string, createdAt time.Time) ([]*Suggestion, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	ListByUser(ctx context.Context, userID int64) ([]*Suggestion, error)
	MarkUsed(ctx context.Context, userID, suggestionID int64) (bool, error)
}

// EventSource — события кармы пользователя (даёт репозиторий кармы).
type EventSource interface {
	ListByUserBetween(ctx context.Context, userID int64, from, to time.Time, limit int) ([]*karma.Event, error)
}

// UserSource — данные пользователя (дата регистрации для номера недели).
type UserSource interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// Enqueuer — постановка задач в очередь.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, dedupKey string, payload any) error
}

// Config — параметры конвейера рекомендаций.
type Config struct {
	// LookbackDays — резервное окно, если на текущей неделе событий нет
	LookbackDays int
	// MaxEvents — максимум событий, передаваемых оракулу
	MaxEvents int
	// Location — часовой пояс границ календарной недели
	Location *time.Location
}

// Service управляет рекомендациями.
type Service struct {
	repo     Repo
	eventsDB EventSource
	usersDB  UserSource
	queue    Enqueuer
	bus      events.Publisher
	oracle   oracle.Oracle
	cfg      Config
}

// NewService создаёт сервис рекомендаций.
func NewService(repo Repo, eventsDB EventSource, usersDB UserSource, q Enqueuer, bus events.Publisher, o oracle.Oracle, cfg Config) *Service {
	return &Service{
		repo:     repo,
		eventsDB: eventsDB,
		usersDB:  usersDB,
		queue:    q,
		bus:      bus,
		oracle:   o,
		cfg:      cfg,
	}
}

// TriggerGeneration ставит задачу генерации рекомендаций.
// Номер недели берётся от даты регистрации пользователя.
// Ключ дедупликации не пускает в очередь вторую задачу того же
// пользователя на ту же неделю.
func (s *Service) TriggerGeneration(ctx context.Context, userID int64) error {
	u, err := s.usersDB.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	week := common.WeeksSinceJoin(u.JoinedAt, time.Now())

	err = s.queue.Enqueue(ctx, queue.QueueSuggestion,
		fmt.Sprintf("user:%d:week:%d", userID, week),
		SuggestionPayload{UserID: userID, Week: week},
	)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"week":    week,
	}).Info("Поставлена задача генерации рекомендаций")
	return nil
}

// ProcessSuggestions — обработчик задачи очереди karma_suggestion.
//
// Берёт события текущей календарной недели; если их нет — резервное
// окно LookbackDays с потолком MaxEvents. Набор заменяется целиком:
// после запуска у пользователя ровно те строки, что вернул оракул,
// даже если он вернул пустой список.
func (s *Service) ProcessSuggestions(ctx context.Context, userID int64, week int) error {
	if _, err := s.usersDB.GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			log.WithField("user_id", userID).Warn("Пользователь для рекомендаций не найден, задача снята")
			return nil
		}
		return err
	}

	history, err := s.gatherEvents(ctx, userID)
	if err != nil {
		return err
	}

	texts, err := s.oracle.GenerateSuggestions(ctx, userID, history)
	if err != nil {
		return fmt.Errorf("генерация рекомендаций для пользователя %d: %w", userID, err)
	}
	// До замены запоминаем, был ли это первый набор
	prior, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.repo.ReplaceForUser(ctx, userID, week, texts, time.Now()); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"week":    week,
		"count":   len(texts),
	}).Info("Набор рекомендаций заменён")

	if prior == 0 && len(texts) > 0 {
		s.bus.Publish(events.Signal{Kind: events.FirstSuggestion, UserID: userID})
	}
	return nil
}

// ListMySuggestions возвращает рекомендации пользователя.
func (s *Service) ListMySuggestions(ctx context.Context, userID int64) ([]*Suggestion, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkUsed помечает рекомендацию выполненной.
func (s *Service) MarkUsed(ctx context.Context, userID, suggestionID int64) error {
	ok, err := s.repo.MarkUsed(ctx, userID, suggestionID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrSuggestionNotFound
	}
	return nil
}

// gatherEvents собирает историю для оракула: текущая календарная
// неделя, при пустом результате — резервное окно.
func (s *Service) gatherEvents(ctx context.Context, userID int64) ([]oracle.EventSummary, error) {
	start, end := common.CurrentCalendarWeek(s.cfg.Location)
	evs, err := s.eventsDB.ListByUserBetween(ctx, userID, start, end, s.cfg.MaxEvents)
	if err != nil {
		return nil, err
	}

	if len(evs) == 0 {
		now := time.Now().In(s.cfg.Location)
		from := now.AddDate(0, 0, -s.cfg.LookbackDays)
		evs, err = s.eventsDB.ListByUserBetween(ctx, userID, from, now, s.cfg.MaxEvents)
		if err != nil {
			return nil, err
		}
	}

	out := make([]oracle.EventSummary, 0, len(evs))
	for _, e := range evs {
		out = append(out, oracle.EventSummary{
			Action:     e.Action,
			Reflection: e.Reflection,
			Intensity:  e.Intensity,
			OccurredAt: e.OccurredAt,
		})
	}
	return out, nil
}

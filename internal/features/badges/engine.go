// Package badges — engine.go: движок выдачи бейджей.
// Подписывается на шину сигналов, отображает тип сигнала в код бейджа
// и идемпотентно выдаёт его. Вся защита от дублей — в операции выдачи,
// а не в доставке сигналов: сигналы могут приходить повторно.
package badges

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-tracker/internal/events"
)

// Repo — хранилище бейджей, нужное движку.
type Repo interface {
	GetByCode(ctx context.Context, code string) (*Badge, error)
	ListActive(ctx context.Context) ([]*Badge, error)
	Award(ctx context.Context, userID, badgeID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*Awarded, error)
}

// awardTimeout ограничивает обработку одного сигнала: движок работает
// в горутине публикующего и не должен держать её бесконечно.
const awardTimeout = 5 * time.Second

// codeBySignal отображает тип сигнала в код бейджа каталога.
var codeBySignal = map[events.Kind]string{
	events.FirstEvent:      CodeFirstEvent,
	events.Milestone10:     CodeEvents10,
	events.Milestone50:     CodeEvents50,
	events.Milestone100:    CodeEvents100,
	events.FirstSuggestion: CodeFirstSuggestion,
	events.Top10Ranked:     CodeTop10,
}

// Engine — движок выдачи бейджей.
type Engine struct {
	repo Repo
}

// NewEngine создаёт движок бейджей.
func NewEngine(repo Repo) *Engine {
	return &Engine{repo: repo}
}

// Register подписывает движок на все сигналы шины.
func (e *Engine) Register(bus *events.Bus) {
	bus.Subscribe(e.Handle)
}

// Handle обрабатывает один сигнал. Ошибки логируются и не
// распространяются: выдача бейджа не должна ронять конвейер,
// который опубликовал сигнал.
func (e *Engine) Handle(s events.Signal) {
	code, ok := codeBySignal[s.Kind]
	if !ok {
		log.WithField("kind", s.Kind).Warn("Сигнал без бейджа, пропускаем")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), awardTimeout)
	defer cancel()

	badge, err := e.repo.GetByCode(ctx, code)
	if err != nil {
		log.WithError(err).WithField("code", code).Error("Бейдж не найден в каталоге")
		return
	}
	if !badge.Active {
		return
	}

	created, err := e.repo.Award(ctx, s.UserID, badge.ID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": s.UserID,
			"code":    code,
		}).Error("Не удалось выдать бейдж")
		return
	}
	if created {
		log.WithFields(log.Fields{
			"user_id": s.UserID,
			"code":    code,
		}).Info("Выдан бейдж")
	}
}

// Catalog возвращает активные бейджи каталога.
func (e *Engine) Catalog(ctx context.Context) ([]*Badge, error) {
	return e.repo.ListActive(ctx)
}

// ListMyBadges возвращает бейджи пользователя.
func (e *Engine) ListMyBadges(ctx context.Context, userID int64) ([]*Awarded, error) {
	return e.repo.ListByUser(ctx, userID)
}

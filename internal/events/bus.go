// Package events — внутренняя шина доменных сигналов.
// Конвейеры публикуют сигналы о достижении порогов (первое событие,
// десятое событие, первая рекомендация, попадание в топ-10),
// движок бейджей подписывается и реагирует.
//
// Шина намеренно внутрипроцессная: список подписчиков явный,
// доставка синхронная в горутине публикующего. Паника подписчика
// не роняет публикующего.
package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Kind — тип доменного сигнала.
type Kind string

// Сигналы порогов, на которые реагирует движок бейджей.
const (
	// FirstEvent — пользователь записал первое событие кармы
	FirstEvent Kind = "first_event"
	// Milestone10 — десятое событие
	Milestone10 Kind = "milestone_10"
	// Milestone50 — пятидесятое событие
	Milestone50 Kind = "milestone_50"
	// Milestone100 — сотое событие
	Milestone100 Kind = "milestone_100"
	// FirstSuggestion — сгенерирован первый набор рекомендаций
	FirstSuggestion Kind = "first_suggestion"
	// Top10Ranked — пользователь попал в топ-10 недельного рейтинга
	Top10Ranked Kind = "top10_ranked"
)

// Signal — один доменный сигнал. Минимальный состав: тип и пользователь.
type Signal struct {
	Kind   Kind
	UserID int64
}

// Publisher — то, что нужно конвейерам от шины.
// Отдельный интерфейс, чтобы в тестах подставлять фейковую шину.
type Publisher interface {
	Publish(s Signal)
}

// Bus — шина с явным списком подписчиков.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Signal)
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe добавляет подписчика. Подписчик получает все сигналы.
func (b *Bus) Subscribe(fn func(Signal)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish доставляет сигнал всем подписчикам синхронно.
// Паника подписчика логируется и не прерывает доставку остальным.
func (b *Bus) Publish(s Signal) {
	b.mu.RLock()
	subs := make([]func(Signal), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		b.deliver(fn, s)
	}
}

func (b *Bus) deliver(fn func(Signal), s Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"kind":    s.Kind,
				"user_id": s.UserID,
				"panic":   r,
			}).Error("Паника подписчика шины сигналов")
		}
	}()
	fn(s)
}

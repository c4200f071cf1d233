// Package queue — очередь фоновых задач поверх PostgreSQL.
// Задачи лежат в таблице jobs; воркеры забирают их через
// SELECT … FOR UPDATE SKIP LOCKED, поэтому несколько воркеров
// (и несколько экземпляров сервиса) не мешают друг другу.
//
// Очередей две: оценка событий кармы и генерация рекомендаций.
// Ключ дедупликации не даёт поставить вторую такую же задачу,
// пока первая ещё не завершилась.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Имена очередей.
const (
	// QueueFeedback — оценка события кармы оракулом
	QueueFeedback = "karma_feedback"
	// QueueSuggestion — генерация недельных рекомендаций
	QueueSuggestion = "karma_suggestion"
)

// Статусы задачи.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job — одна фоновая задача.
type Job struct {
	ID          uuid.UUID
	Queue       string
	Payload     []byte // JSON-полезная нагрузка
	DedupKey    string
	Status      string
	Attempts    int
	LastError   *string
	LastErrorAt *time.Time
	LockedAt    *time.Time
	HeartbeatAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Policy определяет, какие задачи воркер считает выполнимыми.
type Policy struct {
	// MaxAttempts — сколько всего попыток даётся задаче
	MaxAttempts int
	// RetryDelay — пауза перед повтором упавшей задачи
	RetryDelay time.Duration
	// StaleRunning — через сколько зависшая running-задача
	// возвращается в работу (воркер умер, не сняв блокировку)
	StaleRunning time.Duration
}

// Store — хранилище задач. Интерфейс, чтобы воркер тестировался
// на памяти без базы.
type Store interface {
	// Enqueue ставит задачу. Если в очереди уже есть живая задача
	// с тем же ключом дедупликации — тихо ничего не делает.
	Enqueue(ctx context.Context, queue, dedupKey string, payload any) error

	// ClaimNext атомарно забирает следующую выполнимую задачу
	// и помечает её running. Возвращает nil, если задач нет.
	ClaimNext(ctx context.Context, queue string, p Policy) (*Job, error)

	// Heartbeat обновляет heartbeat_at выполняемой задачи, чтобы
	// долго работающий обработчик не был принят за умерший воркер.
	Heartbeat(ctx context.Context, id uuid.UUID) error

	// MarkDone помечает задачу выполненной.
	MarkDone(ctx context.Context, id uuid.UUID) error

	// MarkFailed записывает ошибку попытки. Задача вернётся в работу
	// через RetryDelay, пока не исчерпает MaxAttempts.
	MarkFailed(ctx context.Context, id uuid.UUID, jobErr error) error
}

// DecodePayload разбирает полезную нагрузку задачи в v.
func DecodePayload(j *Job, v any) error {
	return json.Unmarshal(j.Payload, v)
}

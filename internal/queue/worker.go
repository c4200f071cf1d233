// Package queue — worker.go: воркер одной очереди.
// Воркер опрашивает хранилище по тикеру, выполняет задачи по одной
// и никогда не падает сам: паники обработчика превращаются в ошибку
// задачи, ошибки логируются на границе задачи.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// HandlerFunc выполняет одну задачу.
// Ошибка означает «попытка не удалась»: задача уйдёт на повтор,
// пока не исчерпает попытки из Policy.
type HandlerFunc func(ctx context.Context, job *Job) error

// Worker обслуживает одну очередь.
type Worker struct {
	store   Store
	queue   string
	handler HandlerFunc
	policy  Policy
	poll    time.Duration
	log     *log.Entry
}

// NewWorker создаёт воркер очереди queue с обработчиком handler.
func NewWorker(store Store, queue string, handler HandlerFunc, policy Policy, poll time.Duration) *Worker {
	return &Worker{
		store:   store,
		queue:   queue,
		handler: handler,
		policy:  policy,
		poll:    poll,
		log:     log.WithField("queue", queue),
	}
}

// Start запускает цикл воркера в отдельной горутине.
// Останавливается по отмене контекста.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.poll)
		defer ticker.Stop()

		w.log.Info("Воркер очереди запущен")
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Воркер очереди остановлен")
				return
			case <-ticker.C:
				// Выгребаем всё накопившееся, а не по задаче на тик
				for w.runOne(ctx) {
				}
			}
		}
	}()
}

// runOne забирает и выполняет одну задачу.
// Возвращает true, если задача была — значит стоит опросить ещё раз.
func (w *Worker) runOne(ctx context.Context) bool {
	job, err := w.store.ClaimNext(ctx, w.queue, w.policy)
	if err != nil {
		if ctx.Err() == nil {
			w.log.WithError(err).Warn("Не удалось забрать задачу")
		}
		return false
	}
	if job == nil {
		return false
	}

	jlog := w.log.WithFields(log.Fields{
		"job_id":  job.ID,
		"attempt": job.Attempts,
	})

	if err := w.execute(ctx, job); err != nil {
		if job.Attempts >= w.policy.MaxAttempts {
			jlog.WithError(err).Error("Задача исчерпала попытки")
		} else {
			jlog.WithError(err).Warn("Попытка задачи не удалась, будет повтор")
		}
		if mErr := w.store.MarkFailed(ctx, job.ID, err); mErr != nil {
			jlog.WithError(mErr).Error("Не удалось записать падение задачи")
		}
		return true
	}

	if err := w.store.MarkDone(ctx, job.ID); err != nil {
		jlog.WithError(err).Error("Не удалось пометить задачу выполненной")
	}
	return true
}

// execute выполняет обработчик, превращая панику в ошибку задачи.
// На время выполнения периодически обновляется heartbeat задачи,
// чтобы обработчик, легально работающий дольше StaleRunning,
// не был заново забран другим экземпляром сервиса.
func (w *Worker) execute(ctx context.Context, job *Job) (err error) {
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.keepAlive(hbCtx, job.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника обработчика: %v", r)
		}
	}()
	return w.handler(ctx, job)
}

// keepAlive обновляет heartbeat задачи, пока обработчик работает.
// Интервал — треть порога протухания, чтобы пара пропущенных
// обновлений ещё не приводила к перезабору.
func (w *Worker) keepAlive(ctx context.Context, id uuid.UUID) {
	interval := w.policy.StaleRunning / 3
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(ctx, id); err != nil && ctx.Err() == nil {
				w.log.WithError(err).WithField("job_id", id).Warn("Не удалось обновить heartbeat задачи")
			}
		}
	}
}

// Package queue — pgstore.go: хранилище задач в PostgreSQL.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore хранит задачи в таблице jobs.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore создаёт хранилище задач.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Enqueue ставит задачу в очередь.
// Частичный уникальный индекс по (queue, dedup_key) для живых задач
// превращает повторную постановку в no-op.
func (s *PGStore) Enqueue(ctx context.Context, queue, dedupKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация полезной нагрузки: %w", err)
	}

	query := `
		INSERT INTO jobs (id, queue, payload, dedup_key, status)
		VALUES ($1, $2, $3, $4, 'queued')
		ON CONFLICT (queue, dedup_key) WHERE status IN ('queued', 'running')
		DO NOTHING
	`
	_, err = s.db.Exec(ctx, query, uuid.New(), queue, raw, dedupKey)
	if err != nil {
		return fmt.Errorf("ошибка постановки задачи в очередь %s: %w", queue, err)
	}
	return nil
}

// ClaimNext забирает следующую выполнимую задачу.
// Выполнимая — это queued, либо failed с неисчерпанными попытками
// и прошедшей паузой, либо running с протухшим heartbeat.
func (s *PGStore) ClaimNext(ctx context.Context, queue string, p Policy) (*Job, error) {
	now := time.Now()
	retryCutoff := now.Add(-p.RetryDelay)
	staleCutoff := now.Add(-p.StaleRunning)

	query := `
		WITH next AS (
			SELECT id FROM jobs
			WHERE queue = $1 AND (
				status = 'queued'
				OR (status = 'failed' AND attempts < $2
				    AND (last_error_at IS NULL OR last_error_at < $3))
				OR (status = 'running' AND heartbeat_at IS NOT NULL
				    AND heartbeat_at < $4)
			)
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs j
		SET status = 'running', attempts = j.attempts + 1,
		    locked_at = NOW(), heartbeat_at = NOW(), updated_at = NOW()
		FROM next
		WHERE j.id = next.id
		RETURNING j.id, j.queue, j.payload, j.dedup_key, j.status, j.attempts,
		          j.last_error, j.last_error_at, j.locked_at, j.heartbeat_at,
		          j.created_at, j.updated_at
	`
	var j Job
	err := s.db.QueryRow(ctx, query, queue, p.MaxAttempts, retryCutoff, staleCutoff).Scan(
		&j.ID, &j.Queue, &j.Payload, &j.DedupKey, &j.Status, &j.Attempts,
		&j.LastError, &j.LastErrorAt, &j.LockedAt, &j.HeartbeatAt,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки задачи из очереди %s: %w", queue, err)
	}
	return &j, nil
}

// Heartbeat отмечает, что задача всё ещё выполняется.
// Обновляется только running-строка: заново забранную после
// ложного «протухания» задачу чужой heartbeat не трогает.
func (s *PGStore) Heartbeat(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET heartbeat_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'running'
	`
	_, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления heartbeat задачи %s: %w", id, err)
	}
	return nil
}

// MarkDone помечает задачу выполненной.
func (s *PGStore) MarkDone(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = 'done', last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка завершения задачи %s: %w", id, err)
	}
	return nil
}

// MarkFailed записывает ошибку попытки.
func (s *PGStore) MarkFailed(ctx context.Context, id uuid.UUID, jobErr error) error {
	query := `
		UPDATE jobs
		SET status = 'failed', last_error = $2, last_error_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query, id, jobErr.Error())
	if err != nil {
		return fmt.Errorf("ошибка записи падения задачи %s: %w", id, err)
	}
	return nil
}

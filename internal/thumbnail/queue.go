package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/filedepot/filedepot/internal/common"
	"github.com/filedepot/filedepot/pkg/types"
)

// queueKey is the redis list carrying queued jobs.
const queueKey = "thumbnail_jobs"

// Job is a unit of thumbnail derivation work as carried on the queue.
type Job struct {
	ID      uuid.UUID `json:"id"`
	FileID  uuid.UUID `json:"file_id"`
	UserID  uuid.UUID `json:"user_id"`
	Attempt int       `json:"attempt"`
}

// Queue decouples upload requests from thumbnail derivation. Enqueue never
// blocks on the worker side.
type Queue interface {
	// Enqueue appends a fresh job for the given file
	Enqueue(ctx context.Context, fileID, userID uuid.UUID) error

	// Requeue puts a previously dequeued job back for another attempt
	Requeue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available or ctx is done
	Dequeue(ctx context.Context) (Job, error)
}

// RedisQueue is the durable queue: jobs ride a redis list, and every fresh
// job also gets a tracking row in the metadata store.
type RedisQueue struct {
	cache *common.Cache
	db    *common.Database
}

// NewRedisQueue creates a queue on the given cache and database handles.
func NewRedisQueue(cache *common.Cache, db *common.Database) *RedisQueue {
	return &RedisQueue{cache: cache, db: db}
}

// Enqueue appends a Queued job and records it for observability.
func (q *RedisQueue) Enqueue(ctx context.Context, fileID, userID uuid.UUID) error {
	job := Job{ID: uuid.New(), FileID: fileID, UserID: userID}

	record := &types.ThumbnailJob{
		ID:     job.ID,
		FileID: fileID,
		UserID: userID,
		Status: types.JobQueued,
	}
	if err := q.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}

	if err := q.push(ctx, job); err != nil {
		return err
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("file_id", fileID.String()).
		Msg("thumbnail job enqueued")
	return nil
}

// Requeue puts a job back on the list for another attempt.
func (q *RedisQueue) Requeue(ctx context.Context, job Job) error {
	return q.push(ctx, job)
}

// Dequeue blocks until a job arrives. It returns ctx.Err() once the
// context is cancelled.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		value, err := q.cache.BRPop(ctx, 5*time.Second, queueKey)
		if err != nil {
			if errors.Is(err, common.ErrCacheMiss) {
				if ctx.Err() != nil {
					return Job{}, ctx.Err()
				}
				continue
			}
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, err
		}

		var job Job
		if err := json.Unmarshal([]byte(value), &job); err != nil {
			// A malformed entry is dropped, not retried forever.
			log.Error().Err(err).Str("payload", value).Msg("discarding malformed job payload")
			continue
		}
		return job, nil
	}
}

func (q *RedisQueue) push(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.cache.LPush(ctx, queueKey, string(payload)); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// MemoryQueue is a channel-backed queue for tests and single-process runs.
type MemoryQueue struct {
	jobs chan Job
}

// NewMemoryQueue creates an in-memory queue with the given capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan Job, capacity)}
}

// Enqueue appends a fresh job. A full queue is an error rather than a
// blocked upload.
func (q *MemoryQueue) Enqueue(ctx context.Context, fileID, userID uuid.UUID) error {
	return q.offer(Job{ID: uuid.New(), FileID: fileID, UserID: userID})
}

// Requeue puts a dequeued job back.
func (q *MemoryQueue) Requeue(ctx context.Context, job Job) error {
	return q.offer(job)
}

// Dequeue blocks until a job is available or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (q *MemoryQueue) offer(job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return errors.New("queue full")
	}
}

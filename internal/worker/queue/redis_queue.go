// Package queue is the Redis-backed publish queue: a list of job ids plus
// one hash per job holding its status.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"menuforge/internal/models"
)

// DefaultName is the list key job ids are pushed to.
const DefaultName = "menuforge:publish"

// DefaultJobTTL bounds how long a job hash outlives its last update.
const DefaultJobTTL = 7 * 24 * time.Hour

// ErrJobNotFound is returned by Get for unknown or expired jobs.
var ErrJobNotFound = errors.New("publish job not found")

// Client is the subset of *redis.Client used by RedisQueue.
type Client interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisQueue struct {
	rdb       Client
	queueName string
	jobTTL    time.Duration
}

func NewRedisQueue(rdb Client, queueName string) *RedisQueue {
	if queueName == "" {
		queueName = DefaultName
	}
	return &RedisQueue{rdb: rdb, queueName: queueName, jobTTL: DefaultJobTTL}
}

// Name returns the list key.
func (q *RedisQueue) Name() string { return q.queueName }

func (q *RedisQueue) jobKey(id string) string {
	return q.queueName + ":job:" + id
}

// Enqueue stores job and pushes its id.
func (q *RedisQueue) Enqueue(ctx context.Context, job models.PublishJob) error {
	if err := q.Save(ctx, job); err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.queueName, job.ID).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

// Pop blocks up to timeout for the next job id (BRPOP). It returns "" when
// the wait expires without a job.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// Get loads one job.
func (q *RedisQueue) Get(ctx context.Context, id string) (models.PublishJob, error) {
	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return models.PublishJob{}, fmt.Errorf("load job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return models.PublishJob{}, ErrJobNotFound
	}
	return decodeJob(fields)
}

// Save overwrites the job hash and refreshes its TTL.
func (q *RedisQueue) Save(ctx context.Context, job models.PublishJob) error {
	key := q.jobKey(job.ID)
	if err := q.rdb.HSet(ctx, key, encodeJob(job)).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	if err := q.rdb.Expire(ctx, key, q.jobTTL).Err(); err != nil {
		return fmt.Errorf("expire job %s: %w", job.ID, err)
	}
	return nil
}

// Delete drops the job hash. A queued id whose hash is gone is skipped by
// the worker.
func (q *RedisQueue) Delete(ctx context.Context, id string) error {
	return q.rdb.Del(ctx, q.jobKey(id)).Err()
}

func encodeJob(j models.PublishJob) map[string]any {
	return map[string]any{
		"id":          j.ID,
		"menuId":      j.MenuID,
		"userId":      j.UserID,
		"format":      j.Format,
		"template":    j.Template,
		"visibleOnly": strconv.FormatBool(j.VisibleOnly),
		"status":      string(j.Status),
		"objectKey":   j.ObjectKey,
		"url":         j.URL,
		"size":        strconv.FormatInt(j.Size, 10),
		"error":       j.Error,
		"createdAt":   formatTime(&j.CreatedAt),
		"startedAt":   formatTime(j.StartedAt),
		"finishedAt":  formatTime(j.FinishedAt),
	}
}

func decodeJob(f map[string]string) (models.PublishJob, error) {
	j := models.PublishJob{
		ID:        f["id"],
		MenuID:    f["menuId"],
		UserID:    f["userId"],
		Format:    f["format"],
		Template:  f["template"],
		Status:    models.PublishStatus(f["status"]),
		ObjectKey: f["objectKey"],
		URL:       f["url"],
		Error:     f["error"],
	}
	j.VisibleOnly, _ = strconv.ParseBool(f["visibleOnly"])
	if s := f["size"]; s != "" {
		size, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return models.PublishJob{}, fmt.Errorf("job %s: bad size %q", j.ID, s)
		}
		j.Size = size
	}

	created, err := parseTime(f["createdAt"])
	if err != nil {
		return models.PublishJob{}, fmt.Errorf("job %s: %w", j.ID, err)
	}
	if created != nil {
		j.CreatedAt = *created
	}
	if j.StartedAt, err = parseTime(f["startedAt"]); err != nil {
		return models.PublishJob{}, fmt.Errorf("job %s: %w", j.ID, err)
	}
	if j.FinishedAt, err = parseTime(f["finishedAt"]); err != nil {
		return models.PublishJob{}, fmt.Errorf("job %s: %w", j.ID, err)
	}
	return j, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q", s)
	}
	return &t, nil
}

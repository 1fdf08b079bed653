package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"menuforge/internal/adapters/storage/localfs"
	"menuforge/internal/menutree"
	"menuforge/internal/metrics"
	"menuforge/internal/models"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/repositories/jsonfile"
	"menuforge/internal/worker/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// chanRedis delivers pushed ids over a channel so BRPop can block.
type chanRedis struct {
	ids     chan string
	popErrs atomic.Int32

	mu     sync.Mutex
	hashes map[string]map[string]string
}

func newChanRedis() *chanRedis {
	return &chanRedis{ids: make(chan string, 16), hashes: map[string]map[string]string{}}
}

func (c *chanRedis) LPush(_ context.Context, _ string, values ...any) *redis.IntCmd {
	for _, v := range values {
		c.ids <- fmt.Sprint(v)
	}
	return redis.NewIntResult(int64(len(c.ids)), nil)
}

func (c *chanRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	if c.popErrs.Load() > 0 {
		c.popErrs.Add(-1)
		return redis.NewStringSliceResult(nil, errors.New("connection reset"))
	}
	select {
	case id := <-c.ids:
		return redis.NewStringSliceResult([]string{keys[0], id}, nil)
	case <-ctx.Done():
		return redis.NewStringSliceResult(nil, ctx.Err())
	case <-time.After(timeout):
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
}

func (c *chanRedis) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := map[string]string{}
	for k, v := range values[0].(map[string]any) {
		h[k] = fmt.Sprint(v)
	}
	c.hashes[key] = h
	return redis.NewIntResult(int64(len(h)), nil)
}

func (c *chanRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]string{}
	for k, v := range c.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (c *chanRedis) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (c *chanRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.hashes, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func startWorker(t *testing.T, rdb *chanRedis) (root string, stop func() error) {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.CreateMenu(context.Background(), models.Menu{
		ID:     "m1",
		UserID: "u1",
		Name:   "Main",
		Items:  []menutree.Item{{ID: "a", Text: "Home"}},
	}))

	root = t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Deps{
			Store:      store,
			RDB:        rdb,
			QueueName:  "q",
			SP:         localfs.New(root),
			Metrics:    metrics.New(),
			Log:        logger.New(logger.Config{Output: io.Discard}),
			PopTimeout: 20 * time.Millisecond,
			RetryDelay: 5 * time.Millisecond,
		})
	}()
	return root, func() error {
		cancel()
		return <-done
	}
}

func TestRunPublishesQueuedJob(t *testing.T) {
	rdb := newChanRedis()
	q := queue.NewRedisQueue(rdb, "q")
	root, stop := startWorker(t, rdb)

	require.NoError(t, q.Enqueue(context.Background(), models.PublishJob{
		ID:        "j1",
		MenuID:    "m1",
		Format:    "json",
		Status:    models.PublishQueued,
		CreatedAt: time.Now(),
	}))

	require.Eventually(t, func() bool {
		job, err := q.Get(context.Background(), "j1")
		return err == nil && job.Status == models.PublishDone
	}, 2*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, stop(), context.Canceled)

	_, err := os.Stat(filepath.Join(root, "exports", "m1", "j1.json"))
	assert.NoError(t, err)
}

func TestRunSurvivesPopErrors(t *testing.T) {
	rdb := newChanRedis()
	rdb.popErrs.Store(3)
	q := queue.NewRedisQueue(rdb, "q")
	_, stop := startWorker(t, rdb)

	require.NoError(t, q.Enqueue(context.Background(), models.PublishJob{
		ID:     "j2",
		MenuID: "missing",
		Format: "json",
		Status: models.PublishQueued,
	}))

	require.Eventually(t, func() bool {
		job, err := q.Get(context.Background(), "j2")
		return err == nil && job.Status == models.PublishFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestRunStopsOnCancel(t *testing.T) {
	_, stop := startWorker(t, newChanRedis())
	assert.ErrorIs(t, stop(), context.Canceled)
}

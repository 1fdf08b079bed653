package processor

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuforge/internal/adapters/storage/localfs"
	"menuforge/internal/export"
	"menuforge/internal/menutree"
	"menuforge/internal/metrics"
	"menuforge/internal/models"
	"menuforge/internal/pkg/errors"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/repositories/jsonfile"
	"menuforge/internal/templates"
)

type memJobs struct {
	mu    sync.Mutex
	jobs  map[string]models.PublishJob
	saves []models.PublishStatus
}

func newMemJobs(jobs ...models.PublishJob) *memJobs {
	m := &memJobs{jobs: map[string]models.PublishJob{}}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memJobs) Get(_ context.Context, id string) (models.PublishJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.PublishJob{}, errors.NotFound("job", id)
	}
	return j, nil
}

func (m *memJobs) Save(_ context.Context, job models.PublishJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.saves = append(m.saves, job.Status)
	return nil
}

type fixture struct {
	proc    *Processor
	jobs    *memJobs
	store   *jsonfile.Store
	root    string
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, jobs ...models.PublishJob) fixture {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.CreateMenu(ctx, models.Menu{
		ID:     "m1",
		UserID: "u1",
		Name:   "Main nav",
		Items: []menutree.Item{
			{ID: "a", Text: "Home", URI: "/", Children: []menutree.Item{}},
			{ID: "b", Text: "Hidden", Visible: new(bool)},
		},
	}))
	require.NoError(t, store.ReplaceTemplates(ctx, []models.Template{
		{Name: "default", Value: "<li>{text}</li>"},
		{Name: "nav", Value: "<li class=\"nav\">{text}</li>"},
	}))

	root := t.TempDir()
	m := metrics.New()
	mem := newMemJobs(jobs...)
	clock := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	return fixture{
		proc: New(Deps{
			Store:   store,
			Jobs:    mem,
			SP:      localfs.New(root),
			Metrics: m,
			Log:     logger.New(logger.Config{Output: io.Discard}),
			Now:     func() time.Time { return clock },
		}),
		jobs:    mem,
		store:   store,
		root:    root,
		metrics: m,
	}
}

func queued(id, menuID, format string) models.PublishJob {
	return models.PublishJob{ID: id, MenuID: menuID, UserID: "u1", Format: format, Status: models.PublishQueued}
}

func TestProcessJSON(t *testing.T) {
	job := queued("j1", "m1", "json")
	job.VisibleOnly = true
	f := newFixture(t, job)

	require.NoError(t, f.proc.ProcessJob(context.Background(), "j1"))

	got, _ := f.jobs.Get(context.Background(), "j1")
	assert.Equal(t, models.PublishDone, got.Status)
	assert.Equal(t, "exports/m1/j1.json", got.ObjectKey)
	assert.NotEmpty(t, got.URL)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
	assert.Equal(t, []models.PublishStatus{models.PublishRunning, models.PublishDone}, f.jobs.saves)

	body, err := os.ReadFile(filepath.Join(f.root, "exports", "m1", "j1.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), got.Size)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1, "hidden items are pruned")
	assert.Equal(t, "Home", items[0]["text"])
	assert.NotContains(t, items[0], "children")
}

func TestProcessPHPUsesNamedTemplate(t *testing.T) {
	job := queued("j2", "m1", "php")
	job.Template = "nav"
	f := newFixture(t, job)

	require.NoError(t, f.proc.ProcessJob(context.Background(), "j2"))

	body, err := os.ReadFile(filepath.Join(f.root, "exports", "m1", "j2.php"))
	require.NoError(t, err)
	assert.Contains(t, string(body), `<li class="nav">{text}</li>`)
	assert.Equal(t, export.Code(`<li class="nav">{text}</li>`), string(body))
}

func TestProcessUnknownTemplateFallsBack(t *testing.T) {
	job := queued("j3", "m1", "php")
	job.Template = "missing"
	f := newFixture(t, job)

	require.NoError(t, f.proc.ProcessJob(context.Background(), "j3"))
	body, err := os.ReadFile(filepath.Join(f.root, "exports", "m1", "j3.php"))
	require.NoError(t, err)
	assert.Equal(t, export.Code(templates.DefaultBody), string(body))
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name     string
		job      models.PublishJob
		wantCode errors.Code
		wantText string
	}{
		{
			name:     "missing menu",
			job:      queued("j4", "nope", "json"),
			wantCode: errors.CodeNotFound,
			wantText: "menu not found: nope",
		},
		{
			name:     "bad format",
			job:      queued("j5", "m1", "pdf"),
			wantCode: errors.CodeValidation,
			wantText: "unsupported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.job)
			err := f.proc.ProcessJob(context.Background(), tt.job.ID)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))

			got, _ := f.jobs.Get(context.Background(), tt.job.ID)
			assert.Equal(t, models.PublishFailed, got.Status)
			assert.Contains(t, got.Error, tt.wantText)
			assert.NotNil(t, got.FinishedAt)
		})
	}
}

func TestProcessUnknownJob(t *testing.T) {
	f := newFixture(t)
	err := f.proc.ProcessJob(context.Background(), "ghost")
	require.Error(t, err)
	assert.Empty(t, f.jobs.saves, "nothing to mark")
}

func TestProcessSkipsFinishedJob(t *testing.T) {
	job := queued("j6", "m1", "json")
	job.Status = models.PublishDone
	f := newFixture(t, job)

	require.NoError(t, f.proc.ProcessJob(context.Background(), "j6"))
	assert.Empty(t, f.jobs.saves)
}

func TestFailJobTruncatesError(t *testing.T) {
	f := newFixture(t, queued("j7", "m1", "json"))
	long := strings.Repeat("x", maxErrorLen+500)

	_ = f.proc.failJob(context.Background(), queued("j7", "m1", "json"), errors.Internal(long))

	got, _ := f.jobs.Get(context.Background(), "j7")
	assert.Len(t, got.Error, maxErrorLen)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"añb", 2, "a"},
		{"añb", 3, "añ"},
		{"日本語", 4, "日"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.n)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestFailJobStoresValidUTF8(t *testing.T) {
	f := newFixture(t, queued("j8", "m1", "json"))
	long := strings.Repeat("é", maxErrorLen)

	_ = f.proc.failJob(context.Background(), queued("j8", "m1", "json"), errors.Internal(long))

	got, _ := f.jobs.Get(context.Background(), "j8")
	assert.LessOrEqual(t, len(got.Error), maxErrorLen)
	assert.True(t, utf8.ValidString(got.Error))
}

func TestProcessRejectsJobWithoutMenu(t *testing.T) {
	f := newFixture(t, queued("j9", "", "json"))

	err := f.proc.ProcessJob(context.Background(), "j9")
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))

	got, _ := f.jobs.Get(context.Background(), "j9")
	assert.Equal(t, models.PublishFailed, got.Status)
	assert.Contains(t, got.Error, "publish job has no menu id")
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "exports/m1/j1.php", ObjectKey("m1", "j1", export.FormatPHP))
}

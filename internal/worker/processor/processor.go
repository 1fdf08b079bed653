package processor

import (
	"context"
	"time"
	"unicode/utf8"

	"menuforge/internal/export"
	"menuforge/internal/metrics"
	"menuforge/internal/models"
	"menuforge/internal/pkg/errors"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/ports"
	"menuforge/internal/templates"
)

// maxErrorLen caps the error text stored on a failed job.
const maxErrorLen = 2000

// Store is the part of the active backend a publish job reads.
type Store interface {
	GetMenu(ctx context.Context, id, owner string) (models.Menu, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
}

// JobStore loads and persists job state.
type JobStore interface {
	Get(ctx context.Context, id string) (models.PublishJob, error)
	Save(ctx context.Context, job models.PublishJob) error
}

type Deps struct {
	Store   Store
	Jobs    JobStore
	SP      ports.StorageProvider
	Metrics *metrics.Metrics
	Log     *logger.Logger
	// URLTTL is how long signed artifact links stay valid.
	URLTTL time.Duration
	Now    func() time.Time
}

type Processor struct {
	store   Store
	jobs    JobStore
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time

	output *OutputHandler
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	now := d.Now
	if now == nil {
		now = time.Now
	}

	return &Processor{
		store:   d.Store,
		jobs:    d.Jobs,
		metrics: d.Metrics,
		log:     log,
		now:     now,
		output:  NewOutputHandler(d.SP, d.URLTTL),
	}
}

// ProcessJob renders the job's menu and stores the artifact. The job hash
// ends DONE or FAILED; the returned error is the failure cause.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	log.Debug("fetching job")
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return errors.Wrap(err, "processor.fetch", "failed to fetch publish job")
	}
	if job.Status.Finished() {
		log.Info("job already finished, skipping", "status", string(job.Status))
		return nil
	}
	if job.MenuID == "" {
		return p.failJob(ctx, job, errors.Internal("publish job has no menu id"))
	}
	log = log.WithMenuID(job.MenuID)

	format, err := export.ParseFormat(job.Format)
	if err != nil {
		return p.failJob(ctx, job, errors.WrapWithCode(err, errors.CodeValidation, "processor.parse", "unsupported publish format"))
	}

	started := p.now().UTC()
	job.Status = models.PublishRunning
	job.StartedAt = &started
	job.FinishedAt = nil
	job.Error = ""
	if err := p.jobs.Save(ctx, job); err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.status", "failed to mark job as running"))
	}

	menu, err := p.store.GetMenu(ctx, job.MenuID, "")
	if err != nil {
		if errors.Is(err, ports.ErrMenuNotFound) {
			return p.failJob(ctx, job, errors.NotFound("menu", job.MenuID))
		}
		return p.failJob(ctx, job, errors.Wrap(err, "processor.menu", "failed to load menu"))
	}

	opts := export.Options{VisibleOnly: job.VisibleOnly}
	if format == export.FormatPHP {
		list, err := p.store.ListTemplates(ctx)
		if err != nil {
			return p.failJob(ctx, job, errors.Wrap(err, "processor.templates", "failed to load templates"))
		}
		opts.Template = templates.Lookup(list, job.Template)
	}

	log.Info("rendering artifact", "format", string(format), "items", len(menu.Items))
	art, err := export.Render(menu.Name, menu.Items, format, opts)
	if err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.render", "render failed"))
	}

	out, err := p.output.Upload(ctx, ObjectKey(job.MenuID, job.ID, format), art)
	if err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.outputs", "failed to store artifact"))
	}
	if out.URLErr != nil {
		log.Warn("artifact stored without link", "error", out.URLErr.Error())
	}
	log.Debug("artifact stored", "object_key", out.ObjectKey, "size", out.Size)

	finished := p.now().UTC()
	job.Status = models.PublishDone
	job.ObjectKey = out.ObjectKey
	job.Size = out.Size
	job.URL = out.URL
	job.FinishedAt = &finished
	if err := p.jobs.Save(ctx, job); err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.save", "failed to save job result"))
	}

	p.count(job.Status)
	if p.metrics != nil {
		p.metrics.Exports.Increment(string(format))
	}
	return nil
}

func (p *Processor) failJob(ctx context.Context, job models.PublishJob, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(job.ID)

	msg := ""
	if cause != nil {
		msg = truncate(cause.Error(), maxErrorLen)

		var coded *errors.Error
		if errors.As(cause, &coded) {
			log.WithFields(coded.Fields).Error("job failed",
				"code", string(coded.Code),
				"op", coded.Op,
				"message", coded.Message,
			)
		} else {
			log.Error("job failed", "error", msg)
		}
	}

	finished := p.now().UTC()
	job.Status = models.PublishFailed
	job.Error = msg
	job.FinishedAt = &finished
	if err := p.jobs.Save(ctx, job); err != nil {
		log.Warn("failed to record job failure", "error", err.Error())
	}
	p.count(job.Status)

	return cause
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (p *Processor) count(s models.PublishStatus) {
	if p.metrics != nil {
		p.metrics.PublishJobs.Increment(string(s))
	}
}

package batch

import (
	"context"
	"time"

	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/logger"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/consorcio/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultPresignExpiry is the lifetime of log download URLs
const DefaultPresignExpiry = 15 * time.Minute

// Job describes one batch to run
type Job struct {
	Operation bulk.Operation
	RunBy     string
	Role      string
	// Upload is nil for batches posted as JSON
	Upload *Upload
	// Rows is the number of input rows, reported as processed when the batch rolls back
	Rows int
	// Invalidate lists the cache keys made stale by a committed batch
	Invalidate []string
	// Run does the work inside the transaction. A returned error rolls the batch back;
	// row-level problems belong in the report log instead.
	Run func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error)
}

// Result is the outcome of a batch
type Result struct {
	Run             *bulk.BatchRun
	Report          ledger.BatchReport
	LogURL          string
	LogURLExpiresAt *time.Time
}

// RolledBack reports whether the batch was rolled back
func (r *Result) RolledBack() bool {
	return r.Run != nil && r.Run.Status == bulk.RunStatusRolledBack
}

// Runner executes batch jobs
type Runner struct {
	scope         transaction.Scope
	cache         shared.Cache
	archive       ArchiveStore
	presignExpiry time.Duration
	metrics       *telemetry.BatchMetrics
	logger        *zap.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithCache sets the cache invalidated after committed batches
func WithCache(c shared.Cache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithArchive enables archiving of uploads and logs
func WithArchive(store ArchiveStore, presignExpiry time.Duration) Option {
	return func(r *Runner) {
		r.archive = store
		if presignExpiry > 0 {
			r.presignExpiry = presignExpiry
		}
	}
}

// WithMetrics records batch metrics
func WithMetrics(m *telemetry.BatchMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the logger. Without it the runner logs through the logger attached
// to the request context.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner over the transaction scope
func NewRunner(scope transaction.Scope, opts ...Option) *Runner {
	r := &Runner{
		scope:         scope,
		presignExpiry: DefaultPresignExpiry,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs the job in one transaction and records the run. A rolled back batch is
// not an error: its report carries zero successes and a single Error line. Errors are
// returned only when the job itself is invalid.
func (r *Runner) Execute(ctx context.Context, job Job) (*Result, error) {
	fileName := ""
	if job.Upload != nil {
		fileName = job.Upload.FileName
	}
	run, err := bulk.NewBatchRun(job.Operation, fileName, job.Upload.Size(), job.RunBy)
	if err != nil {
		return nil, err
	}
	op := string(job.Operation)
	ctx = logger.WithBatch(ctx, run.ID.String(), op)
	log := logger.For(ctx, r.logger)

	ctx, span := telemetry.StartServiceSpan(ctx, "batch", op,
		telemetry.SpanAttrOperation, op,
		telemetry.SpanAttrRunID, run.ID.String(),
		telemetry.SpanAttrRows, job.Rows,
	)
	defer span.End()

	var report ledger.BatchReport
	var execErr error
	telemetry.WithProfilingLabels(ctx, telemetry.BatchLabels(op, job.Role), func(ctx context.Context) {
		execErr = r.scope.Execute(ctx, func(repos transaction.Repositories) error {
			rep, err := job.Run(ctx, repos)
			if err != nil {
				return err
			}
			if rep.Operation == "" {
				rep.Operation = op
			}
			done := *run
			if err := done.Finish(rep, false); err != nil {
				return err
			}
			if err := repos.BatchRuns().Save(ctx, &done); err != nil {
				return err
			}
			report, *run = rep, done
			return nil
		})
	})

	if execErr != nil {
		report = ledger.BatchReport{Operation: op, Processed: job.Rows}
		report.Fatal(execErr)
		telemetry.RecordError(span, execErr)
		if err := run.Finish(report, true); err == nil {
			if err := r.saveRun(ctx, run); err != nil {
				log.Warn("Failed to record rolled back batch", zap.Error(err))
			}
		}
	} else if err := shared.Invalidate(ctx, r.cache, job.Invalidate...); err != nil {
		log.Warn("Cache invalidation failed", zap.Strings("keys", job.Invalidate), zap.Error(err))
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrSucceeded, report.Succeeded)
	logger.LogBatch(ctx, r.logger, logger.BatchOutcome{
		Processed: report.Processed,
		Succeeded: report.Succeeded,
		Failed:    report.Count(ledger.LogError),
		Duration:  run.Duration(),
	}, execErr)
	r.metrics.RecordBatch(ctx, op, execErr != nil, report.Processed, statusCounts(report), run.Duration())

	res := &Result{Run: run, Report: report}
	r.archiveRun(ctx, log, job, res)
	return res, nil
}

func (r *Runner) saveRun(ctx context.Context, run *bulk.BatchRun) error {
	return r.scope.Execute(ctx, func(repos transaction.Repositories) error {
		return repos.BatchRuns().Save(ctx, run)
	})
}

// archiveRun stores the upload and the log. Archive failures never fail the batch.
func (r *Runner) archiveRun(ctx context.Context, log *zap.Logger, job Job, res *Result) {
	if r.archive == nil {
		return
	}
	run := res.Run
	uploadKey, logKey := ArchiveKeys(run.Operation, run.ID, run.StartedAt, run.FileName)

	if job.Upload != nil && len(job.Upload.Data) > 0 {
		contentType := "application/octet-stream"
		if format, err := spreadsheet.ParseFormat(job.Upload.FileName); err == nil {
			contentType = format.ContentType()
		}
		if err := r.archive.Upload(ctx, uploadKey, job.Upload.Data, contentType); err != nil {
			log.Warn("Failed to archive upload", zap.String("key", uploadKey), zap.Error(err))
			uploadKey = ""
		}
	} else {
		uploadKey = ""
	}

	data, err := RenderLog(res.Report, spreadsheet.FormatXLSX)
	if err == nil {
		err = r.archive.Upload(ctx, logKey, data, spreadsheet.ContentTypeXLSX)
	}
	if err != nil {
		log.Warn("Failed to archive batch log", zap.String("key", logKey), zap.Error(err))
		logKey = ""
	}
	if uploadKey == "" && logKey == "" {
		return
	}

	run.AttachArchive(uploadKey, logKey)
	if err := r.saveRun(ctx, run); err != nil {
		log.Warn("Failed to record archive keys", zap.Error(err))
	}
	if logKey == "" {
		return
	}
	url, expiresAt, err := r.archive.GenerateDownloadURL(ctx, logKey, r.presignExpiry)
	if err != nil {
		log.Warn("Failed to presign batch log", zap.String("key", logKey), zap.Error(err))
		return
	}
	res.LogURL = url
	res.LogURLExpiresAt = &expiresAt
}

func statusCounts(report ledger.BatchReport) map[string]int {
	counts := make(map[string]int, 5)
	for _, e := range report.Log {
		counts[string(e.Status)]++
	}
	return counts
}

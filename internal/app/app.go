package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"baniusync/internal/config"
	"baniusync/internal/journal"
	"baniusync/internal/metrics"
	"baniusync/internal/progress"
	"baniusync/internal/queue"
	"baniusync/internal/resolve"
	"baniusync/internal/storage"
	"baniusync/internal/worker"
)

// ErrNoSelection is returned when an upload is started with nothing selected
var ErrNoSelection = errors.New("please select files or directories first")

// Uploader runs upload sessions against one bucket
type Uploader struct {
	cfg       *config.Config
	logger    *zap.Logger
	fs        billy.Filesystem
	factory   storage.Factory
	journal   journal.Store
	metrics   *metrics.Collector
	pending   *queue.Pending
	completed *queue.Completed
	session   string
	server    *http.Server
}

// Option customizes an Uploader
type Option func(*Uploader)

// WithFilesystem replaces the local filesystem files are read from
func WithFilesystem(fs billy.Filesystem) Option {
	return func(u *Uploader) { u.fs = fs }
}

// WithStorageFactory replaces the storage client factory
func WithStorageFactory(factory storage.Factory) Option {
	return func(u *Uploader) { u.factory = factory }
}

// WithJournal replaces the journal store
func WithJournal(store journal.Store) Option {
	return func(u *Uploader) { u.journal = store }
}

// New creates a new uploader instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Uploader, error) {
	u := &Uploader{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics.New(),
		pending:   queue.NewPending(),
		completed: queue.NewCompleted(),
		session:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(u)
	}

	if u.fs == nil {
		u.fs = osfs.New("/")
	}
	if u.factory == nil {
		u.factory = storage.NewFactory(cfg.StorageConfig())
	}
	if u.journal == nil && cfg.Journal != "" && !cfg.Upload.DryRun {
		store, err := journal.NewSQLiteStore(cfg.Journal)
		if err != nil {
			logger.Warn("Journal unavailable, uploads will not be recorded",
				zap.String("journal", cfg.Journal),
				zap.Error(err),
			)
		} else {
			u.journal = store
		}
	}

	return u, nil
}

// Session returns the id this uploader records uploads under
func (u *Uploader) Session() string {
	return u.session
}

// Completed returns the filekeys uploaded so far
func (u *Uploader) Completed() []string {
	return u.completed.Keys()
}

// Plan resolves the selections into the items a session would upload
func (u *Uploader) Plan(selections []resolve.Selection) []queue.Item {
	return resolve.New(u.fs).Resolve(selections).Items()
}

// Run uploads the selected files and blocks until every worker has exited.
// Files that fail are only visible as a completed count below the enqueued count.
func (u *Uploader) Run(ctx context.Context, selections []resolve.Selection) (worker.Report, error) {
	if err := u.cfg.Validate(); err != nil {
		return worker.Report{}, err
	}
	if len(selections) == 0 {
		return worker.Report{}, ErrNoSelection
	}

	items := u.Plan(selections)

	u.logger.Info("Starting upload",
		zap.String("session", u.session),
		zap.String("bucket", u.cfg.Credentials.BucketName),
		zap.String("provider", u.cfg.Storage.Provider),
		zap.String("prefix", u.cfg.Upload.Prefix),
		zap.Int("files", len(items)),
		zap.Int("workers", worker.PoolSize),
		zap.Bool("dry_run", u.cfg.Upload.DryRun),
	)

	if u.cfg.Upload.DryRun {
		for _, item := range items {
			u.logger.Info("Would upload",
				zap.String("key", u.cfg.Upload.Prefix+item.Filekey),
				zap.String("path", item.LocalPath),
			)
		}
		return worker.Report{Enqueued: len(items)}, nil
	}

	if u.cfg.MetricsAddr != "" && u.server == nil {
		server := u.metrics.NewServer(u.cfg.MetricsAddr)
		u.server = server
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				u.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	u.pending.Push(items...)
	u.metrics.SetTotalCounts(int64(len(items)), u.totalBytes(items))

	reporter := progress.NewReporter(u.completed, len(items), u.cfg.Upload.ShowProgress, u.metrics.GetProgressTracker(), u.logger)
	events := make(chan progress.Event, worker.PoolSize)
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		reporter.Run(events)
	}()

	pool := worker.NewPool(worker.Config{
		Prefix:  u.cfg.Upload.Prefix,
		Session: u.session,
	}, u.factory, u.fs, u.pending, u.completed, u.journal, u.metrics, u.logger.With(zap.String("session", u.session)))

	report, err := pool.Run(ctx, events)
	<-reported
	reporter.Finish()
	if err != nil {
		return report, err
	}

	status := u.metrics.GetProgressTracker().GetStatus()
	u.logger.Info("Upload finished",
		zap.Int("completed", report.Completed),
		zap.Int("enqueued", report.Enqueued),
		zap.Int64("failed", status.FailedFiles),
		zap.String("bytes", progress.FormatBytes(status.ProcessedBytes)),
		zap.String("elapsed", progress.FormatDuration(time.Since(status.StartTime))),
		zap.String("average_speed", progress.FormatSpeed(status.AverageSpeed)),
	)

	return report, nil
}

func (u *Uploader) totalBytes(items []queue.Item) int64 {
	var total int64
	for _, item := range items {
		if info, err := u.fs.Stat(item.LocalPath); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Clear empties both queues so the uploader can start a fresh session
func (u *Uploader) Clear() {
	u.pending.Clear()
	u.completed.Clear()
	u.session = uuid.NewString()
}

// Close stops the metrics server and closes the journal
func (u *Uploader) Close() error {
	var errs []error
	if u.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		u.server = nil
	}
	if u.journal != nil {
		if err := u.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package worker uploads queued files with a fixed pool of goroutines.
//
// Every worker repeats: if the pending queue looks non-empty, pop an item,
// open the file, save it through its own storage client, check the key the
// server confirmed, record the filekey as completed and emit an event. An
// error ends only the worker that hit it; the item it held is lost and the
// rest of the pool keeps draining the queue. There is no retry.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"baniusync/internal/journal"
	"baniusync/internal/metrics"
	"baniusync/internal/progress"
	"baniusync/internal/queue"
	"baniusync/internal/storage"
)

// PoolSize is the number of upload workers in a session
const PoolSize = 10

// Config contains worker configuration
type Config struct {
	Prefix  string // prepended to every filekey at upload time
	Session string // journal session id
}

// Report summarizes a finished pool run
type Report struct {
	Enqueued       int
	Completed      int
	WorkersStopped int // workers that ended on an error
}

// Pool manages a pool of upload workers
type Pool struct {
	size      int
	config    Config
	factory   storage.Factory
	fs        billy.Filesystem
	pending   *queue.Pending
	completed *queue.Completed
	journal   journal.Store
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewPool creates a new worker pool over the given queues.
// journalStore may be nil.
func NewPool(
	config Config,
	factory storage.Factory,
	fs billy.Filesystem,
	pending *queue.Pending,
	completed *queue.Completed,
	journalStore journal.Store,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		size:      PoolSize,
		config:    config,
		factory:   factory,
		fs:        fs,
		pending:   pending,
		completed: completed,
		journal:   journalStore,
		metrics:   metricsCollector,
		logger:    logger,
	}
}

// Run starts the workers and blocks until all of them have exited.
// Events for successful uploads are sent on events, which Run closes.
// The only error returned is a failure to build the storage clients, which
// happens before any upload starts; upload errors never leave the pool.
func (p *Pool) Run(ctx context.Context, events chan<- progress.Event) (Report, error) {
	defer close(events)

	report := Report{Enqueued: p.pending.Len()}

	clients := make([]storage.Client, p.size)
	for i := range clients {
		client, err := p.factory(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to create storage client: %w", err)
		}
		clients[i] = client
	}

	var (
		wg      sync.WaitGroup
		stopped atomic.Int32
	)
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := p.worker(ctx, id, clients[id], events); err != nil {
				stopped.Add(1)
			}
		}(i)
	}
	wg.Wait()

	report.Completed = p.completed.Len()
	report.WorkersStopped = int(stopped.Load())
	return report, nil
}

func (p *Pool) worker(ctx context.Context, id int, client storage.Client, events chan<- progress.Event) error {
	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	p.metrics.WorkerStarted()
	defer p.metrics.WorkerStopped()

	processor := &Processor{
		config:    p.config,
		client:    client,
		fs:        p.fs,
		completed: p.completed,
		journal:   p.journal,
		metrics:   p.metrics,
		logger:    logger,
	}

	for p.pending.Len() > 0 {
		item, ok := p.pending.Pop()
		if !ok {
			// another worker took the last item after the size check
			continue
		}

		ev, err := processor.Process(ctx, item)
		if err != nil {
			logger.Error("Worker stopped",
				zap.String("filekey", item.Filekey),
				zap.String("path", item.LocalPath),
				zap.Error(err),
			)
			return err
		}

		events <- ev
	}

	logger.Debug("Worker finished - no more files")
	return nil
}

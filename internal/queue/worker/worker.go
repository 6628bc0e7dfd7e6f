package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/givehub/internal/domain/job"
	"github.com/geocoder89/givehub/internal/notifications"
	"github.com/geocoder89/givehub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	WorkerID           string
	PollInterval       time.Duration
	Concurrency        int
	StaleLockTTL       time.Duration
	StaleSweepInterval time.Duration
	JobTimeout         time.Duration
}

// Worker drains reconciliation alert jobs. It only alerts; it never touches
// the donation ledger.
type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	db       Pinger
	log      *slog.Logger
	prom     *observability.Prom
	metrics  *observability.JobMetrics

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, db Pinger, log *slog.Logger, prom *observability.Prom, metrics *observability.JobMetrics) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.StaleLockTTL <= 0 {
		cfg.StaleLockTTL = 2 * time.Minute
	}
	if cfg.StaleSweepInterval <= 0 {
		cfg.StaleSweepInterval = 30 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = observability.NewJobMetrics()
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		db:       db,
		log:      log,
		prom:     prom,
		metrics:  metrics,
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run blocks until ctx is cancelled and every loop has returned.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.log.InfoContext(ctx, "worker.started", "worker_id", w.cfg.WorkerID, "concurrency", w.cfg.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.sweepStale(ctx)
	}()

	wg.Wait()
	w.log.Info("worker.stopped", "worker_id", w.cfg.WorkerID)
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// drain while there is work, then go back to polling
			for ctx.Err() == nil {
				worked, err := w.ProcessOne(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					w.log.ErrorContext(ctx, "worker.process_error", "err", err)
				}
				if !worked {
					break
				}
			}
		}
	}
}

func (w *Worker) sweepStale(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.StaleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.StaleLockTTL)
			if err != nil {
				w.log.ErrorContext(ctx, "worker.requeue_stale_failed", "err", err)
				continue
			}
			if n > 0 {
				w.metrics.AddRequeued(n)
				w.log.WarnContext(ctx, "worker.requeued_stale", "count", n)
			}
		}
	}
}

package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kharelcodes/bloghub/internal/domain/job"
	"github.com/kharelcodes/bloghub/internal/mail"
	"github.com/kharelcodes/bloghub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	LockTTL       time.Duration
}

// Worker drains the email job queue: claim, send, settle. Every step is
// crash-safe; a stale-lock sweep picks up after dead workers.
type Worker struct {
	cfg    Config
	repo   JobsRepository
	mailer mail.Mailer
	prom   *observability.Prom
	log    *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, mailer mail.Mailer, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:    cfg,
		repo:   repo,
		mailer: mailer,
		prom:   prom,
		log:    log,
		sem:    make(chan struct{}, cfg.Concurrency),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	staleTicker := time.NewTicker(time.Minute)
	defer staleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			w.setReady(false)
			return w.drain()

		case <-staleTicker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("stale requeue failed", "err", err)
			} else if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}

		case <-ticker.C:
			w.spawnOne(ctx)
		}
	}
}

// spawnOne claims and runs a single job if a concurrency slot is free.
func (w *Worker) spawnOne(ctx context.Context) {
	select {
	case w.sem <- struct{}{}:
	default:
		return
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			w.log.Error("job processing error", "err", err)
		}
		_ = processed
	}()
}

func (w *Worker) drain() error {
	done := make(chan struct{})

	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("worker drained in-flight jobs")
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Error("worker shutdown grace exceeded")
		return context.DeadlineExceeded
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

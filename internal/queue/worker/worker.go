package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/citypulse/cityhub/internal/jobs"
	"github.com/citypulse/cityhub/internal/notifications"
	"github.com/citypulse/cityhub/internal/observability"
	"github.com/citypulse/cityhub/internal/queue/redisclient"
)

// Queue is the slice of the redis client the worker needs.
type Queue interface {
	Dequeue(ctx context.Context, key string, timeout time.Duration) (jobs.Job, error)
	Enqueue(ctx context.Context, key string, j jobs.Job) error
}

type Config struct {
	Key          string
	BlockTimeout time.Duration
	Concurrency  int
}

// Worker drains the mail queue and hands each job to the notifier.
// Failed sends go back on the queue after a backoff until MaxTries.
type Worker struct {
	cfg      Config
	queue    Queue
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger
}

func New(cfg Config, queue Queue, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.Key == "" {
		cfg.Key = "cityhub:jobs:mail"
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Worker{
		cfg:      cfg,
		queue:    queue,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

// Run blocks until ctx is done. Each loop iteration pops at most one job;
// the blocking pop doubles as the idle poll.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	wg.Wait()
	w.log.Info("worker shutdown complete")
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		j, err := w.queue.Dequeue(ctx, w.cfg.Key, w.cfg.BlockTimeout)

		if err != nil {
			if errors.Is(err, redisclient.ErrEmpty) || errors.Is(err, context.Canceled) {
				continue
			}

			w.log.Error("dequeue failed", "err", err)

			// avoid hot-looping on a dead redis
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		w.process(ctx, j)
	}
}

func (w *Worker) process(ctx context.Context, j jobs.Job) {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		w.log.Error("bad job payload, dropping", "job_id", j.ID, "err", err)
		w.observeResult("failed")
		return
	}

	payload, ok := decoded.(jobs.SendWelcomeEmailPayload)

	if !ok {
		w.log.Error("unexpected job type, dropping", "job_id", j.ID, "type", string(j.Type))
		w.observeResult("failed")
		return
	}

	if w.prom != nil {
		w.prom.MailInFlight.Inc()
		defer w.prom.MailInFlight.Dec()
	}

	err = w.notifier.SendWelcome(ctx, notifications.SendWelcomeInput{Email: payload.Email})

	if err == nil {
		w.log.Info("welcome mail sent", "job_id", j.ID, "email", payload.Email)
		w.observeResult("sent")
		return
	}

	j.Attempts++

	if j.Attempts >= j.MaxTries {
		w.log.Error("welcome mail failed permanently", "job_id", j.ID, "attempts", j.Attempts, "err", err)
		w.observeResult("failed")
		return
	}

	w.log.Warn("welcome mail failed, retrying", "job_id", j.ID, "attempt", j.Attempts, "err", err)
	w.observeResult("retry")

	select {
	case <-time.After(ExponentialBackoff(j.Attempts - 1)):
	case <-ctx.Done():
		// shutdown: requeue immediately so the job is not lost
	}

	if err := w.queue.Enqueue(context.WithoutCancel(ctx), w.cfg.Key, j); err != nil {
		w.log.Error("requeue failed, job lost", "job_id", j.ID, "err", err)
	}
}

func (w *Worker) observeResult(result string) {
	if w.prom != nil {
		w.prom.MailDeliveries.WithLabelValues(result).Inc()
	}
}

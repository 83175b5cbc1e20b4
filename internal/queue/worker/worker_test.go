package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/citypulse/cityhub/internal/jobs"
	"github.com/citypulse/cityhub/internal/notifications"
	"github.com/citypulse/cityhub/internal/queue/redisclient"
)

type fakeQueue struct {
	mu       sync.Mutex
	dequeued []jobs.Job
	enqueued []jobs.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context, key string, timeout time.Duration) (jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.dequeued) == 0 {
		return jobs.Job{}, redisclient.ErrEmpty
	}

	j := q.dequeued[0]
	q.dequeued = q.dequeued[1:]
	return j, nil
}

func (q *fakeQueue) Enqueue(ctx context.Context, key string, j jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.enqueued = append(q.enqueued, j)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	fails int
}

func (n *fakeNotifier) SendWelcome(ctx context.Context, in notifications.SendWelcomeInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fails > 0 {
		n.fails--
		return errors.New("smtp timeout")
	}

	n.sent = append(n.sent, in.Email)
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func welcomeJob(t *testing.T, email string) jobs.Job {
	t.Helper()

	raw, err := jobs.EncodePayload(jobs.JobSendWelcomeEmail, jobs.SendWelcomeEmailPayload{Email: email})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	j, err := jobs.NewJob(jobs.JobSendWelcomeEmail, raw)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	return j
}

func TestProcessSendsWelcome(t *testing.T) {
	q := &fakeQueue{}
	n := &fakeNotifier{}
	w := New(Config{}, q, n, nil, silentLogger())

	w.process(context.Background(), welcomeJob(t, "a@x.com"))

	if len(n.sent) != 1 || n.sent[0] != "a@x.com" {
		t.Errorf("sent = %v", n.sent)
	}

	if len(q.enqueued) != 0 {
		t.Errorf("success path must not requeue, got %d jobs", len(q.enqueued))
	}
}

func TestProcessDropsUndecodableJob(t *testing.T) {
	q := &fakeQueue{}
	n := &fakeNotifier{}
	w := New(Config{}, q, n, nil, silentLogger())

	w.process(context.Background(), jobs.Job{ID: "j-1", Type: jobs.JobSendWelcomeEmail, Payload: []byte(`{{`)})

	if len(n.sent) != 0 {
		t.Errorf("notifier called for undecodable job")
	}

	if len(q.enqueued) != 0 {
		t.Errorf("undecodable job must be dropped, not retried")
	}
}

func TestProcessRequeuesFailedSend(t *testing.T) {
	q := &fakeQueue{}
	n := &fakeNotifier{fails: 1}
	w := New(Config{}, q, n, nil, silentLogger())

	// a done context skips the backoff sleep; the requeue still happens
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.process(ctx, welcomeJob(t, "a@x.com"))

	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(q.enqueued))
	}

	if q.enqueued[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", q.enqueued[0].Attempts)
	}
}

func TestProcessGivesUpAfterMaxTries(t *testing.T) {
	q := &fakeQueue{}
	n := &fakeNotifier{fails: 1}
	w := New(Config{}, q, n, nil, silentLogger())

	j := welcomeJob(t, "a@x.com")
	j.Attempts = j.MaxTries - 1

	w.process(context.Background(), j)

	if len(q.enqueued) != 0 {
		t.Errorf("exhausted job must not be requeued, got %d", len(q.enqueued))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := &fakeQueue{dequeued: []jobs.Job{welcomeJob(t, "a@x.com")}}
	n := &fakeNotifier{}
	w := New(Config{BlockTimeout: 10 * time.Millisecond, Concurrency: 2}, q, n, nil, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	// give the loops a moment to drain the queued job
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.sent) != 1 {
		t.Errorf("sent = %v, want the one queued job", n.sent)
	}
}

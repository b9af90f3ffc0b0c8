package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/your-org/photovault/internal/config"
)

func testQueueConfig() config.JobsConfig {
	return config.JobsConfig{
		MaxConcurrent: 1,
		TickInterval:  5 * time.Millisecond,
		Retention:     time.Hour,
		ShutdownGrace: 2 * time.Second,
	}
}

func waitTerminal(t *testing.T, q *Queue, id string) Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := q.Wait(ctx, id)
	if err != nil {
		t.Fatalf("waiting for job %s: %v", id, err)
	}
	return job
}

func TestQueuePriorityOrdering(t *testing.T) {
	q := NewQueue(testQueueConfig())

	var mu sync.Mutex
	var order []string
	q.RegisterHandler("work", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		mu.Lock()
		order = append(order, job.Payload.(string))
		mu.Unlock()
		return nil, nil
	})

	// Submitted low-priority first; the high-priority job must still run
	// first because nothing starts before the queue does.
	low := q.Add("work", "low", Options{Priority: 1})
	high := q.Add("work", "high", Options{Priority: 10})

	q.Start()
	defer q.Shutdown()

	waitTerminal(t, q, low)
	waitTerminal(t, q, high)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Fatalf("execution order = %v, want [high low]", order)
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue(testQueueConfig())

	var mu sync.Mutex
	var order []string
	q.RegisterHandler("work", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		mu.Lock()
		order = append(order, job.Payload.(string))
		mu.Unlock()
		return nil, nil
	})

	first := q.Add("work", "first", Options{Priority: 5})
	second := q.Add("work", "second", Options{Priority: 5})

	q.Start()
	defer q.Shutdown()

	waitTerminal(t, q, first)
	waitTerminal(t, q, second)

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "first" || order[1] != "second" {
		t.Fatalf("execution order = %v, want submission order", order)
	}
}

func TestQueueRetryExhaustion(t *testing.T) {
	q := NewQueue(testQueueConfig())

	var mu sync.Mutex
	attempts := 0
	q.RegisterHandler("flaky", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return nil, errors.New("boom")
	})

	id := q.Add("flaky", nil, Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start()
	defer q.Shutdown()

	job := waitTerminal(t, q, id)
	if job.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Error != "boom" {
		t.Fatalf("error = %q, want boom", job.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want exactly MaxRetries (3)", attempts)
	}
}

func TestQueueRetrySucceedsEventually(t *testing.T) {
	q := NewQueue(testQueueConfig())

	var mu sync.Mutex
	attempts := 0
	q.RegisterHandler("flaky", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})

	id := q.Add("flaky", nil, Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start()
	defer q.Shutdown()

	job := waitTerminal(t, q, id)
	if job.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.Result != "ok" {
		t.Fatalf("result = %v, want ok", job.Result)
	}
	if job.Error != "" {
		t.Fatalf("error = %q, want empty after successful retry", job.Error)
	}
}

func TestQueueCancelPending(t *testing.T) {
	q := NewQueue(testQueueConfig())
	q.RegisterHandler("work", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		return nil, nil
	})

	// Queue not started: the job stays pending.
	id := q.Add("work", nil, Options{})

	if err := q.Cancel(id); err != nil {
		t.Fatalf("cancel pending job: %v", err)
	}
	job, ok := q.Get(id)
	if !ok {
		t.Fatal("job disappeared after cancel")
	}
	if job.Status != StatusFailed || job.Error != "cancelled" {
		t.Fatalf("job = %s/%q, want failed/cancelled", job.Status, job.Error)
	}

	// A second cancel must refuse: the job is no longer pending.
	if err := q.Cancel(id); err == nil {
		t.Fatal("cancelling a terminal job should fail")
	}
	if err := q.Cancel("no-such-job"); err == nil {
		t.Fatal("cancelling an unknown job should fail")
	}
}

func TestQueueUnknownTypeFailsImmediately(t *testing.T) {
	q := NewQueue(testQueueConfig())

	var mu sync.Mutex
	var events []EventType
	q.Notify(func(ev Event) {
		mu.Lock()
		events = append(events, ev.Type)
		mu.Unlock()
	})

	id := q.Add("nobody-handles-this", nil, Options{})

	job, ok := q.Get(id)
	if !ok {
		t.Fatal("job not recorded")
	}
	if job.Status != StatusFailed {
		t.Fatalf("status = %s, want failed without a handler", job.Status)
	}
	if !strings.Contains(job.Error, "no handler") {
		t.Fatalf("error = %q, want a no-handler message", job.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != EventAdded || events[1] != EventFailed {
		t.Fatalf("events = %v, want [added failed]", events)
	}
}

func TestQueueProgressClampedAndReported(t *testing.T) {
	q := NewQueue(testQueueConfig())

	var mu sync.Mutex
	var seen []int
	q.Notify(func(ev Event) {
		if ev.Type != EventProgress {
			return
		}
		mu.Lock()
		seen = append(seen, ev.Job.Progress)
		mu.Unlock()
	})

	q.RegisterHandler("work", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		progress(-20, "starting")
		progress(50, "halfway")
		progress(250, "overshoot")
		return nil, nil
	})

	id := q.Add("work", nil, Options{})
	q.Start()
	defer q.Shutdown()

	job := waitTerminal(t, q, id)
	if job.Progress != 100 {
		t.Fatalf("final progress = %d, want 100", job.Progress)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 50, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress events = %v, want %v", seen, want)
		}
	}
}

func TestQueueConcurrencyBound(t *testing.T) {
	cfg := testQueueConfig()
	cfg.MaxConcurrent = 2
	q := NewQueue(cfg)

	var mu sync.Mutex
	running, peak := 0, 0
	q.RegisterHandler("work", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	})

	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, q.Add("work", i, Options{}))
	}
	q.Start()
	defer q.Shutdown()

	for _, id := range ids {
		waitTerminal(t, q, id)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Fatalf("peak concurrency = %d, want at most 2", peak)
	}
	if peak == 0 {
		t.Fatal("nothing ran")
	}
}

func TestQueueHandlerPanicBecomesFailure(t *testing.T) {
	q := NewQueue(testQueueConfig())
	q.RegisterHandler("bad", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		panic("handler bug")
	})

	id := q.Add("bad", nil, Options{})
	q.Start()
	defer q.Shutdown()

	job := waitTerminal(t, q, id)
	if job.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.Error, "handler bug") {
		t.Fatalf("error = %q, want panic message", job.Error)
	}
}

func TestQueueRetentionPurge(t *testing.T) {
	cfg := testQueueConfig()
	cfg.Retention = time.Millisecond
	q := NewQueue(cfg)

	// No handler registered: the job is terminal the moment it is added.
	id := q.Add("ephemeral", nil, Options{})

	q.Start()
	defer q.Shutdown()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := q.Get(id); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("terminal job not purged after retention window")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueueShutdownWaitsForRunning(t *testing.T) {
	q := NewQueue(testQueueConfig())

	done := make(chan struct{})
	q.RegisterHandler("slow", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		close(done)
		return nil, nil
	})

	id := q.Add("slow", nil, Options{})
	q.Start()

	// Give the scheduler a tick to start the job.
	deadline := time.Now().Add(time.Second)
	for {
		job, _ := q.Get(id)
		if job.Status == StatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	q.Shutdown()

	select {
	case <-done:
	default:
		t.Fatal("shutdown returned before the running job finished")
	}
	job, _ := q.Get(id)
	if job.Status != StatusCompleted {
		t.Fatalf("status after shutdown = %s, want completed", job.Status)
	}
}

func TestQueueListNewestFirst(t *testing.T) {
	q := NewQueue(testQueueConfig())
	q.RegisterHandler("work", func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
		return nil, nil
	})

	a := q.Add("work", "a", Options{})
	b := q.Add("work", "b", Options{})

	all := q.List("")
	if len(all) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(all))
	}
	if all[0].ID != b || all[1].ID != a {
		t.Fatal("List should return newest first")
	}

	pending := q.List(StatusPending)
	if len(pending) != 2 {
		t.Fatalf("len(List(pending)) = %d, want 2", len(pending))
	}
	if got := q.List(StatusCompleted); len(got) != 0 {
		t.Fatalf("len(List(completed)) = %d, want 0", len(got))
	}
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/observability"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is the queue's record of one unit of work. Callers only ever see
// value copies; the queue owns the canonical state and handlers influence
// it solely through the progress callback and their return value.
type Job struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Payload     interface{}   `json:"payload,omitempty"`
	Status      Status        `json:"status"`
	Progress    int           `json:"progress"`
	Message     string        `json:"message,omitempty"`
	Priority    int           `json:"priority"`
	Retries     int           `json:"retries"`
	MaxRetries  int           `json:"max_retries"`
	RetryDelay  time.Duration `json:"retry_delay"`
	Result      interface{}   `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	seq       uint64
	notBefore time.Time
}

func (j *Job) terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// ProgressFunc reports handler progress. Percent is clamped to [0, 100].
type ProgressFunc func(percent int, message string)

// Handler executes one job. The returned value becomes the job's result;
// a returned error triggers the retry policy.
type Handler func(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error)

// Options control scheduling of a submitted job.
type Options struct {
	Priority int
	// MaxRetries is the total number of attempts. 1 means no retry.
	MaxRetries int
	RetryDelay time.Duration
}

// Queue is an in-process, priority-ordered job runner with bounded
// concurrency. A fixed-interval tick drives scheduling; within a priority
// tier jobs start in submission order. State lives only in memory: jobs do
// not survive a restart.
type Queue struct {
	cfg config.JobsConfig

	mu        sync.Mutex
	jobs      map[string]*Job
	handlers  map[string]Handler
	listeners []func(Event)
	running   int
	seq       uint64

	loopCancel context.CancelFunc
	loopDone   chan struct{}
	wg         sync.WaitGroup
	started    bool
}

func NewQueue(cfg config.JobsConfig) *Queue {
	return &Queue{
		cfg:      cfg,
		jobs:     make(map[string]*Job),
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler binds a handler to a job type. Register all handlers
// before Start.
func (q *Queue) RegisterHandler(jobType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// Notify registers a listener for lifecycle events. Listeners receive job
// snapshots and must not block for long; they are invoked outside the
// queue lock.
func (q *Queue) Notify(fn func(Event)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// Add submits a job and returns its id immediately. A job whose type has
// no registered handler fails right away: no partial progress is possible.
func (q *Queue) Add(jobType string, payload interface{}, opts Options) string {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}

	q.mu.Lock()
	q.seq++
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payload,
		Status:     StatusPending,
		Priority:   opts.Priority,
		MaxRetries: opts.MaxRetries,
		RetryDelay: opts.RetryDelay,
		CreatedAt:  time.Now(),
		seq:        q.seq,
	}
	q.jobs[job.ID] = job

	_, registered := q.handlers[jobType]
	if !registered {
		now := time.Now()
		job.Status = StatusFailed
		job.Error = fmt.Sprintf("no handler registered for job type %q", jobType)
		job.CompletedAt = &now
	}
	snapshot := *job
	q.mu.Unlock()

	q.emit(Event{Type: EventAdded, Job: snapshot})
	if !registered {
		slog.Error("job submitted with unknown type", "job", job.ID, "type", jobType)
		q.emit(Event{Type: EventFailed, Job: snapshot})
	}
	q.updateGauges()

	return job.ID
}

// Get returns a snapshot of the job, if it still exists.
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, newest first. An empty status
// matches everything.
func (q *Queue) List(status Status) []Job {
	q.mu.Lock()
	out := make([]Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, *job)
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// Cancel moves a pending job to failed with a cancellation marker. Running
// jobs cannot be cancelled; cancellation is cooperative before start only.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status != StatusPending {
		q.mu.Unlock()
		return fmt.Errorf("job %s is %s, only pending jobs can be cancelled", id, job.Status)
	}
	now := time.Now()
	job.Status = StatusFailed
	job.Error = "cancelled"
	job.CompletedAt = &now
	snapshot := *job
	q.mu.Unlock()

	q.emit(Event{Type: EventCancelled, Job: snapshot})
	q.updateGauges()
	return nil
}

// Wait blocks until the job reaches a terminal state or ctx expires.
func (q *Queue) Wait(ctx context.Context, id string) (Job, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, ok := q.Get(id)
		if !ok {
			return Job{}, fmt.Errorf("job %s not found", id)
		}
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Start launches the scheduling loop.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	q.loopCancel = cancel
	q.loopDone = make(chan struct{})

	go func() {
		defer close(q.loopDone)
		ticker := time.NewTicker(q.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.dispatch(ctx)
				q.purge()
			}
		}
	}()

	slog.Info("job queue started",
		"max_concurrent", q.cfg.MaxConcurrent,
		"tick", q.cfg.TickInterval.String(),
	)
}

// Shutdown stops the scheduling loop and waits up to the configured grace
// period for in-flight jobs. Jobs still running past the grace period are
// logged as interrupted.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.mu.Unlock()

	q.loopCancel()
	<-q.loopDone

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("job queue stopped")
	case <-time.After(q.cfg.ShutdownGrace):
		q.mu.Lock()
		stillRunning := q.running
		q.mu.Unlock()
		slog.Warn("job queue shutdown grace expired, jobs interrupted", "running", stillRunning)
	}
}

// dispatch starts pending jobs up to the concurrency bound, highest
// priority first, FIFO within a tier.
func (q *Queue) dispatch(ctx context.Context) {
	now := time.Now()

	q.mu.Lock()
	capacity := q.cfg.MaxConcurrent - q.running
	if capacity <= 0 {
		q.mu.Unlock()
		return
	}

	var runnable []*Job
	for _, job := range q.jobs {
		if job.Status == StatusPending && !job.notBefore.After(now) {
			runnable = append(runnable, job)
		}
	}
	sort.Slice(runnable, func(i, j int) bool {
		if runnable[i].Priority != runnable[j].Priority {
			return runnable[i].Priority > runnable[j].Priority
		}
		return runnable[i].seq < runnable[j].seq
	})
	if len(runnable) > capacity {
		runnable = runnable[:capacity]
	}

	var started []Job
	for _, job := range runnable {
		startedAt := time.Now()
		job.Status = StatusRunning
		job.StartedAt = &startedAt
		q.running++
		started = append(started, *job)
	}
	q.mu.Unlock()

	for _, snapshot := range started {
		q.emit(Event{Type: EventStarted, Job: snapshot})
		observability.JobsStarted.WithLabelValues(snapshot.Type).Inc()
		q.wg.Add(1)
		go q.run(ctx, snapshot.ID)
	}
	if len(started) > 0 {
		q.updateGauges()
	}
}

// run executes one attempt of a job in the background.
func (q *Queue) run(ctx context.Context, id string) {
	defer q.wg.Done()

	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	handler := q.handlers[job.Type]
	snapshot := *job
	q.mu.Unlock()

	progress := func(percent int, message string) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		q.mu.Lock()
		job, ok := q.jobs[id]
		if !ok || job.Status != StatusRunning {
			q.mu.Unlock()
			return
		}
		job.Progress = percent
		job.Message = message
		snap := *job
		q.mu.Unlock()
		q.emit(Event{Type: EventProgress, Job: snap})
	}

	result, err := q.invoke(ctx, handler, snapshot, progress)

	now := time.Now()
	q.mu.Lock()
	job, ok = q.jobs[id]
	if !ok {
		q.running--
		q.mu.Unlock()
		return
	}
	q.running--

	var ev *Event
	switch {
	case err == nil:
		job.Status = StatusCompleted
		job.Progress = 100
		job.Result = result
		job.CompletedAt = &now
		ev = &Event{Type: EventCompleted, Job: *job}

	default:
		job.Retries++
		if job.Retries < job.MaxRetries {
			// Another attempt after the retry delay.
			job.Status = StatusPending
			job.Progress = 0
			job.Message = ""
			job.StartedAt = nil
			job.notBefore = now.Add(job.RetryDelay)
			slog.Warn("job attempt failed, will retry",
				"job", id, "type", job.Type, "attempt", job.Retries, "max", job.MaxRetries, "error", err)
		} else {
			job.Status = StatusFailed
			job.Error = err.Error()
			job.CompletedAt = &now
			ev = &Event{Type: EventFailed, Job: *job}
			slog.Error("job failed", "job", id, "type", job.Type, "attempts", job.Retries, "error", err)
		}
	}
	q.mu.Unlock()

	if ev != nil {
		q.emit(*ev)
		observability.JobsCompleted.WithLabelValues(ev.Job.Type, string(ev.Job.Status)).Inc()
	}
	q.updateGauges()
}

// invoke calls the handler, converting a panic into an error so a buggy
// handler cannot take down the queue.
func (q *Queue) invoke(ctx context.Context, handler Handler, job Job, progress ProgressFunc) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job, progress)
}

// purge drops terminal jobs older than the retention window.
func (q *Queue) purge() {
	cutoff := time.Now().Add(-q.cfg.Retention)

	q.mu.Lock()
	for id, job := range q.jobs {
		if job.terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(q.jobs, id)
		}
	}
	q.mu.Unlock()
}

func (q *Queue) emit(ev Event) {
	q.mu.Lock()
	listeners := make([]func(Event), len(q.listeners))
	copy(listeners, q.listeners)
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (q *Queue) updateGauges() {
	q.mu.Lock()
	pending := 0
	for _, job := range q.jobs {
		if job.Status == StatusPending {
			pending++
		}
	}
	running := q.running
	q.mu.Unlock()

	observability.JobsPending.Set(float64(pending))
	observability.JobsRunning.Set(float64(running))
}

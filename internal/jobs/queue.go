// Package jobs runs cover exports in the background with retries.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/logging"
)

var (
	// ErrNotFound is returned for an unknown job ID.
	ErrNotFound = errors.New("job not found")

	// ErrNotReady is returned when a job's file is requested before it
	// completes.
	ErrNotReady = errors.New("job not completed")
)

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as a failure that retrying cannot fix. The queue fails
// the job on the first attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRendering Status = "rendering"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request is one export to produce.
type Request struct {
	Project coverformat.Project
	Format  export.Format
	DPI     float64
}

// Result is the packaged output of a request.
type Result struct {
	Data     []byte
	Filename string
}

// Processor renders and packages a request.
type Processor interface {
	Process(ctx context.Context, req Request) (Result, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, req Request) (Result, error)

func (f ProcessorFunc) Process(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Job is a snapshot of an export job.
type Job struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Format    export.Format `json:"format"`
	DPI       float64       `json:"dpi"`
	Status    Status        `json:"status"`
	Retries   int           `json:"retries"`
	Error     string        `json:"error,omitempty"`
	Filename  string        `json:"filename,omitempty"`
	Size      int           `json:"size,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	request Request
	data    []byte
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRetries sets how many attempts a job gets before it fails.
func WithMaxRetries(n int) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// WithRetryDelay sets the pause after a failed attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(q *Queue) { q.retryDelay = d }
}

// WithInterval sets how often the worker looks for queued jobs.
func WithInterval(d time.Duration) Option {
	return func(q *Queue) { q.interval = d }
}

// WithRetention bounds how many finished jobs are kept and for how long.
// The oldest finished jobs beyond maxFinished, and any finished longer than
// maxAge ago, are dropped with their files. Zero disables either limit.
func WithRetention(maxAge time.Duration, maxFinished int) Option {
	return func(q *Queue) {
		q.maxAge = maxAge
		q.maxFinished = maxFinished
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithNotify registers a callback invoked with a snapshot after every
// status change. It runs on the worker goroutine and must not block.
func WithNotify(fn func(Job)) Option {
	return func(q *Queue) { q.notify = fn }
}

// Default retention of finished jobs.
const (
	DefaultMaxAge      = time.Hour
	DefaultMaxFinished = 100
)

// Queue processes export jobs one at a time on a single worker.
type Queue struct {
	jobs       []*Job
	mu         sync.Mutex
	processor  Processor
	maxRetries int
	retryDelay time.Duration
	interval   time.Duration
	logger     *slog.Logger
	notify     func(Job)
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	maxAge      time.Duration
	maxFinished int
}

// NewQueue creates a queue and starts its worker.
func NewQueue(p Processor, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		processor:  p,
		maxRetries: 3,
		retryDelay: time.Second,
		interval:   100 * time.Millisecond,
		ctx:        ctx,
		cancel:     cancel,

		maxAge:      DefaultMaxAge,
		maxFinished: DefaultMaxFinished,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.maxRetries < 1 {
		q.maxRetries = 1
	}
	q.logger = logging.OrDiscard(q.logger)

	q.wg.Add(1)
	go q.worker()

	return q
}

// Enqueue adds a request and returns the job ID.
func (q *Queue) Enqueue(req Request) string {
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Title:     req.Project.Book.Title,
		Format:    req.Format,
		DPI:       req.DPI,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		request:   req,
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	snapshot := *job
	q.mu.Unlock()

	q.logger.Info("export queued", "job", job.ID, "format", req.Format, "dpi", req.DPI)
	q.changed(snapshot)
	return job.ID
}

func (q *Queue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processNextJob()
		}
	}
}

func (q *Queue) processNextJob() {
	q.mu.Lock()
	if n := q.pruneLocked(time.Now()); n > 0 {
		q.logger.Debug("evicted finished exports", "count", n)
	}
	var job *Job
	for _, j := range q.jobs {
		if j.Status == StatusQueued {
			job = j
			job.Status = StatusRendering
			job.UpdatedAt = time.Now()
			break
		}
	}
	var snapshot Job
	if job != nil {
		snapshot = *job
	}
	q.mu.Unlock()

	if job == nil {
		return
	}
	q.changed(snapshot)

	result, err := q.process(job.request)

	q.mu.Lock()
	job.UpdatedAt = time.Now()
	retry := false
	switch {
	case err == nil:
		job.Status = StatusCompleted
		job.Error = ""
		job.Filename = result.Filename
		job.Size = len(result.Data)
		job.data = result.Data
		q.logger.Info("export completed", "job", job.ID, "file", job.Filename, "bytes", job.Size)
	case q.ctx.Err() != nil:
		job.Status = StatusFailed
		job.Error = fmt.Sprintf("queue stopped: %v", err)
	case IsPermanent(err):
		job.Retries++
		job.Status = StatusFailed
		job.Error = err.Error()
		q.logger.Error("export failed", "job", job.ID, "error", err)
	default:
		job.Retries++
		job.Error = err.Error()
		if job.Retries >= q.maxRetries {
			job.Status = StatusFailed
			q.logger.Error("export failed", "job", job.ID, "retries", job.Retries, "error", err)
		} else {
			job.Status = StatusQueued
			retry = true
			q.logger.Warn("export failed, retrying", "job", job.ID, "attempt", job.Retries, "max", q.maxRetries, "error", err)
		}
	}
	snapshot = *job
	q.mu.Unlock()

	q.changed(snapshot)

	if retry {
		select {
		case <-time.After(q.retryDelay):
		case <-q.ctx.Done():
		}
	}
}

// process runs the processor and reports a panic as a permanent failure.
func (q *Queue) process(req Request) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("export panicked: %v", r))
		}
	}()
	return q.processor.Process(q.ctx, req)
}

func (q *Queue) changed(j Job) {
	if q.notify != nil {
		q.notify(j)
	}
}

// GetJob returns a snapshot of a job.
func (q *Queue) GetJob(id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == id {
			jobCopy := *job
			return &jobCopy, nil
		}
	}
	return nil, ErrNotFound
}

// GetAllJobs returns snapshots of every job in submission order.
func (q *Queue) GetAllJobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*Job, len(q.jobs))
	for i, job := range q.jobs {
		jobCopy := *job
		jobs[i] = &jobCopy
	}
	return jobs
}

// Result returns the file of a completed job.
func (q *Queue) Result(id string) (Result, error) {
	job, err := q.GetJob(id)
	if err != nil {
		return Result{}, err
	}
	if job.Status != StatusCompleted {
		return Result{}, fmt.Errorf("%w: %s", ErrNotReady, job.Status)
	}
	return Result{Data: job.data, Filename: job.Filename}, nil
}

// ClearCompleted removes completed jobs and returns how many were removed.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != StatusCompleted {
			filtered = append(filtered, job)
		}
	}
	removed := len(q.jobs) - len(filtered)
	q.jobs = filtered
	return removed
}

func (j *Job) finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// pruneLocked applies the retention limits and returns how many jobs were
// dropped. Jobs are kept in submission order, so the oldest go first.
func (q *Queue) pruneLocked(now time.Time) int {
	excess := 0
	if q.maxFinished > 0 {
		for _, job := range q.jobs {
			if job.finished() {
				excess++
			}
		}
		excess -= q.maxFinished
	}

	kept := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.finished() {
			expired := q.maxAge > 0 && now.Sub(job.UpdatedAt) > q.maxAge
			if expired || excess > 0 {
				excess--
				continue
			}
		}
		kept = append(kept, job)
	}
	removed := len(q.jobs) - len(kept)
	q.jobs = kept
	return removed
}

// Stop cancels the job in progress and waits for the worker to exit.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
)

func testRequest(title string) Request {
	return Request{
		Project: coverformat.Project{Version: coverformat.Version, Book: coverformat.BookMetadata{Title: title}},
		Format:  export.PNG,
		DPI:     300,
	}
}

func waitFor(t *testing.T, q *Queue, id string, want Status) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.GetJob(id)
		if err != nil {
			t.Fatalf("GetJob() error: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := q.GetJob(id)
	t.Fatalf("job %s status = %s, want %s", id, job.Status, want)
	return nil
}

func fastQueue(p Processor, opts ...Option) *Queue {
	opts = append([]Option{WithInterval(time.Millisecond), WithRetryDelay(time.Millisecond)}, opts...)
	return NewQueue(p, opts...)
}

func TestQueue_Completes(t *testing.T) {
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{Data: []byte("cover"), Filename: req.Project.Book.Title + ".png"}, nil
	}))
	defer q.Stop()

	id := q.Enqueue(testRequest("dune"))
	job := waitFor(t, q, id, StatusCompleted)
	if job.Filename != "dune.png" || job.Size != 5 || job.Title != "dune" {
		t.Errorf("job = %+v", job)
	}

	res, err := q.Result(id)
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if string(res.Data) != "cover" {
		t.Errorf("Result().Data = %q", res.Data)
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls.Add(1)
		return Result{}, errors.New("render exploded")
	}), WithMaxRetries(3))
	defer q.Stop()

	id := q.Enqueue(testRequest("x"))
	job := waitFor(t, q, id, StatusFailed)
	if job.Retries != 3 || job.Error != "render exploded" {
		t.Errorf("job = %+v", job)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("processor called %d times, want 3", n)
	}

	if _, err := q.Result(id); !errors.Is(err, ErrNotReady) {
		t.Errorf("Result() error = %v, want ErrNotReady", err)
	}
}

func TestQueue_RetrySucceeds(t *testing.T) {
	var calls atomic.Int32
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		if calls.Add(1) == 1 {
			return Result{}, errors.New("transient")
		}
		return Result{Data: []byte{1}}, nil
	}))
	defer q.Stop()

	id := q.Enqueue(testRequest("x"))
	job := waitFor(t, q, id, StatusCompleted)
	if job.Retries != 1 || job.Error != "" {
		t.Errorf("job = %+v", job)
	}
}

func TestQueue_NotFound(t *testing.T) {
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{}, nil
	}))
	defer q.Stop()

	if _, err := q.GetJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob() error = %v, want ErrNotFound", err)
	}
	if _, err := q.Result("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Result() error = %v, want ErrNotFound", err)
	}
}

func TestQueue_SnapshotsAreCopies(t *testing.T) {
	block := make(chan struct{})
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		<-block
		return Result{}, nil
	}))
	defer q.Stop()
	defer close(block)

	id := q.Enqueue(testRequest("x"))
	job, _ := q.GetJob(id)
	job.Status = StatusFailed

	again, _ := q.GetJob(id)
	if again.Status == StatusFailed {
		t.Error("mutating a snapshot changed the queued job")
	}
}

func TestQueue_ClearCompleted(t *testing.T) {
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		if req.Project.Book.Title == "bad" {
			return Result{}, errors.New("no")
		}
		return Result{}, nil
	}), WithMaxRetries(1))
	defer q.Stop()

	ok1 := q.Enqueue(testRequest("a"))
	ok2 := q.Enqueue(testRequest("b"))
	bad := q.Enqueue(testRequest("bad"))
	waitFor(t, q, ok1, StatusCompleted)
	waitFor(t, q, ok2, StatusCompleted)
	waitFor(t, q, bad, StatusFailed)

	if n := q.ClearCompleted(); n != 2 {
		t.Errorf("ClearCompleted() = %d, want 2", n)
	}
	all := q.GetAllJobs()
	if len(all) != 1 || all[0].ID != bad {
		t.Errorf("remaining jobs = %+v", all)
	}
}

func TestQueue_Notify(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Status
	)
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{}, nil
	}), WithNotify(func(j Job) {
		mu.Lock()
		seen = append(seen, j.Status)
		mu.Unlock()
	}))
	defer q.Stop()

	id := q.Enqueue(testRequest("x"))
	waitFor(t, q, id, StatusCompleted)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusQueued, StatusRendering, StatusCompleted}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestQueue_StopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		close(started)
		<-ctx.Done()
		return Result{}, ctx.Err()
	}))

	id := q.Enqueue(testRequest("x"))
	<-started
	q.Stop()

	job, err := q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
}

func TestQueue_PanicFailsJobAndWorkerSurvives(t *testing.T) {
	var calls atomic.Int32
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		if req.Project.Book.Title == "boom" {
			calls.Add(1)
			panic("image: NewRGBA Rectangle has huge or negative dimensions")
		}
		return Result{Data: []byte("ok")}, nil
	}), WithMaxRetries(3))
	defer q.Stop()

	bad := q.Enqueue(testRequest("boom"))
	job := waitFor(t, q, bad, StatusFailed)
	if job.Retries != 1 || !strings.Contains(job.Error, "panicked") {
		t.Errorf("job = %+v", job)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("processor called %d times, want 1", n)
	}

	good := q.Enqueue(testRequest("fine"))
	waitFor(t, q, good, StatusCompleted)
}

func TestQueue_PermanentErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls.Add(1)
		return Result{}, Permanent(export.ErrDPIOutOfRange)
	}), WithMaxRetries(3))
	defer q.Stop()

	id := q.Enqueue(testRequest("x"))
	job := waitFor(t, q, id, StatusFailed)
	if job.Retries != 1 || job.Error != export.ErrDPIOutOfRange.Error() {
		t.Errorf("job = %+v", job)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("processor called %d times, want 1", n)
	}
	if !IsPermanent(Permanent(errors.New("x"))) || IsPermanent(errors.New("x")) || Permanent(nil) != nil {
		t.Error("Permanent/IsPermanent mismatch")
	}
}

func waitForCount(t *testing.T, q *Queue, want int) []*Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if all := q.GetAllJobs(); len(all) == want {
			return all
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job count = %d, want %d", len(q.GetAllJobs()), want)
	return nil
}

func TestQueue_RetentionKeepsNewestFinished(t *testing.T) {
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{Data: []byte(req.Project.Book.Title)}, nil
	}), WithRetention(0, 2))
	defer q.Stop()

	var ids []string
	for _, title := range []string{"a", "b", "c", "d"} {
		ids = append(ids, q.Enqueue(testRequest(title)))
	}
	waitFor(t, q, ids[3], StatusCompleted)

	all := waitForCount(t, q, 2)
	if all[0].ID != ids[2] || all[1].ID != ids[3] {
		t.Errorf("kept %s and %s, want the two newest", all[0].Title, all[1].Title)
	}
	if _, err := q.Result(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Result(evicted) error = %v, want ErrNotFound", err)
	}
}

func TestQueue_RetentionExpiresFinished(t *testing.T) {
	q := fastQueue(ProcessorFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{Data: []byte("cover")}, nil
	}), WithRetention(200*time.Millisecond, 0))
	defer q.Stop()

	id := q.Enqueue(testRequest("a"))
	waitFor(t, q, id, StatusCompleted)
	waitForCount(t, q, 0)

	if _, err := q.GetJob(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(expired) error = %v, want ErrNotFound", err)
	}
}

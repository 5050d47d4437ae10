// Package perkey provides a scheduler that serializes work per key
// while allowing work for different keys to execute concurrently.
//
// Each key is an execution context: a single worker goroutine that runs the
// tasks submitted for that key one after another, in submission order. The
// mailbox manager uses it to run scheduled deliveries on a chosen context.
package perkey

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Option configures a Scheduler.
type Option func(*config)

type config struct {
	bufferSize int
	log        *slog.Logger
}

// WithBufferSize sets the initial queue capacity per worker (default: 64).
// Queues grow beyond it as needed; submitting never blocks.
func WithBufferSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Scheduler runs tasks (functions) such that for any given key K,
// tasks are executed sequentially, in submission order.
// Tasks for *different* keys can proceed in parallel.
type Scheduler[K comparable] struct {
	mu         sync.Mutex
	workers    map[K]*worker
	closed     bool
	running    sync.WaitGroup // tracks worker goroutines
	bufferSize int
	log        *slog.Logger
}

// worker owns an unbounded FIFO queue, so a busy key never stalls the
// goroutine that submits to it.
type worker struct {
	mu      sync.Mutex
	queue   []*task
	closing bool
	wake    chan struct{} // capacity 1
}

type task struct {
	fn   func() error
	done chan error // nil for fire-and-forget tasks
}

// New creates a new Scheduler.
func New[K comparable](opts ...Option) *Scheduler[K] {
	cfg := &config{bufferSize: 64, log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Scheduler[K]{
		workers:    make(map[K]*worker),
		bufferSize: cfg.bufferSize,
		log:        cfg.log,
	}
}

// Do schedules fn to run for the given key.
// It blocks until fn finishes and returns its error.
// All fn calls for the same key are executed sequentially.
func (s *Scheduler[K]) Do(key K, fn func() error) error {
	return s.DoContext(context.Background(), key, fn)
}

// DoContext is like Do but respects context cancellation.
// If the context is cancelled while waiting for completion, it returns the
// context error. Note that if a task is already
// enqueued, it will still execute even if the caller's context is cancelled.
func (s *Scheduler[K]) DoContext(ctx context.Context, key K, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &task{
		fn:   fn,
		done: make(chan error, 1),
	}
	if err := s.enqueue(key, t); err != nil {
		return err
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// Task is already in the queue and will execute,
		// but we don't wait for it.
		return ctx.Err()
	}
}

// Go enqueues fn for key and returns without waiting for it to run.
// It never blocks.
func (s *Scheduler[K]) Go(key K, fn func()) error {
	return s.enqueue(key, &task{
		fn: func() error {
			fn()
			return nil
		},
	})
}

// Close stops accepting new tasks and shuts down all workers after they
// have drained their queues. Close must not be called from inside a task.
func (s *Scheduler[K]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, w := range s.workers {
		w.close()
	}
	s.workers = nil
	s.mu.Unlock()

	s.running.Wait()
}

func (s *Scheduler[K]) enqueue(key K, t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	s.getOrCreateWorkerLocked(key).push(t)
	return nil
}

func (s *Scheduler[K]) getOrCreateWorkerLocked(key K) *worker {
	w, ok := s.workers[key]
	if ok {
		return w
	}

	w = &worker{
		queue: make([]*task, 0, s.bufferSize),
		wake:  make(chan struct{}, 1),
	}
	s.workers[key] = w
	s.running.Add(1)
	go s.runWorker(key, w)

	return w
}

func (w *worker) push(t *task) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	w.signal()
}

func (w *worker) close() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
	w.signal()
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// next blocks until a task is queued. It returns nil once the worker is
// closing and its queue is empty.
func (w *worker) next() *task {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			t := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return t
		}
		closing := w.closing
		w.mu.Unlock()
		if closing {
			return nil
		}
		<-w.wake
	}
}

// runWorker processes tasks sequentially for a single key.
func (s *Scheduler[K]) runWorker(key K, w *worker) {
	defer s.running.Done()
	for t := w.next(); t != nil; t = w.next() {
		err := s.runTask(key, t)
		if t.done != nil {
			t.done <- err
		}
	}
}

func (s *Scheduler[K]) runTask(key K, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// contain the panic, the worker keeps serving the key
			s.log.Error("task panicked", slog.Any("key", key), slog.Any("recovered", r))
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return t.fn()
}

// ----- Errors -----

var (
	// ErrSchedulerClosed is returned when a task is submitted to a closed scheduler.
	ErrSchedulerClosed = &SchedulerError{"scheduler is closed"}

	// ErrTaskPanicked is returned by Do when the task panicked.
	ErrTaskPanicked = &SchedulerError{"task panicked"}
)

// SchedulerError is a simple error implementation.
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string { return e.msg }

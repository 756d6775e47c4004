// Package dispatch provides the bounded worker pool that runs batch
// simulation units off the request goroutine.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Submit after Drain has started.
var ErrPoolClosed = errors.New("dispatch pool is draining")

// Config is the pool's tuning surface.
type Config struct {
	// CoreWorkers are always running.
	CoreWorkers int
	// MaxWorkers bounds how many workers may exist while the queue is full.
	MaxWorkers int
	// QueueCapacity bounds the number of tasks waiting for a worker.
	QueueCapacity int
	// KeepAlive is how long a surge worker stays alive without work.
	KeepAlive time.Duration
}

// Pool is a bounded worker pool with a caller-runs overflow policy: when the
// queue is full and the pool is already at MaxWorkers, Submit degrades to
// running the task synchronously on the submitting goroutine instead of
// dropping or rejecting it. This bounds memory growth at the price of
// request latency.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	tasks chan func()
	quit  chan struct{}

	inflight sync.WaitGroup

	mu       sync.Mutex
	extra    int
	draining bool
}

// NewPool creates the pool and starts its core workers.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	if cfg.CoreWorkers < 1 {
		cfg.CoreWorkers = 1
	}
	if cfg.MaxWorkers < cfg.CoreWorkers {
		cfg.MaxWorkers = cfg.CoreWorkers
	}
	if cfg.QueueCapacity < 0 {
		cfg.QueueCapacity = 0
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = time.Minute
	}

	p := &Pool{
		cfg:    cfg,
		logger: logger,
		tasks:  make(chan func(), cfg.QueueCapacity),
		quit:   make(chan struct{}),
	}
	for i := 0; i < cfg.CoreWorkers; i++ {
		go p.coreWorker()
	}
	return p
}

// Submit hands the task to the pool. It only returns an error after Drain
// has started; a full pool never fails a submission.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	wrapped := func() {
		defer p.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic in dispatched task",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		task()
	}

	select {
	case p.tasks <- wrapped:
		return nil
	default:
	}

	// Queue full: a surge worker takes the task directly, otherwise the
	// caller runs it.
	if p.trySpawnSurgeWorker(wrapped) {
		return nil
	}

	wrapped()
	return nil
}

// Drain stops accepting new work, waits for queued and in-flight tasks up to
// the context deadline, then force-stops the workers.
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return nil
	}
	p.draining = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	close(p.quit)
	return err
}

func (p *Pool) coreWorker() {
	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) trySpawnSurgeWorker(first func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draining || p.cfg.CoreWorkers+p.extra >= p.cfg.MaxWorkers {
		return false
	}
	p.extra++
	go p.surgeWorker(first)
	return true
}

func (p *Pool) surgeWorker(first func()) {
	idle := time.NewTimer(p.cfg.KeepAlive)
	defer idle.Stop()
	defer func() {
		p.mu.Lock()
		p.extra--
		p.mu.Unlock()
	}()

	if first != nil {
		first()
	}

	for {
		select {
		case task := <-p.tasks:
			task()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.cfg.KeepAlive)
		case <-idle.C:
			return
		case <-p.quit:
			return
		}
	}
}

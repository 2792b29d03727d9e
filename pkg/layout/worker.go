package layout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/graph"
)

// WorkerState represents the current state of the layout worker.
type WorkerState int

const (
	// WorkerIdle means no layout is being computed.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means a layout is in flight.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	}
	return fmt.Sprintf("WorkerState(%d)", int(s))
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase    string    // "layout"
	Revision uint64    // Graph revision being laid out
	Cause    error     // The underlying error
	Time     time.Time // When the error occurred
	Retries  int       // Consecutive failures so far
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed at revision %d: %v (retries: %d)", e.Phase, e.Revision, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Update is handed to the delivery callback. Exactly one field is set.
type Update struct {
	Result *Result
	Err    *WorkerError
}

// WorkerConfig configures the Worker.
type WorkerConfig struct {
	Engine *Engine
	// Deliver is called from the worker goroutine with every result that is
	// still current. Hosts forward it to their own event loop.
	Deliver func(Update)
	// OnDiscard is called for each result dropped because a newer revision
	// was requested, the config changed, or the computation was cancelled.
	OnDiscard func(revision uint64)
	Logger    *zap.Logger
}

// Worker runs layouts off the session goroutine. Requesting a newer revision
// cancels the computation in flight; only results for the newest requested
// revision are ever delivered.
type Worker struct {
	engine    *Engine
	deliver   func(Update)
	onDiscard func(uint64)
	log       *zap.Logger

	mu          sync.Mutex
	state       WorkerState
	pending     *graph.View // Newest requested view not yet started
	latest      uint64      // Newest requested revision
	inflight    context.CancelFunc
	inflightRev uint64
	errorCount  int // consecutive failures, reported as WorkerError.Retries

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a layout worker.
func NewWorker(cfg WorkerConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Deliver == nil {
		cfg.Deliver = func(Update) {}
	}
	return &Worker{
		engine:    cfg.Engine,
		deliver:   cfg.Deliver,
		onDiscard: cfg.OnDiscard,
		log:       cfg.Logger,
		state:     WorkerIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Request schedules a layout of v. A request for a newer revision cancels
// an older computation in flight.
func (w *Worker) Request(v *graph.View) {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if v.Revision() > w.latest {
		w.latest = v.Revision()
	}
	w.pending = v
	if w.state == WorkerProcessing {
		if w.inflight != nil && w.inflightRev < v.Revision() {
			w.inflight()
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run()
}

// State returns the current worker state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stop cancels any computation in flight and waits briefly for it to exit.
// No delivery happens after Stop returns. Stop is idempotent.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	w.pending = nil
	w.mu.Unlock()

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		w.log.Warn("layout worker did not stop in time")
	}
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		v := w.pending
		w.pending = nil
		if v == nil || w.state == WorkerStopped {
			if w.state != WorkerStopped {
				w.state = WorkerIdle
			}
			w.inflight = nil
			w.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(w.ctx)
		w.inflight = cancel
		w.inflightRev = v.Revision()
		w.mu.Unlock()

		var res *Result
		werr := w.safeCompute(v.Revision(), func() error {
			var err error
			res, err = w.engine.Compute(ctx, v)
			return err
		})
		cancel()

		w.mu.Lock()
		// Delivery happens under mu so Stop cannot return while a callback
		// for a superseded state is still running.
		stopped := w.state == WorkerStopped
		superseded := v.Revision() < w.latest || (res != nil && res.Key != w.engine.Key())
		cancelled := werr != nil && errors.Is(werr.Cause, context.Canceled)
		switch {
		case stopped:
		case superseded || cancelled:
			w.log.Debug("layout discarded", zap.Uint64("revision", v.Revision()), zap.Uint64("latest", w.latest))
			if w.onDiscard != nil {
				w.onDiscard(v.Revision())
			}
		case werr != nil:
			w.recordErrorLocked(werr)
			w.log.Warn("layout failed", zap.Error(werr))
			w.deliver(Update{Err: werr})
		default:
			w.recordErrorLocked(nil)
			w.deliver(Update{Result: res})
		}
		w.mu.Unlock()
	}
}

// safeCompute executes fn and recovers from any panics.
func (w *Worker) safeCompute(rev uint64, fn func() error) (result *WorkerError) {
	defer func() {
		if r := recover(); r != nil {
			result = &WorkerError{
				Phase:    "layout",
				Revision: rev,
				Cause:    fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:     time.Now(),
			}
		}
	}()
	if err := fn(); err != nil {
		return &WorkerError{Phase: "layout", Revision: rev, Cause: err, Time: time.Now()}
	}
	return nil
}

func (w *Worker) recordErrorLocked(err *WorkerError) {
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
}

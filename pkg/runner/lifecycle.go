package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// LifecycleRunner walks the engine through new, starting, running, draining,
// stopped. Run blocks until Stop is called or the passed context ends; either
// way the drainer runs exactly once, bounded by the drain timeout, before the
// stop hook fires.
type LifecycleRunner struct {
	state    atomic.Int32
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	hooks    Hooks
	drainer  Drainer
	stopErr  error
	timeout  time.Duration
}

func NewLifecycleRunner(drainer Drainer, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &LifecycleRunner{
		ctx:     ctx,
		cancel:  cancel,
		hooks:   hooks,
		drainer: drainer,
		timeout: timeout,
	}
	r.state.Store(int32(StateNew))
	return r
}

// Run services the lifecycle until shutdown. The runner is single-use; a
// second Run fails, matching the one session an engine process carries.
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateNew), int32(StateStarting)) {
		return errors.New("invalid state transition")
	}
	// Stop may have landed before this goroutine was scheduled; skip straight
	// to teardown instead of announcing a start that already ended.
	if r.ctx.Err() != nil {
		return r.stop()
	}
	PrintBanner()
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				r.cancel()
			case <-r.ctx.Done():
			}
		}()
	}
	if r.hooks.OnStart != nil {
		r.hooks.OnStart()
	}
	r.state.Store(int32(StateRunning))
	<-r.ctx.Done()
	return r.stop()
}

func (r *LifecycleRunner) Stop() error {
	r.cancel()
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(r.state.Load())
}

func (r *LifecycleRunner) stop() error {
	r.stopOnce.Do(func() {
		r.state.Store(int32(StateDraining))
		r.stopErr = r.drain()
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
	})
	// Outside the once so every caller converges on the terminal state, even
	// one that raced past the drain.
	r.state.Store(int32(StateStopped))
	return r.stopErr
}

// drain runs the drainer off to the side so a wedged connection cannot hold
// shutdown past the timeout.
func (r *LifecycleRunner) drain() error {
	if r.drainer == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		_ = r.drainer.Drain()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(r.timeout):
		return errors.New("drain timeout")
	}
}

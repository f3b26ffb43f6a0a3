// Package controller owns the single workload instance: its state, its
// handle, and the mutual-exclusion discipline across start, stop and update.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/psantana5/container-control/pkg/adapter"
	"github.com/psantana5/container-control/pkg/config"
	"github.com/psantana5/container-control/pkg/logging"
	"github.com/psantana5/container-control/pkg/metrics"
	"github.com/psantana5/container-control/pkg/privilege"
	"github.com/psantana5/container-control/pkg/state"
)

// Controller serializes lifecycle operations against one adapter. Mutating
// operations hold the lifecycle lock; reads go through a narrow RWMutex so
// they never wait behind a long-running start or stop.
type Controller struct {
	adapter     adapter.Adapter
	sep         *privilege.Separator
	agg         *metrics.Aggregator
	log         *logging.Logger
	primaryKey  string
	policy      config.BusyPolicy
	stopTimeout time.Duration

	// Lifecycle lock: held for the full duration of start/stop/update
	opMu sync.Mutex

	// Guards the (state, handle) pair for readers
	mu      sync.RWMutex
	st      state.State
	handle  adapter.Handle
	lastErr error
}

// New creates a controller in the idle state
func New(cfg *config.Config, ad adapter.Adapter, sep *privilege.Separator, agg *metrics.Aggregator, log *logging.Logger) *Controller {
	return &Controller{
		adapter:     ad,
		sep:         sep,
		agg:         agg,
		log:         log,
		primaryKey:  cfg.PrimaryPayloadKey,
		policy:      cfg.Policy,
		stopTimeout: cfg.StopTimeout,
		st:          state.StateIdle,
	}
}

// acquire takes the lifecycle lock according to the busy policy
func (c *Controller) acquire() error {
	if c.policy == config.PolicyReject {
		if !c.opMu.TryLock() {
			return ErrBusy
		}
		return nil
	}
	c.opMu.Lock()
	return nil
}

// Start validates the payload, stops any running workload, runs privileged
// pre-start hooks, and launches the workload through the privilege wrapper.
// It returns with the machine in running or failed, never mid-transition.
func (c *Controller) Start(ctx context.Context, payload adapter.Payload) error {
	if _, ok := payload[c.primaryKey]; !ok {
		return &ValidationError{Key: c.primaryKey}
	}

	if err := c.acquire(); err != nil {
		return err
	}
	defer c.opMu.Unlock()

	if c.State() == state.StateRunning {
		c.log.Info("workload running, stopping before restart")
		c.stopLocked()
	}

	c.transition(state.StateStarting)

	if hooker, ok := c.adapter.(adapter.PreStartHooker); ok {
		if err := hooker.PreStartHooks(payload); err != nil {
			c.fail(err)
			return &AdapterError{Op: "pre_start_hooks", Err: err}
		}
	}

	h, err := c.adapter.Start(ctx, payload, c.sep.Wrap)
	if err != nil {
		c.fail(err)
		return &AdapterError{Op: "start", Err: err}
	}

	c.mu.Lock()
	c.st = state.StateRunning
	c.handle = h
	c.lastErr = nil
	c.mu.Unlock()

	c.log.Info("workload started")
	return nil
}

// Stop terminates the workload. It always queues behind the lifecycle lock,
// so a stop issued during a start waits for it rather than racing it. A stop
// with nothing running succeeds without touching state.
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.State().IsStoppable() {
		return nil
	}

	c.stopLocked()
	return nil
}

// stopLocked runs the stop path under the lifecycle lock. The machine always
// lands in stopped, even when the adapter errors; a stuck workload must not
// wedge the control plane. The wait for graceful exit is bounded by the
// configured stop timeout, independent of the caller's context.
func (c *Controller) stopLocked() {
	c.transition(state.StateStopping)

	ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
	defer cancel()

	if err := c.adapter.Stop(ctx); err != nil {
		c.log.Error("adapter stop failed, forcing stopped state", map[string]interface{}{"error": err.Error()})
	}

	if hooker, ok := c.adapter.(adapter.PostStopHooker); ok {
		if err := hooker.PostStopHooks(); err != nil {
			c.log.Error("post-stop hooks failed", map[string]interface{}{"error": err.Error()})
		}
	}

	c.mu.Lock()
	c.st = state.StateStopped
	c.handle = nil
	c.mu.Unlock()

	c.log.Info("workload stopped")
}

// Update forwards a live configuration change to the adapter. Only valid
// while running; a declined change surfaces as ErrUpdateDeclined.
func (c *Controller) Update(ctx context.Context, payload adapter.Payload) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.opMu.Unlock()

	if c.State() != state.StateRunning {
		return ErrNotRunning
	}

	applied, err := c.adapter.Update(payload)
	if err != nil {
		return &AdapterError{Op: "update", Err: err}
	}
	if !applied {
		return ErrUpdateDeclined
	}

	c.log.Info("update applied")
	return nil
}

// State returns the current workload state without taking the lifecycle lock
func (c *Controller) State() state.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st
}

// LastError returns the failure that put the machine in the failed state
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Snapshot produces a metrics snapshot from the best available view. It
// never waits on an in-flight start or stop.
func (c *Controller) Snapshot() metrics.Snapshot {
	c.mu.RLock()
	st := c.st
	h := c.handle
	c.mu.RUnlock()
	return c.agg.Take(st, h, c.adapter)
}

// AdapterExposition returns adapter-contributed exposition lines, if any
func (c *Controller) AdapterExposition() []string {
	if provider, ok := c.adapter.(adapter.ExpositionProvider); ok {
		return provider.PrometheusLines()
	}
	return nil
}

// Shutdown stops the workload during process teardown
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Stop(ctx)
}

// transition moves the state machine, logging any contract violation
func (c *Controller) transition(to state.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := state.ValidateTransition(c.st, to); err != nil {
		c.log.Warn("state transition outside contract", map[string]interface{}{"error": err.Error()})
	}
	c.st = to
}

// fail records a start failure and clears the handle
func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.st = state.StateFailed
	c.handle = nil
	c.lastErr = err
	c.mu.Unlock()
	c.log.Error("workload start failed", map[string]interface{}{"error": err.Error()})
}

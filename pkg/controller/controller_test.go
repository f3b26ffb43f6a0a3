package controller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/psantana5/container-control/pkg/adapter"
	"github.com/psantana5/container-control/pkg/config"
	"github.com/psantana5/container-control/pkg/logging"
	"github.com/psantana5/container-control/pkg/metrics"
	"github.com/psantana5/container-control/pkg/privilege"
	"github.com/psantana5/container-control/pkg/state"
)

// fakeAdapter records every contract call
type fakeAdapter struct {
	mu             sync.Mutex
	startCalls     int
	stopCalls      int
	preStartCalls  int
	startErr       error
	hookErr        error
	updateErr      error
	updateApplied  bool
	startDelay     time.Duration
	startedPayload adapter.Payload
	updatedPayload adapter.Payload
	wrappedCmd     []string
	metricsMap     map[string]interface{}
}

type fakeHandle struct{ pid int }

func (h *fakeHandle) Pid() int { return h.pid }

func (f *fakeAdapter) Start(ctx context.Context, payload adapter.Payload, wrap privilege.WrapFunc) (adapter.Handle, error) {
	f.mu.Lock()
	f.startCalls++
	f.startedPayload = payload
	f.wrappedCmd = wrap([]string{"python3", "run.py"})
	delay := f.startDelay
	err := f.startErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &fakeHandle{pid: 4242}, nil
}

func (f *fakeAdapter) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

func (f *fakeAdapter) Update(payload adapter.Payload) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedPayload = payload
	return f.updateApplied, f.updateErr
}

func (f *fakeAdapter) Metrics() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metricsMap
}

func (f *fakeAdapter) PreStartHooks(payload adapter.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preStartCalls++
	return f.hookErr
}

func (f *fakeAdapter) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls
}

func testLogger() *logging.Logger {
	l := logging.NewLogger("test", logging.ERROR, false)
	l.SetOutput(io.Discard)
	return l
}

func testAggregator() *metrics.Aggregator {
	return metrics.NewAggregator(
		metrics.WithSystemSampler(func() metrics.SystemMetrics { return metrics.SystemMetrics{} }),
		metrics.WithProcessSampler(func(pid int) *metrics.ProcessMetrics {
			return &metrics.ProcessMetrics{NumProcs: 1}
		}),
	)
}

func newController(f *fakeAdapter, policy config.BusyPolicy) *Controller {
	cfg := &config.Config{
		PrimaryPayloadKey: "app",
		Policy:            policy,
		StopTimeout:       time.Second,
	}
	sep, _ := privilege.New("", privilege.WithEuid(func() int { return 1000 }))
	return New(cfg, f, sep, testAggregator(), testLogger())
}

func TestStartRequiresPrimaryKey(t *testing.T) {
	f := &fakeAdapter{}
	c := newController(f, config.PolicyQueue)

	err := c.Start(context.Background(), adapter.Payload{"other": 1})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if c.State() != state.StateIdle {
		t.Errorf("state changed on validation failure: %s", c.State())
	}
	if starts, _ := f.counts(); starts != 0 {
		t.Errorf("adapter reached despite validation failure")
	}
}

func TestStartStopCycle(t *testing.T) {
	f := &fakeAdapter{}
	c := newController(f, config.PolicyQueue)

	if err := c.Start(context.Background(), adapter.Payload{"app": 1}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != state.StateRunning {
		t.Fatalf("state = %s, want running", c.State())
	}
	if f.preStartCalls != 1 {
		t.Errorf("preStartCalls = %d, want 1", f.preStartCalls)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != state.StateStopped {
		t.Fatalf("state = %s, want stopped", c.State())
	}

	snap := c.Snapshot()
	if snap.State != state.StateStopped {
		t.Errorf("snapshot state = %s, want stopped", snap.State)
	}
	if snap.Timestamp == "" {
		t.Error("snapshot missing timestamp")
	}
}

func TestStopIdempotent(t *testing.T) {
	f := &fakeAdapter{}
	c := newController(f, config.PolicyQueue)

	for i := 0; i < 3; i++ {
		if err := c.Stop(context.Background()); err != nil {
			t.Fatalf("Stop #%d from idle: %v", i, err)
		}
	}
	if c.State() != state.StateIdle {
		t.Errorf("stop from idle changed state to %s", c.State())
	}
	if _, stops := f.counts(); stops != 0 {
		t.Errorf("adapter stop reached %d times from idle", stops)
	}

	c.Start(context.Background(), adapter.Payload{"app": 1})
	c.Stop(context.Background())
	c.Stop(context.Background())
	c.Stop(context.Background())

	if c.State() != state.StateStopped {
		t.Errorf("state = %s, want stopped", c.State())
	}
	if _, stops := f.counts(); stops != 1 {
		t.Errorf("adapter stop called %d times, want 1", stops)
	}
}

func TestRestartWhileRunning(t *testing.T) {
	f := &fakeAdapter{}
	c := newController(f, config.PolicyQueue)

	c.Start(context.Background(), adapter.Payload{"app": 1})
	if err := c.Start(context.Background(), adapter.Payload{"app": 2}); err != nil {
		t.Fatalf("restart: %v", err)
	}

	starts, stops := f.counts()
	if starts != 2 || stops != 1 {
		t.Errorf("starts=%d stops=%d, want 2 and 1", starts, stops)
	}
	if got := f.startedPayload["app"]; got != 2 {
		t.Errorf("second payload not forwarded, got %v", got)
	}
	if c.State() != state.StateRunning {
		t.Errorf("state = %s, want running", c.State())
	}
}

func TestConcurrentStartsRejectPolicy(t *testing.T) {
	f := &fakeAdapter{startDelay: 50 * time.Millisecond}
	c := newController(f, config.PolicyReject)

	const n = 8
	var wg sync.WaitGroup
	var busyCount, okCount int32
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Start(context.Background(), adapter.Payload{"app": 1})
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrBusy) {
				busyCount++
			} else if err == nil {
				okCount++
			}
		}()
	}
	wg.Wait()

	starts, _ := f.counts()
	if starts != 1 {
		t.Errorf("adapter started %d times, want exactly 1", starts)
	}
	if okCount != 1 || busyCount != n-1 {
		t.Errorf("ok=%d busy=%d, want 1 and %d", okCount, busyCount, n-1)
	}
	if c.State() != state.StateRunning {
		t.Errorf("state = %s, want running", c.State())
	}
}

func TestStopQueuesBehindStart(t *testing.T) {
	f := &fakeAdapter{startDelay: 50 * time.Millisecond}
	c := newController(f, config.PolicyQueue)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Start(context.Background(), adapter.Payload{"app": 1})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond) // let the start take the lock
		c.Stop(context.Background())
	}()
	wg.Wait()

	if !c.State().IsStable() {
		t.Fatalf("machine left mid-transition: %s", c.State())
	}
	if c.State() != state.StateStopped {
		t.Errorf("state = %s, want stopped (stop queued after start)", c.State())
	}
}

func TestUpdateBeforeStart(t *testing.T) {
	f := &fakeAdapter{updateApplied: true}
	c := newController(f, config.PolicyQueue)

	err := c.Update(context.Background(), adapter.Payload{"x": 1})
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("want ErrNotRunning, got %v", err)
	}
	if f.updatedPayload != nil {
		t.Error("update reached the adapter while not running")
	}
}

func TestUpdatePaths(t *testing.T) {
	f := &fakeAdapter{updateApplied: true}
	c := newController(f, config.PolicyQueue)
	c.Start(context.Background(), adapter.Payload{"app": 1})

	if err := c.Update(context.Background(), adapter.Payload{"bitrate": 5000}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := f.updatedPayload["bitrate"]; got != 5000 {
		t.Errorf("payload not forwarded, got %v", got)
	}

	f.mu.Lock()
	f.updateApplied = false
	f.mu.Unlock()
	if err := c.Update(context.Background(), adapter.Payload{"x": 1}); !errors.Is(err, ErrUpdateDeclined) {
		t.Errorf("want ErrUpdateDeclined, got %v", err)
	}

	f.mu.Lock()
	f.updateErr = errors.New("boom")
	f.mu.Unlock()
	err := c.Update(context.Background(), adapter.Payload{"x": 1})
	var aErr *AdapterError
	if !errors.As(err, &aErr) {
		t.Errorf("want AdapterError, got %v", err)
	}
	if c.State() != state.StateRunning {
		t.Errorf("update failure changed state to %s", c.State())
	}
}

func TestStartFailureThenStop(t *testing.T) {
	f := &fakeAdapter{startErr: errors.New("no such binary")}
	c := newController(f, config.PolicyQueue)

	err := c.Start(context.Background(), adapter.Payload{"app": 1})
	var aErr *AdapterError
	if !errors.As(err, &aErr) {
		t.Fatalf("want AdapterError, got %v", err)
	}
	if c.State() != state.StateFailed {
		t.Fatalf("state = %s, want failed", c.State())
	}
	if c.LastError() == nil {
		t.Error("failure detail not preserved")
	}

	// A stop after a failed start must still succeed and settle in stopped
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after failure: %v", err)
	}
	if c.State() != state.StateStopped {
		t.Errorf("state = %s, want stopped", c.State())
	}
}

func TestPreStartHookFailure(t *testing.T) {
	f := &fakeAdapter{hookErr: errors.New("tc refused")}
	c := newController(f, config.PolicyQueue)

	err := c.Start(context.Background(), adapter.Payload{"app": 1})
	var aErr *AdapterError
	if !errors.As(err, &aErr) {
		t.Fatalf("want AdapterError, got %v", err)
	}
	if starts, _ := f.counts(); starts != 0 {
		t.Error("adapter start reached despite hook failure")
	}
	if c.State() != state.StateFailed {
		t.Errorf("state = %s, want failed", c.State())
	}
}

func TestSnapshotReservedKeysWin(t *testing.T) {
	f := &fakeAdapter{metricsMap: map[string]interface{}{
		"state":     "spoofed",
		"timestamp": "1970-01-01",
		"fps":       30,
	}}
	c := newController(f, config.PolicyQueue)
	c.Start(context.Background(), adapter.Payload{"app": 1})

	m := c.Snapshot().Map()
	if m["state"] != state.StateRunning {
		t.Errorf("reserved state overridden by adapter: %v", m["state"])
	}
	if m["timestamp"] == "1970-01-01" {
		t.Error("reserved timestamp overridden by adapter")
	}
	if m["fps"] != 30 {
		t.Errorf("adapter key dropped, got %v", m["fps"])
	}
}

func TestReadsDoNotBlockOnStart(t *testing.T) {
	f := &fakeAdapter{startDelay: 200 * time.Millisecond}
	c := newController(f, config.PolicyQueue)

	go c.Start(context.Background(), adapter.Payload{"app": 1})
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.State()
		c.Snapshot()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("reads blocked behind an in-flight start")
	}
}

// Package execadapter provides the reference adapter: it launches an
// arbitrary command taken from the start payload and supervises that one
// process. Workload images with richer needs ship their own adapter.
package execadapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/container-control/pkg/adapter"
	"github.com/psantana5/container-control/pkg/privilege"
)

const defaultGracePeriod = 10 * time.Second

func init() {
	adapter.Register("exec", New)
}

// handle references the launched process
type handle struct {
	id  string
	pid int
}

func (h *handle) Pid() int { return h.pid }

func (h *handle) String() string { return h.id }

// ExecAdapter launches and supervises a single command
type ExecAdapter struct {
	gracePeriod time.Duration
	commandKey  string

	mu      sync.Mutex
	cmd     *exec.Cmd
	current *handle
	done    chan struct{}
	waitErr error
}

// New constructs the exec adapter from its static config block. Recognized
// keys: command_key (payload key holding the argv list, default "command"),
// grace_period_seconds (SIGTERM to SIGKILL escalation delay).
func New(static map[string]interface{}) (adapter.Adapter, error) {
	a := &ExecAdapter{
		gracePeriod: defaultGracePeriod,
		commandKey:  "command",
	}
	if v, ok := static["command_key"].(string); ok && v != "" {
		a.commandKey = v
	}
	if v, ok := static["grace_period_seconds"]; ok {
		switch n := v.(type) {
		case int:
			a.gracePeriod = time.Duration(n) * time.Second
		case float64:
			a.gracePeriod = time.Duration(n) * time.Second
		}
	}
	return a, nil
}

// CommandFromPayload extracts the argv list from a start payload
func (a *ExecAdapter) CommandFromPayload(payload adapter.Payload) ([]string, error) {
	raw, ok := payload[a.commandKey]
	if !ok {
		return nil, fmt.Errorf("payload missing %q", a.commandKey)
	}

	switch v := raw.(type) {
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%q must not be empty", a.commandKey)
		}
		return v, nil
	case []interface{}:
		argv := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%q must be a list of strings", a.commandKey)
			}
			argv = append(argv, s)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("%q must not be empty", a.commandKey)
		}
		return argv, nil
	case string:
		if v == "" {
			return nil, fmt.Errorf("%q must not be empty", a.commandKey)
		}
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("%q must be a string or list of strings", a.commandKey)
	}
}

// Start launches the command in its own process group so the whole workload
// tree can be signalled on stop.
func (a *ExecAdapter) Start(ctx context.Context, payload adapter.Payload, wrap privilege.WrapFunc) (adapter.Handle, error) {
	argv, err := a.CommandFromPayload(payload)
	if err != nil {
		return nil, err
	}
	argv = wrap(argv)

	a.mu.Lock()
	defer a.mu.Unlock()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start workload: %w", err)
	}

	h := &handle{
		id:  uuid.New().String(),
		pid: cmd.Process.Pid,
	}
	a.cmd = cmd
	a.current = h
	a.done = make(chan struct{})

	done := a.done
	go func() {
		err := cmd.Wait()
		a.mu.Lock()
		a.waitErr = err
		a.mu.Unlock()
		close(done)
	}()

	return h, nil
}

// Stop terminates the process group gracefully and escalates to SIGKILL
// once the grace period elapses. Idempotent.
func (a *ExecAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cmd := a.cmd
	done := a.done
	a.cmd = nil
	a.current = nil
	a.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pgid := -cmd.Process.Pid
	if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
		// Process group already gone
		return nil
	}

	grace := time.NewTimer(a.gracePeriod)
	defer grace.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	case <-grace.C:
	}

	if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil {
		return nil
	}
	<-done
	return nil
}

// Update is not meaningful for a bare command; the change is recognized but
// never applied, which the controller maps to a conflict.
func (a *ExecAdapter) Update(payload adapter.Payload) (bool, error) {
	return false, nil
}

// Metrics reports the supervised process state
func (a *ExecAdapter) Metrics() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := map[string]interface{}{
		"exec_running": a.cmd != nil,
	}
	if a.current != nil {
		m["exec_pid"] = a.current.pid
		m["exec_handle"] = a.current.id
	}
	return m
}

// PrometheusLines contributes exec adapter gauges to the exposition
func (a *ExecAdapter) PrometheusLines() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	running := 0
	if a.cmd != nil {
		running = 1
	}
	return []string{
		"# HELP ccc_exec_running Whether the exec adapter has a live process",
		"# TYPE ccc_exec_running gauge",
		fmt.Sprintf("ccc_exec_running %d", running),
	}
}

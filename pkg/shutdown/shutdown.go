// Package shutdown coordinates graceful process teardown on SIGTERM/SIGINT.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/container-control/pkg/logging"
)

// Manager runs registered shutdown functions, in reverse registration order,
// when a termination signal arrives.
type Manager struct {
	mu      sync.Mutex
	funcs   []func(context.Context) error
	names   []string
	timeout time.Duration
	log     *logging.Logger
	once    sync.Once
	done    chan struct{}
}

// New creates a shutdown manager with a bound on total teardown time
func New(timeout time.Duration, log *logging.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Register adds a named shutdown function. Functions run LIFO, so register
// outer resources (the HTTP server) after inner ones (the workload).
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, fn)
	m.names = append(m.names, name)
}

// Wait blocks until SIGTERM or SIGINT, then runs the registered functions
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	m.log.Info("signal received, shutting down", map[string]interface{}{"signal": sig.String()})

	m.once.Do(func() { close(m.done) })
	m.Shutdown()
}

// Done is closed when shutdown has been initiated
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Shutdown runs all registered functions LIFO under the teardown timeout
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	for i := len(m.funcs) - 1; i >= 0; i-- {
		if err := m.funcs[i](ctx); err != nil {
			m.log.Error("shutdown step failed", map[string]interface{}{
				"step":  m.names[i],
				"error": err.Error(),
			})
		}
	}

	m.log.Info("graceful shutdown complete")
}

// StopHTTPServer wraps an http.Server style Shutdown for registration
func StopHTTPServer(server interface{ Shutdown(context.Context) error }, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop %s server: %w", name, err)
		}
		return nil
	}
}

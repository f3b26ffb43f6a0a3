// Package adapter defines the contract every workload must satisfy to be
// managed by the control core. One concrete adapter is active per process,
// selected once from configuration through the registry.
package adapter

import (
	"context"

	"github.com/psantana5/container-control/pkg/privilege"
)

// Handle is an opaque reference to a running workload. The controller stores
// it but never inspects it; only the adapter knows what it points at.
type Handle interface{}

// ProcessHandle is implemented by handles that are rooted at an OS process.
// The metrics aggregator uses it to sample the workload's process tree.
type ProcessHandle interface {
	Pid() int
}

// Payload is the request body forwarded to the adapter. The core validates
// the configured primary key is present and does not interpret it further.
type Payload map[string]interface{}

// Adapter hides workload-specific complexity from the control core.
type Adapter interface {
	// Start constructs and launches the workload. Commands that must run
	// unprivileged go through wrap. Start must return an error rather than
	// silently leaving no handle behind.
	Start(ctx context.Context, payload Payload, wrap privilege.WrapFunc) (Handle, error)

	// Stop terminates the workload gracefully, escalating to forced
	// termination after a bounded wait. Stopping a workload that is not
	// running is a no-op, not an error.
	Stop(ctx context.Context) error

	// Update applies an in-place configuration change. It returns false when
	// the change is recognized but cannot be applied, which the controller
	// surfaces as a conflict.
	Update(payload Payload) (bool, error)

	// Metrics returns best-effort instantaneous values. It must not block.
	Metrics() map[string]interface{}
}

// PreStartHooker is implemented by adapters that need root-equivalent setup
// before any privilege drop, such as network shaping. Called once per start.
type PreStartHooker interface {
	PreStartHooks(payload Payload) error
}

// PostStopHooker is implemented by adapters that need privileged cleanup
// after the workload stops.
type PostStopHooker interface {
	PostStopHooks() error
}

// ExpositionProvider is implemented by adapters that contribute their own
// lines to the flat text metrics exposition.
type ExpositionProvider interface {
	PrometheusLines() []string
}

package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs an adapter from its static configuration block
type Factory func(static map[string]interface{}) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an adapter factory available under a name. Adapters register
// themselves from init; registering the same name twice panics because it is
// always a programming error.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("adapter: Register called twice for %q", name))
	}
	registry[name] = factory
}

// New resolves a registered adapter by name and constructs it. Resolution
// happens exactly once at process startup; an unknown name is fatal.
func New(name string, static map[string]interface{}) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q (registered: %v)", name, Names())
	}
	return factory(static)
}

// Names returns the registered adapter names, sorted
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package provider

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory creates a provider from its settings.
type Factory func(logger *zap.Logger, settings map[string]string) (RecordClient, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register is called by provider packages in their init() to self-register.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("provider: %q already registered", name))
	}
	factories[name] = f
}

// New creates the named provider.
func New(name string, logger *zap.Logger, settings map[string]string) (RecordClient, error) {
	mu.Lock()
	f, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported DNS provider: %q (registered: %v)", name, Names())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return f(logger, settings)
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

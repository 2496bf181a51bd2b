package tracker

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a driver bound to a host address. It must not connect.
type Factory func(address string) (Tracker, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Factory)
)

// Register makes a driver available under name. Registering the same name
// twice panics, as with database/sql drivers.
func Register(name string, factory Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if factory == nil {
		panic("tracker: Register factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("tracker: Register called twice for driver " + name)
	}
	drivers[name] = factory
}

// Open creates a tracker with the named driver.
func Open(name, address string) (Tracker, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tracker: unknown driver %q (registered: %v)", name, Drivers())
	}

	t, err := factory(address)
	if err != nil {
		return nil, fmt.Errorf("tracker: open %s at %s: %w", name, address, err)
	}
	return t, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

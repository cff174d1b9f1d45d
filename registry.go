package taskscheduler

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Swind/go-task-scheduler/core"
)

// MainSchedulerName is the registry key used by the process-wide helpers.
const MainSchedulerName = "main"

// ErrSchedulerNotFound is returned when a registry has no scheduler under the
// requested name.
var ErrSchedulerNotFound = errors.New("scheduler not found")

// Registry caches named schedulers so independent components can share one
// pool without passing it around. Prefer constructing a scheduler and
// injecting it; the registry exists for code that cannot.
type Registry struct {
	mu         sync.Mutex
	template   core.SchedulerConfig
	schedulers map[string]*core.WorkStealingScheduler
}

// NewRegistry creates an empty registry. Schedulers it creates copy config,
// with Name replaced by their registry key. A nil config uses
// core.DefaultSchedulerConfig().
func NewRegistry(config *core.SchedulerConfig) *Registry {
	if config == nil {
		config = core.DefaultSchedulerConfig()
	}
	return &Registry{
		template:   *config,
		schedulers: make(map[string]*core.WorkStealingScheduler),
	}
}

// CreateInRegistry returns the scheduler registered under name, creating it
// if needed. A new scheduler has no background workers until Init is called.
func (r *Registry) CreateInRegistry(name string) *core.WorkStealingScheduler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.schedulers[name]; ok {
		return s
	}

	cfg := r.template
	cfg.Name = name
	s := core.NewWorkStealingSchedulerWithConfig(&cfg)
	r.schedulers[name] = s
	return s
}

// Find returns the scheduler registered under name.
func (r *Registry) Find(name string) (*core.WorkStealingScheduler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedulers[name]
	if !ok {
		return nil, fmt.Errorf("find %q: %w", name, ErrSchedulerNotFound)
	}
	return s, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.schedulers))
	for name := range r.schedulers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Remove shuts down and forgets the scheduler registered under name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	s, ok := r.schedulers[name]
	delete(r.schedulers, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("remove %q: %w", name, ErrSchedulerNotFound)
	}
	s.Shutdown()
	return nil
}

// Clear shuts down every registered scheduler and empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	old := r.schedulers
	r.schedulers = make(map[string]*core.WorkStealingScheduler)
	r.mu.Unlock()

	for _, s := range old {
		s.Shutdown()
	}
}

// =============================================================================
// Main Scheduler Helper (Singleton)
// =============================================================================

var (
	mainRegistry = NewRegistry(nil)
	mainMu       sync.Mutex
	mainSched    *core.WorkStealingScheduler
)

// InitMainScheduler (re)initializes the process-wide scheduler with
// threadCount participants. Calling it again re-initializes the same
// instance.
func InitMainScheduler(threadCount int) error {
	mainMu.Lock()
	defer mainMu.Unlock()

	s := mainSched
	if s == nil {
		s = mainRegistry.CreateInRegistry(MainSchedulerName)
	}
	if err := s.Init(threadCount); err != nil {
		return err
	}
	mainSched = s
	return nil
}

// MainScheduler returns the process-wide scheduler.
// It panics if InitMainScheduler has not been called.
func MainScheduler() *core.WorkStealingScheduler {
	mainMu.Lock()
	defer mainMu.Unlock()

	if mainSched == nil {
		panic("MainScheduler not initialized. Call InitMainScheduler() first.")
	}
	return mainSched
}

// ShutdownMainScheduler stops the process-wide scheduler's workers. The
// instance stays registered; MainScheduler panics until the next Init.
func ShutdownMainScheduler() {
	mainMu.Lock()
	defer mainMu.Unlock()

	if mainSched != nil {
		mainSched.Shutdown()
		mainSched = nil
	}
}

// ClearRegistry shuts down and drops every scheduler in the process-wide
// registry, the main scheduler included.
func ClearRegistry() {
	mainMu.Lock()
	defer mainMu.Unlock()

	mainRegistry.Clear()
	mainSched = nil
}

// DefaultRegistry returns the process-wide registry backing the helpers above.
func DefaultRegistry() *Registry {
	return mainRegistry
}

package annotator

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"daf/internal/config"
	"daf/internal/flow"
)

// Event types published while annotators run
const (
	EventStarted  = "annotator-started"
	EventFinished = "annotator-finished"
	EventFailed   = "annotator-failed"
)

// EventFunc is called when annotator lifecycle events occur
type EventFunc func(eventType string, payload interface{})

type registered struct {
	annotator Annotator
	timeout   time.Duration
}

// Registry manages annotator factories and the annotators built from configuration
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	annotators []registered
	names      map[string]bool
	onEvent    EventFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		names:     make(map[string]bool),
	}
}

// RegisterFactory makes a configuration name buildable
func (r *Registry) RegisterFactory(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("factory %s already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Factories returns the registered configuration names, sorted
func (r *Registry) Factories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetEventHandler sets the handler for lifecycle events
func (r *Registry) SetEventHandler(handler EventFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvent = handler
}

func (r *Registry) publish(eventType string, payload interface{}) {
	r.mu.RLock()
	handler := r.onEvent
	r.mu.RUnlock()

	if handler != nil {
		handler(eventType, payload)
	}
}

// Register adds a built annotator. Run order follows registration order.
func (r *Registry) Register(a Annotator, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if r.names[name] {
		return fmt.Errorf("annotator %s already registered", name)
	}
	r.names[name] = true
	r.annotators = append(r.annotators, registered{annotator: a, timeout: timeout})
	log.Printf("Registered annotator: %s (timeout=%s)", name, timeout)
	return nil
}

// Build constructs every enabled annotator of cfg in declaration order.
// Entries without a factory are skipped with a warning; factory errors are fatal.
func (r *Registry) Build(cfg *config.Config) error {
	for _, ac := range cfg.EnabledAnnotators() {
		r.mu.RLock()
		factory, ok := r.factories[ac.Name]
		r.mu.RUnlock()

		if !ok {
			log.Printf("Unknown annotator %s in configuration, skipping", ac.Name)
			continue
		}

		built, err := factory(ac, cfg.DAF)
		if err != nil {
			return fmt.Errorf("annotator %s: %w", ac.Name, err)
		}
		for _, a := range built {
			if err := r.Register(a, ac.Timeout.Duration()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names returns the names of the registered annotators in run order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.annotators))
	for _, reg := range r.annotators {
		names = append(names, reg.annotator.Name())
	}
	return names
}

// Run executes every registered annotator over addrs and returns the
// committed proposals plus the annotators that failed. A failure never
// aborts the other annotators.
func (r *Registry) Run(ctx context.Context, addrs []string, flows *flow.Index, mode config.ExecutionMode) (*Store, []Failure) {
	store := NewStore(addrs)

	r.mu.RLock()
	annotators := append([]registered(nil), r.annotators...)
	r.mu.RUnlock()

	if store.Len() == 0 || len(annotators) == 0 {
		return store, nil
	}

	failures := make([]*Failure, len(annotators))

	switch mode {
	case config.ModeSequential:
		for i, reg := range annotators {
			failures[i] = r.runOne(ctx, reg, store, flows)
		}
	default:
		var wg sync.WaitGroup
		for i, reg := range annotators {
			wg.Add(1)
			go func(i int, reg registered) {
				defer wg.Done()
				failures[i] = r.runOne(ctx, reg, store, flows)
			}(i, reg)
		}
		wg.Wait()
	}

	var out []Failure
	for _, f := range failures {
		if f != nil {
			out = append(out, *f)
		}
	}
	return store, out
}

// runOne executes a single annotator with panic recovery and its timeout
func (r *Registry) runOne(ctx context.Context, reg registered, store *Store, flows *flow.Index) *Failure {
	name := reg.annotator.Name()
	stage := newStaging(name)
	batch := &Batch{
		Addresses: store.Addresses(),
		Flows:     flows,
		Proposer:  stage,
	}

	runCtx := ctx
	if reg.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, reg.timeout)
		defer cancel()
	}

	log.Printf("Annotator %s started (%d addresses)", name, len(batch.Addresses))
	r.publish(EventStarted, map[string]interface{}{
		"annotator": name,
		"total":     len(batch.Addresses),
	})
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Printf("Annotator %s panicked: %v\n%s", name, p, debug.Stack())
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- reg.annotator.Annotate(runCtx, batch)
	}()

	var err error
	select {
	case err = <-done:
	case <-runCtx.Done():
		err = fmt.Errorf("aborted: %w", runCtx.Err())
	}

	if err != nil {
		stage.close()
		log.Printf("Annotator %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
		r.publish(EventFailed, map[string]interface{}{
			"annotator": name,
			"error":     err.Error(),
		})
		return &Failure{Annotator: name, Err: err}
	}

	annotated := stage.commit(store)
	log.Printf("Annotator %s finished in %s: %d addresses annotated",
		name, time.Since(start).Round(time.Millisecond), annotated)
	r.publish(EventFinished, map[string]interface{}{
		"annotator": name,
		"annotated": annotated,
	})
	return nil
}

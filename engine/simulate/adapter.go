// Package simulate wraps a native SPICE shared library loaded at runtime
// via dynamic linking (github.com/ebitengine/purego, no cgo). The wrapper
// owns a process-wide engine handle — the C runtime is stateful and
// non-reentrant — so at most one simulation runs at a time, enforced by
// an internal exclusive lock whose contention behavior (fail fast or
// queue) is a constructor option.
package simulate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/opencircuit/core/engine/domain"
)

// LockPolicy controls what happens when a second caller tries to use the
// Adapter while a simulation is already in flight.
type LockPolicy int

const (
	// FailFast returns a Busy error immediately.
	FailFast LockPolicy = iota
	// Queue blocks until the current simulation finishes.
	Queue
)

// Options configures Init.
type Options struct {
	Policy LockPolicy
}

// Adapter is the process-wide simulation engine handle. Exactly one
// Adapter exists per process, created by Init and torn down by Shutdown.
type Adapter struct {
	engine nativeEngine
	policy LockPolicy

	// busy is held for the duration of any engine call; under FailFast
	// a failed TryLock returns Busy immediately, under Queue callers
	// block on Lock.
	busy sync.Mutex
}

var (
	instance     *Adapter
	instanceOnce sync.Once
	instanceErr  error
	instanceMu   sync.Mutex
)

// Init brings up the process-wide Adapter singleton on first call; later
// calls return the existing instance and ignore opts. Callers that need
// distinct options per call site should decide policy once, at process
// startup.
func Init(opts Options) (*Adapter, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	instanceOnce.Do(func() {
		engine, err := newPureGoEngine()
		if err != nil {
			instanceErr = err
			return
		}
		a := &Adapter{engine: engine, policy: opts.Policy}
		if err := a.engine.init(func(string) {}, func(int) {}); err != nil {
			instanceErr = err
			return
		}
		instance = a
	})
	return instance, instanceErr
}

// Shutdown tears down the singleton so a later Init can recreate it. Only
// intended for process-lifetime management in tests; production
// processes call it once at exit, if at all.
func Shutdown() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return nil
	}
	err := instance.engine.close()
	instance = nil
	instanceOnce = sync.Once{}
	instanceErr = nil
	return err
}

// acquire takes the exclusive engine lock per the configured policy.
// release must be called exactly once for every acquire that returns nil.
func (a *Adapter) acquire(ctx context.Context) (release func(), err error) {
	switch a.policy {
	case FailFast:
		if !a.busy.TryLock() {
			return nil, &Error{Kind: Busy, Detail: "simulation already in progress"}
		}
		return a.busy.Unlock, nil
	default: // Queue
		done := make(chan struct{})
		go func() {
			a.busy.Lock()
			close(done)
		}()
		select {
		case <-done:
			return a.busy.Unlock, nil
		case <-ctx.Done():
			// The lock may still land after this point; release it on
			// arrival instead of leaking a goroutine that holds it
			// forever.
			go func() {
				<-done
				a.busy.Unlock()
			}()
			return nil, ctx.Err()
		}
	}
}

// LoadNetlist submits spiceText to the engine, line by line, using the
// ngspice shared-library "circbyline" incremental-build convention.
// Diagnostics the engine reports while loading are collected and
// returned as a *LoadError if any are fatal; non-fatal warnings are
// discarded (ngspice's callback stream does not distinguish the two, so
// any command failure here is treated as fatal).
func (a *Adapter) LoadNetlist(ctx context.Context, spiceText string) error {
	release, err := a.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	a.engine.clearMessages()

	lines := strings.Split(spiceText, "\n")
	var failures []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		if err := a.engine.command("circbyline " + line); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if err := a.engine.command("circbyline .end"); err != nil {
		failures = append(failures, err.Error())
	}

	if len(failures) > 0 {
		return &LoadError{Messages: append(failures, a.engine.recentMessages()...)}
	}
	return nil
}

// Run executes analysis against the currently loaded circuit and returns
// its extracted result. All pointers the native library hands back are
// copied into Go-owned buffers before this returns — no native memory
// crosses the Adapter boundary.
func (a *Adapter) Run(ctx context.Context, analysis Analysis) (domain.SimulationResult, error) {
	release, err := a.acquire(ctx)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	defer release()

	a.engine.clearMessages()

	start := time.Now()
	if err := a.engine.command(analysis.Command()); err != nil {
		return domain.SimulationResult{}, err
	}
	elapsed := time.Since(start)

	names := a.engine.vectorNames()
	vectors := make([]rawVector, 0, len(names))
	for _, name := range names {
		values, ok := a.engine.vector(name)
		if !ok {
			continue
		}
		vectors = append(vectors, rawVector{name: name, values: values})
	}

	result := buildResult(Name(analysis), analysis.sweepVariable(), vectors, a.engine.recentMessages(), elapsed)
	return result, nil
}

// HealthCheck confirms the engine is loadable and responsive by running
// the "version" control command and reporting the version string from
// its output.
func (a *Adapter) HealthCheck(ctx context.Context) (ok bool, version string, err error) {
	release, err := a.acquire(ctx)
	if err != nil {
		return false, "", err
	}
	defer release()

	a.engine.clearMessages()
	if err := a.engine.command("version"); err != nil {
		return false, "", nil
	}

	lines := a.engine.recentMessages()
	return true, strings.Join(lines, " "), nil
}

package reload

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Listener receives reload events. Listener invocations are serialized
// across the strategy, so implementations must be fast, non-blocking and
// idempotent.
type Listener interface {
	OnReload(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, ev Event) error

// OnReload calls f.
func (f ListenerFunc) OnReload(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Strategy detects rule changes and emits events to registered listeners.
type Strategy interface {
	// Start launches the detection loop. Calling Start on a running
	// strategy is an error.
	Start(ctx context.Context) error

	// Stop terminates the detection loop and waits for it to exit.
	// Stopping twice is a no-op.
	Stop() error

	// Running reports whether the detection loop is active.
	Running() bool

	// TriggerReload emits a manual event for one rule set.
	TriggerReload(ctx context.Context, ruleSetID string, source Source)

	// TriggerReloadAll emits a manual full-reload event.
	TriggerReloadAll(ctx context.Context, source Source)

	// AddListener registers a listener for subsequent events.
	AddListener(l Listener)

	// RemoveListener drops a previously registered listener.
	RemoveListener(l Listener)
}

// dispatcher owns the listener list shared by both strategies. Events reach
// listeners in registration order; a failing listener is logged and the
// rest still run. Dispatch is serialized, so listeners never run
// concurrently even when manual triggers race the detection loop.
type dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
	log       *slog.Logger

	dispatchMu sync.Mutex
}

func newDispatcher(log *slog.Logger) *dispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &dispatcher{log: log}
}

func (d *dispatcher) add(l Listener) {
	if l == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

func (d *dispatcher) remove(l Listener) {
	if l == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = slices.DeleteFunc(d.listeners, func(cur Listener) bool {
		return sameListener(cur, l)
	})
}

// sameListener compares listener identities. Func-backed listeners such as
// ListenerFunc have an uncomparable dynamic type, so they compare by code
// pointer instead of `==`.
func sameListener(a, b Listener) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

func (d *dispatcher) dispatch(ctx context.Context, ev Event) {
	d.mu.RLock()
	listeners := slices.Clone(d.listeners)
	d.mu.RUnlock()

	// Manual triggers dispatch on the caller's goroutine; the lock keeps the
	// serial-invocation guarantee when they race the detection loop.
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	for _, l := range listeners {
		d.invoke(ctx, l, ev)
	}
}

func (d *dispatcher) invoke(ctx context.Context, l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorContext(ctx, "reload listener panicked",
				slog.String("rule_set_id", ev.RuleSetID),
				slog.String("source", string(ev.Source)),
				slog.Any("panic", r))
		}
	}()

	if err := l.OnReload(ctx, ev); err != nil {
		d.log.ErrorContext(ctx, "reload listener failed",
			slog.String("rule_set_id", ev.RuleSetID),
			slog.String("source", string(ev.Source)),
			slog.Any("error", err))
	}
}

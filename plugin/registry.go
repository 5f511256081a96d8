package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/portal/estimate"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/subscription"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit              []OnInit
	onShutdown          []OnShutdown
	onSnapshotLoaded    []OnSnapshotLoaded
	onSnapshotReplaced  []OnSnapshotReplaced
	onSnapshotDiscarded []OnSnapshotDiscarded
	onMutationStarted   []OnMutationStarted
	onMutationSucceeded []OnMutationSucceeded
	onMutationFailed    []OnMutationFailed
	onStaleResponse     []OnStaleResponse
	onEstimateComputed  []OnEstimateComputed
	onEstimateFailed    []OnEstimateFailed
	onLinkIssued        []OnLinkIssued
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSnapshotLoaded); ok {
		r.onSnapshotLoaded = append(r.onSnapshotLoaded, v)
	}
	if v, ok := p.(OnSnapshotReplaced); ok {
		r.onSnapshotReplaced = append(r.onSnapshotReplaced, v)
	}
	if v, ok := p.(OnSnapshotDiscarded); ok {
		r.onSnapshotDiscarded = append(r.onSnapshotDiscarded, v)
	}
	if v, ok := p.(OnMutationStarted); ok {
		r.onMutationStarted = append(r.onMutationStarted, v)
	}
	if v, ok := p.(OnMutationSucceeded); ok {
		r.onMutationSucceeded = append(r.onMutationSucceeded, v)
	}
	if v, ok := p.(OnMutationFailed); ok {
		r.onMutationFailed = append(r.onMutationFailed, v)
	}
	if v, ok := p.(OnStaleResponse); ok {
		r.onStaleResponse = append(r.onStaleResponse, v)
	}
	if v, ok := p.(OnEstimateComputed); ok {
		r.onEstimateComputed = append(r.onEstimateComputed, v)
	}
	if v, ok := p.(OnEstimateFailed); ok {
		r.onEstimateFailed = append(r.onEstimateFailed, v)
	}
	if v, ok := p.(OnLinkIssued); ok {
		r.onLinkIssued = append(r.onLinkIssued, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnSnapshotLoaded", reflect.TypeFor[OnSnapshotLoaded]()},
	{"OnSnapshotReplaced", reflect.TypeFor[OnSnapshotReplaced]()},
	{"OnSnapshotDiscarded", reflect.TypeFor[OnSnapshotDiscarded]()},
	{"OnMutationStarted", reflect.TypeFor[OnMutationStarted]()},
	{"OnMutationSucceeded", reflect.TypeFor[OnMutationSucceeded]()},
	{"OnMutationFailed", reflect.TypeFor[OnMutationFailed]()},
	{"OnStaleResponse", reflect.TypeFor[OnStaleResponse]()},
	{"OnEstimateComputed", reflect.TypeFor[OnEstimateComputed]()},
	{"OnEstimateFailed", reflect.TypeFor[OnEstimateFailed]()},
	{"OnLinkIssued", reflect.TypeFor[OnLinkIssued]()},
}

// implementedInterfaces lists the hooks p implements, for logging.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every cached plugin of one hook. Failures are logged
// and never propagate to the engine.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, cached *[]T, fn func(T) error) {
	r.mu.RLock()
	plugins := *cached
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", &r.onInit, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", &r.onShutdown, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

func (r *Registry) EmitSnapshotLoaded(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, "OnSnapshotLoaded", &r.onSnapshotLoaded, func(p OnSnapshotLoaded) error {
		return p.OnSnapshotLoaded(ctx, sub)
	})
}

func (r *Registry) EmitSnapshotReplaced(ctx context.Context, op string, prev, next *subscription.Subscription) {
	emit(ctx, r, "OnSnapshotReplaced", &r.onSnapshotReplaced, func(p OnSnapshotReplaced) error {
		return p.OnSnapshotReplaced(ctx, op, prev, next)
	})
}

func (r *Registry) EmitSnapshotDiscarded(ctx context.Context, subID id.SubscriptionID) {
	emit(ctx, r, "OnSnapshotDiscarded", &r.onSnapshotDiscarded, func(p OnSnapshotDiscarded) error {
		return p.OnSnapshotDiscarded(ctx, subID)
	})
}

func (r *Registry) EmitMutationStarted(ctx context.Context, op string, subID id.SubscriptionID) {
	emit(ctx, r, "OnMutationStarted", &r.onMutationStarted, func(p OnMutationStarted) error {
		return p.OnMutationStarted(ctx, op, subID)
	})
}

func (r *Registry) EmitMutationSucceeded(ctx context.Context, op string, subID id.SubscriptionID, elapsed time.Duration) {
	emit(ctx, r, "OnMutationSucceeded", &r.onMutationSucceeded, func(p OnMutationSucceeded) error {
		return p.OnMutationSucceeded(ctx, op, subID, elapsed)
	})
}

func (r *Registry) EmitMutationFailed(ctx context.Context, op string, subID id.SubscriptionID, err error) {
	emit(ctx, r, "OnMutationFailed", &r.onMutationFailed, func(p OnMutationFailed) error {
		return p.OnMutationFailed(ctx, op, subID, err)
	})
}

func (r *Registry) EmitStaleResponse(ctx context.Context, op string, subID id.SubscriptionID) {
	emit(ctx, r, "OnStaleResponse", &r.onStaleResponse, func(p OnStaleResponse) error {
		return p.OnStaleResponse(ctx, op, subID)
	})
}

func (r *Registry) EmitEstimateComputed(ctx context.Context, subID id.SubscriptionID, est *estimate.Estimate) {
	emit(ctx, r, "OnEstimateComputed", &r.onEstimateComputed, func(p OnEstimateComputed) error {
		return p.OnEstimateComputed(ctx, subID, est)
	})
}

func (r *Registry) EmitEstimateFailed(ctx context.Context, subID id.SubscriptionID, err error) {
	emit(ctx, r, "OnEstimateFailed", &r.onEstimateFailed, func(p OnEstimateFailed) error {
		return p.OnEstimateFailed(ctx, subID, err)
	})
}

func (r *Registry) EmitLinkIssued(ctx context.Context, kind, ownerID string) {
	emit(ctx, r, "OnLinkIssued", &r.onLinkIssued, func(p OnLinkIssued) error {
		return p.OnLinkIssued(ctx, kind, ownerID)
	})
}

// callWithTimeout calls a plugin function with the registry timeout.
// Plugins should never block a mutation.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

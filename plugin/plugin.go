// Package plugin provides the hook system for the portal engine.
// Plugins implement any subset of the hook interfaces below and are
// dispatched through a Registry.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/portal/estimate"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/subscription"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Snapshot hooks
// ──────────────────────────────────────────────────

// OnSnapshotLoaded is called after a snapshot is fetched and stored.
type OnSnapshotLoaded interface {
	Plugin
	OnSnapshotLoaded(ctx context.Context, sub *subscription.Subscription) error
}

// OnSnapshotReplaced is called after a mutation's response replaces the
// stored snapshot. prev is nil when nothing was stored before.
type OnSnapshotReplaced interface {
	Plugin
	OnSnapshotReplaced(ctx context.Context, op string, prev, next *subscription.Subscription) error
}

// OnSnapshotDiscarded is called when the owning view releases a snapshot.
type OnSnapshotDiscarded interface {
	Plugin
	OnSnapshotDiscarded(ctx context.Context, subID id.SubscriptionID) error
}

// ──────────────────────────────────────────────────
// Mutation hooks
// ──────────────────────────────────────────────────

// OnMutationStarted is called once the pending slot is claimed.
type OnMutationStarted interface {
	Plugin
	OnMutationStarted(ctx context.Context, op string, subID id.SubscriptionID) error
}

// OnMutationSucceeded is called after the API accepted a mutation.
type OnMutationSucceeded interface {
	Plugin
	OnMutationSucceeded(ctx context.Context, op string, subID id.SubscriptionID, elapsed time.Duration) error
}

// OnMutationFailed is called when the API rejected a mutation or the
// request failed.
type OnMutationFailed interface {
	Plugin
	OnMutationFailed(ctx context.Context, op string, subID id.SubscriptionID, err error) error
}

// OnStaleResponse is called when a mutation response is dropped because
// its view was discarded or the response is for another subscription.
type OnStaleResponse interface {
	Plugin
	OnStaleResponse(ctx context.Context, op string, subID id.SubscriptionID) error
}

// ──────────────────────────────────────────────────
// Estimate hooks
// ──────────────────────────────────────────────────

// OnEstimateComputed is called for every view that carries an estimate.
type OnEstimateComputed interface {
	Plugin
	OnEstimateComputed(ctx context.Context, subID id.SubscriptionID, est *estimate.Estimate) error
}

// OnEstimateFailed is called when the estimator rejected a snapshot.
type OnEstimateFailed interface {
	Plugin
	OnEstimateFailed(ctx context.Context, subID id.SubscriptionID, err error) error
}

// ──────────────────────────────────────────────────
// Link hooks
// ──────────────────────────────────────────────────

// OnLinkIssued is called when a backend-issued URL is handed out. kind is
// one of "onboarding", "dashboard" or "invoice".
type OnLinkIssued interface {
	Plugin
	OnLinkIssued(ctx context.Context, kind, ownerID string) error
}

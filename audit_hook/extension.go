// Package audithook bridges portal events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/portal/id"
	"github.com/xraph/portal/pending"
	"github.com/xraph/portal/plugin"
	"github.com/xraph/portal/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnMutationStarted   = (*Extension)(nil)
	_ plugin.OnMutationSucceeded = (*Extension)(nil)
	_ plugin.OnMutationFailed    = (*Extension)(nil)
	_ plugin.OnStaleResponse     = (*Extension)(nil)
	_ plugin.OnSnapshotReplaced  = (*Extension)(nil)
	_ plugin.OnSnapshotDiscarded = (*Extension)(nil)
	_ plugin.OnEstimateFailed    = (*Extension)(nil)
	_ plugin.OnLinkIssued        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges portal events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Mutation hooks
// ──────────────────────────────────────────────────

// OnMutationStarted implements plugin.OnMutationStarted.
func (e *Extension) OnMutationStarted(ctx context.Context, op string, subID id.SubscriptionID) error {
	action, ok := requestedActions[pending.Op(op)]
	if !ok {
		return nil
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID.String(), CategorySubscription, nil,
		"op", op,
	)
}

// OnMutationSucceeded implements plugin.OnMutationSucceeded.
func (e *Extension) OnMutationSucceeded(ctx context.Context, op string, subID id.SubscriptionID, elapsed time.Duration) error {
	action, ok := completedActions[pending.Op(op)]
	if !ok {
		return nil
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID.String(), CategorySubscription, nil,
		"op", op,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnMutationFailed implements plugin.OnMutationFailed.
func (e *Extension) OnMutationFailed(ctx context.Context, op string, subID id.SubscriptionID, err error) error {
	return e.record(ctx, ActionMutationFailed, SeverityWarning, OutcomeFailure,
		ResourceSubscription, subID.String(), CategorySubscription, err,
		"op", op,
	)
}

// OnStaleResponse implements plugin.OnStaleResponse. The mutation did
// complete upstream even though the portal dropped its response.
func (e *Extension) OnStaleResponse(ctx context.Context, op string, subID id.SubscriptionID) error {
	return e.record(ctx, ActionResponseDropped, SeverityWarning, OutcomePartial,
		ResourceSubscription, subID.String(), CategorySubscription, nil,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Snapshot hooks
// ──────────────────────────────────────────────────

// OnSnapshotReplaced implements plugin.OnSnapshotReplaced. Plan changes are
// recorded with the previous and new price.
func (e *Extension) OnSnapshotReplaced(ctx context.Context, op string, prev, next *subscription.Subscription) error {
	if pending.Op(op) != pending.OpChangePlan || prev == nil || next == nil {
		return nil
	}
	return e.record(ctx, ActionPlanChanged, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, next.ID.String(), CategoryBilling, nil,
		"previous_price_id", prev.PriceID.String(),
		"price_id", next.PriceID.String(),
		"previous_amount", prev.Amount,
		"amount", next.Amount,
		"currency", next.Currency,
	)
}

// OnSnapshotDiscarded implements plugin.OnSnapshotDiscarded.
func (e *Extension) OnSnapshotDiscarded(ctx context.Context, subID id.SubscriptionID) error {
	return e.record(ctx, ActionSnapshotDiscarded, SeverityInfo, OutcomeSuccess,
		ResourceSnapshot, subID.String(), CategorySubscription, nil,
	)
}

// ──────────────────────────────────────────────────
// Estimate hooks
// ──────────────────────────────────────────────────

// OnEstimateFailed implements plugin.OnEstimateFailed. A rejected snapshot
// is upstream data corruption.
func (e *Extension) OnEstimateFailed(ctx context.Context, subID id.SubscriptionID, err error) error {
	return e.record(ctx, ActionEstimateRejected, SeverityError, OutcomeFailure,
		ResourceEstimate, subID.String(), CategoryBilling, err,
	)
}

// ──────────────────────────────────────────────────
// Link hooks
// ──────────────────────────────────────────────────

// OnLinkIssued implements plugin.OnLinkIssued.
func (e *Extension) OnLinkIssued(ctx context.Context, kind, ownerID string) error {
	if kind == "invoice" {
		return e.record(ctx, ActionInvoiceIssued, SeverityInfo, OutcomeSuccess,
			ResourceOrder, ownerID, CategoryBilling, nil,
		)
	}
	return e.record(ctx, ActionLinkIssued, SeverityInfo, OutcomeSuccess,
		ResourceAccount, ownerID, CategoryIntegration, nil,
		"kind", kind,
	)
}

var requestedActions = map[pending.Op]string{
	pending.OpCancel:     ActionCancelRequested,
	pending.OpUncancel:   ActionUncancelRequested,
	pending.OpChangePlan: ActionPlanChangeRequested,
}

// Plan changes are recorded from OnSnapshotReplaced, which carries the
// prices.
var completedActions = map[pending.Op]string{
	pending.OpCancel:   ActionSubscriptionCanceled,
	pending.OpUncancel: ActionSubscriptionUncanceled,
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

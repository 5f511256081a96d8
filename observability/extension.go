// Package observability provides a metrics plugin for the portal engine
// that records snapshot, mutation and estimate counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/portal/estimate"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/pending"
	"github.com/xraph/portal/plugin"
	"github.com/xraph/portal/subscription"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnSnapshotLoaded    = (*MetricsExtension)(nil)
	_ plugin.OnSnapshotReplaced  = (*MetricsExtension)(nil)
	_ plugin.OnSnapshotDiscarded = (*MetricsExtension)(nil)
	_ plugin.OnMutationStarted   = (*MetricsExtension)(nil)
	_ plugin.OnMutationSucceeded = (*MetricsExtension)(nil)
	_ plugin.OnMutationFailed    = (*MetricsExtension)(nil)
	_ plugin.OnStaleResponse     = (*MetricsExtension)(nil)
	_ plugin.OnEstimateComputed  = (*MetricsExtension)(nil)
	_ plugin.OnEstimateFailed    = (*MetricsExtension)(nil)
	_ plugin.OnLinkIssued        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// HistogramVec is a family of histograms partitioned by label values.
type HistogramVec interface {
	With(labelValues ...string) Histogram
}

// MetricFactory creates metrics. A nil buckets slice passed to HistogramVec
// uses the factory's default.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
	HistogramVec(name string, buckets []float64, labels ...string) HistogramVec
}

// MetricsExtension records portal metrics.
// Register it as a portal plugin to track customer activity.
type MetricsExtension struct {
	factory MetricFactory

	// Snapshot metrics
	SnapshotLoaded    Counter
	SnapshotReplaced  Counter
	SnapshotDiscarded Counter

	// Mutation metrics
	MutationStarted   Counter
	MutationSucceeded Counter
	MutationFailed    Counter
	MutationStale     Counter
	MutationLatency   Histogram

	// Per-action metrics
	SubscriptionCanceled   Counter
	SubscriptionUncanceled Counter
	PlanChanged            Counter

	// Estimate metrics
	EstimateComputed    Counter
	EstimateProvisional Counter
	EstimateFailed      Counter
	EstimateTotal       HistogramVec // by currency, in minor units

	// Link metrics
	LinkIssued    Counter
	InvoiceIssued Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		SnapshotLoaded:    factory.Counter("portal.snapshot.loaded"),
		SnapshotReplaced:  factory.Counter("portal.snapshot.replaced"),
		SnapshotDiscarded: factory.Counter("portal.snapshot.discarded"),

		MutationStarted:   factory.Counter("portal.mutation.started"),
		MutationSucceeded: factory.Counter("portal.mutation.succeeded"),
		MutationFailed:    factory.Counter("portal.mutation.failed"),
		MutationStale:     factory.Counter("portal.mutation.stale"),
		MutationLatency:   factory.Histogram("portal.mutation.latency_ms"),

		SubscriptionCanceled:   factory.Counter("portal.subscription.canceled"),
		SubscriptionUncanceled: factory.Counter("portal.subscription.uncanceled"),
		PlanChanged:            factory.Counter("portal.subscription.plan_changed"),

		EstimateComputed:    factory.Counter("portal.estimate.computed"),
		EstimateProvisional: factory.Counter("portal.estimate.provisional"),
		EstimateFailed:      factory.Counter("portal.estimate.failed"),
		EstimateTotal:       factory.HistogramVec("portal.estimate.total_minor", MoneyBuckets, "currency"),

		LinkIssued:    factory.Counter("portal.link.issued"),
		InvoiceIssued: factory.Counter("portal.link.invoice"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Snapshot hooks
// ──────────────────────────────────────────────────

// OnSnapshotLoaded implements plugin.OnSnapshotLoaded.
func (m *MetricsExtension) OnSnapshotLoaded(_ context.Context, _ *subscription.Subscription) error {
	m.SnapshotLoaded.Inc()
	return nil
}

// OnSnapshotReplaced implements plugin.OnSnapshotReplaced.
func (m *MetricsExtension) OnSnapshotReplaced(_ context.Context, _ string, _, _ *subscription.Subscription) error {
	m.SnapshotReplaced.Inc()
	return nil
}

// OnSnapshotDiscarded implements plugin.OnSnapshotDiscarded.
func (m *MetricsExtension) OnSnapshotDiscarded(_ context.Context, _ id.SubscriptionID) error {
	m.SnapshotDiscarded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Mutation hooks
// ──────────────────────────────────────────────────

// OnMutationStarted implements plugin.OnMutationStarted.
func (m *MetricsExtension) OnMutationStarted(_ context.Context, _ string, _ id.SubscriptionID) error {
	m.MutationStarted.Inc()
	return nil
}

// OnMutationSucceeded implements plugin.OnMutationSucceeded.
func (m *MetricsExtension) OnMutationSucceeded(_ context.Context, op string, _ id.SubscriptionID, elapsed time.Duration) error {
	m.MutationSucceeded.Inc()
	m.MutationLatency.Observe(float64(elapsed.Milliseconds()))

	switch pending.Op(op) {
	case pending.OpCancel:
		m.SubscriptionCanceled.Inc()
	case pending.OpUncancel:
		m.SubscriptionUncanceled.Inc()
	case pending.OpChangePlan:
		m.PlanChanged.Inc()
	}
	return nil
}

// OnMutationFailed implements plugin.OnMutationFailed.
func (m *MetricsExtension) OnMutationFailed(_ context.Context, _ string, _ id.SubscriptionID, _ error) error {
	m.MutationFailed.Inc()
	return nil
}

// OnStaleResponse implements plugin.OnStaleResponse.
func (m *MetricsExtension) OnStaleResponse(_ context.Context, _ string, _ id.SubscriptionID) error {
	m.MutationStale.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Estimate hooks
// ──────────────────────────────────────────────────

// OnEstimateComputed implements plugin.OnEstimateComputed.
func (m *MetricsExtension) OnEstimateComputed(_ context.Context, _ id.SubscriptionID, est *estimate.Estimate) error {
	m.EstimateComputed.Inc()
	if est.Provisional {
		m.EstimateProvisional.Inc()
	}
	m.EstimateTotal.With(est.Total.Currency).Observe(float64(est.Total.Amount))
	return nil
}

// OnEstimateFailed implements plugin.OnEstimateFailed.
func (m *MetricsExtension) OnEstimateFailed(_ context.Context, _ id.SubscriptionID, _ error) error {
	m.EstimateFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Link hooks
// ──────────────────────────────────────────────────

// OnLinkIssued implements plugin.OnLinkIssued.
func (m *MetricsExtension) OnLinkIssued(_ context.Context, kind, _ string) error {
	m.LinkIssued.Inc()
	if kind == "invoice" {
		m.InvoiceIssued.Inc()
	}
	return nil
}

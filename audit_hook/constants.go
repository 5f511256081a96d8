package audithook

// Action constants for audit events.
const (
	// Mutation actions
	ActionCancelRequested        = "subscription.cancel_requested"
	ActionUncancelRequested      = "subscription.uncancel_requested"
	ActionPlanChangeRequested    = "subscription.plan_change_requested"
	ActionSubscriptionCanceled   = "subscription.canceled"
	ActionSubscriptionUncanceled = "subscription.uncanceled"
	ActionPlanChanged            = "subscription.plan_changed"
	ActionMutationFailed         = "subscription.mutation_failed"
	ActionResponseDropped        = "subscription.response_dropped"

	// Snapshot actions
	ActionSnapshotDiscarded = "snapshot.discarded"

	// Estimate actions
	ActionEstimateRejected = "estimate.rejected"

	// Link actions
	ActionLinkIssued    = "link.issued"
	ActionInvoiceIssued = "invoice.link_issued"
)

// Resource constants for audit events.
const (
	ResourceSubscription = "subscription"
	ResourceSnapshot     = "snapshot"
	ResourceEstimate     = "estimate"
	ResourceAccount      = "account"
	ResourceOrder        = "order"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryBilling      = "billing"
	CategoryIntegration  = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

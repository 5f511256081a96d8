package portal

import (
	"context"
	"fmt"

	"github.com/xraph/portal/api"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/pending"
)

// Link kinds reported to plugins.
const (
	LinkOnboarding = "onboarding"
	LinkDashboard  = "dashboard"
	LinkInvoice    = "invoice"
)

// OnboardingLink returns the payout account onboarding URL.
func (p *Portal) OnboardingLink(ctx context.Context, accountID id.AccountID) (string, error) {
	return p.issue(ctx, LinkOnboarding, accountID.String(), func(ctx context.Context) (api.Link, error) {
		return p.client.OnboardingLink(ctx, accountID)
	})
}

// DashboardLink returns the payout account dashboard URL.
func (p *Portal) DashboardLink(ctx context.Context, accountID id.AccountID) (string, error) {
	return p.issue(ctx, LinkDashboard, accountID.String(), func(ctx context.Context) (api.Link, error) {
		return p.client.DashboardLink(ctx, accountID)
	})
}

// OrderInvoice returns the invoice URL of an order. Only one request per
// order runs at a time; InvoicePending reports it.
func (p *Portal) OrderInvoice(ctx context.Context, orderID id.OrderID) (string, error) {
	tk, err := p.tracker.Begin(orderID, pending.OpInvoice)
	if err != nil {
		return "", err
	}
	defer p.tracker.Finish(tk)

	return p.issue(ctx, LinkInvoice, orderID.String(), func(ctx context.Context) (api.Link, error) {
		return p.client.OrderInvoice(ctx, orderID)
	})
}

// InvoicePending reports whether an invoice request for the order is in
// flight.
func (p *Portal) InvoicePending(orderID id.OrderID) bool {
	return p.tracker.Pending(orderID)
}

func (p *Portal) issue(ctx context.Context, kind, ownerID string, call func(context.Context) (api.Link, error)) (string, error) {
	link, err := call(ctx)
	if err != nil {
		return "", fmt.Errorf("portal: %s link for %s: %w", kind, ownerID, err)
	}
	if link.URL == "" {
		p.logger.Warn("backend returned empty link", "kind", kind, "owner_id", ownerID)
		return "", ErrMissingLink
	}

	p.plugins.EmitLinkIssued(ctx, kind, ownerID)
	return link.URL, nil
}

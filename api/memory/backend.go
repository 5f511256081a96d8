// Package memory is an in-process api.Client that applies the billing
// API's subscription rules to snapshots held in maps.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xraph/portal/api"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/subscription"
	"github.com/xraph/portal/types"
)

// Compile-time interface check.
var _ api.Client = (*Backend)(nil)

// Price is a plan a subscription can be switched to.
type Price struct {
	ID          id.PriceID
	ProductID   id.ProductID
	ProductName string
	Amount      types.Money
	Interval    subscription.Interval
}

// Hook runs before every call with the operation name and subscription id
// (nil for non-subscription calls). A non-nil error fails the call.
type Hook func(ctx context.Context, op string, subID id.SubscriptionID) error

type Backend struct {
	mu sync.RWMutex

	subscriptions map[string]*subscription.Subscription
	order         []string
	orders        map[string][]string
	prices        map[string]Price

	onboarding map[string]string
	dashboards map[string]string
	invoices   map[string]string

	hook Hook
	now  func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithHook installs h.
func WithHook(h Hook) Option {
	return func(b *Backend) { b.hook = h }
}

// WithClock sets the time source used for cancellation rules.
func WithClock(clock func() time.Time) Option {
	return func(b *Backend) { b.now = clock }
}

func New(opts ...Option) *Backend {
	b := &Backend{
		subscriptions: make(map[string]*subscription.Subscription),
		orders:        make(map[string][]string),
		prices:        make(map[string]Price),
		onboarding:    make(map[string]string),
		dashboards:    make(map[string]string),
		invoices:      make(map[string]string),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ──────────────────────────────────────────────────
// Seeding
// ──────────────────────────────────────────────────

// Seed stores copies of subs, replacing existing ones with the same id.
func (b *Backend) Seed(subs ...*subscription.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range subs {
		key := s.ID.String()
		if _, ok := b.subscriptions[key]; !ok {
			b.order = append(b.order, key)
		}
		b.subscriptions[key] = s.Clone()
	}
}

// AddOrder links subscriptions to an order and sets its invoice URL.
func (b *Backend) AddOrder(orderID id.OrderID, invoiceURL string, subIDs ...id.SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sid := range subIDs {
		b.orders[orderID.String()] = append(b.orders[orderID.String()], sid.String())
	}
	if invoiceURL != "" {
		b.invoices[orderID.String()] = invoiceURL
	}
}

// AddPrice registers a price ChangePlan can switch to.
func (b *Backend) AddPrice(p Price) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[p.ID.String()] = p
}

// SetAccountLinks sets the URLs issued for an account.
func (b *Backend) SetAccountLinks(accountID id.AccountID, onboarding, dashboard string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onboarding[accountID.String()] = onboarding
	b.dashboards[accountID.String()] = dashboard
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

func (b *Backend) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	if err := b.call(ctx, "get", subID); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.subscriptions[subID.String()]
	if !ok {
		return nil, notFound("subscription", subID.String())
	}
	return s.Clone(), nil
}

func (b *Backend) ListSubscriptions(ctx context.Context, customerID id.CustomerID, opts api.ListOpts) ([]*subscription.Subscription, error) {
	if err := b.call(ctx, "list", id.Nil); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, key := range b.order {
		s := b.subscriptions[key]
		if s.CustomerID.String() != customerID.String() {
			continue
		}
		if opts.Active != nil && *opts.Active == subscription.IsCanceled(s) {
			continue
		}
		result = append(result, s.Clone())
	}
	return paginate(result, opts.Page, opts.Limit), nil
}

func (b *Backend) ListOrderSubscriptions(ctx context.Context, orderID id.OrderID) ([]*subscription.Subscription, error) {
	if err := b.call(ctx, "list_order", id.Nil); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	keys, ok := b.orders[orderID.String()]
	if !ok {
		return nil, notFound("order", orderID.String())
	}
	result := make([]*subscription.Subscription, 0, len(keys))
	for _, key := range keys {
		if s, ok := b.subscriptions[key]; ok {
			result = append(result, s.Clone())
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Cancel schedules the subscription to end at the period boundary.
func (b *Backend) Cancel(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return b.mutate(ctx, "cancel", subID, func(s *subscription.Subscription, now time.Time) error {
		if subscription.IsCanceled(s) || subscription.IsExpired(s) {
			return &api.Error{Status: http.StatusForbidden, Detail: "subscription is already canceled"}
		}
		s.CancelAtPeriodEnd = true
		s.CanceledAt = &now
		return nil
	})
}

// Uncancel revokes a pending cancellation.
func (b *Backend) Uncancel(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return b.mutate(ctx, "uncancel", subID, func(s *subscription.Subscription, now time.Time) error {
		if !subscription.IsExpiringSoon(s, now) || s.Status == subscription.StatusCanceled {
			return &api.Error{Status: http.StatusForbidden, Detail: "subscription cannot be uncanceled"}
		}
		s.CancelAtPeriodEnd = false
		s.CanceledAt = nil
		return nil
	})
}

// ChangePlan switches the subscription to priceID.
func (b *Backend) ChangePlan(ctx context.Context, subID id.SubscriptionID, priceID id.PriceID) (*subscription.Subscription, error) {
	return b.mutate(ctx, "change_plan", subID, func(s *subscription.Subscription, _ time.Time) error {
		if s.Organization == nil || !s.Organization.Settings.AllowCustomerUpdates {
			return &api.Error{Status: http.StatusForbidden, Detail: "plan changes are disabled"}
		}
		if subscription.IsCanceled(s) {
			return &api.Error{Status: http.StatusForbidden, Detail: "subscription is canceled"}
		}
		p, ok := b.prices[priceID.String()]
		if !ok {
			return notFound("price", priceID.String())
		}
		if !strings.EqualFold(p.Amount.Currency, s.Currency) {
			return &api.Error{Status: http.StatusUnprocessableEntity, Detail: "price currency differs from subscription"}
		}
		amount := p.Amount
		s.PriceID = p.ID
		s.ProductID = p.ProductID
		s.ProductName = p.ProductName
		s.Amount = amount.Amount
		s.RecurringInterval = p.Interval
		s.FixedPrice = &amount
		return nil
	})
}

func (b *Backend) mutate(ctx context.Context, op string, subID id.SubscriptionID, apply func(*subscription.Subscription, time.Time) error) (*subscription.Subscription, error) {
	if err := b.call(ctx, op, subID); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.subscriptions[subID.String()]
	if !ok {
		return nil, notFound("subscription", subID.String())
	}

	next := cur.Clone()
	if err := apply(next, b.now()); err != nil {
		return nil, err
	}
	next.Touch()
	b.subscriptions[subID.String()] = next
	return next.Clone(), nil
}

// ──────────────────────────────────────────────────
// Links
// ──────────────────────────────────────────────────

func (b *Backend) OnboardingLink(ctx context.Context, accountID id.AccountID) (api.Link, error) {
	return b.link(ctx, "onboarding_link", b.onboarding, accountID)
}

func (b *Backend) DashboardLink(ctx context.Context, accountID id.AccountID) (api.Link, error) {
	return b.link(ctx, "dashboard_link", b.dashboards, accountID)
}

func (b *Backend) OrderInvoice(ctx context.Context, orderID id.OrderID) (api.Link, error) {
	return b.link(ctx, "order_invoice", b.invoices, orderID)
}

func (b *Backend) link(ctx context.Context, op string, urls map[string]string, key id.ID) (api.Link, error) {
	if err := b.call(ctx, op, id.Nil); err != nil {
		return api.Link{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	url, ok := urls[key.String()]
	if !ok {
		return api.Link{}, notFound(op, key.String())
	}
	return api.Link{URL: url}, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (b *Backend) call(ctx context.Context, op string, subID id.SubscriptionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.hook != nil {
		return b.hook(ctx, op, subID)
	}
	return nil
}

func notFound(kind, key string) error {
	return &api.Error{Status: http.StatusNotFound, Detail: fmt.Sprintf("%s %s not found", kind, key)}
}

func paginate(subs []*subscription.Subscription, page, limit int) []*subscription.Subscription {
	if limit <= 0 {
		return subs
	}
	if page < 1 {
		page = 1
	}
	start := min((page-1)*limit, len(subs))
	end := min(start+limit, len(subs))
	return slices.Clip(subs[start:end])
}

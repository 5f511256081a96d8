package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/portal/action"
	"github.com/xraph/portal/api"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/pending"
	"github.com/xraph/portal/plugin"
	"github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// Portal is the customer portal engine. It keeps one snapshot per viewed
// subscription, resolves the actions offered on it and runs mutations
// against the billing API one at a time per subscription.
type Portal struct {
	client   api.Client
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	tracker  *pending.Tracker
	resolver *action.Resolver
	now      func() time.Time

	// apply serializes snapshot writes against Discard. discardSeq counts
	// discards and discardedAt records the sequence of each subscription's
	// last one; a read that started before it is never written.
	apply       sync.Mutex
	discardSeq  uint64
	discardedAt map[string]uint64
	refetch     singleflight.Group

	refreshAfterMutation bool
}

// New creates a new Portal over the billing API client and snapshot store.
func New(client api.Client, s store.Store, opts ...Option) *Portal {
	p := &Portal{
		client:  client,
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		now:     time.Now,

		discardedAt: make(map[string]uint64),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.tracker = pending.NewTracker(p.now)
	p.resolver = action.NewResolver(p.now)
	return p
}

// Option configures a Portal instance.
type Option func(*Portal)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Portal) {
		p.logger = logger
		p.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(pl plugin.Plugin) Option {
	return func(p *Portal) {
		_ = p.plugins.Register(pl) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds every plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(p *Portal) {
		p.plugins.WithTimeout(d)
	}
}

// WithClock replaces time.Now for lifecycle derivation and tickets.
func WithClock(clock func() time.Time) Option {
	return func(p *Portal) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithRefreshAfterMutation refetches the snapshot after every successful
// mutation instead of trusting the mutation response alone.
func WithRefreshAfterMutation(enabled bool) Option {
	return func(p *Portal) {
		p.refreshAfterMutation = enabled
	}
}

// Plugins returns the plugin registry.
func (p *Portal) Plugins() *plugin.Registry { return p.plugins }

// Store returns the snapshot store.
func (p *Portal) Store() store.Store { return p.store }

// Start checks the store, migrates it and initializes plugins.
func (p *Portal) Start(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreNotReady, err)
	}
	if err := p.store.Migrate(ctx); err != nil {
		return err
	}

	p.plugins.EmitInit(ctx, p)

	p.logger.Info("portal started",
		"plugins", p.plugins.Count(),
		"refresh_after_mutation", p.refreshAfterMutation,
	)
	return nil
}

// Stop shuts down plugins and closes the store. In-flight mutations are
// not waited for; their responses are dropped.
func (p *Portal) Stop() error {
	ctx := context.Background()
	p.plugins.EmitShutdown(ctx)

	if n := p.tracker.Len(); n > 0 {
		p.logger.Warn("portal stopping with mutations in flight", "pending", n)
	}
	return p.store.Close()
}

// ──────────────────────────────────────────────────
// Snapshots
// ──────────────────────────────────────────────────

// Load fetches the subscription from the API, stores it as the current
// snapshot and returns its view.
func (p *Portal) Load(ctx context.Context, subID id.SubscriptionID) (*View, error) {
	sub, err := p.fetch(ctx, subID, p.mark())
	if err != nil {
		return nil, err
	}
	return p.view(ctx, sub, subscription.IsCanceled(sub)), nil
}

// Refresh refetches the snapshot. Concurrent refreshes of the same
// subscription share one API call.
func (p *Portal) Refresh(ctx context.Context, subID id.SubscriptionID) (*View, error) {
	v, err, shared := p.refetch.Do(subID.String(), func() (any, error) {
		return p.fetch(ctx, subID, p.mark())
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug("refresh coalesced", "subscription_id", subID.String())
	}
	sub := v.(*subscription.Subscription).Clone()
	return p.view(ctx, sub, subscription.IsCanceled(sub)), nil
}

// View returns the view of the stored snapshot without calling the API.
func (p *Portal) View(ctx context.Context, subID id.SubscriptionID) (*View, error) {
	sub, err := p.store.Get(ctx, subID)
	if err != nil {
		return nil, err
	}
	return p.view(ctx, sub, subscription.IsCanceled(sub)), nil
}

// Discard drops the snapshot when its view goes away. A mutation, refresh
// or listing still in flight completes upstream but its result is not
// stored.
func (p *Portal) Discard(ctx context.Context, subID id.SubscriptionID) error {
	p.apply.Lock()
	defer p.apply.Unlock()

	p.discardSeq++
	p.discardedAt[subID.String()] = p.discardSeq
	p.tracker.Release(subID)
	if err := p.store.Delete(ctx, subID); err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return err
	}

	p.plugins.EmitSnapshotDiscarded(ctx, subID)
	return nil
}

// mark returns the discard sequence to pass to putLive for a read that
// starts now.
func (p *Portal) mark() uint64 {
	p.apply.Lock()
	defer p.apply.Unlock()
	return p.discardSeq
}

// putLive stores sub unless it was discarded after mark. Callers hold apply.
func (p *Portal) putLive(ctx context.Context, sub *subscription.Subscription, mark uint64) error {
	if p.discardedAt[sub.ID.String()] > mark {
		return ErrStaleResponse
	}
	return p.store.Put(ctx, sub)
}

func (p *Portal) fetch(ctx context.Context, subID id.SubscriptionID, mark uint64) (*subscription.Subscription, error) {
	sub, err := p.client.GetSubscription(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("portal: fetch subscription %s: %w", subID, err)
	}
	if sub.ID.String() != subID.String() {
		p.logger.Warn("fetched snapshot for another subscription",
			"subscription_id", subID.String(),
			"response_id", sub.ID.String(),
		)
		return nil, ErrStaleResponse
	}

	p.apply.Lock()
	err = p.putLive(ctx, sub, mark)
	p.apply.Unlock()
	if errors.Is(err, ErrStaleResponse) {
		p.logger.Warn("dropping snapshot of discarded subscription",
			"subscription_id", subID.String(),
		)
		p.plugins.EmitStaleResponse(ctx, "refresh", subID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	p.plugins.EmitSnapshotLoaded(ctx, sub)
	return sub, nil
}

// ──────────────────────────────────────────────────
// Listings
// ──────────────────────────────────────────────────

// Listing is a customer's subscriptions split the way the portal shows
// them: the active list and the canceled list.
type Listing struct {
	Active   []*View
	Canceled []*View
}

// ListForCustomer fetches both of the customer's lists, stores every
// snapshot and returns their views. Subscriptions with no organization are
// left out. When one list fails the other is still returned along with a
// MultiError; when both fail the listing is nil.
func (p *Portal) ListForCustomer(ctx context.Context, customerID id.CustomerID) (*Listing, error) {
	var errs MultiError
	listing := &Listing{}

	active, err := p.list(ctx, customerID, true)
	if err != nil {
		errs.Add(err)
	}
	listing.Active = active

	canceled, err := p.list(ctx, customerID, false)
	if err != nil {
		errs.Add(err)
	}
	listing.Canceled = canceled

	if len(errs.Errors) == 2 {
		return nil, errs
	}
	return listing, errs.ErrorOrNil()
}

func (p *Portal) list(ctx context.Context, customerID id.CustomerID, active bool) ([]*View, error) {
	mark := p.mark()
	subs, err := p.client.ListSubscriptions(ctx, customerID, api.ListOpts{Active: &active})
	if err != nil {
		return nil, fmt.Errorf("portal: list subscriptions: %w", err)
	}

	views := make([]*View, 0, len(subs))
	for _, sub := range subs {
		v, ok, err := p.listed(ctx, sub, !active, mark)
		if err != nil {
			return nil, err
		}
		if ok {
			views = append(views, v)
		}
	}
	return views, nil
}

// ListForOrder returns the views of the subscriptions an order created.
func (p *Portal) ListForOrder(ctx context.Context, orderID id.OrderID) ([]*View, error) {
	mark := p.mark()
	subs, err := p.client.ListOrderSubscriptions(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("portal: list order subscriptions: %w", err)
	}

	views := make([]*View, 0, len(subs))
	for _, sub := range subs {
		v, ok, err := p.listed(ctx, sub, subscription.IsCanceled(sub), mark)
		if err != nil {
			return nil, err
		}
		if ok {
			views = append(views, v)
		}
	}
	return views, nil
}

func (p *Portal) listed(ctx context.Context, sub *subscription.Subscription, canceledView bool, mark uint64) (*View, bool, error) {
	if sub.Organization == nil {
		p.logger.Warn("skipping subscription without organization",
			"subscription_id", sub.ID.String(),
		)
		return nil, false, nil
	}
	p.apply.Lock()
	err := p.putLive(ctx, sub, mark)
	p.apply.Unlock()
	if errors.Is(err, ErrStaleResponse) {
		p.logger.Debug("skipping discarded subscription",
			"subscription_id", sub.ID.String(),
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p.plugins.EmitSnapshotLoaded(ctx, sub)
	return p.view(ctx, sub, canceledView), true, nil
}

package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/portal/action"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/pending"
	"github.com/xraph/portal/subscription"
)

// Cancel schedules the subscription to end at the period boundary.
func (p *Portal) Cancel(ctx context.Context, subID id.SubscriptionID) (*View, error) {
	return p.mutate(ctx, subID, pending.OpCancel, action.KindUnsubscribe,
		func(ctx context.Context) (*subscription.Subscription, error) {
			return p.client.Cancel(ctx, subID)
		})
}

// Uncancel revokes a scheduled cancellation.
func (p *Portal) Uncancel(ctx context.Context, subID id.SubscriptionID) (*View, error) {
	return p.mutate(ctx, subID, pending.OpUncancel, action.KindUncancel,
		func(ctx context.Context) (*subscription.Subscription, error) {
			return p.client.Uncancel(ctx, subID)
		})
}

// ChangePlan moves the subscription to another price.
func (p *Portal) ChangePlan(ctx context.Context, subID id.SubscriptionID, priceID id.PriceID) (*View, error) {
	if priceID.IsNil() {
		return nil, ValidationError{Field: "price_id", Message: "required"}
	}
	return p.mutate(ctx, subID, pending.OpChangePlan, action.KindChangePlan,
		func(ctx context.Context) (*subscription.Subscription, error) {
			return p.client.ChangePlan(ctx, subID, priceID)
		})
}

// mutate runs one mutation under the subscription's pending slot. The
// action must be offered on the stored snapshot. The response, and the
// refetch that may follow it, replace the snapshot only if they are for the
// same subscription and it was not discarded meanwhile.
func (p *Portal) mutate(
	ctx context.Context,
	subID id.SubscriptionID,
	op pending.Op,
	kind action.Kind,
	call func(context.Context) (*subscription.Subscription, error),
) (*View, error) {
	cur, err := p.store.Get(ctx, subID)
	if err != nil {
		return nil, err
	}
	if cur.Organization == nil {
		return nil, ErrMissingOrganization
	}
	if p.tracker.Pending(subID) {
		return nil, ErrMutationInFlight
	}

	offer := p.resolver.Resolve(cur, subscription.IsCanceled(cur), false)
	if !offer.Allows(kind) {
		return nil, fmt.Errorf("%w: %s", ErrActionUnavailable, kind)
	}

	mark := p.mark()
	tk, err := p.tracker.Begin(subID, op)
	if err != nil {
		return nil, err
	}

	opName := string(op)
	p.plugins.EmitMutationStarted(ctx, opName, subID)
	p.logger.Debug("mutation started",
		"op", opName,
		"subscription_id", subID.String(),
		"mutation_id", tk.ID.String(),
	)

	start := time.Now()
	next, err := call(ctx)
	if err != nil {
		p.tracker.Finish(tk)
		merr := &MutationError{Op: opName, SubscriptionID: subID.String(), Err: err}
		p.logger.Warn("mutation failed",
			"op", opName,
			"subscription_id", subID.String(),
			"retryable", IsRetryable(merr),
			"error", err,
		)
		p.plugins.EmitMutationFailed(ctx, opName, subID, err)
		return nil, merr
	}

	if err := p.applyResponse(ctx, tk, next, mark); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	p.plugins.EmitSnapshotReplaced(ctx, opName, cur, next)
	p.plugins.EmitMutationSucceeded(ctx, opName, subID, elapsed)
	p.logger.Info("mutation applied",
		"op", opName,
		"subscription_id", subID.String(),
		"elapsed", elapsed,
	)

	if p.refreshAfterMutation {
		fresh, err := p.fetch(ctx, subID, mark)
		if err == nil {
			return p.view(ctx, fresh, subscription.IsCanceled(fresh)), nil
		}
		if errors.Is(err, ErrStaleResponse) {
			return nil, err
		}
		p.logger.Warn("refresh after mutation failed",
			"op", opName,
			"subscription_id", subID.String(),
			"error", err,
		)
	}
	return p.view(ctx, next, subscription.IsCanceled(next)), nil
}

func (p *Portal) applyResponse(ctx context.Context, tk pending.Ticket, next *subscription.Subscription, mark uint64) error {
	p.apply.Lock()
	defer p.apply.Unlock()

	opName := string(tk.Op)
	if next == nil || !p.tracker.Accepts(tk, next.ID) {
		p.tracker.Finish(tk)
		attrs := []any{
			"op", opName,
			"subscription_id", tk.SubscriptionID.String(),
			"mutation_id", tk.ID.String(),
		}
		if cur, ok := p.tracker.Current(tk.SubscriptionID); ok {
			attrs = append(attrs, "current_mutation_id", cur.ID.String())
		}
		p.logger.Warn("dropping stale mutation response", attrs...)
		p.plugins.EmitStaleResponse(ctx, opName, tk.SubscriptionID)
		return ErrStaleResponse
	}

	err := p.putLive(ctx, next, mark)
	p.tracker.Finish(tk)
	if errors.Is(err, ErrStaleResponse) {
		p.plugins.EmitStaleResponse(ctx, opName, tk.SubscriptionID)
		return err
	}
	if err != nil {
		return &MutationError{Op: opName, SubscriptionID: tk.SubscriptionID.String(), Err: err}
	}
	return nil
}

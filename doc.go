// Package portal is the subscription side of a customer billing portal.
//
// It keeps a snapshot of every subscription a customer is looking at,
// decides which actions the customer may take on it and estimates the
// charge for the current billing period. The billing API is consumed
// through api.Client; snapshots live in a store.Store.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/portal"
//	    "github.com/xraph/portal/store/memory"
//	)
//
//	p := portal.New(client, memory.New(),
//	    portal.WithLogger(slog.Default()),
//	)
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop()
//
//	v, err := p.Load(ctx, subID)
//	if v.Offer.Allows(action.KindUnsubscribe) {
//	    v, err = p.Cancel(ctx, subID)
//	}
//
// # Actions
//
// A view offers at most one primary action (Change Plan or Uncancel) and,
// outside the canceled list, Unsubscribe. While a mutation is in flight the
// offered actions stay visible but disabled, and a second mutation on the
// same subscription fails with ErrMutationInFlight.
//
// # Estimates
//
// Active subscriptions carry an estimate of the upcoming invoice: the fixed
// price plus every metered charge accrued so far, in integer minor units.
// Metered charges make the estimate provisional. A snapshot mixing
// currencies gets no estimate; the failure is logged.
//
// # Discarding
//
// Discard drops a snapshot when its view goes away. Mutations already sent
// complete upstream, but their responses are dropped and never re-create
// the snapshot.
package portal

// Package action decides which subscription-management action a customer
// is offered for a subscription snapshot.
//
// An ended subscription (ended_at set) is terminal and offers nothing,
// whatever its status or list. Otherwise the primary action is resolved by
// an ordered match, first rule wins:
//
//  1. the organization allows customer updates and the subscription is not
//     in the canceled view: ChangePlan
//  2. the subscription is in the canceled view and its cancellation is still
//     pending (cancel_at_period_end with a period end after now): Uncancel
//  3. otherwise: None
//
// Unsubscribe is offered alongside whenever the subscription is not in the
// canceled view. ChangePlan and Uncancel are mutually exclusive since rule 1
// requires the non-canceled view and rule 2 the canceled one.
package action

import (
	"time"

	"github.com/xraph/portal/subscription"
)

type Kind string

const (
	KindNone        Kind = ""
	KindChangePlan  Kind = "change_plan"
	KindUncancel    Kind = "uncancel"
	KindUnsubscribe Kind = "unsubscribe"
)

func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// Label is the button text for the action.
func (k Kind) Label() string {
	switch k {
	case KindChangePlan:
		return "Change Plan"
	case KindUncancel:
		return "Uncancel"
	case KindUnsubscribe:
		return "Unsubscribe"
	default:
		return ""
	}
}

// Action is an offered action. Enabled is false while a mutation is in
// flight for the subscription.
type Action struct {
	Kind    Kind `json:"kind"`
	Enabled bool `json:"enabled"`
}

// Offered reports whether the action is shown at all.
func (a Action) Offered() bool { return a.Kind != KindNone }

// Offer is the resolved set of actions for one subscription. Hidden means
// the subscription is not rendered at all.
type Offer struct {
	Primary     Action `json:"primary"`
	Unsubscribe Action `json:"unsubscribe"`
	Hidden      bool   `json:"hidden"`
}

// Allows reports whether k is currently offered and enabled.
func (o Offer) Allows(k Kind) bool {
	if o.Hidden || k == KindNone {
		return false
	}
	if o.Primary.Kind == k {
		return o.Primary.Enabled
	}
	if o.Unsubscribe.Kind == k {
		return o.Unsubscribe.Enabled
	}
	return false
}

// Resolve computes the offer for sub. canceledView tells whether the
// subscription is listed among the canceled ones; pending disables every
// offered action. A subscription without an organization is hidden.
func Resolve(sub *subscription.Subscription, canceledView bool, now time.Time, pending bool) Offer {
	if sub == nil || sub.Organization == nil {
		return Offer{Hidden: true}
	}

	lc := subscription.Derive(sub, now)
	if lc.Kind == subscription.KindExpired {
		return Offer{}
	}
	enabled := !pending

	var offer Offer
	switch {
	case sub.Organization.Settings.AllowCustomerUpdates && !canceledView:
		offer.Primary = Action{Kind: KindChangePlan, Enabled: enabled}
	case canceledView && lc.ExpiringSoon:
		offer.Primary = Action{Kind: KindUncancel, Enabled: enabled}
	}

	if !canceledView {
		offer.Unsubscribe = Action{Kind: KindUnsubscribe, Enabled: enabled}
	}
	return offer
}

// Resolver resolves offers against an injectable clock.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a Resolver. A nil clock defaults to time.Now.
func NewResolver(clock func() time.Time) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{now: clock}
}

// Resolve evaluates Resolve at the resolver's current time.
func (r *Resolver) Resolve(sub *subscription.Subscription, canceledView, pending bool) Offer {
	return Resolve(sub, canceledView, r.now(), pending)
}

package portal

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/portal/action"
	"github.com/xraph/portal/estimate"
	"github.com/xraph/portal/subscription"
)

// View is everything the portal shows for one subscription.
type View struct {
	Subscription *subscription.Subscription `json:"subscription"`
	Lifecycle    subscription.Lifecycle     `json:"lifecycle"`
	Status       string                     `json:"status"`
	Offer        action.Offer               `json:"offer"`
	CanceledView bool                       `json:"canceled_view"`
	Pending      bool                       `json:"pending"`

	// Estimate is nil when the subscription is not billing or the
	// estimator rejected the snapshot.
	Estimate *estimate.Estimate `json:"estimate,omitempty"`

	// PeriodDate is nil when there is no date to show.
	PeriodDate  *subscription.DateRow `json:"period_date,omitempty"`
	AmountLabel string                `json:"amount_label"`

	// LastChanged is the backend's last modification time of the snapshot.
	LastChanged time.Time `json:"last_changed"`
}

// Hidden reports whether the subscription renders nothing.
func (v *View) Hidden() bool { return v.Offer.Hidden }

func (p *Portal) view(ctx context.Context, sub *subscription.Subscription, canceledView bool) *View {
	busy := p.tracker.Pending(sub.ID)
	lc := subscription.Derive(sub, p.now())

	v := &View{
		Subscription: sub,
		Lifecycle:    lc,
		Status:       lc.Label(),
		Offer:        p.resolver.Resolve(sub, canceledView, busy),
		CanceledView: canceledView,
		Pending:      busy,
		AmountLabel:  subscription.AmountLabel(sub),
		Estimate:     p.estimate(ctx, sub),
		LastChanged:  sub.LastChanged(),
	}
	if row, ok := subscription.PeriodDate(sub); ok {
		v.PeriodDate = &row
	}
	return v
}

// estimate never fails the view: a rejected snapshot is logged and shown
// without an estimate.
func (p *Portal) estimate(ctx context.Context, sub *subscription.Subscription) *estimate.Estimate {
	est, err := estimate.Compute(sub)
	if err != nil {
		level := slog.LevelWarn
		if IsDataError(err) {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "estimate failed",
			"subscription_id", sub.ID.String(),
			"currency", sub.Currency,
			"error", err,
		)
		p.plugins.EmitEstimateFailed(ctx, sub.ID, err)
		return nil
	}
	if est != nil {
		p.plugins.EmitEstimateComputed(ctx, sub.ID, est)
	}
	return est
}

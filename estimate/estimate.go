// Package estimate computes the amount due for a subscription's current
// billing period: its fixed recurring price plus every metered usage line.
package estimate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/portal/subscription"
	"github.com/xraph/portal/types"
)

var (
	// ErrCurrencyMismatch is returned when the fixed price or a metered
	// line is not in the subscription currency.
	ErrCurrencyMismatch = errors.New("estimate: currency mismatch")

	// ErrAmountOverflow is returned when the total does not fit in int64
	// minor units.
	ErrAmountOverflow = errors.New("estimate: amount overflow")
)

// Line is one component of the estimate.
type Line struct {
	Label  string      `json:"label"`
	Amount types.Money `json:"amount"`
}

// Estimate is the amount due for the current billing period.
type Estimate struct {
	Total types.Money `json:"total"`

	// Provisional is true when any metered usage is included, since usage
	// can still accrue before the period closes.
	Provisional bool `json:"provisional"`

	// Base is the fixed price line; nil for usage-only plans.
	Base *Line `json:"base,omitempty"`

	// Lines are the metered lines in the order the subscription lists them.
	Lines []Line `json:"lines"`

	// PeriodEnd is when the next invoice is issued.
	PeriodEnd *time.Time `json:"period_end,omitempty"`
}

// NextInvoice renders the next invoice date or "N/A".
func (e *Estimate) NextInvoice() string {
	if e.PeriodEnd == nil {
		return "N/A"
	}
	return e.PeriodEnd.Format(subscription.DateFormat)
}

// Compute returns the estimate for sub, or nil when no billing period
// applies (status other than active). Amounts are summed in int64 minor
// units and any wrap or currency mismatch is reported instead of summed.
func Compute(sub *subscription.Subscription) (*Estimate, error) {
	if sub == nil || !subscription.IsBilling(sub) {
		return nil, nil
	}

	est := &Estimate{
		Total:       types.Zero(currencyOf(sub)),
		Provisional: len(sub.MeteredLines) > 0,
		Lines:       make([]Line, 0, len(sub.MeteredLines)),
		PeriodEnd:   sub.CurrentPeriodEnd,
	}

	if sub.FixedPrice != nil {
		base := Line{Label: sub.ProductName, Amount: *sub.FixedPrice}
		if err := est.add(base.Amount); err != nil {
			return nil, fmt.Errorf("fixed price: %w", err)
		}
		est.Base = &base
	}

	for i, ml := range sub.MeteredLines {
		if err := est.add(ml.Accrued); err != nil {
			return nil, fmt.Errorf("metered line %d (%s): %w", i, ml.MeterName, err)
		}
		est.Lines = append(est.Lines, Line{Label: ml.MeterName, Amount: ml.Accrued})
	}

	return est, nil
}

// currencyOf returns the subscription currency, falling back to the first
// priced component when the snapshot omits it.
func currencyOf(sub *subscription.Subscription) string {
	switch {
	case sub.Currency != "":
		return strings.ToLower(sub.Currency)
	case sub.FixedPrice != nil:
		return strings.ToLower(sub.FixedPrice.Currency)
	case len(sub.MeteredLines) > 0:
		return strings.ToLower(sub.MeteredLines[0].Accrued.Currency)
	}
	return ""
}

func (e *Estimate) add(m types.Money) error {
	total, err := e.Total.CheckedAdd(m)
	switch {
	case errors.Is(err, types.ErrCurrencyMismatch):
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, e.Total.Currency)
	case errors.Is(err, types.ErrOverflow):
		return ErrAmountOverflow
	case err != nil:
		return err
	}
	e.Total = total
	return nil
}

package subscription

import (
	"time"

	"github.com/xraph/portal/types"
)

// DateFormat is the long date layout used on subscription cards.
const DateFormat = "January 2, 2006"

// DateRow is the single date line shown under a subscription.
type DateRow struct {
	Label string
	At    time.Time
}

// Text renders the date in DateFormat.
func (r DateRow) Text() string { return r.At.Format(DateFormat) }

// PeriodDate returns the date row for s. An end date always wins over the
// renewal or expiry date; ok is false when there is nothing to show.
func PeriodDate(s *Subscription) (row DateRow, ok bool) {
	switch {
	case s.EndedAt != nil:
		return DateRow{Label: "Expired", At: *s.EndedAt}, true
	case s.CurrentPeriodEnd == nil:
		return DateRow{}, false
	case s.CancelAtPeriodEnd:
		return DateRow{Label: "Expiry Date", At: *s.CurrentPeriodEnd}, true
	default:
		return DateRow{Label: "Renewal Date", At: *s.CurrentPeriodEnd}, true
	}
}

// AmountLabel renders the recurring amount, or "Free" when the
// subscription has no amount or no currency.
func AmountLabel(s *Subscription) string {
	if s.Amount == 0 || s.Currency == "" {
		return "Free"
	}
	return types.New(s.Amount, s.Currency).Recurring(string(s.RecurringInterval))
}

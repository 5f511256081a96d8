package subscription

import "time"

// The predicates below are the single definition of what "canceled",
// "expiring" and "expired" mean. The resolver, the estimator and every
// display label go through them.

// IsCanceled reports the derived canceled view: the subscription is either
// canceled outright or scheduled to end at the period boundary while it may
// still report status active.
func IsCanceled(s *Subscription) bool {
	return s.Status == StatusCanceled || s.CancelAtPeriodEnd
}

// IsExpiringSoon reports a pending cancellation: the subscription ends at
// CurrentPeriodEnd, which is still after now.
func IsExpiringSoon(s *Subscription, now time.Time) bool {
	return s.CancelAtPeriodEnd && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// IsExpired reports a terminal subscription.
func IsExpired(s *Subscription) bool {
	return s.EndedAt != nil
}

// IsBilling reports whether a current billing period applies, which is
// only the case for status active.
func IsBilling(s *Subscription) bool {
	return s.Status == StatusActive
}

// Kind enumerates the lifecycle states a snapshot can be in.
type Kind string

const (
	KindIncomplete          Kind = "incomplete"
	KindTrialing            Kind = "trialing"
	KindActive              Kind = "active"
	KindPendingCancellation Kind = "pending_cancellation"
	KindPastDue             Kind = "past_due"
	KindUnpaid              Kind = "unpaid"
	KindCanceled            Kind = "canceled"
	KindExpired             Kind = "expired"
)

// Lifecycle is the state of a subscription derived once from its raw
// fields. At is the effective cancellation time for
// KindPendingCancellation, the cancellation time for KindCanceled and the
// end time for KindExpired; it is nil otherwise or when unknown.
type Lifecycle struct {
	Kind Kind
	At   *time.Time

	// Canceled and ExpiringSoon mirror IsCanceled and IsExpiringSoon so
	// callers switching on Kind do not have to re-derive them.
	Canceled     bool
	ExpiringSoon bool
}

// Derive computes the lifecycle of s at now. Precedence: an end date makes
// the subscription expired, then an explicit canceled status, then a
// scheduled cancellation, then the raw status.
func Derive(s *Subscription, now time.Time) Lifecycle {
	lc := Lifecycle{
		Canceled:     IsCanceled(s),
		ExpiringSoon: IsExpiringSoon(s, now),
	}

	switch {
	case IsExpired(s):
		lc.Kind, lc.At = KindExpired, s.EndedAt
	case s.Status == StatusCanceled:
		lc.Kind, lc.At = KindCanceled, firstTime(s.CanceledAt, s.CurrentPeriodEnd)
	case lc.ExpiringSoon:
		lc.Kind, lc.At = KindPendingCancellation, s.CurrentPeriodEnd
	case s.CancelAtPeriodEnd:
		// Scheduled cancellation whose period has lapsed before the API
		// caught up with it.
		lc.Kind, lc.At = KindCanceled, s.CurrentPeriodEnd
	default:
		lc.Kind = kindForStatus(s.Status)
	}
	return lc
}

// Label returns the customer-facing status text.
func (lc Lifecycle) Label() string {
	switch lc.Kind {
	case KindActive:
		return "Active"
	case KindTrialing:
		return "Trialing"
	case KindPendingCancellation:
		if lc.At != nil {
			return "Ends " + lc.At.Format("Jan 2, 2006")
		}
		return "Ending"
	case KindPastDue:
		return "Past Due"
	case KindUnpaid:
		return "Unpaid"
	case KindCanceled:
		return "Canceled"
	case KindExpired:
		return "Expired"
	default:
		return "Incomplete"
	}
}

func kindForStatus(status Status) Kind {
	switch status {
	case StatusActive:
		return KindActive
	case StatusTrialing:
		return KindTrialing
	case StatusPastDue:
		return KindPastDue
	case StatusUnpaid:
		return KindUnpaid
	default:
		return KindIncomplete
	}
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}

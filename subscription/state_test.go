package subscription

import (
	"testing"
	"time"

	"github.com/xraph/portal/id"
	"github.com/xraph/portal/types"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name         string
		sub          Subscription
		canceled     bool
		expiringSoon bool
		expired      bool
		billing      bool
	}{
		{"active renewing", Subscription{Status: StatusActive, CurrentPeriodEnd: at(72 * time.Hour)}, false, false, false, true},
		{"active ending", Subscription{Status: StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: at(72 * time.Hour)}, true, true, false, true},
		{"ending lapsed", Subscription{Status: StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: at(-time.Hour)}, true, false, false, true},
		{"ending at now", Subscription{Status: StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: at(0)}, true, false, false, true},
		{"ending no period", Subscription{Status: StatusActive, CancelAtPeriodEnd: true}, true, false, false, true},
		{"canceled ended", Subscription{Status: StatusCanceled, EndedAt: at(-time.Hour)}, true, false, true, false},
		{"trialing", Subscription{Status: StatusTrialing}, false, false, false, false},
		{"past due", Subscription{Status: StatusPastDue}, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCanceled(&tt.sub); got != tt.canceled {
				t.Errorf("IsCanceled: got %v, want %v", got, tt.canceled)
			}
			if got := IsExpiringSoon(&tt.sub, now); got != tt.expiringSoon {
				t.Errorf("IsExpiringSoon: got %v, want %v", got, tt.expiringSoon)
			}
			if got := IsExpired(&tt.sub); got != tt.expired {
				t.Errorf("IsExpired: got %v, want %v", got, tt.expired)
			}
			if got := IsBilling(&tt.sub); got != tt.billing {
				t.Errorf("IsBilling: got %v, want %v", got, tt.billing)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	canceledAt := at(-48 * time.Hour)
	periodEnd := at(72 * time.Hour)
	endedAt := at(-time.Hour)

	tests := []struct {
		name  string
		sub   Subscription
		kind  Kind
		at    *time.Time
		label string
	}{
		{"active", Subscription{Status: StatusActive, CurrentPeriodEnd: periodEnd}, KindActive, nil, "Active"},
		{"pending cancellation", Subscription{Status: StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd}, KindPendingCancellation, periodEnd, "Ends Mar 18, 2026"},
		{"lapsed cancellation", Subscription{Status: StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: canceledAt}, KindCanceled, canceledAt, "Canceled"},
		{"canceled uses canceled_at", Subscription{Status: StatusCanceled, CanceledAt: canceledAt, CurrentPeriodEnd: periodEnd}, KindCanceled, canceledAt, "Canceled"},
		{"canceled falls back to period end", Subscription{Status: StatusCanceled, CurrentPeriodEnd: periodEnd}, KindCanceled, periodEnd, "Canceled"},
		{"ended wins over status", Subscription{Status: StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd, EndedAt: endedAt}, KindExpired, endedAt, "Expired"},
		{"trialing", Subscription{Status: StatusTrialing}, KindTrialing, nil, "Trialing"},
		{"past due", Subscription{Status: StatusPastDue}, KindPastDue, nil, "Past Due"},
		{"unpaid", Subscription{Status: StatusUnpaid}, KindUnpaid, nil, "Unpaid"},
		{"incomplete", Subscription{Status: StatusIncomplete}, KindIncomplete, nil, "Incomplete"},
		{"incomplete expired", Subscription{Status: StatusIncompleteExpired}, KindIncomplete, nil, "Incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := Derive(&tt.sub, now)
			if lc.Kind != tt.kind {
				t.Errorf("Kind: got %s, want %s", lc.Kind, tt.kind)
			}
			if (lc.At == nil) != (tt.at == nil) || (lc.At != nil && !lc.At.Equal(*tt.at)) {
				t.Errorf("At: got %v, want %v", lc.At, tt.at)
			}
			if lc.Label() != tt.label {
				t.Errorf("Label: got %q, want %q", lc.Label(), tt.label)
			}
			if lc.Canceled != IsCanceled(&tt.sub) {
				t.Errorf("Canceled flag diverges from IsCanceled")
			}
			if lc.ExpiringSoon != IsExpiringSoon(&tt.sub, now) {
				t.Errorf("ExpiringSoon flag diverges from IsExpiringSoon")
			}
		})
	}
}

// Canceled and ended: no estimate, no action, canceled view.
func TestCanceledEndedSubscription(t *testing.T) {
	sub := Subscription{Status: StatusCanceled, EndedAt: at(-time.Hour)}

	if !IsCanceled(&sub) {
		t.Error("expected canceled")
	}
	if IsBilling(&sub) {
		t.Error("canceled subscription must not be billing")
	}
	row, ok := PeriodDate(&sub)
	if !ok || row.Label != "Expired" {
		t.Errorf("PeriodDate: got %+v, %v", row, ok)
	}
}

func TestPeriodDate(t *testing.T) {
	periodEnd := at(72 * time.Hour)
	endedAt := at(-time.Hour)

	tests := []struct {
		name  string
		sub   Subscription
		ok    bool
		label string
		when  *time.Time
	}{
		{"renewal", Subscription{CurrentPeriodEnd: periodEnd}, true, "Renewal Date", periodEnd},
		{"expiry", Subscription{CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd}, true, "Expiry Date", periodEnd},
		{"ended wins", Subscription{CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd, EndedAt: endedAt}, true, "Expired", endedAt},
		{"nothing", Subscription{}, false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := PeriodDate(&tt.sub)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if row.Label != tt.label {
				t.Errorf("Label: got %q, want %q", row.Label, tt.label)
			}
			if !row.At.Equal(*tt.when) {
				t.Errorf("At: got %v, want %v", row.At, *tt.when)
			}
		})
	}

	row, _ := PeriodDate(&Subscription{CurrentPeriodEnd: periodEnd})
	if row.Text() != "March 18, 2026" {
		t.Errorf("Text: got %q", row.Text())
	}
}

func TestAmountLabel(t *testing.T) {
	tests := []struct {
		name string
		sub  Subscription
		want string
	}{
		{"monthly", Subscription{Amount: 4900, Currency: "usd", RecurringInterval: IntervalMonth}, "$49.00/mo"},
		{"yearly", Subscription{Amount: 19900, Currency: "eur", RecurringInterval: IntervalYear}, "€199.00/yr"},
		{"zero amount", Subscription{Amount: 0, Currency: "usd", RecurringInterval: IntervalMonth}, "Free"},
		{"no currency", Subscription{Amount: 100}, "Free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountLabel(&tt.sub); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClone(t *testing.T) {
	fixed := types.USD(1000)
	orig := &Subscription{
		ID:               id.NewSubscriptionID(),
		Status:           StatusActive,
		CurrentPeriodEnd: at(time.Hour),
		FixedPrice:       &fixed,
		MeteredLines:     []MeteredLine{{MeterName: "API calls", Accrued: types.USD(300)}},
		Organization:     &Organization{Name: "Acme", Settings: Settings{AllowCustomerUpdates: true}},
		Metadata:         map[string]string{"k": "v"},
	}

	c := orig.Clone()
	c.CurrentPeriodEnd = nil
	c.FixedPrice.Amount = 1
	c.MeteredLines[0].Accrued = types.USD(1)
	c.Organization.Settings.AllowCustomerUpdates = false
	c.Metadata["k"] = "changed"

	if orig.CurrentPeriodEnd == nil {
		t.Error("period end shared")
	}
	if orig.FixedPrice.Amount != 1000 {
		t.Error("fixed price shared")
	}
	if orig.MeteredLines[0].Accrued.Amount != 300 {
		t.Error("metered lines shared")
	}
	if !orig.Organization.Settings.AllowCustomerUpdates {
		t.Error("organization shared")
	}
	if orig.Metadata["k"] != "v" {
		t.Error("metadata shared")
	}
	if (*Subscription)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusIncomplete, StatusIncompleteExpired, StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusUnpaid} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("paused").Valid() {
		t.Error("paused should be invalid")
	}
}

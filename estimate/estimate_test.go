package estimate_test

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/xraph/portal/estimate"
	"github.com/xraph/portal/subscription"
	"github.com/xraph/portal/types"
)

func money(m types.Money) *types.Money { return &m }

func line(name string, amount int64) subscription.MeteredLine {
	return subscription.MeteredLine{MeterName: name, Accrued: types.USD(amount)}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		sub         subscription.Subscription
		total       int64
		provisional bool
		base        bool
		lines       []string
	}{
		{
			name:  "fixed price only",
			sub:   subscription.Subscription{Status: subscription.StatusActive, Currency: "usd", ProductName: "Pro", FixedPrice: money(types.USD(1000))},
			total: 1000,
			base:  true,
			lines: []string{},
		},
		{
			name: "fixed price and usage",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, Currency: "usd", FixedPrice: money(types.USD(500)),
				MeteredLines: []subscription.MeteredLine{line("API calls", 300), line("Storage", 200)},
			},
			total:       1000,
			provisional: true,
			base:        true,
			lines:       []string{"API calls", "Storage"},
		},
		{
			name: "usage only",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, Currency: "usd",
				MeteredLines: []subscription.MeteredLine{line("Tokens", 250)},
			},
			total:       250,
			provisional: true,
			lines:       []string{"Tokens"},
		},
		{
			name:  "free active subscription",
			sub:   subscription.Subscription{Status: subscription.StatusActive, Currency: "usd"},
			total: 0,
			lines: []string{},
		},
		{
			name: "zero usage is still provisional",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, Currency: "usd", FixedPrice: money(types.USD(900)),
				MeteredLines: []subscription.MeteredLine{line("Seats", 0)},
			},
			total:       900,
			provisional: true,
			base:        true,
			lines:       []string{"Seats"},
		},
		{
			name: "insertion order kept",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, Currency: "usd",
				MeteredLines: []subscription.MeteredLine{line("z", 1), line("a", 2), line("m", 3)},
			},
			total:       6,
			provisional: true,
			lines:       []string{"z", "a", "m"},
		},
		{
			name: "currency taken from fixed price when omitted",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, FixedPrice: money(types.EUR(700)),
			},
			total: 700,
			base:  true,
			lines: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := estimate.Compute(&tt.sub)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if est == nil {
				t.Fatal("expected an estimate")
			}
			if est.Total.Amount != tt.total {
				t.Errorf("Total: got %d, want %d", est.Total.Amount, tt.total)
			}
			if est.Provisional != tt.provisional {
				t.Errorf("Provisional: got %v, want %v", est.Provisional, tt.provisional)
			}
			if (est.Base != nil) != tt.base {
				t.Errorf("Base present: got %v, want %v", est.Base != nil, tt.base)
			}
			labels := make([]string, 0, len(est.Lines))
			for _, l := range est.Lines {
				labels = append(labels, l.Label)
			}
			if !reflect.DeepEqual(labels, tt.lines) {
				t.Errorf("Lines: got %v, want %v", labels, tt.lines)
			}
		})
	}
}

func TestComputeNoEstimate(t *testing.T) {
	statuses := []subscription.Status{
		subscription.StatusIncomplete, subscription.StatusIncompleteExpired, subscription.StatusTrialing,
		subscription.StatusPastDue, subscription.StatusCanceled, subscription.StatusUnpaid,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			sub := &subscription.Subscription{
				Status: status, Currency: "usd", FixedPrice: money(types.USD(1000)),
				MeteredLines: []subscription.MeteredLine{line("API calls", 10)},
			}
			est, err := estimate.Compute(sub)
			if err != nil || est != nil {
				t.Errorf("got %+v, %v; want nil, nil", est, err)
			}
		})
	}

	t.Run("canceled and ended", func(t *testing.T) {
		ended := time.Now()
		est, err := estimate.Compute(&subscription.Subscription{Status: subscription.StatusCanceled, EndedAt: &ended})
		if err != nil || est != nil {
			t.Errorf("got %+v, %v; want nil, nil", est, err)
		}
	})

	t.Run("nil subscription", func(t *testing.T) {
		if est, err := estimate.Compute(nil); err != nil || est != nil {
			t.Errorf("got %+v, %v", est, err)
		}
	})
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name string
		sub  subscription.Subscription
		want error
	}{
		{
			name: "fixed price currency mismatch",
			sub:  subscription.Subscription{Status: subscription.StatusActive, Currency: "usd", FixedPrice: money(types.EUR(100))},
			want: estimate.ErrCurrencyMismatch,
		},
		{
			name: "metered line currency mismatch",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, Currency: "usd", FixedPrice: money(types.USD(100)),
				MeteredLines: []subscription.MeteredLine{{MeterName: "API calls", Accrued: types.GBP(5)}},
			},
			want: estimate.ErrCurrencyMismatch,
		},
		{
			name: "overflow",
			sub: subscription.Subscription{
				Status: subscription.StatusActive, Currency: "usd", FixedPrice: money(types.USD(math.MaxInt64)),
				MeteredLines: []subscription.MeteredLine{line("API calls", 1)},
			},
			want: estimate.ErrAmountOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := estimate.Compute(&tt.sub)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if est != nil {
				t.Errorf("no partial estimate expected, got %+v", est)
			}
		})
	}
}

// Properties over generated inputs: totals equal fixed price plus the sum of
// accrued amounts, provisional tracks the presence of metered lines, and
// repeated calls agree.
func TestComputeProperties(t *testing.T) {
	fixedPrices := []*types.Money{nil, money(types.USD(0)), money(types.USD(1999))}
	usage := [][]int64{nil, {0}, {300, 200}, {1, 2, 3, 4, 5}}

	for _, fp := range fixedPrices {
		for _, amounts := range usage {
			sub := &subscription.Subscription{Status: subscription.StatusActive, Currency: "usd", FixedPrice: fp}
			want := int64(0)
			if fp != nil {
				want = fp.Amount
			}
			for _, a := range amounts {
				sub.MeteredLines = append(sub.MeteredLines, line("m", a))
				want += a
			}

			first, err := estimate.Compute(sub)
			if err != nil {
				t.Fatal(err)
			}
			second, err := estimate.Compute(sub)
			if err != nil {
				t.Fatal(err)
			}

			if first.Total.Amount != want {
				t.Errorf("total: got %d, want %d", first.Total.Amount, want)
			}
			if first.Provisional != (len(amounts) > 0) {
				t.Errorf("provisional: got %v with %d lines", first.Provisional, len(amounts))
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("not idempotent: %+v vs %+v", first, second)
			}
		}
	}
}

func TestNextInvoice(t *testing.T) {
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	est, err := estimate.Compute(&subscription.Subscription{Status: subscription.StatusActive, Currency: "usd", CurrentPeriodEnd: &end})
	if err != nil {
		t.Fatal(err)
	}
	if got := est.NextInvoice(); got != "April 1, 2026" {
		t.Errorf("got %q", got)
	}

	est, err = estimate.Compute(&subscription.Subscription{Status: subscription.StatusActive, Currency: "usd"})
	if err != nil {
		t.Fatal(err)
	}
	if got := est.NextInvoice(); got != "N/A" {
		t.Errorf("got %q", got)
	}
}

func BenchmarkCompute(b *testing.B) {
	sub := &subscription.Subscription{Status: subscription.StatusActive, Currency: "usd", FixedPrice: money(types.USD(4900))}
	for range 20 {
		sub.MeteredLines = append(sub.MeteredLines, line("m", 125))
	}
	b.ResetTimer()
	for b.Loop() {
		_, _ = estimate.Compute(sub)
	}
}

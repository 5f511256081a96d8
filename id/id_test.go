package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/portal/id"
)

var kinds = []struct {
	name    string
	newFn   func() id.ID
	parseFn func(string) (id.ID, error)
	prefix  id.Prefix
}{
	{"Subscription", id.NewSubscriptionID, id.ParseSubscriptionID, id.PrefixSubscription},
	{"Organization", id.NewOrganizationID, id.ParseOrganizationID, id.PrefixOrganization},
	{"Customer", id.NewCustomerID, id.ParseCustomerID, id.PrefixCustomer},
	{"Product", id.NewProductID, id.ParseProductID, id.PrefixProduct},
	{"Price", id.NewPriceID, id.ParsePriceID, id.PrefixPrice},
	{"Meter", id.NewMeterID, id.ParseMeterID, id.PrefixMeter},
	{"MeterLine", id.NewMeterLineID, id.ParseMeterLineID, id.PrefixMeterLine},
	{"Order", id.NewOrderID, id.ParseOrderID, id.PrefixOrder},
	{"Account", id.NewAccountID, id.ParseAccountID, id.PrefixAccount},
	{"Mutation", id.NewMutationID, id.ParseMutationID, id.PrefixMutation},
}

func TestConstructorsAndParsers(t *testing.T) {
	for _, k := range kinds {
		t.Run(k.name, func(t *testing.T) {
			original := k.newFn()
			if !strings.HasPrefix(original.String(), string(k.prefix)+"_") {
				t.Fatalf("expected prefix %q, got %q", k.prefix, original.String())
			}
			if original.Prefix() != k.prefix {
				t.Errorf("Prefix(): got %q, want %q", original.Prefix(), k.prefix)
			}

			parsed, err := k.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	for i, k := range kinds {
		other := kinds[(i+1)%len(kinds)]
		t.Run(k.name, func(t *testing.T) {
			input := other.newFn().String()
			if _, err := k.parseFn(input); err == nil {
				t.Errorf("expected error parsing %q as %s", input, k.name)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestJSONField(t *testing.T) {
	type envelope struct {
		Subscription id.SubscriptionID `json:"subscription_id"`
		Order        id.OrderID        `json:"order_id"`
	}

	in := envelope{Subscription: id.NewSubscriptionID()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out envelope
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.Subscription.String() != in.Subscription.String() {
		t.Errorf("subscription mismatch: %q != %q", out.Subscription, in.Subscription)
	}
	if !out.Order.IsNil() {
		t.Errorf("expected nil order id, got %q", out.Order)
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewSubscriptionID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var fromString id.ID
	if err := fromString.Scan(val); err != nil {
		t.Fatalf("Scan(string) failed: %v", err)
	}
	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if fromString.String() != original.String() || fromBytes.String() != original.String() {
		t.Errorf("scan mismatch: %q / %q != %q", fromString, fromBytes, original)
	}

	var nilID id.ID
	if val, _ := nilID.Value(); val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}
	var scanned id.ID
	if err := scanned.Scan(nil); err != nil || !scanned.IsNil() {
		t.Errorf("expected nil after scan of nil, got %q (err %v)", scanned, err)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		s := id.NewMutationID().String()
		if seen[s] {
			t.Fatalf("duplicate mutation id %q", s)
		}
		seen[s] = true
	}
}

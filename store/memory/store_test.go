package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/portal"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/store/memory"
	"github.com/xraph/portal/subscription"
	"github.com/xraph/portal/types"
)

func snapshot(customer id.CustomerID, status subscription.Status, created time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:     types.Entity{CreatedAt: created},
		ID:         id.NewSubscriptionID(),
		CustomerID: customer,
		Status:     status,
		Currency:   "usd",
	}
}

func TestPutGetReplace(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	sub := snapshot(id.NewCustomerID(), subscription.StatusActive, time.Now())

	if err := s.Put(ctx, sub); err != nil {
		t.Fatal(err)
	}

	sub.Status = subscription.StatusUnpaid
	got, err := s.Get(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != subscription.StatusActive {
		t.Error("Put must store a copy")
	}

	got.CancelAtPeriodEnd = true
	if again, _ := s.Get(ctx, sub.ID); again.CancelAtPeriodEnd {
		t.Error("Get must return a copy")
	}

	if err := s.Put(ctx, sub); err != nil {
		t.Fatal(err)
	}
	if replaced, _ := s.Get(ctx, sub.ID); replaced.Status != subscription.StatusUnpaid {
		t.Errorf("Put should replace wholesale, got %s", replaced.Status)
	}
	if s.Len() != 1 {
		t.Errorf("Len: got %d, want 1", s.Len())
	}
}

func TestPutRejectsNilID(t *testing.T) {
	err := memory.New().Put(context.Background(), &subscription.Subscription{})
	if !errors.Is(err, portal.ErrInvalidInput) {
		t.Fatalf("got %v", err)
	}
}

func TestGetDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if _, err := s.Get(ctx, id.NewSubscriptionID()); !portal.IsNotFound(err) {
		t.Errorf("Get: got %v", err)
	}
	if err := s.Delete(ctx, id.NewSubscriptionID()); !errors.Is(err, portal.ErrSnapshotNotFound) {
		t.Errorf("Delete: got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	customer := id.NewCustomerID()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := snapshot(customer, subscription.StatusActive, base)
	second := snapshot(customer, subscription.StatusCanceled, base.Add(time.Hour))
	third := snapshot(customer, subscription.StatusActive, base.Add(2*time.Hour))
	foreign := snapshot(id.NewCustomerID(), subscription.StatusActive, base)
	for _, sub := range []*subscription.Subscription{third, foreign, first, second} {
		if err := s.Put(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts subscription.ListOpts
		want []*subscription.Subscription
	}{
		{"all in creation order", subscription.ListOpts{}, []*subscription.Subscription{first, second, third}},
		{"status filter", subscription.ListOpts{Status: subscription.StatusActive}, []*subscription.Subscription{first, third}},
		{"limit", subscription.ListOpts{Limit: 2}, []*subscription.Subscription{first, second}},
		{"offset", subscription.ListOpts{Offset: 2}, []*subscription.Subscription{third}},
		{"offset past end", subscription.ListOpts{Offset: 10}, []*subscription.Subscription{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, customer, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len: got %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID.String() != tt.want[i].ID.String() {
					t.Errorf("[%d]: got %s, want %s", i, got[i].ID, tt.want[i].ID)
				}
			}
		})
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); !errors.Is(err, portal.ErrStoreClosed) {
		t.Errorf("Ping after close: %v", err)
	}
	sub := snapshot(id.NewCustomerID(), subscription.StatusActive, time.Now())
	if err := s.Put(ctx, sub); !errors.Is(err, portal.ErrStoreClosed) {
		t.Errorf("Put after close: %v", err)
	}
}

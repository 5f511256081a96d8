package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	audithook "github.com/xraph/portal/audit_hook"
	"github.com/xraph/portal/id"
	"github.com/xraph/portal/subscription"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, evt *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func TestMutationEvents(t *testing.T) {
	ctx := context.Background()
	rec := &sink{}
	ext := audithook.New(rec)
	subID := id.NewSubscriptionID()

	_ = ext.OnMutationStarted(ctx, "cancel", subID)
	_ = ext.OnMutationSucceeded(ctx, "cancel", subID, 25*time.Millisecond)
	_ = ext.OnMutationFailed(ctx, "uncancel", subID, errors.New("api: 503"))
	_ = ext.OnStaleResponse(ctx, "cancel", subID)

	want := []string{
		audithook.ActionCancelRequested,
		audithook.ActionSubscriptionCanceled,
		audithook.ActionMutationFailed,
		audithook.ActionResponseDropped,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	failed := rec.events[2]
	if failed.Outcome != audithook.OutcomeFailure || failed.Reason != "api: 503" {
		t.Errorf("failed event = %+v", failed)
	}
	if rec.events[0].ResourceID != subID.String() {
		t.Errorf("ResourceID = %q", rec.events[0].ResourceID)
	}
}

func TestPlanChangeRecordsPrices(t *testing.T) {
	ctx := context.Background()
	rec := &sink{}
	ext := audithook.New(rec)

	prev := &subscription.Subscription{ID: id.NewSubscriptionID(), PriceID: id.NewPriceID(), Amount: 2000, Currency: "usd"}
	next := prev.Clone()
	next.PriceID = id.NewPriceID()
	next.Amount = 4900

	_ = ext.OnSnapshotReplaced(ctx, "cancel", prev, next)
	_ = ext.OnSnapshotReplaced(ctx, "change_plan", prev, next)

	if len(rec.events) != 1 {
		t.Fatalf("events = %v", rec.actions())
	}
	meta := rec.events[0].Metadata
	if meta["previous_price_id"] != prev.PriceID.String() || meta["price_id"] != next.PriceID.String() {
		t.Errorf("metadata = %v", meta)
	}
	if meta["amount"] != int64(4900) {
		t.Errorf("amount = %v", meta["amount"])
	}
}

func TestEnabledActions(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled", func(t *testing.T) {
		rec := &sink{}
		ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionMutationFailed))
		_ = ext.OnMutationStarted(ctx, "cancel", id.NewSubscriptionID())
		_ = ext.OnMutationFailed(ctx, "cancel", id.NewSubscriptionID(), errors.New("x"))
		if got := rec.actions(); len(got) != 1 || got[0] != audithook.ActionMutationFailed {
			t.Errorf("actions = %v", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rec := &sink{}
		ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionSnapshotDiscarded))
		_ = ext.OnSnapshotDiscarded(ctx, id.NewSubscriptionID())
		_ = ext.OnLinkIssued(ctx, "invoice", id.NewOrderID().String())
		if got := rec.actions(); len(got) != 1 || got[0] != audithook.ActionInvoiceIssued {
			t.Errorf("actions = %v", got)
		}
	})
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("audit store down")
	}))
	if err := ext.OnSnapshotDiscarded(context.Background(), id.NewSubscriptionID()); err != nil {
		t.Errorf("hook returned %v, want nil", err)
	}
}

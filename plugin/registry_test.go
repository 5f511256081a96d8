package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/portal/id"
	"github.com/xraph/portal/plugin"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct {
	name string

	mu     sync.Mutex
	events []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnMutationStarted(_ context.Context, op string, _ id.SubscriptionID) error {
	r.add("started:" + op)
	return nil
}

func (r *recorder) OnMutationFailed(_ context.Context, op string, _ id.SubscriptionID, _ error) error {
	r.add("failed:" + op)
	return errors.New("hook failure is swallowed")
}

type sleepy struct{}

func (sleepy) Name() string { return "sleepy" }

func (sleepy) OnStaleResponse(ctx context.Context, _ string, _ id.SubscriptionID) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	reg := plugin.NewRegistry().WithLogger(quiet)
	rec := &recorder{name: "rec"}

	if err := reg.Register(rec); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&recorder{name: "rec"}); err == nil {
		t.Fatal("duplicate name should be rejected")
	}
	if reg.Count() != 1 || reg.Get("rec") != rec || reg.Get("missing") != nil {
		t.Fatalf("unexpected registry contents: %v", reg.List())
	}

	ctx := context.Background()
	sub := id.NewSubscriptionID()
	reg.EmitMutationStarted(ctx, "cancel", sub)
	reg.EmitMutationFailed(ctx, "cancel", sub, errors.New("boom"))
	reg.EmitMutationSucceeded(ctx, "cancel", sub, time.Millisecond) // not implemented by rec

	if len(rec.events) != 2 || rec.events[0] != "started:cancel" || rec.events[1] != "failed:cancel" {
		t.Errorf("events: %v", rec.events)
	}
}

func TestHookTimeout(t *testing.T) {
	reg := plugin.NewRegistry().WithLogger(quiet).WithTimeout(20 * time.Millisecond)
	if err := reg.Register(sleepy{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	reg.EmitStaleResponse(context.Background(), "uncancel", id.NewSubscriptionID())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("emit blocked for %s", elapsed)
	}
}

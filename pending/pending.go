// Package pending tracks in-flight mutations, at most one per subscription.
//
// A Ticket is issued when a mutation starts and must be presented when its
// response arrives. The response is applied only when the ticket still owns
// the slot and the response is for the subscription the request was issued
// for; otherwise it is stale and dropped.
package pending

import (
	"errors"
	"sync"
	"time"

	"github.com/xraph/portal/id"
)

// ErrMutationInFlight is returned by Begin while another mutation holds the
// slot for the same subscription.
var ErrMutationInFlight = errors.New("pending: mutation already in flight")

// Op names the mutation holding a slot.
type Op string

const (
	OpCancel     Op = "cancel"
	OpUncancel   Op = "uncancel"
	OpChangePlan Op = "change_plan"
	OpInvoice    Op = "invoice"
)

// Ticket identifies one in-flight mutation.
type Ticket struct {
	ID             id.MutationID
	SubscriptionID id.SubscriptionID
	Op             Op
	StartedAt      time.Time
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	slots map[string]Ticket
	now   func() time.Time
}

// NewTracker returns an empty tracker. A nil clock defaults to time.Now.
func NewTracker(clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{slots: make(map[string]Ticket), now: clock}
}

// Begin claims the slot for subID.
func (t *Tracker) Begin(subID id.SubscriptionID, op Op) (Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := subID.String()
	if _, busy := t.slots[key]; busy {
		return Ticket{}, ErrMutationInFlight
	}

	tk := Ticket{
		ID:             id.NewMutationID(),
		SubscriptionID: subID,
		Op:             op,
		StartedAt:      t.now(),
	}
	t.slots[key] = tk
	return tk, nil
}

// Finish releases the slot held by tk and reports whether tk still owned
// it. A false result means the slot was released or reclaimed meanwhile
// and the mutation's response must not be applied.
func (t *Tracker) Finish(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := tk.SubscriptionID.String()
	cur, ok := t.slots[key]
	if !ok || cur.ID.String() != tk.ID.String() {
		return false
	}
	delete(t.slots, key)
	return true
}

// Accepts reports whether a response for respID may be applied under tk,
// without releasing the slot.
func (t *Tracker) Accepts(tk Ticket, respID id.SubscriptionID) bool {
	if respID.String() != tk.SubscriptionID.String() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.slots[tk.SubscriptionID.String()]
	return ok && cur.ID.String() == tk.ID.String()
}

// Release drops whatever holds the slot for subID. Used when the owning
// view goes away; the in-flight request still completes but its ticket no
// longer owns the slot.
func (t *Tracker) Release(subID id.SubscriptionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slots, subID.String())
}

// Pending reports whether a mutation is in flight for subID.
func (t *Tracker) Pending(subID id.SubscriptionID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.slots[subID.String()]
	return ok
}

// Current returns the ticket holding the slot for subID, if any.
func (t *Tracker) Current(subID id.SubscriptionID) (Ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.slots[subID.String()]
	return tk, ok
}

// Len returns the number of in-flight mutations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/portal"
	"github.com/xraph/portal/id"
	portalstore "github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// compile-time interface check
var _ portalstore.Store = (*Store)(nil)

// Store keeps snapshots in process memory. Snapshots are copied on the way
// in and out.
type Store struct {
	mu sync.RWMutex

	subscriptions map[string]*subscription.Subscription
	closed        bool
}

func New() *Store {
	return &Store{
		subscriptions: make(map[string]*subscription.Subscription),
	}
}

// Subscription Store implementation

func (s *Store) Put(_ context.Context, sub *subscription.Subscription) error {
	if sub == nil || sub.ID.IsNil() {
		return portal.ValidationError{Field: "id", Message: "snapshot has no subscription id"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return portal.ErrStoreClosed
	}
	s.subscriptions[sub.ID.String()] = sub.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		return sub.Clone(), nil
	}
	return nil, portal.ErrSnapshotNotFound
}

func (s *Store) List(_ context.Context, customerID id.CustomerID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.CustomerID.String() != customerID.String() {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		result = append(result, sub.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	// Apply limit/offset
	start := min(opts.Offset, len(result))
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Delete(_ context.Context, subID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[subID.String()]; !ok {
		return portal.ErrSnapshotNotFound
	}
	delete(s.subscriptions, subID.String())
	return nil
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscriptions)
}

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return portal.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

package subscription

import (
	"context"

	"github.com/xraph/portal/id"
)

// Store holds the latest snapshot per subscription. Put replaces a
// snapshot wholesale; Delete discards it when the owning view goes away.
type Store interface {
	Put(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	List(ctx context.Context, customerID id.CustomerID, opts ListOpts) ([]*Subscription, error)
	Delete(ctx context.Context, subID id.SubscriptionID) error
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}

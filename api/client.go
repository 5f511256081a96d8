// Package api defines the billing API the portal consumes. Transport,
// authentication and timeouts belong to implementations of Client.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/portal/id"
	"github.com/xraph/portal/subscription"
)

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("api: not found")

// Client is the customer-scoped billing API. Mutations return the updated
// snapshot.
type Client interface {
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, customerID id.CustomerID, opts ListOpts) ([]*subscription.Subscription, error)
	ListOrderSubscriptions(ctx context.Context, orderID id.OrderID) ([]*subscription.Subscription, error)

	Cancel(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	Uncancel(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	ChangePlan(ctx context.Context, subID id.SubscriptionID, priceID id.PriceID) (*subscription.Subscription, error)

	OnboardingLink(ctx context.Context, accountID id.AccountID) (Link, error)
	DashboardLink(ctx context.Context, accountID id.AccountID) (Link, error)
	OrderInvoice(ctx context.Context, orderID id.OrderID) (Link, error)
}

// ListOpts filters a customer's subscriptions. Active nil lists all;
// true lists the active ones and false the canceled ones.
type ListOpts struct {
	Active *bool
	Limit  int
	Page   int
}

// Link is a backend-issued URL. It is opaque to the portal.
type Link struct {
	URL string `json:"url"`
}

// Error is a failed API call.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Temporary reports whether retrying the same call may succeed.
func (e *Error) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

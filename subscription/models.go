package subscription

import (
	"maps"
	"slices"
	"time"

	"github.com/xraph/portal/id"
	"github.com/xraph/portal/types"
)

type Status string

const (
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
)

// Valid reports whether s is one of the statuses the billing API emits.
func (s Status) Valid() bool {
	switch s {
	case StatusIncomplete, StatusIncompleteExpired, StatusTrialing, StatusActive,
		StatusPastDue, StatusCanceled, StatusUnpaid:
		return true
	}
	return false
}

type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Settings are the organization-level subscription settings that gate
// customer self-service.
type Settings struct {
	AllowCustomerUpdates bool `json:"allow_customer_updates"`
}

type Organization struct {
	ID        id.OrganizationID `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	Settings  Settings          `json:"subscription_settings"`
}

// MeteredLine is the usage charge accrued on one meter during the current
// period. Accrued never decreases within a period.
type MeteredLine struct {
	ID        id.MeterLineID `json:"id"`
	MeterID   id.MeterID     `json:"meter_id"`
	MeterName string         `json:"meter_name"`
	Accrued   types.Money    `json:"amount"`
}

// Subscription is a read-only snapshot of a customer subscription as last
// returned by the billing API. It is replaced wholesale after every
// successful mutation and never edited in place.
type Subscription struct {
	types.Entity
	ID                 id.SubscriptionID `json:"id"`
	CustomerID         id.CustomerID     `json:"customer_id"`
	ProductID          id.ProductID      `json:"product_id"`
	ProductName        string            `json:"product_name"`
	PriceID            id.PriceID        `json:"price_id"`
	Status             Status            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time        `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time        `json:"current_period_end,omitempty"`
	StartedAt          *time.Time        `json:"started_at,omitempty"`
	CanceledAt         *time.Time        `json:"canceled_at,omitempty"`
	EndedAt            *time.Time        `json:"ended_at,omitempty"`
	Amount             int64             `json:"amount"`
	RecurringInterval  Interval          `json:"recurring_interval,omitempty"`
	Currency           string            `json:"currency"`
	FixedPrice         *types.Money      `json:"fixed_price,omitempty"`
	MeteredLines       []MeteredLine     `json:"meters"`
	Organization       *Organization     `json:"organization,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so stores can hand out snapshots that callers
// cannot mutate through.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.ModifiedAt = cloneTime(s.ModifiedAt)
	c.CurrentPeriodStart = cloneTime(s.CurrentPeriodStart)
	c.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	c.StartedAt = cloneTime(s.StartedAt)
	c.CanceledAt = cloneTime(s.CanceledAt)
	c.EndedAt = cloneTime(s.EndedAt)
	if s.FixedPrice != nil {
		fp := *s.FixedPrice
		c.FixedPrice = &fp
	}
	if s.Organization != nil {
		org := *s.Organization
		c.Organization = &org
	}
	c.MeteredLines = slices.Clone(s.MeteredLines)
	c.Metadata = maps.Clone(s.Metadata)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

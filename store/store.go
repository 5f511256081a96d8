// Package store defines the snapshot storage interface implemented by the
// memory, postgres, sqlite and mongo backends.
package store

import (
	"context"

	"github.com/xraph/portal/subscription"
)

// Store is the unified storage interface for subscription snapshots.
type Store interface {
	subscription.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

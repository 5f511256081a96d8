package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/portal"
	"github.com/xraph/portal/id"
	portalstore "github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// compile-time interface check
var _ portalstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("portal/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("portal/postgres: %w: %w", portal.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Subscription Store ====================

// Put inserts the snapshot or replaces the stored one wholesale.
func (s *Store) Put(ctx context.Context, sub *subscription.Subscription) error {
	m, err := toSnapshotModel(sub)
	if err != nil {
		return err
	}
	_, err = s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("customer_id = EXCLUDED.customer_id").
		Set("organization_id = EXCLUDED.organization_id").
		Set("status = EXCLUDED.status").
		Set("cancel_at_period_end = EXCLUDED.cancel_at_period_end").
		Set("current_period_end = EXCLUDED.current_period_end").
		Set("ended_at = EXCLUDED.ended_at").
		Set("snapshot = EXCLUDED.snapshot").
		Set("stored_at = EXCLUDED.stored_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("portal/postgres: put snapshot: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(snapshotModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, portal.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("portal/postgres: get snapshot: %w", err)
	}
	return fromSnapshotModel(m)
}

func (s *Store) List(ctx context.Context, customerID id.CustomerID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []snapshotModel
	q := s.pg.NewSelect(&models).Where("customer_id = $1", customerID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("portal/postgres: list snapshots: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSnapshotModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, subID id.SubscriptionID) error {
	res, err := s.pg.NewDelete((*snapshotModel)(nil)).
		Where("id = $1", subID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("portal/postgres: delete snapshot: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return portal.ErrSnapshotNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

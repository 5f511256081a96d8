package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/portal"
	"github.com/xraph/portal/id"
	portalstore "github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// Collection name constants.
const (
	colSubscriptions = "portal_subscriptions"
)

// compile-time interface check
var _ portalstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all portal collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("portal/mongo: migrate %s indexes: %w", col, err)
		}
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

	_, err = s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"customer_id":          m.CustomerID,
				"organization_id":      m.OrganizationID,
				"status":               m.Status,
				"cancel_at_period_end": m.CancelAtPeriodEnd,
				"current_period_end":   m.CurrentPeriodEnd,
				"ended_at":             m.EndedAt,
				"snapshot":             m.Snapshot,
				"stored_at":            m.StoredAt,
			},
			"$setOnInsert": bson.M{
				"created_at": m.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("portal/mongo: put snapshot: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m snapshotModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, portal.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("portal/mongo: get snapshot: %w", err)
	}
	return fromSnapshotModel(&m)
}

func (s *Store) List(ctx context.Context, customerID id.CustomerID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []snapshotModel

	filter := bson.M{"customer_id": customerID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("portal/mongo: list snapshots: %w", err)
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
	res, err := s.mdb.NewDelete((*snapshotModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("portal/mongo: delete snapshot: %w", err)
	}
	if res.DeletedCount() == 0 {
		return portal.ErrSnapshotNotFound
	}
	return nil
}

// ==================== Helpers ====================

// migrationIndexes returns the index definitions for all portal collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSubscriptions: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "organization_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "snapshot.id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

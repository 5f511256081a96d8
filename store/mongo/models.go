package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	portalstore "github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// ==================== Snapshot models ====================

// snapshotModel embeds the snapshot as a native sub-document so it can be
// inspected with ordinary Mongo queries.
type snapshotModel struct {
	grove.BaseModel `grove:"table:portal_subscriptions"`

	ID                string     `grove:"id,pk"                bson:"_id"`
	CustomerID        string     `grove:"customer_id"          bson:"customer_id"`
	OrganizationID    string     `grove:"organization_id"      bson:"organization_id"`
	Status            string     `grove:"status"               bson:"status"`
	CancelAtPeriodEnd bool       `grove:"cancel_at_period_end" bson:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `grove:"current_period_end"   bson:"current_period_end,omitempty"`
	EndedAt           *time.Time `grove:"ended_at"             bson:"ended_at,omitempty"`
	Snapshot          bson.M     `grove:"snapshot"             bson:"snapshot"`
	CreatedAt         time.Time  `grove:"created_at"           bson:"created_at"`
	StoredAt          time.Time  `grove:"stored_at"            bson:"stored_at"`
}

func toSnapshotModel(s *subscription.Subscription) (*snapshotModel, error) {
	doc, err := portalstore.EncodeSnapshot(s)
	if err != nil {
		return nil, err
	}
	var snap bson.M
	if err := bson.UnmarshalExtJSON(doc, false, &snap); err != nil {
		return nil, fmt.Errorf("portal/mongo: convert snapshot: %w", err)
	}

	m := &snapshotModel{
		ID:                s.ID.String(),
		CustomerID:        s.CustomerID.String(),
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		EndedAt:           s.EndedAt,
		Snapshot:          snap,
		CreatedAt:         s.CreatedAt,
		StoredAt:          time.Now().UTC(),
	}
	if s.Organization != nil {
		m.OrganizationID = s.Organization.ID.String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.StoredAt
	}
	return m, nil
}

func fromSnapshotModel(m *snapshotModel) (*subscription.Subscription, error) {
	doc, err := bson.MarshalExtJSON(m.Snapshot, false, false)
	if err != nil {
		return nil, fmt.Errorf("portal/mongo: convert snapshot: %w", err)
	}
	return portalstore.DecodeSnapshot(doc)
}

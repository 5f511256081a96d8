package sqlite

import (
	"time"

	"github.com/xraph/grove"

	portalstore "github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// ==================== Snapshot models ====================

// snapshotModel keeps the JSON document in a TEXT column; SQLite has no
// JSONB type.
type snapshotModel struct {
	grove.BaseModel `grove:"table:portal_subscriptions"`

	ID                string     `grove:"id,pk"`
	CustomerID        string     `grove:"customer_id"`
	OrganizationID    string     `grove:"organization_id"`
	Status            string     `grove:"status"`
	CancelAtPeriodEnd bool       `grove:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `grove:"current_period_end"`
	EndedAt           *time.Time `grove:"ended_at"`
	Snapshot          string     `grove:"snapshot"`
	CreatedAt         time.Time  `grove:"created_at"`
	StoredAt          time.Time  `grove:"stored_at"`
}

func toSnapshotModel(s *subscription.Subscription) (*snapshotModel, error) {
	doc, err := portalstore.EncodeSnapshot(s)
	if err != nil {
		return nil, err
	}

	m := &snapshotModel{
		ID:                s.ID.String(),
		CustomerID:        s.CustomerID.String(),
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		EndedAt:           s.EndedAt,
		Snapshot:          string(doc),
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
	return portalstore.DecodeSnapshot([]byte(m.Snapshot))
}

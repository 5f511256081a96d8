package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	portalstore "github.com/xraph/portal/store"
	"github.com/xraph/portal/subscription"
)

// ==================== Snapshot models ====================

// snapshotModel stores the full snapshot as JSONB. The scalar columns
// duplicate the fields queries filter and sort on.
type snapshotModel struct {
	grove.BaseModel `grove:"table:portal_subscriptions"`

	ID                string          `grove:"id,pk"`
	CustomerID        string          `grove:"customer_id"`
	OrganizationID    string          `grove:"organization_id"`
	Status            string          `grove:"status"`
	CancelAtPeriodEnd bool            `grove:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time      `grove:"current_period_end"`
	EndedAt           *time.Time      `grove:"ended_at"`
	Snapshot          json.RawMessage `grove:"snapshot,type:jsonb"`
	CreatedAt         time.Time       `grove:"created_at"`
	StoredAt          time.Time       `grove:"stored_at"`
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
		Snapshot:          doc,
		CreatedAt:         s.CreatedAt,
		StoredAt:          now(),
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
	return portalstore.DecodeSnapshot(m.Snapshot)
}

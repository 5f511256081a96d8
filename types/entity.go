package types

import "time"

// Entity carries the server-side timestamps every API resource exposes.
type Entity struct {
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// NewEntity creates an Entity stamped with the current time.
func NewEntity() Entity {
	return Entity{CreatedAt: time.Now().UTC()}
}

// Touch sets ModifiedAt to now.
func (e *Entity) Touch() {
	now := time.Now().UTC()
	e.ModifiedAt = &now
}

// LastChanged returns ModifiedAt, or CreatedAt when the resource was never
// modified.
func (e Entity) LastChanged() time.Time {
	if e.ModifiedAt != nil {
		return *e.ModifiedAt
	}
	return e.CreatedAt
}

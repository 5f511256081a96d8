package portal

import "github.com/xraph/portal/id"

// ID is the identifier type for every portal entity.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

package portal

import "github.com/xraph/portal/types"

// Re-export common types so callers rendering a view need not import types.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	USD        = types.USD
	EUR        = types.EUR
	GBP        = types.GBP
	JPY        = types.JPY
	Zero       = types.Zero
	CheckedSum = types.CheckedSum
)

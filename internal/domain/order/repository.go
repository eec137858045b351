package order

import (
	"context"

	"github.com/orderkit/orderkit/internal/types"
)

// RuleLineQuery filters the cross-order line scan used by usage
// restrictions and budget accounting. A line matches when any of its rule
// references points at RuleID; with SyntheticOnly set, only the synthetic
// line the rule generated matches.
type RuleLineQuery struct {
	RuleID         string
	Statuses       []types.OrderStatus
	StatusesNotIn  []types.OrderStatus
	ExcludeOrderID string
	CustomerID     string
	// SyntheticOnly limits the scan to lines the rule generated
	SyntheticOnly bool
}

// ListFilter filters order listings
type ListFilter struct {
	Statuses   []types.OrderStatus
	CustomerID string
	Limit      int
	Offset     int
}

// Repository is the order store contract. Implementations recompute line and
// order totals after every write so promotion math always reads consistent
// amounts.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetBatch(ctx context.Context, ids []string) ([]*Order, error)
	List(ctx context.Context, filter *ListFilter) ([]*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error

	// ApplyPatch applies a batched set of order and line edits atomically,
	// then recomputes totals once
	ApplyPatch(ctx context.Context, orderID string, patch *Patch) (*Order, error)

	// RefreshPricelistDiscounts resets each remaining line's discount to the
	// standing pricelist discount, called after promotion effects are removed
	RefreshPricelistDiscounts(ctx context.Context, orderID string) (*Order, error)

	// CountRuleUsage counts orders matching the query that reference the rule
	CountRuleUsage(ctx context.Context, q *RuleLineQuery) (int, error)

	// ListRuleLines returns lines across orders referencing the rule
	ListRuleLines(ctx context.Context, q *RuleLineQuery) ([]*Line, error)
}

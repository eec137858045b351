package promotionrule

import (
	"context"

	"github.com/orderkit/orderkit/internal/types"
)

// ListFilter filters rule listings
type ListFilter struct {
	RuleTypes []types.PromotionRuleType
	Limit     int
	Offset    int
}

// Repository defines the interface for promotion rule data access
type Repository interface {
	Create(ctx context.Context, rule *PromotionRule) error
	Get(ctx context.Context, id string) (*PromotionRule, error)
	GetBatch(ctx context.Context, ids []string) ([]*PromotionRule, error)
	Update(ctx context.Context, rule *PromotionRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *ListFilter) ([]*PromotionRule, error)

	// GetCouponByCode resolves a coupon rule by code, case-insensitively.
	// Returns ErrNotFound when no coupon rule carries the code.
	GetCouponByCode(ctx context.Context, code string) (*PromotionRule, error)

	// ListAutomatic returns the automatic rules sorted by (sequence, id)
	ListAutomatic(ctx context.Context) ([]*PromotionRule, error)
}

package promotionrule

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// PromotionRule grants a discount on sale orders, either automatically or
// through a coupon code. Restrictions are evaluated in a fixed sequence and
// all must pass for the rule to apply.
type PromotionRule struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Code     string `json:"code" db:"code"`
	Sequence int    `json:"sequence" db:"sequence"`

	RuleType  types.PromotionRuleType `json:"rule_type" db:"rule_type"`
	PromoType types.PromoType         `json:"promo_type" db:"promo_type"`

	// Used is recomputed by the engine whenever usage-relevant fields
	// change or after an application pass, never set by operators
	Used bool `json:"used" db:"used"`

	DiscountType   types.DiscountType `json:"discount_type" db:"discount_type"`
	DiscountAmount decimal.Decimal    `json:"discount_amount" db:"discount_amount"`
	// DiscountProductID is the service product carrying flat-amount
	// discounts as a synthetic line
	DiscountProductID string `json:"discount_product_id" db:"discount_product_id"`
	CurrencyCode      string `json:"currency_code" db:"currency_code"`

	// Validity window, inclusive on both ends. Zero values leave the bound
	// open.
	DateFrom time.Time `json:"date_from" db:"date_from"`
	DateTo   time.Time `json:"date_to" db:"date_to"`

	// Minimal qualifying total the order must strictly exceed
	MinimalAmount        decimal.Decimal `json:"minimal_amount" db:"minimal_amount"`
	MinimalAmountTaxIncl bool            `json:"minimal_amount_tax_incl" db:"minimal_amount_tax_incl"`

	// Eligibility restrictions. Empty lists impose nothing.
	CustomerIDs  []string `json:"customer_ids" db:"customer_ids"`
	PricelistIDs []string `json:"pricelist_ids" db:"pricelist_ids"`

	// OnlyNewsletter requires the ordering customer to be subscribed
	OnlyNewsletter bool `json:"only_newsletter" db:"only_newsletter"`

	UsageRestriction types.UsageRestriction `json:"usage_restriction" db:"usage_restriction"`
	// BudgetMax caps total granted discount across confirmed orders for
	// max_budget rules
	BudgetMax decimal.Decimal `json:"budget_max" db:"budget_max"`

	MultiRuleStrategy types.MultiRuleStrategy `json:"multi_rule_strategy" db:"multi_rule_strategy"`

	types.BaseModel
}

// Validate checks the save-time constraints of a rule
func (r *PromotionRule) Validate() error {
	if r.Name == "" {
		return ierr.NewError("promotion rule name is required").
			WithHint("Please provide a name for the promotion rule").
			Mark(ierr.ErrValidation)
	}
	if err := r.RuleType.Validate(); err != nil {
		return err
	}
	if err := r.PromoType.Validate(); err != nil {
		return err
	}
	if err := r.DiscountType.Validate(); err != nil {
		return err
	}
	if err := r.UsageRestriction.Validate(); err != nil {
		return err
	}
	if err := r.MultiRuleStrategy.Validate(); err != nil {
		return err
	}
	if r.RuleType == types.PromotionRuleTypeCoupon && r.Code == "" {
		return ierr.NewError("coupon rule requires a code").
			WithHint("Coupon rules must carry the code customers will enter").
			WithReportableDetails(map[string]any{"rule_id": r.ID}).
			Mark(ierr.ErrValidation)
	}
	if r.DiscountType.IsAmount() {
		if r.DiscountProductID == "" {
			return ierr.NewError("amount discount requires a discount product").
				WithHint("Flat-amount discounts are carried by a dedicated service product line").
				WithReportableDetails(map[string]any{"rule_id": r.ID}).
				Mark(ierr.ErrValidation)
		}
		if r.CurrencyCode == "" {
			return ierr.NewError("amount discount requires a currency").
				WithHint("Flat-amount discounts must state the currency of the amount").
				WithReportableDetails(map[string]any{"rule_id": r.ID}).
				Mark(ierr.ErrValidation)
		}
	}
	if r.DiscountAmount.IsNegative() {
		return ierr.NewError("discount amount cannot be negative").
			WithReportableDetails(map[string]any{
				"rule_id":         r.ID,
				"discount_amount": r.DiscountAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCoupon reports whether the rule is redeemed through a code
func (r *PromotionRule) IsCoupon() bool {
	return r.RuleType == types.PromotionRuleTypeCoupon
}

// DisplayName renders the rule for logs and synthetic line descriptions
func (r *PromotionRule) DisplayName() string {
	if r.Code != "" {
		return r.Name + " (" + r.Code + ")"
	}
	return r.Name
}

// WithinDates reports whether the date falls inside the validity window
func (r *PromotionRule) WithinDates(at time.Time) bool {
	if !r.DateFrom.IsZero() && at.Before(r.DateFrom) {
		return false
	}
	if !r.DateTo.IsZero() && at.After(r.DateTo) {
		return false
	}
	return true
}

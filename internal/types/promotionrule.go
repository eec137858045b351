package types

import (
	"github.com/samber/lo"

	ierr "github.com/orderkit/orderkit/internal/errors"
)

// PromotionRuleType distinguishes coupon rules, activated by a code entered
// by the user, from automatic rules applied whenever their predicates hold.
type PromotionRuleType string

const (
	PromotionRuleTypeCoupon PromotionRuleType = "coupon"
	PromotionRuleTypeAuto   PromotionRuleType = "auto"
)

func (t PromotionRuleType) String() string {
	return string(t)
}

func (t PromotionRuleType) Validate() error {
	allowed := []PromotionRuleType{PromotionRuleTypeCoupon, PromotionRuleTypeAuto}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid promotion rule type").
			WithHint("Please provide a valid promotion rule type").
			WithReportableDetails(map[string]any{
				"allowed":   allowed,
				"rule_type": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PromoType is the kind of benefit a rule grants. Only discounts today; the
// enum keeps the application path closed against unknown values.
type PromoType string

const (
	PromoTypeDiscount PromoType = "discount"
)

func (t PromoType) String() string {
	return string(t)
}

func (t PromoType) Validate() error {
	if t != PromoTypeDiscount {
		return ierr.NewError("invalid promotion type").
			WithHint("Please provide a valid promotion type").
			WithReportableDetails(map[string]any{
				"allowed":    []PromoType{PromoTypeDiscount},
				"promo_type": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DiscountType selects how discount_amount is interpreted
type DiscountType string

const (
	DiscountTypePercentage        DiscountType = "percentage"
	DiscountTypeAmountTaxIncluded DiscountType = "amount_tax_included"
	DiscountTypeAmountTaxExcluded DiscountType = "amount_tax_excluded"
)

func (t DiscountType) String() string {
	return string(t)
}

// IsAmount reports whether the discount is a flat amount carried by a
// synthetic discount line rather than a percentage applied in place.
func (t DiscountType) IsAmount() bool {
	return t == DiscountTypeAmountTaxIncluded || t == DiscountTypeAmountTaxExcluded
}

func (t DiscountType) Validate() error {
	allowed := []DiscountType{
		DiscountTypePercentage,
		DiscountTypeAmountTaxIncluded,
		DiscountTypeAmountTaxExcluded,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid discount type").
			WithHint("Please provide a valid discount type").
			WithReportableDetails(map[string]any{
				"allowed":       allowed,
				"discount_type": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UsageRestriction caps how often a rule may be consumed before it is marked used
type UsageRestriction string

const (
	UsageRestrictionNone          UsageRestriction = "no_restriction"
	UsageRestrictionOnePerPartner UsageRestriction = "one_per_partner"
	UsageRestrictionValidOnce     UsageRestriction = "valid_once"
	UsageRestrictionMaxBudget     UsageRestriction = "max_budget"
)

func (r UsageRestriction) String() string {
	return string(r)
}

func (r UsageRestriction) Validate() error {
	allowed := []UsageRestriction{
		UsageRestrictionNone,
		UsageRestrictionOnePerPartner,
		UsageRestrictionValidOnce,
		UsageRestrictionMaxBudget,
	}
	if !lo.Contains(allowed, r) {
		return ierr.NewError("invalid usage restriction").
			WithHint("Please provide a valid usage restriction").
			WithReportableDetails(map[string]any{
				"allowed":           allowed,
				"usage_restriction": r,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MultiRuleStrategy is the conflict-resolution policy when several rules are
// eligible on the same order. Rules are applied in sequence order; the
// strategy decides how a rule composes with discounts already on a line.
type MultiRuleStrategy string

const (
	MultiRuleStrategyUseBest      MultiRuleStrategy = "use_best"
	MultiRuleStrategyCumulate     MultiRuleStrategy = "cumulate"
	MultiRuleStrategyExclusive    MultiRuleStrategy = "exclusive"
	MultiRuleStrategyKeepExisting MultiRuleStrategy = "keep_existing"
)

func (s MultiRuleStrategy) String() string {
	return string(s)
}

func (s MultiRuleStrategy) Validate() error {
	allowed := []MultiRuleStrategy{
		MultiRuleStrategyUseBest,
		MultiRuleStrategyCumulate,
		MultiRuleStrategyExclusive,
		MultiRuleStrategyKeepExisting,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid multi rule strategy").
			WithHint("Please provide a valid multi rule strategy").
			WithReportableDetails(map[string]any{
				"allowed":  allowed,
				"strategy": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

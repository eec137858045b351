package types

import (
	"github.com/samber/lo"

	ierr "github.com/orderkit/orderkit/internal/errors"
)

// PromotionRestriction identifies one predicate of the ordered validity
// checklist a promotion rule is evaluated against. The failed restriction is
// reported in validation errors for diagnostics.
type PromotionRestriction string

const (
	PromotionRestrictionDate              PromotionRestriction = "date"
	PromotionRestrictionTotalAmount       PromotionRestriction = "total_amount"
	PromotionRestrictionPartnerList       PromotionRestriction = "partner_list"
	PromotionRestrictionPricelist         PromotionRestriction = "pricelist"
	PromotionRestrictionNewsletter        PromotionRestriction = "newsletter"
	PromotionRestrictionUsage             PromotionRestriction = "usage"
	PromotionRestrictionRuleType          PromotionRestriction = "rule_type"
	PromotionRestrictionMultiRuleStrategy PromotionRestriction = "multi_rule_strategy"
)

func (r PromotionRestriction) String() string {
	return string(r)
}

func (r PromotionRestriction) Validate() error {
	allowed := []PromotionRestriction{
		PromotionRestrictionDate,
		PromotionRestrictionTotalAmount,
		PromotionRestrictionPartnerList,
		PromotionRestrictionPricelist,
		PromotionRestrictionNewsletter,
		PromotionRestrictionUsage,
		PromotionRestrictionRuleType,
		PromotionRestrictionMultiRuleStrategy,
	}
	if !lo.Contains(allowed, r) {
		return ierr.NewError("invalid promotion restriction").
			WithHint("Please provide a valid promotion restriction").
			WithReportableDetails(map[string]any{
				"allowed":     allowed,
				"restriction": r,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

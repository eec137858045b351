package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// PromotionValidationError reports which restriction of the checklist a rule
// failed on, with structured details for diagnostics
type PromotionValidationError struct {
	Restriction types.PromotionRestriction `json:"restriction"`
	Message     string                     `json:"message"`
	Details     map[string]interface{}     `json:"details,omitempty"`
}

func (e *PromotionValidationError) Error() string {
	return e.Message
}

// RestrictionCheck is one predicate of the validity checklist. A nil return
// means the restriction passes; a *PromotionValidationError means the rule
// does not apply; any other error is a system failure.
type RestrictionCheck func(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) error

// PromotionValidationService evaluates promotion rules against orders and
// lines
type PromotionValidationService interface {
	// ValidateRuleForOrder runs the restriction checklist in order and
	// returns the first failure as a *PromotionValidationError
	ValidateRuleForOrder(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) error

	// IsPromotionValid collapses ValidateRuleForOrder into a boolean,
	// propagating only system failures
	IsPromotionValid(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) (bool, error)

	// IsValidForLine decides line eligibility under the rule's multi-rule
	// strategy
	IsValidForLine(rule *promotionrule.PromotionRule, line *order.Line) bool

	// MinimalTotalAmount is the qualifying order total: tax-computed line
	// totals over every line except the ones this rule generated
	MinimalTotalAmount(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) (decimal.Decimal, error)

	// RegisterRestriction appends a named predicate to the checklist
	RegisterRestriction(restriction types.PromotionRestriction, check RestrictionCheck)
}

type restrictionEntry struct {
	restriction types.PromotionRestriction
	check       RestrictionCheck
}

type promotionValidationService struct {
	ServiceParams
	restrictions []restrictionEntry
}

// NewPromotionValidationService creates a validation service with the
// standard restriction checklist. The checklist order is fixed: evaluation
// short-circuits on the first failure and the failed restriction is what
// diagnostics report, so it must be deterministic.
func NewPromotionValidationService(params ServiceParams) PromotionValidationService {
	s := &promotionValidationService{
		ServiceParams: params,
	}
	s.restrictions = []restrictionEntry{
		{types.PromotionRestrictionDate, s.checkDate},
		{types.PromotionRestrictionTotalAmount, s.checkTotalAmount},
		{types.PromotionRestrictionPartnerList, s.checkPartnerList},
		{types.PromotionRestrictionPricelist, s.checkPricelist},
		{types.PromotionRestrictionNewsletter, s.checkNewsletter},
		{types.PromotionRestrictionUsage, s.checkUsage},
		{types.PromotionRestrictionRuleType, s.checkRuleType},
		{types.PromotionRestrictionMultiRuleStrategy, s.checkMultiRuleStrategy},
	}
	return s
}

func (s *promotionValidationService) RegisterRestriction(restriction types.PromotionRestriction, check RestrictionCheck) {
	s.restrictions = append(s.restrictions, restrictionEntry{restriction, check})
}

func (s *promotionValidationService) ValidateRuleForOrder(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	for _, entry := range s.restrictions {
		if err := entry.check(ctx, rule, o); err != nil {
			return err
		}
	}
	return nil
}

func (s *promotionValidationService) IsPromotionValid(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) (bool, error) {
	err := s.ValidateRuleForOrder(ctx, rule, o)
	if err == nil {
		return true, nil
	}
	var validationErr *PromotionValidationError
	if ierr.As(err, &validationErr) {
		s.Logger.Debugw("promotion rule does not apply",
			"rule_id", rule.ID,
			"order_id", o.ID,
			"restriction", validationErr.Restriction)
		return false, nil
	}
	return false, err
}

func (s *promotionValidationService) checkDate(_ context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	if rule.WithinDates(time.Now()) {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionDate,
		Message:     "promotion rule is outside its validity window",
		Details: map[string]interface{}{
			"rule_id":   rule.ID,
			"date_from": rule.DateFrom,
			"date_to":   rule.DateTo,
		},
	}
}

func (s *promotionValidationService) checkTotalAmount(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	total, err := s.MinimalTotalAmount(ctx, rule, o)
	if err != nil {
		return err
	}
	digits := types.PrecisionDigits(types.PrecisionDiscount)
	// minimal amount must be strictly below the qualifying total
	if types.CompareAtPrecision(rule.MinimalAmount, total, digits) < 0 {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionTotalAmount,
		Message:     "order total does not reach the minimal amount",
		Details: map[string]interface{}{
			"rule_id":        rule.ID,
			"order_id":       o.ID,
			"minimal_amount": rule.MinimalAmount.String(),
			"order_total":    total.String(),
		},
	}
}

func (s *promotionValidationService) checkPartnerList(_ context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	if len(rule.CustomerIDs) == 0 || lo.Contains(rule.CustomerIDs, o.CustomerID) {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionPartnerList,
		Message:     "customer is not in the rule's allow-list",
		Details: map[string]interface{}{
			"rule_id":     rule.ID,
			"customer_id": o.CustomerID,
		},
	}
}

func (s *promotionValidationService) checkPricelist(_ context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	if len(rule.PricelistIDs) == 0 || lo.Contains(rule.PricelistIDs, o.PricelistID) {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionPricelist,
		Message:     "order pricelist is not in the rule's allow-list",
		Details: map[string]interface{}{
			"rule_id":      rule.ID,
			"pricelist_id": o.PricelistID,
		},
	}
}

func (s *promotionValidationService) checkNewsletter(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	if !rule.OnlyNewsletter {
		return nil
	}
	cust, err := s.CustomerRepo.Get(ctx, o.CustomerID)
	if err != nil {
		return err
	}
	if !cust.NewsletterOptOut {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionNewsletter,
		Message:     "customer has opted out of the newsletter",
		Details: map[string]interface{}{
			"rule_id":     rule.ID,
			"customer_id": o.CustomerID,
		},
	}
}

func (s *promotionValidationService) checkUsage(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	switch rule.UsageRestriction {
	case types.UsageRestrictionOnePerPartner:
		count, err := s.OrderRepo.CountRuleUsage(ctx, &order.RuleLineQuery{
			RuleID:         rule.ID,
			Statuses:       types.ConfirmedOrderStatuses(),
			ExcludeOrderID: o.ID,
			CustomerID:     o.CustomerID,
		})
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
	case types.UsageRestrictionValidOnce, types.UsageRestrictionMaxBudget:
		if !rule.Used {
			return nil
		}
	default:
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionUsage,
		Message:     "promotion rule usage restriction reached",
		Details: map[string]interface{}{
			"rule_id":           rule.ID,
			"usage_restriction": rule.UsageRestriction,
		},
	}
}

// checkRuleType blocks coupon rules whenever a coupon is already attached:
// the engine always detaches coupons before re-applying the chosen one, so
// during a pass only the rule under test can be attached.
func (s *promotionValidationService) checkRuleType(_ context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	if rule.RuleType != types.PromotionRuleTypeCoupon || !o.HasCoupon() {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionRuleType,
		Message:     "order already carries a coupon",
		Details: map[string]interface{}{
			"rule_id":  rule.ID,
			"order_id": o.ID,
		},
	}
}

func (s *promotionValidationService) checkMultiRuleStrategy(_ context.Context, rule *promotionrule.PromotionRule, o *order.Order) error {
	if rule.MultiRuleStrategy != types.MultiRuleStrategyExclusive {
		return nil
	}
	others := lo.Without(o.AppliedRuleIDs(), rule.ID)
	if len(others) == 0 {
		return nil
	}
	return &PromotionValidationError{
		Restriction: types.PromotionRestrictionMultiRuleStrategy,
		Message:     "exclusive rule cannot share the order with other rules",
		Details: map[string]interface{}{
			"rule_id":       rule.ID,
			"order_id":      o.ID,
			"applied_rules": others,
		},
	}
}

func (s *promotionValidationService) MinimalTotalAmount(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) (decimal.Decimal, error) {
	digits := types.PrecisionDigits(types.PrecisionProductPrice)
	amount := decimal.Zero
	for _, line := range o.Lines {
		// already applied effects of this rule are ignored
		if line.IsGeneratedBy(rule.ID) {
			continue
		}
		rates, err := s.taxRates(ctx, line.TaxRateIDs)
		if err != nil {
			return decimal.Zero, err
		}
		computed := tax.ComputeAll(rates, line.UnitPrice, line.Quantity, digits)
		if rule.MinimalAmountTaxIncl {
			amount = amount.Add(computed.TotalIncluded)
		} else {
			amount = amount.Add(computed.TotalExcluded)
		}
	}
	return amount, nil
}

func (s *promotionValidationService) taxRates(ctx context.Context, rateIDs []string) ([]*tax.TaxRate, error) {
	if len(rateIDs) == 0 {
		return nil, nil
	}
	rates, err := s.TaxRateRepo.GetBatch(ctx, rateIDs)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load tax rates for promotion validation").
			Mark(ierr.ErrDatabase)
	}
	return rates, nil
}

func (s *promotionValidationService) IsValidForLine(rule *promotionrule.PromotionRule, line *order.Line) bool {
	if line.IsPromotionLine {
		return false
	}
	switch rule.MultiRuleStrategy {
	case types.MultiRuleStrategyCumulate:
		return true
	case types.MultiRuleStrategyUseBest:
		if line.Discount.IsZero() {
			return true
		}
		digits := types.PrecisionDigits(types.PrecisionDiscount)
		return types.CompareAtPrecision(rule.DiscountAmount, line.Discount, digits) > 0
	case types.MultiRuleStrategyKeepExisting:
		return line.Discount.IsZero()
	}
	return true
}

package service

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/cache"
	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// PromotionService drives promotion rule application and removal over order
// batches. Rules are always applied in ascending (sequence, id) order and
// each order receives one batched write per rule.
type PromotionService interface {
	// ComputePromotions is the authoritative recompute entry point: it
	// clears rule attachments, re-applies each order's attached coupon,
	// then applies the automatic rules over the whole batch
	ComputePromotions(ctx context.Context, orderIDs []string) error

	// ApplyCoupon attaches the coupon rule matching the code to the orders
	ApplyCoupon(ctx context.Context, orderIDs []string, code string) error

	// ApplyAuto applies every unused automatic rule to the orders
	ApplyAuto(ctx context.Context, orderIDs []string) error

	// RemovePromotions clears rule attachments on the orders and, when
	// removeLines is set, strips discounts and synthetic lines as well
	RemovePromotions(ctx context.Context, orderIDs []string, removeLines bool) error

	// CheckUsed recomputes the rule's used flag and, on a transition to
	// used, strips its effects from non-confirmed orders
	CheckUsed(ctx context.Context, ruleID string) (*promotionrule.PromotionRule, error)

	// CountUsage counts confirmed orders referencing the rule
	CountUsage(ctx context.Context, ruleID string) (int, error)

	// BudgetSpent sums the discount already granted by the rule on
	// confirmed orders
	BudgetSpent(ctx context.Context, ruleID string) (decimal.Decimal, error)
}

type promotionService struct {
	ServiceParams
	validation PromotionValidationService
	discount   PromotionDiscountService
}

// NewPromotionService creates the promotion engine
func NewPromotionService(params ServiceParams) PromotionService {
	validation := NewPromotionValidationService(params)
	return &promotionService{
		ServiceParams: params,
		validation:    validation,
		discount:      NewPromotionDiscountService(params, validation),
	}
}

func (s *promotionService) ComputePromotions(ctx context.Context, orderIDs []string) error {
	orders, err := s.OrderRepo.GetBatch(ctx, orderIDs)
	if err != nil {
		return err
	}

	// partition by currently attached coupon, empty key for none
	partitions := make(map[string][]string)
	for _, o := range orders {
		key := ""
		if o.CouponPromotionRuleID != nil {
			key = *o.CouponPromotionRuleID
		}
		partitions[key] = append(partitions[key], o.ID)
	}

	// reset attachments only, synthetic lines are reconciled in place
	orders, err = s.removePromotions(ctx, orders, false)
	if err != nil {
		return err
	}
	byID := lo.SliceToMap(orders, func(o *order.Order) (string, *order.Order) { return o.ID, o })

	couponIDs := lo.Without(lo.Keys(partitions), "")
	sort.Strings(couponIDs)
	for _, couponID := range couponIDs {
		rule, err := s.RuleRepo.Get(ctx, couponID)
		if err != nil {
			return err
		}
		partition := lo.Map(partitions[couponID], func(id string, _ int) *order.Order { return byID[id] })
		updated, err := s.applyRules(ctx, []*promotionrule.PromotionRule{rule}, partition)
		if err != nil {
			return err
		}
		for _, o := range updated {
			byID[o.ID] = o
		}
	}

	batch := lo.Map(orders, func(o *order.Order, _ int) *order.Order { return byID[o.ID] })
	_, err = s.applyAutoRules(ctx, batch)
	return err
}

func (s *promotionService) ApplyCoupon(ctx context.Context, orderIDs []string, code string) error {
	rule, err := s.couponByCode(ctx, code)
	if err != nil {
		return err
	}
	orders, err := s.OrderRepo.GetBatch(ctx, orderIDs)
	if err != nil {
		return err
	}
	// orders already carrying this coupon are left untouched
	orders = lo.Filter(orders, func(o *order.Order, _ int) bool {
		return o.CouponPromotionRuleID == nil || *o.CouponPromotionRuleID != rule.ID
	})
	if len(orders) == 0 {
		return nil
	}
	orders, err = s.removePromotions(ctx, orders, true)
	if err != nil {
		return err
	}
	// the coupon takes precedence over automatic rules
	orders, err = s.applyRules(ctx, []*promotionrule.PromotionRule{rule}, orders)
	if err != nil {
		return err
	}
	_, err = s.applyAutoRules(ctx, orders)
	return err
}

func (s *promotionService) ApplyAuto(ctx context.Context, orderIDs []string) error {
	orders, err := s.OrderRepo.GetBatch(ctx, orderIDs)
	if err != nil {
		return err
	}
	_, err = s.applyAutoRules(ctx, orders)
	return err
}

func (s *promotionService) applyAutoRules(ctx context.Context, orders []*order.Order) ([]*order.Order, error) {
	rules, err := s.RuleRepo.ListAutomatic(ctx)
	if err != nil {
		return nil, err
	}
	rules = lo.Filter(rules, func(r *promotionrule.PromotionRule, _ int) bool { return !r.Used })
	return s.applyRules(ctx, rules, orders)
}

func (s *promotionService) RemovePromotions(ctx context.Context, orderIDs []string, removeLines bool) error {
	orders, err := s.OrderRepo.GetBatch(ctx, orderIDs)
	if err != nil {
		return err
	}
	_, err = s.removePromotions(ctx, orders, removeLines)
	return err
}

func (s *promotionService) removePromotions(ctx context.Context, orders []*order.Order, removeLines bool) ([]*order.Order, error) {
	updated := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		patch := &order.Patch{
			ClearCouponRule: true,
			ClearRuleIDs:    true,
		}
		refresh := false
		if removeLines {
			patch.LineEdits = removalEdits(o.Lines)
			refresh = len(patch.LineEdits) > 0
		}
		result, err := s.OrderRepo.ApplyPatch(ctx, o.ID, patch)
		if err != nil {
			return nil, err
		}
		if refresh {
			result, err = s.OrderRepo.RefreshPricelistDiscounts(ctx, o.ID)
			if err != nil {
				return nil, err
			}
		}
		updated = append(updated, result)
	}
	return updated, nil
}

// removalEdits strips promotion effects from the given lines: synthetic
// lines are deleted, ordinary lines lose their discount and attributions
func removalEdits(lines []*order.Line) []order.LineEdit {
	var edits []order.LineEdit
	for _, line := range lines {
		if line.IsPromotionLine {
			edits = append(edits, order.LineEdit{Op: order.LineEditDelete, LineID: line.ID})
			continue
		}
		if line.HasPromotionRules() {
			zero := decimal.Zero
			edits = append(edits, order.LineEdit{
				Op:     order.LineEditUpdate,
				LineID: line.ID,
				Update: &order.LineUpdate{
					Discount:              &zero,
					ClearCouponRule:       true,
					ClearPromotionRuleIDs: true,
				},
			})
		}
	}
	return edits
}

// removePromotionLines applies removal edits for the given lines of one
// order, then re-triggers the pricelist discount fix-up on the survivors
func (s *promotionService) removePromotionLines(ctx context.Context, o *order.Order, lines []*order.Line) (*order.Order, error) {
	edits := removalEdits(lines)
	if len(edits) == 0 {
		return o, nil
	}
	if _, err := s.OrderRepo.ApplyPatch(ctx, o.ID, &order.Patch{LineEdits: edits}); err != nil {
		return nil, err
	}
	return s.OrderRepo.RefreshPricelistDiscounts(ctx, o.ID)
}

// applyRules applies each rule in turn to the orders. Later rules observe
// earlier rules' attachment and discount state, which the exclusive and
// use_best strategies depend on.
func (s *promotionService) applyRules(ctx context.Context, rules []*promotionrule.PromotionRule, orders []*order.Order) ([]*order.Order, error) {
	current := make([]*order.Order, len(orders))
	copy(current, orders)

	for _, rule := range rules {
		for i, o := range current {
			valid, err := s.validation.IsPromotionValid(ctx, rule, o)
			if err != nil {
				return nil, err
			}
			if !valid {
				// surgically remove this rule's own effects
				affected := o.LinesReferencingRule(rule.ID)
				if len(affected) > 0 {
					current[i], err = s.removePromotionLines(ctx, o, affected)
					if err != nil {
						return nil, err
					}
				}
				continue
			}

			patch, err := s.buildApplyPatch(ctx, rule, o)
			if err != nil {
				return nil, err
			}
			current[i], err = s.OrderRepo.ApplyPatch(ctx, o.ID, patch)
			if err != nil {
				return nil, err
			}
			s.Logger.Debugw("applied promotion rule",
				"rule_id", rule.ID,
				"order_id", o.ID,
				"discount_type", rule.DiscountType)
		}
	}
	return current, nil
}

func (s *promotionService) buildApplyPatch(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) (*order.Patch, error) {
	if rule.PromoType != types.PromoTypeDiscount {
		return nil, ierr.NewError("not supported promotion type").
			WithHintf("Promotion type %s is not supported", rule.PromoType).
			WithReportableDetails(map[string]any{"rule_id": rule.ID}).
			Mark(ierr.ErrInvalidOperation)
	}

	patch := &order.Patch{}
	if rule.DiscountType == types.DiscountTypePercentage {
		eligible := lo.Filter(o.Lines, func(line *order.Line, _ int) bool {
			return s.validation.IsValidForLine(rule, line)
		})
		edits, err := s.discount.PercentageLineEdits(ctx, rule, o, eligible)
		if err != nil {
			return nil, err
		}
		patch.LineEdits = append(patch.LineEdits, edits...)
	} else {
		edits, err := s.discount.AmountLineEdits(ctx, rule, o)
		if err != nil {
			return nil, err
		}
		patch.LineEdits = append(patch.LineEdits, edits...)
	}

	if rule.IsCoupon() {
		ruleID := rule.ID
		patch.SetCouponRuleID = &ruleID
	} else {
		patch.AddRuleIDs = []string{rule.ID}
	}
	return patch, nil
}

func (s *promotionService) couponByCode(ctx context.Context, code string) (*promotionrule.PromotionRule, error) {
	invalidCode := func() error {
		return ierr.NewError("invalid coupon code").
			WithHintf("Code number %s is invalid", code).
			WithReportableDetails(map[string]any{"code": code}).
			Mark(ierr.ErrValidation)
	}

	key := cache.GenerateKey(cache.PrefixPromotionRuleCode, strings.ToLower(code))
	var rule *promotionrule.PromotionRule
	if v, ok := s.Cache.Get(ctx, key); ok {
		rule, _ = v.(*promotionrule.PromotionRule)
	}
	if rule == nil {
		var err error
		rule, err = s.RuleRepo.GetCouponByCode(ctx, code)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, invalidCode()
			}
			return nil, err
		}
		s.Cache.Set(ctx, key, rule, cache.DefaultExpiration)
	}
	if rule.Used {
		return nil, invalidCode()
	}
	return rule, nil
}

func (s *promotionService) CountUsage(ctx context.Context, ruleID string) (int, error) {
	return s.OrderRepo.CountRuleUsage(ctx, &order.RuleLineQuery{
		RuleID:   ruleID,
		Statuses: types.ConfirmedOrderStatuses(),
	})
}

func (s *promotionService) BudgetSpent(ctx context.Context, ruleID string) (decimal.Decimal, error) {
	rule, err := s.RuleRepo.Get(ctx, ruleID)
	if err != nil {
		return decimal.Zero, err
	}
	spent, refreshed, err := s.budgetSpent(ctx, rule)
	if err != nil {
		return decimal.Zero, err
	}
	if refreshed {
		if err := s.updateRule(ctx, rule); err != nil {
			return decimal.Zero, err
		}
	}
	return spent, nil
}

// budgetSpent sums the discount the rule's synthetic lines granted on
// confirmed orders. For max_budget rules it also refreshes the rule's
// discount amount to the remaining budget; the caller persists the rule.
func (s *promotionService) budgetSpent(ctx context.Context, rule *promotionrule.PromotionRule) (decimal.Decimal, bool, error) {
	lines, err := s.OrderRepo.ListRuleLines(ctx, &order.RuleLineQuery{
		RuleID:        rule.ID,
		Statuses:      types.ConfirmedOrderStatuses(),
		SyntheticOnly: true,
	})
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(lines) == 0 {
		return decimal.Zero, false, nil
	}
	spent := decimal.Zero
	for _, line := range lines {
		if rule.DiscountType == types.DiscountTypeAmountTaxIncluded {
			spent = spent.Sub(line.PriceTotal)
		} else {
			spent = spent.Sub(line.PriceSubtotal)
		}
	}
	refreshed := false
	if rule.UsageRestriction == types.UsageRestrictionMaxBudget {
		rule.DiscountAmount = rule.BudgetMax.Sub(spent)
		refreshed = true
	}
	return spent, refreshed, nil
}

func (s *promotionService) CheckUsed(ctx context.Context, ruleID string) (*promotionrule.PromotionRule, error) {
	rule, err := s.RuleRepo.Get(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	count, err := s.CountUsage(ctx, rule.ID)
	if err != nil {
		return nil, err
	}
	spent, _, err := s.budgetSpent(ctx, rule)
	if err != nil {
		return nil, err
	}

	used := false
	switch rule.UsageRestriction {
	case types.UsageRestrictionOnePerPartner:
		used = len(rule.CustomerIDs) > 0 && count >= len(rule.CustomerIDs)
	case types.UsageRestrictionValidOnce:
		used = count >= 1
	case types.UsageRestrictionMaxBudget:
		used = spent.GreaterThanOrEqual(rule.BudgetMax)
	}
	rule.Used = used
	if err := s.updateRule(ctx, rule); err != nil {
		return nil, err
	}

	if used {
		if err := s.stripFromPendingOrders(ctx, rule); err != nil {
			return nil, err
		}
		s.Logger.Infow("promotion rule marked as used",
			"rule_id", rule.ID,
			"usage_restriction", rule.UsageRestriction,
			"count_usage", count)
	}
	return rule, nil
}

// stripFromPendingOrders removes a used rule from every non-confirmed order
// still referencing it; confirmed orders keep their historical discounts
func (s *promotionService) stripFromPendingOrders(ctx context.Context, rule *promotionrule.PromotionRule) error {
	lines, err := s.OrderRepo.ListRuleLines(ctx, &order.RuleLineQuery{
		RuleID:        rule.ID,
		StatusesNotIn: types.ConfirmedOrderStatuses(),
	})
	if err != nil {
		return err
	}
	byOrder := lo.GroupBy(lines, func(line *order.Line) string { return line.OrderID })
	orderIDs := lo.Keys(byOrder)
	sort.Strings(orderIDs)
	for _, orderID := range orderIDs {
		patch := &order.Patch{LineEdits: removalEdits(byOrder[orderID])}
		if rule.IsCoupon() {
			patch.ClearCouponRule = true
		} else {
			patch.RemoveRuleIDs = []string{rule.ID}
		}
		if _, err := s.OrderRepo.ApplyPatch(ctx, orderID, patch); err != nil {
			return err
		}
		if _, err := s.OrderRepo.RefreshPricelistDiscounts(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

func (s *promotionService) updateRule(ctx context.Context, rule *promotionrule.PromotionRule) error {
	if err := s.RuleRepo.Update(ctx, rule); err != nil {
		return err
	}
	s.Cache.DeleteByPrefix(ctx, cache.PrefixPromotionRuleCode)
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixPromotionRule, rule.ID))
	return nil
}

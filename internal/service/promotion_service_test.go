package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/product"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/testutil"
	"github.com/orderkit/orderkit/internal/types"
)

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		RuleRepo:           stores.RuleRepo,
		OrderRepo:          stores.OrderRepo,
		ProductRepo:        stores.ProductRepo,
		CustomerRepo:       stores.CustomerRepo,
		PricelistRepo:      stores.PricelistRepo,
		TaxRateRepo:        stores.TaxRateRepo,
		FiscalPositionRepo: stores.FiscalPositionRepo,
		PaymentRepo:        stores.PaymentRepo,
		CurrencyConverter:  s.GetCurrency(),
		Cache:              s.GetCache(),
	}
}

type PromotionServiceSuite struct {
	testutil.BaseServiceTestSuite
	engine PromotionService
}

func TestPromotionService(t *testing.T) {
	suite.Run(t, new(PromotionServiceSuite))
}

func (s *PromotionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.engine = NewPromotionService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *PromotionServiceSuite) createRule(mutate func(r *promotionrule.PromotionRule)) *promotionrule.PromotionRule {
	rule := &promotionrule.PromotionRule{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROMOTION_RULE),
		Name:              "Test promotion",
		Sequence:          10,
		RuleType:          types.PromotionRuleTypeAuto,
		PromoType:         types.PromoTypeDiscount,
		DiscountType:      types.DiscountTypePercentage,
		DiscountAmount:    decimal.NewFromInt(10),
		UsageRestriction:  types.UsageRestrictionNone,
		MultiRuleStrategy: types.MultiRuleStrategyUseBest,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	if mutate != nil {
		mutate(rule)
	}
	s.NoError(s.GetStores().RuleRepo.Create(s.GetContext(), rule))
	return rule
}

func (s *PromotionServiceSuite) createDiscountProduct() *product.Product {
	prod := &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Name:      "Promotion discount",
		Type:      product.ProductTypeService,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ProductRepo.Create(s.GetContext(), prod))
	return prod
}

func (s *PromotionServiceSuite) newLine(qty int64, unitPrice int64) *order.Line {
	return &order.Line{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		ProductID:   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Description: "Test product",
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(unitPrice),
	}
}

func (s *PromotionServiceSuite) createOrder(customerID string, lines ...*order.Line) *order.Order {
	o := &order.Order{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		Number:       types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER),
		CustomerID:   customerID,
		CurrencyCode: "EUR",
		Status:       types.OrderStatusDraft,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	for _, line := range lines {
		line.OrderID = o.ID
	}
	o.Lines = lines
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), o))
	return o
}

func (s *PromotionServiceSuite) reload(orderID string) *order.Order {
	o, err := s.GetStores().OrderRepo.Get(s.GetContext(), orderID)
	s.NoError(err)
	return o
}

func (s *PromotionServiceSuite) confirm(o *order.Order) {
	o.Status = types.OrderStatusSale
	s.NoError(s.GetStores().OrderRepo.Update(s.GetContext(), o))
}

func (s *PromotionServiceSuite) TestAutoPercentageRuleAppliesDiscount() {
	rule := s.createRule(nil)
	o := s.createOrder("cust_1", s.newLine(2, 100))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.Len(got.Lines, 1)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(10)),
		"expected 10%% discount, got %s", got.Lines[0].Discount)
	s.Contains(got.Lines[0].PromotionRuleIDs, rule.ID)
	s.Contains(got.PromotionRuleIDs, rule.ID)
	s.Nil(got.CouponPromotionRuleID)
	// 2 * 100 * 0.9
	s.True(got.AmountUntaxed.Equal(decimal.NewFromInt(180)),
		"expected 180 untaxed, got %s", got.AmountUntaxed)

	stored, err := s.GetStores().RuleRepo.Get(s.GetContext(), rule.ID)
	s.NoError(err)
	s.False(stored.Used)
}

func (s *PromotionServiceSuite) TestComputePromotionsIsIdempotent() {
	s.createRule(nil)
	o := s.createOrder("cust_1", s.newLine(1, 250))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))
	first := s.reload(o.ID)

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))
	second := s.reload(o.ID)

	s.Equal(first.PromotionRuleIDs, second.PromotionRuleIDs)
	s.Len(second.Lines, len(first.Lines))
	for i := range first.Lines {
		s.Equal(first.Lines[i].ID, second.Lines[i].ID)
		s.True(first.Lines[i].Discount.Equal(second.Lines[i].Discount))
		s.True(first.Lines[i].UnitPrice.Equal(second.Lines[i].UnitPrice))
	}
	s.True(first.AmountTotal.Equal(second.AmountTotal))
}

func (s *PromotionServiceSuite) TestUseBestKeepsHigherExistingDiscount() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Name = "Ten percent"
		r.Sequence = 1
		r.DiscountAmount = decimal.NewFromInt(10)
	})
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Name = "Five percent"
		r.Sequence = 2
		r.DiscountAmount = decimal.NewFromInt(5)
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(10)),
		"the weaker rule must not replace the stronger discount, got %s", got.Lines[0].Discount)
}

func (s *PromotionServiceSuite) TestUseBestUpgradesToHigherDiscount() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Name = "Ten percent"
		r.Sequence = 1
		r.DiscountAmount = decimal.NewFromInt(10)
	})
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Name = "Fifteen percent"
		r.Sequence = 2
		r.DiscountAmount = decimal.NewFromInt(15)
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(15)),
		"expected the better rule to win, got %s", got.Lines[0].Discount)
}

func (s *PromotionServiceSuite) TestCumulateStacksDiscounts() {
	for i, percent := range []int64{10, 5, 3} {
		seq := i + 1
		p := percent
		s.createRule(func(r *promotionrule.PromotionRule) {
			r.Name = "Cumulate"
			r.Sequence = seq
			r.DiscountAmount = decimal.NewFromInt(p)
			r.MultiRuleStrategy = types.MultiRuleStrategyCumulate
		})
	}
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(18)),
		"expected 10+5+3 stacked, got %s", got.Lines[0].Discount)
}

func (s *PromotionServiceSuite) TestKeepExistingOnlyTouchesUndiscountedLines() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Sequence = 1
		r.DiscountAmount = decimal.NewFromInt(10)
	})
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Sequence = 2
		r.DiscountAmount = decimal.NewFromInt(20)
		r.MultiRuleStrategy = types.MultiRuleStrategyKeepExisting
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(10)),
		"keep_existing must not override the applied discount, got %s", got.Lines[0].Discount)
}

func (s *PromotionServiceSuite) TestExclusiveRuleSkippedWhenOthersApplied() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Sequence = 1
		r.DiscountAmount = decimal.NewFromInt(10)
	})
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Sequence = 2
		r.DiscountAmount = decimal.NewFromInt(50)
		r.MultiRuleStrategy = types.MultiRuleStrategyExclusive
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(10)),
		"exclusive rule must not apply next to other rules, got %s", got.Lines[0].Discount)
	s.Len(got.PromotionRuleIDs, 1)
}

func (s *PromotionServiceSuite) TestMinimalAmountIsStrict() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.MinimalAmount = decimal.NewFromInt(100)
	})
	atMinimal := s.createOrder("cust_1", s.newLine(1, 100))
	aboveMinimal := s.createOrder("cust_1", s.newLine(1, 101))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{atMinimal.ID, aboveMinimal.ID}))

	s.True(s.reload(atMinimal.ID).Lines[0].Discount.IsZero(),
		"a total equal to the minimal amount must not qualify")
	s.True(s.reload(aboveMinimal.ID).Lines[0].Discount.Equal(decimal.NewFromInt(10)))
}

func (s *PromotionServiceSuite) TestAmountRuleCappedAtOrderTotal() {
	prod := s.createDiscountProduct()
	rule := s.createRule(func(r *promotionrule.PromotionRule) {
		r.DiscountType = types.DiscountTypeAmountTaxExcluded
		r.DiscountAmount = decimal.NewFromInt(1000)
		r.DiscountProductID = prod.ID
		r.CurrencyCode = "EUR"
	})
	o := s.createOrder("cust_1", s.newLine(1, 200))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.Len(got.Lines, 2)
	synthetic := got.SyntheticLineFor(rule.ID)
	s.NotNil(synthetic)
	s.True(synthetic.IsPromotionLine)
	s.True(synthetic.UnitPrice.Equal(decimal.NewFromInt(-200)),
		"discount cannot exceed the qualifying total, got %s", synthetic.UnitPrice)
	s.True(got.AmountUntaxed.IsZero(), "got %s", got.AmountUntaxed)
}

func (s *PromotionServiceSuite) TestSyntheticLineRemovedWhenRuleNoLongerValid() {
	prod := s.createDiscountProduct()
	rule := s.createRule(func(r *promotionrule.PromotionRule) {
		r.DiscountType = types.DiscountTypeAmountTaxExcluded
		r.DiscountAmount = decimal.NewFromInt(50)
		r.DiscountProductID = prod.ID
		r.CurrencyCode = "EUR"
		r.MinimalAmount = decimal.NewFromInt(100)
	})
	o := s.createOrder("cust_1", s.newLine(1, 150))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))
	s.NotNil(s.reload(o.ID).SyntheticLineFor(rule.ID))

	// shrink the order below the minimal amount
	got := s.reload(o.ID)
	for _, line := range got.Lines {
		if !line.IsPromotionLine {
			line.UnitPrice = decimal.NewFromInt(80)
		}
	}
	s.NoError(s.GetStores().OrderRepo.Update(s.GetContext(), got))

	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))

	final := s.reload(o.ID)
	s.Nil(final.SyntheticLineFor(rule.ID), "synthetic line must be removed once the rule stops qualifying")
	s.Len(final.Lines, 1)
	s.Empty(final.PromotionRuleIDs)
}

func (s *PromotionServiceSuite) TestApplyCouponByCode() {
	rule := s.createRule(func(r *promotionrule.PromotionRule) {
		r.RuleType = types.PromotionRuleTypeCoupon
		r.Code = "WELCOME10"
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	// codes are matched case-insensitively
	s.NoError(s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "welcome10"))

	got := s.reload(o.ID)
	s.NotNil(got.CouponPromotionRuleID)
	s.Equal(rule.ID, *got.CouponPromotionRuleID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(10)))
	s.NotNil(got.Lines[0].CouponPromotionRuleID)
	s.Equal(rule.ID, *got.Lines[0].CouponPromotionRuleID)
}

func (s *PromotionServiceSuite) TestApplyCouponUnknownCode() {
	o := s.createOrder("cust_1", s.newLine(1, 100))

	err := s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "NOPE")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PromotionServiceSuite) TestApplyCouponRejectsUsedCoupon() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.RuleType = types.PromotionRuleTypeCoupon
		r.Code = "SPENT"
		r.Used = true
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	err := s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "SPENT")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PromotionServiceSuite) TestApplyCouponReplacesPreviousCoupon() {
	first := s.createRule(func(r *promotionrule.PromotionRule) {
		r.RuleType = types.PromotionRuleTypeCoupon
		r.Code = "FIRST"
		r.DiscountAmount = decimal.NewFromInt(10)
	})
	second := s.createRule(func(r *promotionrule.PromotionRule) {
		r.RuleType = types.PromotionRuleTypeCoupon
		r.Code = "SECOND"
		r.DiscountAmount = decimal.NewFromInt(20)
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "FIRST"))
	s.NoError(s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "SECOND"))

	got := s.reload(o.ID)
	s.NotNil(got.CouponPromotionRuleID)
	s.Equal(second.ID, *got.CouponPromotionRuleID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(20)))
	s.Empty(got.LinesReferencingRule(first.ID), "the replaced coupon must leave no trace")
}

func (s *PromotionServiceSuite) TestApplyCouponSkipsOrdersAlreadyCarryingIt() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.RuleType = types.PromotionRuleTypeCoupon
		r.Code = "STICKY"
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "STICKY"))
	before := s.reload(o.ID)
	s.NoError(s.engine.ApplyCoupon(s.GetContext(), []string{o.ID}, "STICKY"))
	after := s.reload(o.ID)

	s.Equal(before.Lines[0].ID, after.Lines[0].ID)
	s.True(before.Lines[0].Discount.Equal(after.Lines[0].Discount))
}

func (s *PromotionServiceSuite) TestRemovePromotionsStripsEffects() {
	rule := s.createRule(nil)
	o := s.createOrder("cust_1", s.newLine(1, 100))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))
	s.Contains(s.reload(o.ID).PromotionRuleIDs, rule.ID)

	s.NoError(s.engine.RemovePromotions(s.GetContext(), []string{o.ID}, true))

	got := s.reload(o.ID)
	s.Empty(got.PromotionRuleIDs)
	s.True(got.Lines[0].Discount.IsZero())
	s.Empty(got.Lines[0].PromotionRuleIDs)
}

func (s *PromotionServiceSuite) TestOnePerPartnerBlocksSecondUse() {
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.UsageRestriction = types.UsageRestrictionOnePerPartner
		r.CustomerIDs = []string{"cust_1", "cust_2"}
	})

	used := s.createOrder("cust_1", s.newLine(1, 100))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{used.ID}))
	s.confirm(s.reload(used.ID))

	blocked := s.createOrder("cust_1", s.newLine(1, 100))
	allowed := s.createOrder("cust_2", s.newLine(1, 100))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{blocked.ID, allowed.ID}))

	s.True(s.reload(blocked.ID).Lines[0].Discount.IsZero(),
		"the partner already consumed the rule on a confirmed order")
	s.True(s.reload(allowed.ID).Lines[0].Discount.Equal(decimal.NewFromInt(10)))
}

func (s *PromotionServiceSuite) TestValidOnceRuleMarkedUsedAndStripped() {
	rule := s.createRule(func(r *promotionrule.PromotionRule) {
		r.UsageRestriction = types.UsageRestrictionValidOnce
	})

	confirmed := s.createOrder("cust_1", s.newLine(1, 100))
	pending := s.createOrder("cust_2", s.newLine(1, 100))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{confirmed.ID, pending.ID}))
	s.confirm(s.reload(confirmed.ID))

	updated, err := s.engine.CheckUsed(s.GetContext(), rule.ID)
	s.NoError(err)
	s.True(updated.Used)

	// the pending order loses the rule, the confirmed one keeps its discount
	gotPending := s.reload(pending.ID)
	s.True(gotPending.Lines[0].Discount.IsZero())
	s.Empty(gotPending.Lines[0].PromotionRuleIDs)
	s.Empty(gotPending.PromotionRuleIDs)
	s.True(s.reload(confirmed.ID).Lines[0].Discount.Equal(decimal.NewFromInt(10)))

	// and the used rule no longer applies to new orders
	fresh := s.createOrder("cust_3", s.newLine(1, 100))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{fresh.ID}))
	s.True(s.reload(fresh.ID).Lines[0].Discount.IsZero())
}

func (s *PromotionServiceSuite) TestMaxBudgetAccounting() {
	prod := s.createDiscountProduct()
	rule := s.createRule(func(r *promotionrule.PromotionRule) {
		r.DiscountType = types.DiscountTypeAmountTaxExcluded
		r.DiscountAmount = decimal.NewFromInt(50)
		r.DiscountProductID = prod.ID
		r.CurrencyCode = "EUR"
		r.UsageRestriction = types.UsageRestrictionMaxBudget
		r.BudgetMax = decimal.NewFromInt(40)
	})

	o := s.createOrder("cust_1", s.newLine(1, 500))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{o.ID}))
	s.confirm(s.reload(o.ID))

	spent, err := s.engine.BudgetSpent(s.GetContext(), rule.ID)
	s.NoError(err)
	s.True(spent.Equal(decimal.NewFromInt(50)), "got %s", spent)

	updated, err := s.engine.CheckUsed(s.GetContext(), rule.ID)
	s.NoError(err)
	s.True(updated.Used, "spending past the budget must mark the rule used")
	// the discount amount is refreshed to the remaining budget
	s.True(updated.DiscountAmount.Equal(decimal.NewFromInt(-10)), "got %s", updated.DiscountAmount)
}

func (s *PromotionServiceSuite) TestCountUsageCountsConfirmedOrdersOnly() {
	rule := s.createRule(nil)
	a := s.createOrder("cust_1", s.newLine(1, 100))
	b := s.createOrder("cust_2", s.newLine(1, 100))
	s.NoError(s.engine.ComputePromotions(s.GetContext(), []string{a.ID, b.ID}))

	count, err := s.engine.CountUsage(s.GetContext(), rule.ID)
	s.NoError(err)
	s.Zero(count)

	s.confirm(s.reload(a.ID))
	count, err = s.engine.CountUsage(s.GetContext(), rule.ID)
	s.NoError(err)
	s.Equal(1, count)

	s.confirm(s.reload(b.ID))
	count, err = s.engine.CountUsage(s.GetContext(), rule.ID)
	s.NoError(err)
	s.Equal(2, count)
}

func (s *PromotionServiceSuite) TestAutoRulesApplyInSequenceOrder() {
	// both cumulate so the application order is observable through lo order
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Sequence = 2
		r.DiscountAmount = decimal.NewFromInt(5)
		r.MultiRuleStrategy = types.MultiRuleStrategyCumulate
	})
	s.createRule(func(r *promotionrule.PromotionRule) {
		r.Sequence = 1
		r.DiscountAmount = decimal.NewFromInt(10)
		r.MultiRuleStrategy = types.MultiRuleStrategyCumulate
	})
	o := s.createOrder("cust_1", s.newLine(1, 100))

	s.NoError(s.engine.ApplyAuto(s.GetContext(), []string{o.ID}))

	got := s.reload(o.ID)
	s.True(got.Lines[0].Discount.Equal(decimal.NewFromInt(15)))
	s.Len(lo.Uniq(got.PromotionRuleIDs), 2)
}

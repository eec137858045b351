package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/testutil"
	"github.com/orderkit/orderkit/internal/types"
)

type PromotionRuleServiceSuite struct {
	testutil.BaseServiceTestSuite
	rules  PromotionRuleService
	engine PromotionService
}

func TestPromotionRuleService(t *testing.T) {
	suite.Run(t, new(PromotionRuleServiceSuite))
}

func (s *PromotionRuleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.engine = NewPromotionService(params)
	s.rules = NewPromotionRuleService(params, s.engine)
}

func (s *PromotionRuleServiceSuite) validRule() *promotionrule.PromotionRule {
	return &promotionrule.PromotionRule{
		Name:              "Spring sale",
		RuleType:          types.PromotionRuleTypeAuto,
		PromoType:         types.PromoTypeDiscount,
		DiscountType:      types.DiscountTypePercentage,
		DiscountAmount:    decimal.NewFromInt(10),
		UsageRestriction:  types.UsageRestrictionNone,
		MultiRuleStrategy: types.MultiRuleStrategyUseBest,
	}
}

func (s *PromotionRuleServiceSuite) TestCreateRuleGeneratesID() {
	created, err := s.rules.CreateRule(s.GetContext(), s.validRule())
	s.NoError(err)
	s.True(strings.HasPrefix(created.ID, "rule_"), "got %s", created.ID)
	s.Equal(types.DefaultTenantID, created.TenantID)
	s.Equal(types.StatusPublished, created.Status)
}

func (s *PromotionRuleServiceSuite) TestCreateRuleValidation() {
	missingName := s.validRule()
	missingName.Name = ""
	_, err := s.rules.CreateRule(s.GetContext(), missingName)
	s.True(ierr.IsValidation(err))

	codelessCoupon := s.validRule()
	codelessCoupon.RuleType = types.PromotionRuleTypeCoupon
	_, err = s.rules.CreateRule(s.GetContext(), codelessCoupon)
	s.True(ierr.IsValidation(err))

	productless := s.validRule()
	productless.DiscountType = types.DiscountTypeAmountTaxExcluded
	productless.CurrencyCode = "EUR"
	_, err = s.rules.CreateRule(s.GetContext(), productless)
	s.True(ierr.IsValidation(err))

	currencyless := s.validRule()
	currencyless.DiscountType = types.DiscountTypeAmountTaxIncluded
	currencyless.DiscountProductID = "prod_disc"
	_, err = s.rules.CreateRule(s.GetContext(), currencyless)
	s.True(ierr.IsValidation(err))

	negative := s.validRule()
	negative.DiscountAmount = decimal.NewFromInt(-5)
	_, err = s.rules.CreateRule(s.GetContext(), negative)
	s.True(ierr.IsValidation(err))
}

func (s *PromotionRuleServiceSuite) TestCreateRuleRejectsDuplicateCode() {
	first := s.validRule()
	first.RuleType = types.PromotionRuleTypeCoupon
	first.Code = "SPRING"
	_, err := s.rules.CreateRule(s.GetContext(), first)
	s.NoError(err)

	second := s.validRule()
	second.RuleType = types.PromotionRuleTypeCoupon
	second.Code = "spring"
	_, err = s.rules.CreateRule(s.GetContext(), second)
	s.True(ierr.IsAlreadyExists(err), "codes are unique case-insensitively")
}

func (s *PromotionRuleServiceSuite) TestGetRuleCachesResult() {
	created, err := s.rules.CreateRule(s.GetContext(), s.validRule())
	s.NoError(err)

	got, err := s.rules.GetRule(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, got.ID)

	// a second read is served from cache even after the row disappears
	s.NoError(s.GetStores().RuleRepo.Delete(s.GetContext(), created.ID))
	cached, err := s.rules.GetRule(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, cached.ID)
}

func (s *PromotionRuleServiceSuite) TestUpdateRuleInvalidatesCache() {
	created, err := s.rules.CreateRule(s.GetContext(), s.validRule())
	s.NoError(err)
	_, err = s.rules.GetRule(s.GetContext(), created.ID)
	s.NoError(err)

	created.Name = "Renamed sale"
	_, err = s.rules.UpdateRule(s.GetContext(), created)
	s.NoError(err)

	got, err := s.rules.GetRule(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("Renamed sale", got.Name)
}

func (s *PromotionRuleServiceSuite) TestUpdateRuleUnknownID() {
	missing := s.validRule()
	missing.ID = "rule_missing"
	_, err := s.rules.UpdateRule(s.GetContext(), missing)
	s.True(ierr.IsNotFound(err))
}

func (s *PromotionRuleServiceSuite) TestUpdateBudgetRecomputesUsed() {
	rule := s.validRule()
	rule.DiscountType = types.DiscountTypeAmountTaxExcluded
	rule.DiscountAmount = decimal.NewFromInt(50)
	rule.DiscountProductID = "prod_disc"
	rule.CurrencyCode = "EUR"
	rule.UsageRestriction = types.UsageRestrictionMaxBudget
	rule.BudgetMax = decimal.NewFromInt(1000)
	created, err := s.rules.CreateRule(s.GetContext(), rule)
	s.NoError(err)

	// a confirmed order already carries 50 of granted discount
	o := &order.Order{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		CustomerID:   "cust_1",
		CurrencyCode: "EUR",
		Status:       types.OrderStatusSale,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	o.Lines = []*order.Line{{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		OrderID:         o.ID,
		ProductID:       "prod_disc",
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       decimal.NewFromInt(-50),
		IsPromotionLine: true,
		PromotionRuleID: &created.ID,
	}}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), o))

	// shrinking the budget below the spent amount flips the rule to used
	created.BudgetMax = decimal.NewFromInt(40)
	updated, err := s.rules.UpdateRule(s.GetContext(), created)
	s.NoError(err)
	s.True(updated.Used)
}

func (s *PromotionRuleServiceSuite) TestDeleteRule() {
	created, err := s.rules.CreateRule(s.GetContext(), s.validRule())
	s.NoError(err)

	s.NoError(s.rules.DeleteRule(s.GetContext(), created.ID))
	_, err = s.rules.GetRule(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *PromotionRuleServiceSuite) TestListRulesFiltersByType() {
	_, err := s.rules.CreateRule(s.GetContext(), s.validRule())
	s.NoError(err)

	coupon := s.validRule()
	coupon.RuleType = types.PromotionRuleTypeCoupon
	coupon.Code = "LIST"
	_, err = s.rules.CreateRule(s.GetContext(), coupon)
	s.NoError(err)

	coupons, err := s.rules.ListRules(s.GetContext(), &promotionrule.ListFilter{
		RuleTypes: []types.PromotionRuleType{types.PromotionRuleTypeCoupon},
	})
	s.NoError(err)
	s.Len(coupons, 1)
	s.Equal("LIST", coupons[0].Code)

	all, err := s.rules.ListRules(s.GetContext(), &promotionrule.ListFilter{})
	s.NoError(err)
	s.Len(all, 2)
}

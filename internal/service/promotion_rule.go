package service

import (
	"context"

	"github.com/orderkit/orderkit/internal/cache"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	"github.com/orderkit/orderkit/internal/types"
)

// PromotionRuleService manages the promotion rule catalog. Writes touching
// usage-relevant fields re-run the used computation so rules can never stay
// applicable past their threshold.
type PromotionRuleService interface {
	CreateRule(ctx context.Context, rule *promotionrule.PromotionRule) (*promotionrule.PromotionRule, error)
	GetRule(ctx context.Context, id string) (*promotionrule.PromotionRule, error)
	UpdateRule(ctx context.Context, rule *promotionrule.PromotionRule) (*promotionrule.PromotionRule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context, filter *promotionrule.ListFilter) ([]*promotionrule.PromotionRule, error)
}

type promotionRuleService struct {
	ServiceParams
	engine PromotionService
}

// NewPromotionRuleService creates a promotion rule catalog service
func NewPromotionRuleService(params ServiceParams, engine PromotionService) PromotionRuleService {
	return &promotionRuleService{
		ServiceParams: params,
		engine:        engine,
	}
}

func (s *promotionRuleService) CreateRule(ctx context.Context, rule *promotionrule.PromotionRule) (*promotionrule.PromotionRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rule.ID == "" {
		rule.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROMOTION_RULE)
	}
	rule.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.RuleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}
	s.invalidate(ctx, rule.ID)
	return rule, nil
}

func (s *promotionRuleService) GetRule(ctx context.Context, id string) (*promotionrule.PromotionRule, error) {
	key := cache.GenerateKey(cache.PrefixPromotionRule, id)
	if v, ok := s.Cache.Get(ctx, key); ok {
		if rule, ok := v.(*promotionrule.PromotionRule); ok {
			return rule, nil
		}
	}
	rule, err := s.RuleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, rule, cache.DefaultExpiration)
	return rule, nil
}

func (s *promotionRuleService) UpdateRule(ctx context.Context, rule *promotionrule.PromotionRule) (*promotionrule.PromotionRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.RuleRepo.Get(ctx, rule.ID)
	if err != nil {
		return nil, err
	}
	usageChanged := existing.UsageRestriction != rule.UsageRestriction ||
		!existing.BudgetMax.Equal(rule.BudgetMax)

	if err := s.RuleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	s.invalidate(ctx, rule.ID)

	if usageChanged {
		return s.engine.CheckUsed(ctx, rule.ID)
	}
	return rule, nil
}

func (s *promotionRuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.RuleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *promotionRuleService) ListRules(ctx context.Context, filter *promotionrule.ListFilter) ([]*promotionrule.PromotionRule, error) {
	return s.RuleRepo.List(ctx, filter)
}

func (s *promotionRuleService) invalidate(ctx context.Context, ruleID string) {
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixPromotionRule, ruleID))
	s.Cache.DeleteByPrefix(ctx, cache.PrefixPromotionRuleCode)
}

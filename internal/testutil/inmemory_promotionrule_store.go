package testutil

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// InMemoryPromotionRuleStore implements promotionrule.Repository
type InMemoryPromotionRuleStore struct {
	*InMemoryStore[*promotionrule.PromotionRule]
}

// NewInMemoryPromotionRuleStore creates a new in-memory promotion rule store
func NewInMemoryPromotionRuleStore() *InMemoryPromotionRuleStore {
	return &InMemoryPromotionRuleStore{
		InMemoryStore: NewInMemoryStore[*promotionrule.PromotionRule](),
	}
}

func copyPromotionRule(r *promotionrule.PromotionRule) *promotionrule.PromotionRule {
	if r == nil {
		return nil
	}
	copied := *r
	copied.CustomerIDs = append([]string(nil), r.CustomerIDs...)
	copied.PricelistIDs = append([]string(nil), r.PricelistIDs...)
	return &copied
}

func (s *InMemoryPromotionRuleStore) Create(ctx context.Context, rule *promotionrule.PromotionRule) error {
	if rule == nil {
		return ierr.NewError("promotion rule cannot be nil").
			WithHint("Promotion rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.checkCodeUnique(ctx, rule); err != nil {
		return err
	}
	if err := s.InMemoryStore.Create(ctx, rule.ID, copyPromotionRule(rule)); err != nil {
		return ierr.WithError(err).
			WithHint("Promotion rule already exists").
			WithReportableDetails(map[string]any{"rule_id": rule.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPromotionRuleStore) Get(ctx context.Context, id string) (*promotionrule.PromotionRule, error) {
	rule, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("promotion rule not found").
			WithHint("Promotion rule not found").
			WithReportableDetails(map[string]any{"rule_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyPromotionRule(rule), nil
}

func (s *InMemoryPromotionRuleStore) GetBatch(ctx context.Context, ids []string) ([]*promotionrule.PromotionRule, error) {
	rules := make([]*promotionrule.PromotionRule, 0, len(ids))
	for _, id := range ids {
		rule, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *InMemoryPromotionRuleStore) Update(ctx context.Context, rule *promotionrule.PromotionRule) error {
	if rule == nil {
		return ierr.NewError("promotion rule cannot be nil").
			WithHint("Promotion rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.checkCodeUnique(ctx, rule); err != nil {
		return err
	}
	if err := s.InMemoryStore.Update(ctx, rule.ID, copyPromotionRule(rule)); err != nil {
		return ierr.NewError("promotion rule not found").
			WithHint("Promotion rule not found").
			WithReportableDetails(map[string]any{"rule_id": rule.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPromotionRuleStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return ierr.NewError("promotion rule not found").
			WithHint("Promotion rule not found").
			WithReportableDetails(map[string]any{"rule_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPromotionRuleStore) List(ctx context.Context, filter *promotionrule.ListFilter) ([]*promotionrule.PromotionRule, error) {
	rules, err := s.InMemoryStore.List(ctx, filter, func(_ context.Context, rule *promotionrule.PromotionRule, f interface{}) bool {
		lf, ok := f.(*promotionrule.ListFilter)
		if !ok || lf == nil || len(lf.RuleTypes) == 0 {
			return true
		}
		return lo.Contains(lf.RuleTypes, rule.RuleType)
	}, sortBySequence)
	if err != nil {
		return nil, err
	}
	return lo.Map(rules, func(r *promotionrule.PromotionRule, _ int) *promotionrule.PromotionRule {
		return copyPromotionRule(r)
	}), nil
}

// GetCouponByCode resolves a coupon rule by code, case-insensitively
func (s *InMemoryPromotionRuleStore) GetCouponByCode(ctx context.Context, code string) (*promotionrule.PromotionRule, error) {
	rules, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, rule *promotionrule.PromotionRule, _ interface{}) bool {
		return rule.RuleType == types.PromotionRuleTypeCoupon &&
			rule.Code != "" &&
			strings.EqualFold(rule.Code, code)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ierr.NewError("promotion rule not found").
			WithHint("No coupon rule carries this code").
			WithReportableDetails(map[string]any{"code": code}).
			Mark(ierr.ErrNotFound)
	}
	return copyPromotionRule(rules[0]), nil
}

// ListAutomatic returns the automatic rules sorted by (sequence, id)
func (s *InMemoryPromotionRuleStore) ListAutomatic(ctx context.Context) ([]*promotionrule.PromotionRule, error) {
	rules, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, rule *promotionrule.PromotionRule, _ interface{}) bool {
		return rule.RuleType == types.PromotionRuleTypeAuto
	}, sortBySequence)
	if err != nil {
		return nil, err
	}
	return lo.Map(rules, func(r *promotionrule.PromotionRule, _ int) *promotionrule.PromotionRule {
		return copyPromotionRule(r)
	}), nil
}

func sortBySequence(a, b *promotionrule.PromotionRule) bool {
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.ID < b.ID
}

func (s *InMemoryPromotionRuleStore) checkCodeUnique(ctx context.Context, rule *promotionrule.PromotionRule) error {
	if rule.Code == "" {
		return nil
	}
	existing, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, other *promotionrule.PromotionRule, _ interface{}) bool {
		return other.ID != rule.ID && strings.EqualFold(other.Code, rule.Code)
	}, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ierr.NewError("discount code must be unique").
			WithHint("Discount code must be unique !").
			WithReportableDetails(map[string]any{"code": rule.Code}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

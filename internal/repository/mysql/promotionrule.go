package mysql

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/logger"
	"github.com/orderkit/orderkit/internal/types"
)

type promotionRuleRow struct {
	ID       string `gorm:"primaryKey;size:50"`
	Name     string `gorm:"size:255;not null"`
	Code     string `gorm:"size:64;index"`
	Sequence int    `gorm:"default:10"`

	RuleType  string `gorm:"size:20;index"`
	PromoType string `gorm:"size:20"`
	Used      bool

	DiscountType      string          `gorm:"size:32"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DiscountProductID string          `gorm:"size:50"`
	CurrencyCode      string          `gorm:"size:3"`

	DateFrom *time.Time
	DateTo   *time.Time

	MinimalAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	MinimalAmountTaxIncl bool

	CustomerIDs  stringList `gorm:"type:json"`
	PricelistIDs stringList `gorm:"type:json"`

	OnlyNewsletter   bool
	UsageRestriction string          `gorm:"size:20"`
	BudgetMax        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`

	MultiRuleStrategy string `gorm:"size:20"`

	baseRow
}

func (promotionRuleRow) TableName() string { return "promotion_rules" }

func ruleToRow(r *promotionrule.PromotionRule) *promotionRuleRow {
	return &promotionRuleRow{
		ID:                   r.ID,
		Name:                 r.Name,
		Code:                 r.Code,
		Sequence:             r.Sequence,
		RuleType:             string(r.RuleType),
		PromoType:            string(r.PromoType),
		Used:                 r.Used,
		DiscountType:         string(r.DiscountType),
		DiscountAmount:       r.DiscountAmount,
		DiscountProductID:    r.DiscountProductID,
		CurrencyCode:         r.CurrencyCode,
		DateFrom:             timePtr(r.DateFrom),
		DateTo:               timePtr(r.DateTo),
		MinimalAmount:        r.MinimalAmount,
		MinimalAmountTaxIncl: r.MinimalAmountTaxIncl,
		CustomerIDs:          stringList(r.CustomerIDs),
		PricelistIDs:         stringList(r.PricelistIDs),
		OnlyNewsletter:       r.OnlyNewsletter,
		UsageRestriction:     string(r.UsageRestriction),
		BudgetMax:            r.BudgetMax,
		MultiRuleStrategy:    string(r.MultiRuleStrategy),
		baseRow:              baseRowFromModel(r.BaseModel),
	}
}

func (row *promotionRuleRow) toDomain() *promotionrule.PromotionRule {
	return &promotionrule.PromotionRule{
		ID:                   row.ID,
		Name:                 row.Name,
		Code:                 row.Code,
		Sequence:             row.Sequence,
		RuleType:             types.PromotionRuleType(row.RuleType),
		PromoType:            types.PromoType(row.PromoType),
		Used:                 row.Used,
		DiscountType:         types.DiscountType(row.DiscountType),
		DiscountAmount:       row.DiscountAmount,
		DiscountProductID:    row.DiscountProductID,
		CurrencyCode:         row.CurrencyCode,
		DateFrom:             timeVal(row.DateFrom),
		DateTo:               timeVal(row.DateTo),
		MinimalAmount:        row.MinimalAmount,
		MinimalAmountTaxIncl: row.MinimalAmountTaxIncl,
		CustomerIDs:          []string(row.CustomerIDs),
		PricelistIDs:         []string(row.PricelistIDs),
		OnlyNewsletter:       row.OnlyNewsletter,
		UsageRestriction:     types.UsageRestriction(row.UsageRestriction),
		BudgetMax:            row.BudgetMax,
		MultiRuleStrategy:    types.MultiRuleStrategy(row.MultiRuleStrategy),
		BaseModel:            row.baseRow.toModel(),
	}
}

// PromotionRuleRepository implements promotionrule.Repository on MySQL
type PromotionRuleRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewPromotionRuleRepository(db *gorm.DB, log *logger.Logger) *PromotionRuleRepository {
	return &PromotionRuleRepository{db: db, logger: log}
}

func (r *PromotionRuleRepository) checkCodeUnique(ctx context.Context, code string, excludeID string) error {
	if code == "" {
		return nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&promotionRuleRow{}).
		Where("LOWER(code) = LOWER(?) AND id <> ?", code, excludeID).
		Count(&count).Error
	if err != nil {
		return dbError(err, "Failed to check promotion code uniqueness")
	}
	if count > 0 {
		return ierr.NewError("promotion code already in use").
			WithHint("Discount code must be unique !").
			WithReportableDetails(map[string]any{"code": code}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (r *PromotionRuleRepository) Create(ctx context.Context, rule *promotionrule.PromotionRule) error {
	if err := r.checkCodeUnique(ctx, rule.Code, rule.ID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(ruleToRow(rule)).Error; err != nil {
		return dbError(err, "Failed to create promotion rule")
	}
	return nil
}

func (r *PromotionRuleRepository) Get(ctx context.Context, id string) (*promotionrule.PromotionRule, error) {
	var row promotionRuleRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Promotion rule", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch promotion rule")
	}
	return row.toDomain(), nil
}

func (r *PromotionRuleRepository) GetBatch(ctx context.Context, ids []string) ([]*promotionrule.PromotionRule, error) {
	var rows []*promotionRuleRow
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("sequence, id").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "Failed to fetch promotion rules")
	}
	rules := make([]*promotionrule.PromotionRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toDomain())
	}
	return rules, nil
}

func (r *PromotionRuleRepository) Update(ctx context.Context, rule *promotionrule.PromotionRule) error {
	if err := r.checkCodeUnique(ctx, rule.Code, rule.ID); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&promotionRuleRow{}).
		Where("id = ?", rule.ID).
		Select("*").
		Updates(ruleToRow(rule))
	if res.Error != nil {
		return dbError(res.Error, "Failed to update promotion rule")
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("promotion rule not found").
			WithHint("Promotion rule not found").
			WithReportableDetails(map[string]any{"rule_id": rule.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *PromotionRuleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&promotionRuleRow{}, "id = ?", id)
	if res.Error != nil {
		return dbError(res.Error, "Failed to delete promotion rule")
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("promotion rule not found").
			WithHint("Promotion rule not found").
			WithReportableDetails(map[string]any{"rule_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *PromotionRuleRepository) List(ctx context.Context, filter *promotionrule.ListFilter) ([]*promotionrule.PromotionRule, error) {
	q := r.db.WithContext(ctx).Model(&promotionRuleRow{}).Order("sequence, id")
	if filter != nil {
		if len(filter.RuleTypes) > 0 {
			ruleTypes := lo.Map(filter.RuleTypes, func(t types.PromotionRuleType, _ int) string {
				return string(t)
			})
			q = q.Where("rule_type IN ?", ruleTypes)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	var rows []*promotionRuleRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, dbError(err, "Failed to list promotion rules")
	}
	rules := make([]*promotionrule.PromotionRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toDomain())
	}
	return rules, nil
}

func (r *PromotionRuleRepository) GetCouponByCode(ctx context.Context, code string) (*promotionrule.PromotionRule, error) {
	var row promotionRuleRow
	err := r.db.WithContext(ctx).
		Where("rule_type = ? AND code <> '' AND LOWER(code) = LOWER(?)", string(types.PromotionRuleTypeCoupon), code).
		First(&row).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Coupon", code); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch coupon by code")
	}
	return row.toDomain(), nil
}

func (r *PromotionRuleRepository) ListAutomatic(ctx context.Context) ([]*promotionrule.PromotionRule, error) {
	var rows []*promotionRuleRow
	err := r.db.WithContext(ctx).
		Where("rule_type = ?", string(types.PromotionRuleTypeAuto)).
		Order("sequence, id").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "Failed to list automatic promotion rules")
	}
	rules := make([]*promotionrule.PromotionRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toDomain())
	}
	return rules, nil
}

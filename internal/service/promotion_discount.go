package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

var hundred = decimal.NewFromInt(100)

// PromotionDiscountService turns a valid rule into the line edits that carry
// its discount on one order. Percentage rules mutate eligible lines in
// place; amount rules maintain a single synthetic discount line per order.
type PromotionDiscountService interface {
	// PercentageLineEdits computes the in-place discount updates for the
	// eligible lines of one order
	PercentageLineEdits(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order, lines []*order.Line) ([]order.LineEdit, error)

	// AmountLineEdits computes the synthetic-line create/update/delete for
	// an amount-type rule on one order
	AmountLineEdits(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) ([]order.LineEdit, error)
}

type promotionDiscountService struct {
	ServiceParams
	validation PromotionValidationService
}

// NewPromotionDiscountService creates a discount computation service
func NewPromotionDiscountService(params ServiceParams, validation PromotionValidationService) PromotionDiscountService {
	return &promotionDiscountService{
		ServiceParams: params,
		validation:    validation,
	}
}

// percentDiscountByLine maps line IDs to the percentage the rule grants.
// Lines from a foreign order are a caller bug.
func (s *promotionDiscountService) percentDiscountByLine(rule *promotionrule.PromotionRule, o *order.Order, lines []*order.Line) (map[string]decimal.Decimal, error) {
	for _, line := range lines {
		if line.OrderID != o.ID {
			return nil, ierr.NewError("all lines must come from the same order").
				WithReportableDetails(map[string]any{
					"order_id":      o.ID,
					"line_id":       line.ID,
					"line_order_id": line.OrderID,
				}).
				Mark(ierr.ErrSystem)
		}
	}
	if rule.DiscountType != types.DiscountTypePercentage {
		return nil, ierr.NewError("promotion rule is not a percentage discount").
			WithReportableDetails(map[string]any{
				"rule_id":       rule.ID,
				"discount_type": rule.DiscountType,
			}).
			Mark(ierr.ErrValidation)
	}
	byLine := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		byLine[line.ID] = rule.DiscountAmount
	}
	return byLine, nil
}

func (s *promotionDiscountService) PercentageLineEdits(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order, lines []*order.Line) ([]order.LineEdit, error) {
	byLine, err := s.percentDiscountByLine(rule, o, lines)
	if err != nil {
		return nil, err
	}
	edits := make([]order.LineEdit, 0, len(lines))
	for _, line := range lines {
		percent := byLine[line.ID]
		discount := line.Discount
		if rule.MultiRuleStrategy != types.MultiRuleStrategyCumulate {
			discount = decimal.Zero
		}
		discount = discount.Add(percent)

		update := &order.LineUpdate{Discount: &discount}
		if rule.IsCoupon() {
			ruleID := rule.ID
			update.SetCouponRuleID = &ruleID
		} else {
			update.AddPromotionRuleIDs = []string{rule.ID}
		}
		edits = append(edits, order.LineEdit{
			Op:     order.LineEditUpdate,
			LineID: line.ID,
			Update: update,
		})
	}
	return edits, nil
}

func (s *promotionDiscountService) AmountLineEdits(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) ([]order.LineEdit, error) {
	if !rule.DiscountType.IsAmount() {
		return nil, nil
	}
	create, err := s.prepareDiscountLine(ctx, rule, o)
	if err != nil {
		return nil, err
	}

	existing := o.SyntheticLineFor(rule.ID)
	if existing != nil {
		if create.UnitPrice.IsZero() {
			return []order.LineEdit{{Op: order.LineEditDelete, LineID: existing.ID}}, nil
		}
		return []order.LineEdit{{
			Op:     order.LineEditUpdate,
			LineID: existing.ID,
			Update: &order.LineUpdate{
				Description: &create.Description,
				Quantity:    &create.Quantity,
				UnitPrice:   &create.UnitPrice,
				TaxRateIDs:  create.TaxRateIDs,
			},
		}}, nil
	}
	if create.UnitPrice.IsZero() {
		return nil, nil
	}
	return []order.LineEdit{{Op: order.LineEditCreate, Create: create}}, nil
}

// prepareDiscountLine computes the synthetic line carrying a flat-amount
// discount: the rule amount converted to the order currency, capped at the
// qualifying total, with the pre-tax unit price back-solved so the line's
// tax-inclusive (or exclusive) effect matches the wanted amount.
func (s *promotionDiscountService) prepareDiscountLine(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order) (*order.LineCreate, error) {
	product, err := s.ProductRepo.Get(ctx, rule.DiscountProductID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load the discount product of the promotion rule").
			WithReportableDetails(map[string]any{
				"rule_id":    rule.ID,
				"product_id": rule.DiscountProductID,
			}).
			Mark(ierr.ErrDatabase)
	}

	rateIDs, rates, err := s.mappedTaxes(ctx, o, product.TaxRateIDs)
	if err != nil {
		return nil, err
	}

	price, err := s.CurrencyConverter.Convert(ctx, rule.DiscountAmount, rule.CurrencyCode, o.CurrencyCode, time.Now())
	if err != nil {
		return nil, err
	}
	// never discount more than the qualifying subtotal
	qualifying, err := s.validation.MinimalTotalAmount(ctx, rule, o)
	if err != nil {
		return nil, err
	}
	price = decimal.Min(price, qualifying)

	if len(rates) > 0 {
		digits := types.PrecisionDigits(types.PrecisionProductPrice)
		amounts := tax.ComputeAll(rates, price, decimal.NewFromInt(1), digits)
		result := amounts.TotalIncluded
		if rule.DiscountType == types.DiscountTypeAmountTaxExcluded {
			result = amounts.TotalExcluded
		}
		if types.CompareAtPrecision(result, price, digits) != 0 {
			// flat average-rate correction before the iterative fix
			averageTax := hundred.Sub(price.Div(result).Mul(hundred))
			price = price.Add(price.Mul(averageTax.Neg()).Div(hundred))
		}
		price = types.RoundTo(price, digits)
		price, err = s.fixDiscountAmountRounding(ctx, rule, o, price, rates, digits)
		if err != nil {
			return nil, err
		}
	}

	return &order.LineCreate{
		ProductID:       product.ID,
		Description:     product.Name,
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       price.Neg(),
		TaxRateIDs:      rateIDs,
		PromotionRuleID: &rule.ID,
		IsPromotionLine: true,
	}, nil
}

// fixDiscountAmountRounding nudges the pre-tax price one precision step at a
// time until the recomputed tax total matches the expected discount. Tax
// computation is not exactly invertible; when the comparison sign flips
// without reaching equality the precision cannot express an exact fix and
// the current price is accepted.
func (s *promotionDiscountService) fixDiscountAmountRounding(ctx context.Context, rule *promotionrule.PromotionRule, o *order.Order, price decimal.Decimal, rates []*tax.TaxRate, digits int32) (decimal.Decimal, error) {
	orderAmount := o.AmountTotal
	orderAmountUntaxed := o.AmountUntaxed
	for _, line := range o.Lines {
		if line.IsGeneratedBy(rule.ID) {
			orderAmount = orderAmount.Sub(line.PriceTotal)
			orderAmountUntaxed = orderAmountUntaxed.Sub(line.PriceTotal.Sub(line.PriceTax))
		}
	}
	fromAmount := decimal.Min(rule.DiscountAmount, orderAmount.Sub(rule.MinimalAmount))
	taxIncluded := true
	if rule.DiscountType == types.DiscountTypeAmountTaxExcluded {
		fromAmount = decimal.Min(rule.DiscountAmount, orderAmountUntaxed)
		taxIncluded = false
	}
	expected, err := s.CurrencyConverter.Convert(ctx, fromAmount, rule.CurrencyCode, o.CurrencyCode, time.Now())
	if err != nil {
		return decimal.Zero, err
	}

	computedFor := func(p decimal.Decimal) decimal.Decimal {
		amounts := tax.ComputeAll(rates, p, decimal.NewFromInt(1), digits)
		if taxIncluded {
			return amounts.TotalIncluded
		}
		return amounts.TotalExcluded
	}

	diff := types.CompareAtPrecision(computedFor(price), expected, digits)
	if diff == 0 {
		return price, nil
	}
	step := types.PrecisionStep(digits)
	for {
		price = price.Add(step.Mul(decimal.NewFromInt(int64(-diff))))
		newDiff := types.CompareAtPrecision(computedFor(price), expected, digits)
		if newDiff == 0 {
			return price, nil
		}
		if newDiff != diff {
			// the precision cannot express an exact match
			return price, nil
		}
	}
}

func (s *promotionDiscountService) mappedTaxes(ctx context.Context, o *order.Order, rateIDs []string) ([]string, []*tax.TaxRate, error) {
	mapped := rateIDs
	if o.FiscalPositionID != nil {
		fp, err := s.FiscalPositionRepo.Get(ctx, *o.FiscalPositionID)
		if err != nil {
			return nil, nil, ierr.WithError(err).
				WithHint("Failed to load the order's fiscal position").
				WithReportableDetails(map[string]any{
					"order_id":           o.ID,
					"fiscal_position_id": *o.FiscalPositionID,
				}).
				Mark(ierr.ErrDatabase)
		}
		mapped = fp.MapTaxes(rateIDs)
	}
	if len(mapped) == 0 {
		return nil, nil, nil
	}
	rates, err := s.TaxRateRepo.GetBatch(ctx, mapped)
	if err != nil {
		return nil, nil, ierr.WithError(err).
			WithHint("Failed to load tax rates for the discount line").
			Mark(ierr.ErrDatabase)
	}
	return mapped, rates, nil
}

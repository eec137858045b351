package order

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/types"
)

// Order is a sale order as seen by the promotion engine: the coupon and
// automatic-rule attachments, the line collection, and totals the host
// store recomputes after every write.
type Order struct {
	ID                 string  `json:"id" db:"id"`
	Number             string  `json:"number" db:"number"`
	CustomerID         string  `json:"customer_id" db:"customer_id"`
	ShippingCustomerID string  `json:"shipping_customer_id" db:"shipping_customer_id"`
	PricelistID        string  `json:"pricelist_id" db:"pricelist_id"`
	FiscalPositionID   *string `json:"fiscal_position_id" db:"fiscal_position_id"`
	CurrencyCode       string  `json:"currency_code" db:"currency_code"`

	Status types.OrderStatus `json:"status" db:"status"`

	// At most one coupon rule may be attached to an order
	CouponPromotionRuleID *string `json:"coupon_promotion_rule_id" db:"coupon_promotion_rule_id"`
	// Automatic rules currently applied to the order
	PromotionRuleIDs []string `json:"promotion_rule_ids" db:"promotion_rule_ids"`

	Lines []*Line `json:"lines" db:"-"`

	// Totals recomputed by the store after each write
	AmountUntaxed        decimal.Decimal `json:"amount_untaxed" db:"amount_untaxed"`
	AmountTax            decimal.Decimal `json:"amount_tax" db:"amount_tax"`
	AmountTotal          decimal.Decimal `json:"amount_total" db:"amount_total"`
	DiscountTotal        decimal.Decimal `json:"discount_total" db:"discount_total"`
	PriceTotalNoDiscount decimal.Decimal `json:"price_total_no_discount" db:"price_total_no_discount"`

	types.BaseModel
}

// Line is one order line. A line either carries a percentage discount in
// place (Discount plus rule attributions) or is a synthetic promotion line
// created to hold a flat-amount discount (IsPromotionLine with
// PromotionRuleID set to the generating rule).
type Line struct {
	ID          string `json:"id" db:"id"`
	OrderID     string `json:"order_id" db:"order_id"`
	ProductID   string `json:"product_id" db:"product_id"`
	Description string `json:"description" db:"description"`

	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Discount   decimal.Decimal `json:"discount" db:"discount"`
	TaxRateIDs []string        `json:"tax_rate_ids" db:"tax_rate_ids"`

	// PricelistDiscount is the standing discount granted by the order's
	// pricelist, restored when promotion effects are stripped
	PricelistDiscount decimal.Decimal `json:"pricelist_discount" db:"pricelist_discount"`

	// Promotion attributions
	PromotionRuleID       *string  `json:"promotion_rule_id" db:"promotion_rule_id"`
	PromotionRuleIDs      []string `json:"promotion_rule_ids" db:"promotion_rule_ids"`
	CouponPromotionRuleID *string  `json:"coupon_promotion_rule_id" db:"coupon_promotion_rule_id"`
	IsPromotionLine       bool     `json:"is_promotion_line" db:"is_promotion_line"`

	// Quantity restrictions snapshotted from the product
	SaleMinQty      decimal.Decimal `json:"sale_min_qty" db:"sale_min_qty"`
	ForceSaleMinQty bool            `json:"force_sale_min_qty" db:"force_sale_min_qty"`
	SaleMaxQty      decimal.Decimal `json:"sale_max_qty" db:"sale_max_qty"`
	ForceSaleMaxQty bool            `json:"force_sale_max_qty" db:"force_sale_max_qty"`
	SaleMultipleQty decimal.Decimal `json:"sale_multiple_qty" db:"sale_multiple_qty"`
	QtyInvalid      bool            `json:"qty_invalid" db:"qty_invalid"`
	QtyWarning      string          `json:"qty_warning" db:"qty_warning"`

	// Options priced from the product's bill of materials
	Options []*LineOption `json:"options" db:"-"`

	// Computed by the store after each write
	PriceSubtotal        decimal.Decimal `json:"price_subtotal" db:"price_subtotal"`
	PriceTax             decimal.Decimal `json:"price_tax" db:"price_tax"`
	PriceTotal           decimal.Decimal `json:"price_total" db:"price_total"`
	DiscountTotal        decimal.Decimal `json:"discount_total" db:"discount_total"`
	PriceTotalNoDiscount decimal.Decimal `json:"price_total_no_discount" db:"price_total_no_discount"`
}

// LineOption is one selectable bill-of-materials component on a line.
// Option rows are unique per (line, product).
type LineOption struct {
	ID            string          `json:"id" db:"id"`
	LineID        string          `json:"line_id" db:"line_id"`
	BOMLineID     string          `json:"bom_line_id" db:"bom_line_id"`
	ProductID     string          `json:"product_id" db:"product_id"`
	Qty           decimal.Decimal `json:"qty" db:"qty"`
	MinQty        decimal.Decimal `json:"min_qty" db:"min_qty"`
	DefaultQty    decimal.Decimal `json:"default_qty" db:"default_qty"`
	MaxQty        decimal.Decimal `json:"max_qty" db:"max_qty"`
	LinePriceUnit decimal.Decimal `json:"line_price_unit" db:"line_price_unit"`
	LinePrice     decimal.Decimal `json:"line_price" db:"line_price"`
	InvalidQty    bool            `json:"invalid_qty" db:"invalid_qty"`
}

// HasPromotionRules reports whether any rule reference is set on the line
func (l *Line) HasPromotionRules() bool {
	return l.PromotionRuleID != nil ||
		l.CouponPromotionRuleID != nil ||
		len(l.PromotionRuleIDs) > 0
}

// AppliedRuleIDs returns every rule the line references, synthetic origin
// included
func (l *Line) AppliedRuleIDs() []string {
	ids := make([]string, 0, len(l.PromotionRuleIDs)+2)
	ids = append(ids, l.PromotionRuleIDs...)
	if l.PromotionRuleID != nil {
		ids = append(ids, *l.PromotionRuleID)
	}
	if l.CouponPromotionRuleID != nil {
		ids = append(ids, *l.CouponPromotionRuleID)
	}
	return lo.Uniq(ids)
}

// ReferencesRule reports whether the line carries any reference to the rule
func (l *Line) ReferencesRule(ruleID string) bool {
	return lo.Contains(l.AppliedRuleIDs(), ruleID)
}

// IsGeneratedBy reports whether the line is the synthetic discount line the
// rule created
func (l *Line) IsGeneratedBy(ruleID string) bool {
	return l.PromotionRuleID != nil && *l.PromotionRuleID == ruleID
}

// Line finds a line of the order by ID
func (o *Order) Line(lineID string) *Line {
	for _, line := range o.Lines {
		if line.ID == lineID {
			return line
		}
	}
	return nil
}

// LinesReferencingRule returns the lines carrying any reference to the rule
func (o *Order) LinesReferencingRule(ruleID string) []*Line {
	return lo.Filter(o.Lines, func(line *Line, _ int) bool {
		return line.ReferencesRule(ruleID)
	})
}

// SyntheticLineFor returns the synthetic discount line generated by the
// rule, if any
func (o *Order) SyntheticLineFor(ruleID string) *Line {
	for _, line := range o.Lines {
		if line.IsGeneratedBy(ruleID) {
			return line
		}
	}
	return nil
}

// AppliedRuleIDs returns the union of rule references across all lines
func (o *Order) AppliedRuleIDs() []string {
	var ids []string
	for _, line := range o.Lines {
		ids = append(ids, line.AppliedRuleIDs()...)
	}
	return lo.Uniq(ids)
}

// HasCoupon reports whether a coupon rule is attached to the order
func (o *Order) HasCoupon() bool {
	return o.CouponPromotionRuleID != nil
}

package mysql

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/logger"
	"github.com/orderkit/orderkit/internal/types"
)

type orderRow struct {
	ID                 string  `gorm:"primaryKey;size:50"`
	Number             string  `gorm:"size:64;index"`
	CustomerID         string  `gorm:"size:50;index"`
	ShippingCustomerID string  `gorm:"size:50"`
	PricelistID        string  `gorm:"size:50"`
	FiscalPositionID   *string `gorm:"size:50"`
	CurrencyCode       string  `gorm:"size:3"`

	OrderStatus string `gorm:"size:20;index"`

	CouponPromotionRuleID *string    `gorm:"size:50;index"`
	PromotionRuleIDs      stringList `gorm:"type:json"`

	AmountUntaxed        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	AmountTax            decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	AmountTotal          decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DiscountTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	PriceTotalNoDiscount decimal.Decimal `gorm:"type:decimal(20,4);default:0"`

	baseRow
}

func (orderRow) TableName() string { return "sale_orders" }

type orderLineRow struct {
	ID          string `gorm:"primaryKey;size:50"`
	OrderID     string `gorm:"size:50;index"`
	ProductID   string `gorm:"size:50;index"`
	Description string `gorm:"size:255"`

	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	Discount   decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	TaxRateIDs stringList      `gorm:"type:json"`

	PricelistDiscount decimal.Decimal `gorm:"type:decimal(20,4);default:0"`

	PromotionRuleID       *string    `gorm:"size:50;index"`
	PromotionRuleIDs      stringList `gorm:"type:json"`
	CouponPromotionRuleID *string    `gorm:"size:50;index"`
	IsPromotionLine       bool

	SaleMinQty      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	ForceSaleMinQty bool
	SaleMaxQty      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	ForceSaleMaxQty bool
	SaleMultipleQty decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	QtyInvalid      bool
	QtyWarning      string `gorm:"size:255"`

	PriceSubtotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	PriceTax             decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	PriceTotal           decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DiscountTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	PriceTotalNoDiscount decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
}

func (orderLineRow) TableName() string { return "sale_order_lines" }

type lineOptionRow struct {
	ID            string          `gorm:"primaryKey;size:50"`
	LineID        string          `gorm:"size:50;index"`
	BOMLineID     string          `gorm:"size:50"`
	ProductID     string          `gorm:"size:50"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	MinQty        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DefaultQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	MaxQty        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	LinePriceUnit decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	LinePrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	InvalidQty    bool
}

func (lineOptionRow) TableName() string { return "sale_order_line_options" }

func orderToRow(o *order.Order) *orderRow {
	return &orderRow{
		ID:                    o.ID,
		Number:                o.Number,
		CustomerID:            o.CustomerID,
		ShippingCustomerID:    o.ShippingCustomerID,
		PricelistID:           o.PricelistID,
		FiscalPositionID:      copyStringPtr(o.FiscalPositionID),
		CurrencyCode:          o.CurrencyCode,
		OrderStatus:           string(o.Status),
		CouponPromotionRuleID: copyStringPtr(o.CouponPromotionRuleID),
		PromotionRuleIDs:      stringList(o.PromotionRuleIDs),
		AmountUntaxed:         o.AmountUntaxed,
		AmountTax:             o.AmountTax,
		AmountTotal:           o.AmountTotal,
		DiscountTotal:         o.DiscountTotal,
		PriceTotalNoDiscount:  o.PriceTotalNoDiscount,
		baseRow:               baseRowFromModel(o.BaseModel),
	}
}

func lineToRow(l *order.Line) *orderLineRow {
	return &orderLineRow{
		ID:                    l.ID,
		OrderID:               l.OrderID,
		ProductID:             l.ProductID,
		Description:           l.Description,
		Quantity:              l.Quantity,
		UnitPrice:             l.UnitPrice,
		Discount:              l.Discount,
		TaxRateIDs:            stringList(l.TaxRateIDs),
		PricelistDiscount:     l.PricelistDiscount,
		PromotionRuleID:       copyStringPtr(l.PromotionRuleID),
		PromotionRuleIDs:      stringList(l.PromotionRuleIDs),
		CouponPromotionRuleID: copyStringPtr(l.CouponPromotionRuleID),
		IsPromotionLine:       l.IsPromotionLine,
		SaleMinQty:            l.SaleMinQty,
		ForceSaleMinQty:       l.ForceSaleMinQty,
		SaleMaxQty:            l.SaleMaxQty,
		ForceSaleMaxQty:       l.ForceSaleMaxQty,
		SaleMultipleQty:       l.SaleMultipleQty,
		QtyInvalid:            l.QtyInvalid,
		QtyWarning:            l.QtyWarning,
		PriceSubtotal:         l.PriceSubtotal,
		PriceTax:              l.PriceTax,
		PriceTotal:            l.PriceTotal,
		DiscountTotal:         l.DiscountTotal,
		PriceTotalNoDiscount:  l.PriceTotalNoDiscount,
	}
}

func optionToRow(opt *order.LineOption) *lineOptionRow {
	return &lineOptionRow{
		ID:            opt.ID,
		LineID:        opt.LineID,
		BOMLineID:     opt.BOMLineID,
		ProductID:     opt.ProductID,
		Qty:           opt.Qty,
		MinQty:        opt.MinQty,
		DefaultQty:    opt.DefaultQty,
		MaxQty:        opt.MaxQty,
		LinePriceUnit: opt.LinePriceUnit,
		LinePrice:     opt.LinePrice,
		InvalidQty:    opt.InvalidQty,
	}
}

func (row *orderRow) toDomain() *order.Order {
	return &order.Order{
		ID:                    row.ID,
		Number:                row.Number,
		CustomerID:            row.CustomerID,
		ShippingCustomerID:    row.ShippingCustomerID,
		PricelistID:           row.PricelistID,
		FiscalPositionID:      copyStringPtr(row.FiscalPositionID),
		CurrencyCode:          row.CurrencyCode,
		Status:                types.OrderStatus(row.OrderStatus),
		CouponPromotionRuleID: copyStringPtr(row.CouponPromotionRuleID),
		PromotionRuleIDs:      []string(row.PromotionRuleIDs),
		AmountUntaxed:         row.AmountUntaxed,
		AmountTax:             row.AmountTax,
		AmountTotal:           row.AmountTotal,
		DiscountTotal:         row.DiscountTotal,
		PriceTotalNoDiscount:  row.PriceTotalNoDiscount,
		BaseModel:             row.baseRow.toModel(),
	}
}

func (row *orderLineRow) toDomain() *order.Line {
	return &order.Line{
		ID:                    row.ID,
		OrderID:               row.OrderID,
		ProductID:             row.ProductID,
		Description:           row.Description,
		Quantity:              row.Quantity,
		UnitPrice:             row.UnitPrice,
		Discount:              row.Discount,
		TaxRateIDs:            []string(row.TaxRateIDs),
		PricelistDiscount:     row.PricelistDiscount,
		PromotionRuleID:       copyStringPtr(row.PromotionRuleID),
		PromotionRuleIDs:      []string(row.PromotionRuleIDs),
		CouponPromotionRuleID: copyStringPtr(row.CouponPromotionRuleID),
		IsPromotionLine:       row.IsPromotionLine,
		SaleMinQty:            row.SaleMinQty,
		ForceSaleMinQty:       row.ForceSaleMinQty,
		SaleMaxQty:            row.SaleMaxQty,
		ForceSaleMaxQty:       row.ForceSaleMaxQty,
		SaleMultipleQty:       row.SaleMultipleQty,
		QtyInvalid:            row.QtyInvalid,
		QtyWarning:            row.QtyWarning,
		PriceSubtotal:         row.PriceSubtotal,
		PriceTax:              row.PriceTax,
		PriceTotal:            row.PriceTotal,
		DiscountTotal:         row.DiscountTotal,
		PriceTotalNoDiscount:  row.PriceTotalNoDiscount,
	}
}

func (row *lineOptionRow) toDomain() *order.LineOption {
	return &order.LineOption{
		ID:            row.ID,
		LineID:        row.LineID,
		BOMLineID:     row.BOMLineID,
		ProductID:     row.ProductID,
		Qty:           row.Qty,
		MinQty:        row.MinQty,
		DefaultQty:    row.DefaultQty,
		MaxQty:        row.MaxQty,
		LinePriceUnit: row.LinePriceUnit,
		LinePrice:     row.LinePrice,
		InvalidQty:    row.InvalidQty,
	}
}

// OrderRepository implements order.Repository on MySQL. Writes run inside a
// transaction and recompute line and order totals before committing.
type OrderRepository struct {
	db            *gorm.DB
	taxRepo       tax.Repository
	pricelistRepo pricelist.Repository
	logger        *logger.Logger
}

func NewOrderRepository(db *gorm.DB, taxRepo tax.Repository, pricelistRepo pricelist.Repository, log *logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:            db,
		taxRepo:       taxRepo,
		pricelistRepo: pricelistRepo,
		logger:        log,
	}
}

func (r *OrderRepository) loadOrder(tx *gorm.DB, id string) (*order.Order, error) {
	var row orderRow
	if err := tx.First(&row, "id = ?", id).Error; err != nil {
		if nfErr, ok := notFound(err, "Order", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch order")
	}

	var lineRows []*orderLineRow
	if err := tx.Where("order_id = ?", id).Order("id").Find(&lineRows).Error; err != nil {
		return nil, dbError(err, "Failed to fetch order lines")
	}

	o := row.toDomain()
	o.Lines = make([]*order.Line, 0, len(lineRows))
	lineByID := make(map[string]*order.Line, len(lineRows))
	lineIDs := make([]string, 0, len(lineRows))
	for _, lr := range lineRows {
		line := lr.toDomain()
		o.Lines = append(o.Lines, line)
		lineByID[line.ID] = line
		lineIDs = append(lineIDs, line.ID)
	}

	if len(lineIDs) > 0 {
		var optRows []*lineOptionRow
		if err := tx.Where("line_id IN ?", lineIDs).Order("id").Find(&optRows).Error; err != nil {
			return nil, dbError(err, "Failed to fetch order line options")
		}
		for _, or := range optRows {
			if line := lineByID[or.LineID]; line != nil {
				line.Options = append(line.Options, or.toDomain())
			}
		}
	}
	return o, nil
}

// saveOrder persists the order row and replaces its line collection. Line
// ids are stable across rewrites, so references held by rules stay valid.
func (r *OrderRepository) saveOrder(tx *gorm.DB, o *order.Order) error {
	if err := tx.Save(orderToRow(o)).Error; err != nil {
		return dbError(err, "Failed to save order")
	}

	var existingLineIDs []string
	if err := tx.Model(&orderLineRow{}).
		Where("order_id = ?", o.ID).
		Pluck("id", &existingLineIDs).Error; err != nil {
		return dbError(err, "Failed to list existing order lines")
	}
	if len(existingLineIDs) > 0 {
		if err := tx.Where("line_id IN ?", existingLineIDs).Delete(&lineOptionRow{}).Error; err != nil {
			return dbError(err, "Failed to clear order line options")
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&orderLineRow{}).Error; err != nil {
			return dbError(err, "Failed to clear order lines")
		}
	}

	for _, line := range o.Lines {
		if err := tx.Create(lineToRow(line)).Error; err != nil {
			return dbError(err, "Failed to save order line")
		}
		for _, opt := range line.Options {
			if err := tx.Create(optionToRow(opt)).Error; err != nil {
				return dbError(err, "Failed to save order line option")
			}
		}
	}
	return nil
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return ierr.NewError("order cannot be nil").
			WithHint("Order cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := order.RecomputeTotals(ctx, o, r.taxRepo.GetBatch); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(orderToRow(o)).Error; err != nil {
			return dbError(err, "Failed to create order")
		}
		for _, line := range o.Lines {
			if err := tx.Create(lineToRow(line)).Error; err != nil {
				return dbError(err, "Failed to create order line")
			}
			for _, opt := range line.Options {
				if err := tx.Create(optionToRow(opt)).Error; err != nil {
					return dbError(err, "Failed to create order line option")
				}
			}
		}
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.loadOrder(r.db.WithContext(ctx), id)
}

func (r *OrderRepository) GetBatch(ctx context.Context, ids []string) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *OrderRepository) List(ctx context.Context, filter *order.ListFilter) ([]*order.Order, error) {
	q := r.db.WithContext(ctx).Model(&orderRow{}).Order("id")
	if filter != nil {
		if len(filter.Statuses) > 0 {
			q = q.Where("order_status IN ?", statusStrings(filter.Statuses))
		}
		if filter.CustomerID != "" {
			q = q.Where("customer_id = ?", filter.CustomerID)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	var rows []*orderRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, dbError(err, "Failed to list orders")
	}
	orders := make([]*order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := r.loadOrder(r.db.WithContext(ctx), row.ID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	if o == nil {
		return ierr.NewError("order cannot be nil").
			WithHint("Order cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := order.RecomputeTotals(ctx, o, r.taxRepo.GetBatch); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveOrder(tx, o)
	})
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existingLineIDs []string
		if err := tx.Model(&orderLineRow{}).
			Where("order_id = ?", id).
			Pluck("id", &existingLineIDs).Error; err != nil {
			return dbError(err, "Failed to list order lines")
		}
		if len(existingLineIDs) > 0 {
			if err := tx.Where("line_id IN ?", existingLineIDs).Delete(&lineOptionRow{}).Error; err != nil {
				return dbError(err, "Failed to delete order line options")
			}
			if err := tx.Where("order_id = ?", id).Delete(&orderLineRow{}).Error; err != nil {
				return dbError(err, "Failed to delete order lines")
			}
		}
		res := tx.Delete(&orderRow{}, "id = ?", id)
		if res.Error != nil {
			return dbError(res.Error, "Failed to delete order")
		}
		if res.RowsAffected == 0 {
			return ierr.NewError("order not found").
				WithHint("Order not found").
				WithReportableDetails(map[string]any{"order_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil
	})
}

func (r *OrderRepository) ApplyPatch(ctx context.Context, orderID string, patch *order.Patch) (*order.Order, error) {
	var result *order.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := r.loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := patch.Apply(o); err != nil {
			return err
		}
		if err := order.RecomputeTotals(ctx, o, r.taxRepo.GetBatch); err != nil {
			return err
		}
		if err := r.saveOrder(tx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *OrderRepository) RefreshPricelistDiscounts(ctx context.Context, orderID string) (*order.Order, error) {
	var result *order.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := r.loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		var plist *pricelist.Pricelist
		if o.PricelistID != "" {
			plist, err = r.pricelistRepo.Get(ctx, o.PricelistID)
			if err != nil && !ierr.IsNotFound(err) {
				return err
			}
		}
		order.ResetPricelistDiscounts(o, plist)
		if err := order.RecomputeTotals(ctx, o, r.taxRepo.GetBatch); err != nil {
			return err
		}
		if err := r.saveOrder(tx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ruleLineScan builds the cross-order line query shared by usage counting
// and the line listing
func (r *OrderRepository) ruleLineScan(ctx context.Context, q *order.RuleLineQuery) *gorm.DB {
	db := r.db.WithContext(ctx).
		Model(&orderLineRow{}).
		Joins("JOIN sale_orders ON sale_orders.id = sale_order_lines.order_id")

	if q.SyntheticOnly {
		db = db.Where("sale_order_lines.promotion_rule_id = ?", q.RuleID)
	} else {
		db = db.Where(r.db.
			Where("sale_order_lines.promotion_rule_id = ?", q.RuleID).
			Or("sale_order_lines.coupon_promotion_rule_id = ?", q.RuleID).
			Or("JSON_CONTAINS(sale_order_lines.promotion_rule_ids, JSON_QUOTE(?))", q.RuleID))
	}
	if len(q.Statuses) > 0 {
		db = db.Where("sale_orders.order_status IN ?", statusStrings(q.Statuses))
	}
	if len(q.StatusesNotIn) > 0 {
		db = db.Where("sale_orders.order_status NOT IN ?", statusStrings(q.StatusesNotIn))
	}
	if q.ExcludeOrderID != "" {
		db = db.Where("sale_order_lines.order_id <> ?", q.ExcludeOrderID)
	}
	if q.CustomerID != "" {
		db = db.Where("sale_orders.customer_id = ?", q.CustomerID)
	}
	return db
}

func (r *OrderRepository) CountRuleUsage(ctx context.Context, q *order.RuleLineQuery) (int, error) {
	var count int64
	err := r.ruleLineScan(ctx, q).
		Distinct("sale_order_lines.order_id").
		Count(&count).Error
	if err != nil {
		return 0, dbError(err, "Failed to count promotion rule usage")
	}
	return int(count), nil
}

func (r *OrderRepository) ListRuleLines(ctx context.Context, q *order.RuleLineQuery) ([]*order.Line, error) {
	var rows []*orderLineRow
	err := r.ruleLineScan(ctx, q).
		Order("sale_order_lines.id").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "Failed to list promotion rule lines")
	}
	lines := make([]*order.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.toDomain())
	}
	return lines, nil
}

func statusStrings(statuses []types.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

package mysql

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderkit/orderkit/internal/domain/customer"
	"github.com/orderkit/orderkit/internal/domain/payment"
	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/product"
	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/logger"
)

type productRow struct {
	ID          string `gorm:"primaryKey;size:50"`
	Name        string `gorm:"size:255;not null"`
	Type        string `gorm:"size:20"`
	UOMCategory string `gorm:"column:uom_category;size:32"`

	ListPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	TaxRateIDs stringList      `gorm:"type:json"`

	RentedProductIDs stringList `gorm:"type:json"`
	RentalServiceIDs stringList `gorm:"type:json"`
	MustHaveDates    bool

	SaleMinQty      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	ForceSaleMinQty bool
	SaleMaxQty      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	ForceSaleMaxQty bool
	SaleMultipleQty decimal.Decimal `gorm:"type:decimal(20,4);default:0"`

	BOMWithOption bool `gorm:"column:bom_with_option"`

	baseRow
}

func (productRow) TableName() string { return "products" }

type bomLineRow struct {
	ID            string          `gorm:"primaryKey;size:50"`
	ParentID      string          `gorm:"size:50;index"`
	ProductID     string          `gorm:"size:50"`
	OptDefaultQty decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	OptMinQty     decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	OptMaxQty     decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
}

func (bomLineRow) TableName() string { return "product_bom_lines" }

func productToRow(p *product.Product) *productRow {
	return &productRow{
		ID:               p.ID,
		Name:             p.Name,
		Type:             string(p.Type),
		UOMCategory:      string(p.UOMCategory),
		ListPrice:        p.ListPrice,
		TaxRateIDs:       stringList(p.TaxRateIDs),
		RentedProductIDs: stringList(p.RentedProductIDs),
		RentalServiceIDs: stringList(p.RentalServiceIDs),
		MustHaveDates:    p.MustHaveDates,
		SaleMinQty:       p.SaleMinQty,
		ForceSaleMinQty:  p.ForceSaleMinQty,
		SaleMaxQty:       p.SaleMaxQty,
		ForceSaleMaxQty:  p.ForceSaleMaxQty,
		SaleMultipleQty:  p.SaleMultipleQty,
		BOMWithOption:    p.BOMWithOption,
		baseRow:          baseRowFromModel(p.BaseModel),
	}
}

func (row *productRow) toDomain(bomRows []*bomLineRow) *product.Product {
	p := &product.Product{
		ID:               row.ID,
		Name:             row.Name,
		Type:             product.ProductType(row.Type),
		UOMCategory:      product.UOMCategory(row.UOMCategory),
		ListPrice:        row.ListPrice,
		TaxRateIDs:       []string(row.TaxRateIDs),
		RentedProductIDs: []string(row.RentedProductIDs),
		RentalServiceIDs: []string(row.RentalServiceIDs),
		MustHaveDates:    row.MustHaveDates,
		SaleMinQty:       row.SaleMinQty,
		ForceSaleMinQty:  row.ForceSaleMinQty,
		SaleMaxQty:       row.SaleMaxQty,
		ForceSaleMaxQty:  row.ForceSaleMaxQty,
		SaleMultipleQty:  row.SaleMultipleQty,
		BOMWithOption:    row.BOMWithOption,
		BaseModel:        row.baseRow.toModel(),
	}
	for _, br := range bomRows {
		p.BOMLines = append(p.BOMLines, &product.BOMLine{
			ID:            br.ID,
			ProductID:     br.ProductID,
			OptDefaultQty: br.OptDefaultQty,
			OptMinQty:     br.OptMinQty,
			OptMaxQty:     br.OptMaxQty,
		})
	}
	return p
}

// ProductRepository implements product.Repository on MySQL
type ProductRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewProductRepository(db *gorm.DB, log *logger.Logger) *ProductRepository {
	return &ProductRepository{db: db, logger: log}
}

func (r *ProductRepository) replaceBOMLines(tx *gorm.DB, p *product.Product) error {
	if err := tx.Where("parent_id = ?", p.ID).Delete(&bomLineRow{}).Error; err != nil {
		return dbError(err, "Failed to clear product BOM lines")
	}
	for _, line := range p.BOMLines {
		row := &bomLineRow{
			ID:            line.ID,
			ParentID:      p.ID,
			ProductID:     line.ProductID,
			OptDefaultQty: line.OptDefaultQty,
			OptMinQty:     line.OptMinQty,
			OptMaxQty:     line.OptMaxQty,
		}
		if err := tx.Create(row).Error; err != nil {
			return dbError(err, "Failed to save product BOM line")
		}
	}
	return nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(productToRow(p)).Error; err != nil {
			return dbError(err, "Failed to create product")
		}
		return r.replaceBOMLines(tx, p)
	})
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Product", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch product")
	}
	var bomRows []*bomLineRow
	if err := r.db.WithContext(ctx).Where("parent_id = ?", id).Order("id").Find(&bomRows).Error; err != nil {
		return nil, dbError(err, "Failed to fetch product BOM lines")
	}
	return row.toDomain(bomRows), nil
}

func (r *ProductRepository) GetBatch(ctx context.Context, ids []string) ([]*product.Product, error) {
	products := make([]*product.Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(productToRow(p)).Error; err != nil {
			return dbError(err, "Failed to update product")
		}
		return r.replaceBOMLines(tx, p)
	})
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&bomLineRow{}).Error; err != nil {
			return dbError(err, "Failed to delete product BOM lines")
		}
		res := tx.Delete(&productRow{}, "id = ?", id)
		if res.Error != nil {
			return dbError(res.Error, "Failed to delete product")
		}
		if res.RowsAffected == 0 {
			return ierr.NewError("product not found").
				WithHint("Product not found").
				WithReportableDetails(map[string]any{"product_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil
	})
}

type customerRow struct {
	ID                  string `gorm:"primaryKey;size:50"`
	Name                string `gorm:"size:255;not null"`
	Email               string `gorm:"size:255"`
	NewsletterOptOut    bool
	ReceivableAccountID string `gorm:"size:50"`
	baseRow
}

func (customerRow) TableName() string { return "customers" }

// CustomerRepository implements customer.Repository on MySQL
type CustomerRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *gorm.DB, log *logger.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: log}
}

func customerToRow(c *customer.Customer) *customerRow {
	return &customerRow{
		ID:                  c.ID,
		Name:                c.Name,
		Email:               c.Email,
		NewsletterOptOut:    c.NewsletterOptOut,
		ReceivableAccountID: c.ReceivableAccountID,
		baseRow:             baseRowFromModel(c.BaseModel),
	}
}

func (row *customerRow) toDomain() *customer.Customer {
	return &customer.Customer{
		ID:                  row.ID,
		Name:                row.Name,
		Email:               row.Email,
		NewsletterOptOut:    row.NewsletterOptOut,
		ReceivableAccountID: row.ReceivableAccountID,
		BaseModel:           row.baseRow.toModel(),
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	if err := r.db.WithContext(ctx).Create(customerToRow(c)).Error; err != nil {
		return dbError(err, "Failed to create customer")
	}
	return nil
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var row customerRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Customer", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch customer")
	}
	return row.toDomain(), nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	if err := r.db.WithContext(ctx).Save(customerToRow(c)).Error; err != nil {
		return dbError(err, "Failed to update customer")
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&customerRow{}, "id = ?", id)
	if res.Error != nil {
		return dbError(res.Error, "Failed to delete customer")
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("customer not found").
			WithHint("Customer not found").
			WithReportableDetails(map[string]any{"customer_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

type pricelistRow struct {
	ID           string `gorm:"primaryKey;size:50"`
	Name         string `gorm:"size:255;not null"`
	CurrencyCode string `gorm:"size:3"`
	baseRow
}

func (pricelistRow) TableName() string { return "pricelists" }

type pricelistItemRow struct {
	ID              string          `gorm:"primaryKey;size:50"`
	PricelistID     string          `gorm:"size:50;index"`
	ProductID       string          `gorm:"size:50;index"`
	MinQty          decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	Price           decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
}

func (pricelistItemRow) TableName() string { return "pricelist_items" }

// PricelistRepository implements pricelist.Repository on MySQL
type PricelistRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewPricelistRepository(db *gorm.DB, log *logger.Logger) *PricelistRepository {
	return &PricelistRepository{db: db, logger: log}
}

func (r *PricelistRepository) replaceItems(tx *gorm.DB, p *pricelist.Pricelist) error {
	if err := tx.Where("pricelist_id = ?", p.ID).Delete(&pricelistItemRow{}).Error; err != nil {
		return dbError(err, "Failed to clear pricelist items")
	}
	for _, item := range p.Items {
		row := &pricelistItemRow{
			ID:              item.ID,
			PricelistID:     p.ID,
			ProductID:       item.ProductID,
			MinQty:          item.MinQty,
			Price:           item.Price,
			DiscountPercent: item.DiscountPercent,
		}
		if err := tx.Create(row).Error; err != nil {
			return dbError(err, "Failed to save pricelist item")
		}
	}
	return nil
}

func (r *PricelistRepository) Create(ctx context.Context, p *pricelist.Pricelist) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &pricelistRow{
			ID:           p.ID,
			Name:         p.Name,
			CurrencyCode: p.CurrencyCode,
			baseRow:      baseRowFromModel(p.BaseModel),
		}
		if err := tx.Create(row).Error; err != nil {
			return dbError(err, "Failed to create pricelist")
		}
		return r.replaceItems(tx, p)
	})
}

func (r *PricelistRepository) Get(ctx context.Context, id string) (*pricelist.Pricelist, error) {
	var row pricelistRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Pricelist", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch pricelist")
	}
	var itemRows []*pricelistItemRow
	if err := r.db.WithContext(ctx).Where("pricelist_id = ?", id).Order("id").Find(&itemRows).Error; err != nil {
		return nil, dbError(err, "Failed to fetch pricelist items")
	}
	p := &pricelist.Pricelist{
		ID:           row.ID,
		Name:         row.Name,
		CurrencyCode: row.CurrencyCode,
		BaseModel:    row.baseRow.toModel(),
	}
	for _, ir := range itemRows {
		p.Items = append(p.Items, &pricelist.Item{
			ID:              ir.ID,
			PricelistID:     ir.PricelistID,
			ProductID:       ir.ProductID,
			MinQty:          ir.MinQty,
			Price:           ir.Price,
			DiscountPercent: ir.DiscountPercent,
		})
	}
	return p, nil
}

func (r *PricelistRepository) Update(ctx context.Context, p *pricelist.Pricelist) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &pricelistRow{
			ID:           p.ID,
			Name:         p.Name,
			CurrencyCode: p.CurrencyCode,
			baseRow:      baseRowFromModel(p.BaseModel),
		}
		if err := tx.Save(row).Error; err != nil {
			return dbError(err, "Failed to update pricelist")
		}
		return r.replaceItems(tx, p)
	})
}

func (r *PricelistRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pricelist_id = ?", id).Delete(&pricelistItemRow{}).Error; err != nil {
			return dbError(err, "Failed to delete pricelist items")
		}
		res := tx.Delete(&pricelistRow{}, "id = ?", id)
		if res.Error != nil {
			return dbError(res.Error, "Failed to delete pricelist")
		}
		if res.RowsAffected == 0 {
			return ierr.NewError("pricelist not found").
				WithHint("Pricelist not found").
				WithReportableDetails(map[string]any{"pricelist_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil
	})
}

type taxRateRow struct {
	ID           string          `gorm:"primaryKey;size:50"`
	Name         string          `gorm:"size:255;not null"`
	Code         string          `gorm:"size:64"`
	Percent      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	PriceInclude bool
	baseRow
}

func (taxRateRow) TableName() string { return "tax_rates" }

// TaxRateRepository implements tax.Repository on MySQL
type TaxRateRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewTaxRateRepository(db *gorm.DB, log *logger.Logger) *TaxRateRepository {
	return &TaxRateRepository{db: db, logger: log}
}

func taxRateToRow(t *tax.TaxRate) *taxRateRow {
	return &taxRateRow{
		ID:           t.ID,
		Name:         t.Name,
		Code:         t.Code,
		Percent:      t.Percent,
		PriceInclude: t.PriceInclude,
		baseRow:      baseRowFromModel(t.BaseModel),
	}
}

func (row *taxRateRow) toDomain() *tax.TaxRate {
	return &tax.TaxRate{
		ID:           row.ID,
		Name:         row.Name,
		Code:         row.Code,
		Percent:      row.Percent,
		PriceInclude: row.PriceInclude,
		BaseModel:    row.baseRow.toModel(),
	}
}

func (r *TaxRateRepository) Create(ctx context.Context, rate *tax.TaxRate) error {
	if err := r.db.WithContext(ctx).Create(taxRateToRow(rate)).Error; err != nil {
		return dbError(err, "Failed to create tax rate")
	}
	return nil
}

func (r *TaxRateRepository) Get(ctx context.Context, id string) (*tax.TaxRate, error) {
	var row taxRateRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Tax rate", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch tax rate")
	}
	return row.toDomain(), nil
}

func (r *TaxRateRepository) GetBatch(ctx context.Context, ids []string) ([]*tax.TaxRate, error) {
	rates := make([]*tax.TaxRate, 0, len(ids))
	for _, id := range ids {
		rate, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

func (r *TaxRateRepository) Update(ctx context.Context, rate *tax.TaxRate) error {
	if err := r.db.WithContext(ctx).Save(taxRateToRow(rate)).Error; err != nil {
		return dbError(err, "Failed to update tax rate")
	}
	return nil
}

func (r *TaxRateRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&taxRateRow{}, "id = ?", id)
	if res.Error != nil {
		return dbError(res.Error, "Failed to delete tax rate")
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("tax rate not found").
			WithHint("Tax rate not found").
			WithReportableDetails(map[string]any{"tax_rate_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

type fiscalPositionRow struct {
	ID     string    `gorm:"primaryKey;size:50"`
	Name   string    `gorm:"size:255;not null"`
	TaxMap stringMap `gorm:"type:json"`
	baseRow
}

func (fiscalPositionRow) TableName() string { return "fiscal_positions" }

// FiscalPositionRepository implements tax.FiscalPositionRepository on MySQL
type FiscalPositionRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewFiscalPositionRepository(db *gorm.DB, log *logger.Logger) *FiscalPositionRepository {
	return &FiscalPositionRepository{db: db, logger: log}
}

func (r *FiscalPositionRepository) Create(ctx context.Context, fp *tax.FiscalPosition) error {
	row := &fiscalPositionRow{
		ID:      fp.ID,
		Name:    fp.Name,
		TaxMap:  stringMap(fp.TaxMap),
		baseRow: baseRowFromModel(fp.BaseModel),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return dbError(err, "Failed to create fiscal position")
	}
	return nil
}

func (r *FiscalPositionRepository) Get(ctx context.Context, id string) (*tax.FiscalPosition, error) {
	var row fiscalPositionRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Fiscal position", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch fiscal position")
	}
	return &tax.FiscalPosition{
		ID:        row.ID,
		Name:      row.Name,
		TaxMap:    map[string]string(row.TaxMap),
		BaseModel: row.baseRow.toModel(),
	}, nil
}

type paymentLineRow struct {
	ID          string          `gorm:"primaryKey;size:50"`
	Name        string          `gorm:"size:255"`
	AccountID   string          `gorm:"size:50;index"`
	AccountType string          `gorm:"size:20"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	OrderID     *string         `gorm:"size:50;index"`
	baseRow
}

func (paymentLineRow) TableName() string { return "payment_lines" }

// PaymentRepository implements payment.Repository on MySQL
type PaymentRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *gorm.DB, log *logger.Logger) *PaymentRepository {
	return &PaymentRepository{db: db, logger: log}
}

func paymentLineToRow(l *payment.Line) *paymentLineRow {
	return &paymentLineRow{
		ID:          l.ID,
		Name:        l.Name,
		AccountID:   l.AccountID,
		AccountType: string(l.AccountType),
		Amount:      l.Amount,
		OrderID:     copyStringPtr(l.OrderID),
		baseRow:     baseRowFromModel(l.BaseModel),
	}
}

func (row *paymentLineRow) toDomain() *payment.Line {
	return &payment.Line{
		ID:          row.ID,
		Name:        row.Name,
		AccountID:   row.AccountID,
		AccountType: payment.AccountType(row.AccountType),
		Amount:      row.Amount,
		OrderID:     copyStringPtr(row.OrderID),
		BaseModel:   row.baseRow.toModel(),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, line *payment.Line) error {
	if err := r.db.WithContext(ctx).Create(paymentLineToRow(line)).Error; err != nil {
		return dbError(err, "Failed to create payment line")
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*payment.Line, error) {
	var row paymentLineRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if nfErr, ok := notFound(err, "Payment line", id); ok {
			return nil, nfErr
		}
		return nil, dbError(err, "Failed to fetch payment line")
	}
	return row.toDomain(), nil
}

func (r *PaymentRepository) Update(ctx context.Context, line *payment.Line) error {
	if err := r.db.WithContext(ctx).Save(paymentLineToRow(line)).Error; err != nil {
		return dbError(err, "Failed to update payment line")
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&paymentLineRow{}, "id = ?", id)
	if res.Error != nil {
		return dbError(res.Error, "Failed to delete payment line")
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("payment line not found").
			WithHint("Payment line not found").
			WithReportableDetails(map[string]any{"payment_line_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*payment.Line, error) {
	var rows []*paymentLineRow
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "Failed to list payment lines")
	}
	lines := make([]*payment.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.toDomain())
	}
	return lines, nil
}

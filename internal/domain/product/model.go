package product

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/types"
)

// ProductType mirrors the host catalog's product kinds
type ProductType string

const (
	ProductTypeService    ProductType = "service"
	ProductTypeConsumable ProductType = "consu"
	ProductTypeStockable  ProductType = "product"
)

func (t ProductType) String() string {
	return string(t)
}

// UOMCategory is the category of a product's unit of measure. Rental
// services must be sold in time units.
type UOMCategory string

const (
	UOMCategoryUnit        UOMCategory = "unit"
	UOMCategoryWeight      UOMCategory = "weight"
	UOMCategoryWorkingTime UOMCategory = "working_time"
)

// BOMLine is one component entry of a product's bill of materials. Entries
// with a non-zero default option quantity become selectable line options.
type BOMLine struct {
	ID            string          `json:"id" db:"id"`
	ProductID     string          `json:"product_id" db:"product_id"`
	OptDefaultQty decimal.Decimal `json:"opt_default_qty" db:"opt_default_qty"`
	OptMinQty     decimal.Decimal `json:"opt_min_qty" db:"opt_min_qty"`
	OptMaxQty     decimal.Decimal `json:"opt_max_qty" db:"opt_max_qty"`
}

// Product is the subset of the host catalog the sale add-ons read
type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Type        ProductType     `json:"type" db:"type"`
	UOMCategory UOMCategory     `json:"uom_category" db:"uom_category"`
	ListPrice   decimal.Decimal `json:"list_price" db:"list_price"`
	TaxRateIDs  []string        `json:"tax_rate_ids" db:"tax_rate_ids"`

	// Rental bookkeeping: a rental service points at the hardware products
	// it rents out, and a rented product lists its rental services
	RentedProductIDs []string `json:"rented_product_ids" db:"rented_product_ids"`
	RentalServiceIDs []string `json:"rental_service_ids" db:"rental_service_ids"`
	MustHaveDates    bool     `json:"must_have_dates" db:"must_have_dates"`

	// Quantity restrictions, snapshotted onto order lines
	SaleMinQty      decimal.Decimal `json:"sale_min_qty" db:"sale_min_qty"`
	ForceSaleMinQty bool            `json:"force_sale_min_qty" db:"force_sale_min_qty"`
	SaleMaxQty      decimal.Decimal `json:"sale_max_qty" db:"sale_max_qty"`
	ForceSaleMaxQty bool            `json:"force_sale_max_qty" db:"force_sale_max_qty"`
	SaleMultipleQty decimal.Decimal `json:"sale_multiple_qty" db:"sale_multiple_qty"`

	// Option bundling from the bill of materials
	BOMWithOption bool       `json:"bom_with_option" db:"bom_with_option"`
	BOMLines      []*BOMLine `json:"bom_lines" db:"-"`

	types.BaseModel
}

// IsService reports whether the product is a service item, the only kind a
// synthetic discount line or a rental service may use
func (p *Product) IsService() bool {
	return p.Type == ProductTypeService
}

// IsRentalService reports whether the product rents out other products
func (p *Product) IsRentalService() bool {
	return len(p.RentedProductIDs) > 0
}

// OptionBOMLines returns the BOM entries that carry a default option quantity
func (p *Product) OptionBOMLines() []*BOMLine {
	return lo.Filter(p.BOMLines, func(line *BOMLine, _ int) bool {
		return !line.OptDefaultQty.IsZero()
	})
}

// BOMLineFor finds the BOM entry matching a component product
func (p *Product) BOMLineFor(productID string) *BOMLine {
	for _, line := range p.BOMLines {
		if line.ProductID == productID {
			return line
		}
	}
	return nil
}

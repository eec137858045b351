package repository

import (
	"gorm.io/gorm"

	"github.com/orderkit/orderkit/internal/domain/customer"
	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/payment"
	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/product"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	"github.com/orderkit/orderkit/internal/domain/tax"
	"github.com/orderkit/orderkit/internal/logger"
	"github.com/orderkit/orderkit/internal/repository/mysql"
)

// Repositories bundles every data-access implementation backed by one
// database connection
type Repositories struct {
	Rules           promotionrule.Repository
	Orders          order.Repository
	Products        product.Repository
	Customers       customer.Repository
	Pricelists      pricelist.Repository
	TaxRates        tax.Repository
	FiscalPositions tax.FiscalPositionRepository
	Payments        payment.Repository
}

// NewRepositories wires the MySQL repositories. The order repository shares
// the tax and pricelist repositories for its totals recompute.
func NewRepositories(db *gorm.DB, log *logger.Logger) Repositories {
	taxRates := mysql.NewTaxRateRepository(db, log)
	pricelists := mysql.NewPricelistRepository(db, log)
	return Repositories{
		Rules:           mysql.NewPromotionRuleRepository(db, log),
		Orders:          mysql.NewOrderRepository(db, taxRates, pricelists, log),
		Products:        mysql.NewProductRepository(db, log),
		Customers:       mysql.NewCustomerRepository(db, log),
		Pricelists:      pricelists,
		TaxRates:        taxRates,
		FiscalPositions: mysql.NewFiscalPositionRepository(db, log),
		Payments:        mysql.NewPaymentRepository(db, log),
	}
}

package service

import (
	"github.com/orderkit/orderkit/internal/cache"
	"github.com/orderkit/orderkit/internal/config"
	"github.com/orderkit/orderkit/internal/domain/currency"
	"github.com/orderkit/orderkit/internal/domain/customer"
	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/payment"
	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/product"
	"github.com/orderkit/orderkit/internal/domain/promotionrule"
	"github.com/orderkit/orderkit/internal/domain/tax"
	"github.com/orderkit/orderkit/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	RuleRepo           promotionrule.Repository
	OrderRepo          order.Repository
	ProductRepo        product.Repository
	CustomerRepo       customer.Repository
	PricelistRepo      pricelist.Repository
	TaxRateRepo        tax.Repository
	FiscalPositionRepo tax.FiscalPositionRepository
	PaymentRepo        payment.Repository

	CurrencyConverter currency.Converter
	Cache             cache.Cache
}

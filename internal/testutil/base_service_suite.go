package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

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
	"github.com/orderkit/orderkit/internal/types"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	RuleRepo           promotionrule.Repository
	OrderRepo          order.Repository
	ProductRepo        product.Repository
	CustomerRepo       customer.Repository
	PricelistRepo      pricelist.Repository
	TaxRateRepo        tax.Repository
	FiscalPositionRepo tax.FiscalPositionRepository
	PaymentRepo        payment.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	currency *currency.Table
	cache    cache.Cache
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := &config.Configuration{
		Logging: config.LoggingConfig{
			Level: types.LogLevelInfo,
		},
		Engine: config.EngineConfig{
			RecomputeBatchSize: 250,
			DefaultCurrency:    "EUR",
		},
	}
	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

func (s *BaseServiceTestSuite) setupStores() {
	taxStore := NewInMemoryTaxRateStore()
	pricelistStore := NewInMemoryPricelistStore()
	s.stores = Stores{
		RuleRepo:           NewInMemoryPromotionRuleStore(),
		OrderRepo:          NewInMemoryOrderStore(taxStore, pricelistStore),
		ProductRepo:        NewInMemoryProductStore(),
		CustomerRepo:       NewInMemoryCustomerStore(),
		PricelistRepo:      pricelistStore,
		TaxRateRepo:        taxStore,
		FiscalPositionRepo: NewInMemoryFiscalPositionStore(),
		PaymentRepo:        NewInMemoryPaymentStore(),
	}
	s.currency = currency.NewTable()
	s.cache = cache.NewInMemoryCache()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetCurrency returns the fixed-rate currency table
func (s *BaseServiceTestSuite) GetCurrency() *currency.Table {
	return s.currency
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

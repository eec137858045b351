package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/orderkit/orderkit/internal/cache"
	"github.com/orderkit/orderkit/internal/config"
	"github.com/orderkit/orderkit/internal/domain/currency"
	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/logger"
	"github.com/orderkit/orderkit/internal/repository"
	"github.com/orderkit/orderkit/internal/repository/mysql"
	"github.com/orderkit/orderkit/internal/service"
	"github.com/orderkit/orderkit/internal/types"
)

// promo-recompute walks every open sale order and recomputes its promotions
// in configurable chunks. Run it after bulk rule changes or rate imports.
func main() {
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.L.Fatalw("failed to load configuration", "error", err)
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		logger.L.Fatalw("failed to create logger", "error", err)
	}

	db, err := mysql.NewClient(cfg, log)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	if err := mysql.Migrate(db); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	repos := repository.NewRepositories(db, log)
	params := service.ServiceParams{
		Logger:             log,
		Config:             cfg,
		RuleRepo:           repos.Rules,
		OrderRepo:          repos.Orders,
		ProductRepo:        repos.Products,
		CustomerRepo:       repos.Customers,
		PricelistRepo:      repos.Pricelists,
		TaxRateRepo:        repos.TaxRates,
		FiscalPositionRepo: repos.FiscalPositions,
		PaymentRepo:        repos.Payments,
		CurrencyConverter:  currency.NewTable(),
		Cache:              cache.NewInMemoryCache(),
	}
	engine := service.NewPromotionService(params)

	ctx := context.Background()
	ctx = types.SetTenantID(ctx, types.DefaultTenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)

	openStatuses := []types.OrderStatus{types.OrderStatusDraft, types.OrderStatusSent}
	batchSize := cfg.Engine.RecomputeBatchSize

	total := 0
	for offset := 0; ; offset += batchSize {
		orders, err := repos.Orders.List(ctx, &order.ListFilter{
			Statuses: openStatuses,
			Limit:    batchSize,
			Offset:   offset,
		})
		if err != nil {
			log.Fatalw("failed to list open orders", "error", err, "offset", offset)
		}
		if len(orders) == 0 {
			break
		}

		ids := lo.Map(orders, func(o *order.Order, _ int) string { return o.ID })
		if err := engine.ComputePromotions(ctx, ids); err != nil {
			log.Errorw("failed to recompute promotions for batch",
				"error", err,
				"offset", offset,
				"order_count", len(ids),
			)
			os.Exit(1)
		}
		total += len(ids)
		log.Infow("recomputed promotions for batch", "offset", offset, "order_count", len(ids))

		if len(orders) < batchSize {
			break
		}
	}

	log.Infow("promotion recompute finished", "orders_processed", total)
}

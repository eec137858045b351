package testutil

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// InMemoryOrderStore implements order.Repository. It reproduces the host
// store's behavior the engine relies on: every write recomputes line and
// order totals, and the pricelist discount fix-up restores standing
// discounts after promotion removal.
type InMemoryOrderStore struct {
	*InMemoryStore[*order.Order]
	taxRepo       tax.Repository
	pricelistRepo pricelist.Repository
}

// NewInMemoryOrderStore creates a new in-memory order store. The tax and
// pricelist stores back the totals recompute.
func NewInMemoryOrderStore(taxRepo tax.Repository, pricelistRepo pricelist.Repository) *InMemoryOrderStore {
	return &InMemoryOrderStore{
		InMemoryStore: NewInMemoryStore[*order.Order](),
		taxRepo:       taxRepo,
		pricelistRepo: pricelistRepo,
	}
}

func copyLine(l *order.Line) *order.Line {
	if l == nil {
		return nil
	}
	copied := *l
	copied.TaxRateIDs = append([]string(nil), l.TaxRateIDs...)
	copied.PromotionRuleIDs = append([]string(nil), l.PromotionRuleIDs...)
	if l.PromotionRuleID != nil {
		id := *l.PromotionRuleID
		copied.PromotionRuleID = &id
	}
	if l.CouponPromotionRuleID != nil {
		id := *l.CouponPromotionRuleID
		copied.CouponPromotionRuleID = &id
	}
	copied.Options = lo.Map(l.Options, func(opt *order.LineOption, _ int) *order.LineOption {
		c := *opt
		return &c
	})
	return &copied
}

func copyOrder(o *order.Order) *order.Order {
	if o == nil {
		return nil
	}
	copied := *o
	copied.PromotionRuleIDs = append([]string(nil), o.PromotionRuleIDs...)
	if o.CouponPromotionRuleID != nil {
		id := *o.CouponPromotionRuleID
		copied.CouponPromotionRuleID = &id
	}
	if o.FiscalPositionID != nil {
		id := *o.FiscalPositionID
		copied.FiscalPositionID = &id
	}
	copied.Lines = lo.Map(o.Lines, func(l *order.Line, _ int) *order.Line { return copyLine(l) })
	return &copied
}

func orderNotFound(id string) error {
	return ierr.NewError("order not found").
		WithHint("Order not found").
		WithReportableDetails(map[string]any{"order_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryOrderStore) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return ierr.NewError("order cannot be nil").
			WithHint("Order cannot be nil").
			Mark(ierr.ErrValidation)
	}
	copied := copyOrder(o)
	if err := s.recomputeTotals(ctx, copied); err != nil {
		return err
	}
	if err := s.InMemoryStore.Create(ctx, copied.ID, copied); err != nil {
		return ierr.WithError(err).
			WithHint("Order already exists").
			WithReportableDetails(map[string]any{"order_id": o.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	*o = *copyOrder(copied)
	return nil
}

func (s *InMemoryOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, orderNotFound(id)
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) GetBatch(ctx context.Context, ids []string) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *InMemoryOrderStore) List(ctx context.Context, filter *order.ListFilter) ([]*order.Order, error) {
	orders, err := s.InMemoryStore.List(ctx, filter, func(_ context.Context, o *order.Order, f interface{}) bool {
		lf, ok := f.(*order.ListFilter)
		if !ok || lf == nil {
			return true
		}
		if len(lf.Statuses) > 0 && !lo.Contains(lf.Statuses, o.Status) {
			return false
		}
		if lf.CustomerID != "" && o.CustomerID != lf.CustomerID {
			return false
		}
		return true
	}, func(a, b *order.Order) bool { return a.ID < b.ID })
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.Offset > 0 {
		if filter.Offset >= len(orders) {
			return nil, nil
		}
		orders = orders[filter.Offset:]
	}
	if filter != nil && filter.Limit > 0 && filter.Limit < len(orders) {
		orders = orders[:filter.Limit]
	}
	return lo.Map(orders, func(o *order.Order, _ int) *order.Order { return copyOrder(o) }), nil
}

func (s *InMemoryOrderStore) Update(ctx context.Context, o *order.Order) error {
	if o == nil {
		return ierr.NewError("order cannot be nil").
			WithHint("Order cannot be nil").
			Mark(ierr.ErrValidation)
	}
	copied := copyOrder(o)
	if err := s.recomputeTotals(ctx, copied); err != nil {
		return err
	}
	if err := s.InMemoryStore.Update(ctx, copied.ID, copied); err != nil {
		return orderNotFound(o.ID)
	}
	*o = *copyOrder(copied)
	return nil
}

func (s *InMemoryOrderStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return orderNotFound(id)
	}
	return nil
}

// ApplyPatch applies attachment and line edits atomically, then recomputes
// totals once
func (s *InMemoryOrderStore) ApplyPatch(ctx context.Context, orderID string, patch *order.Patch) (*order.Order, error) {
	stored, err := s.InMemoryStore.Get(ctx, orderID)
	if err != nil {
		return nil, orderNotFound(orderID)
	}
	o := copyOrder(stored)

	if err := patch.Apply(o); err != nil {
		return nil, err
	}
	if err := s.recomputeTotals(ctx, o); err != nil {
		return nil, err
	}
	if err := s.InMemoryStore.Update(ctx, o.ID, o); err != nil {
		return nil, orderNotFound(o.ID)
	}
	return copyOrder(o), nil
}

// RefreshPricelistDiscounts restores each surviving ordinary line's discount
// to the standing pricelist discount
func (s *InMemoryOrderStore) RefreshPricelistDiscounts(ctx context.Context, orderID string) (*order.Order, error) {
	stored, err := s.InMemoryStore.Get(ctx, orderID)
	if err != nil {
		return nil, orderNotFound(orderID)
	}
	o := copyOrder(stored)

	var plist *pricelist.Pricelist
	if o.PricelistID != "" {
		plist, err = s.pricelistRepo.Get(ctx, o.PricelistID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	order.ResetPricelistDiscounts(o, plist)

	if err := s.recomputeTotals(ctx, o); err != nil {
		return nil, err
	}
	if err := s.InMemoryStore.Update(ctx, o.ID, o); err != nil {
		return nil, orderNotFound(o.ID)
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) CountRuleUsage(ctx context.Context, q *order.RuleLineQuery) (int, error) {
	lines, err := s.ListRuleLines(ctx, q)
	if err != nil {
		return 0, err
	}
	orderIDs := lo.Uniq(lo.Map(lines, func(l *order.Line, _ int) string { return l.OrderID }))
	return len(orderIDs), nil
}

func (s *InMemoryOrderStore) ListRuleLines(ctx context.Context, q *order.RuleLineQuery) ([]*order.Line, error) {
	orders, err := s.InMemoryStore.List(ctx, nil, nil, func(a, b *order.Order) bool { return a.ID < b.ID })
	if err != nil {
		return nil, err
	}
	var result []*order.Line
	for _, o := range orders {
		if q.ExcludeOrderID != "" && o.ID == q.ExcludeOrderID {
			continue
		}
		if q.CustomerID != "" && o.CustomerID != q.CustomerID {
			continue
		}
		if len(q.Statuses) > 0 && !lo.Contains(q.Statuses, o.Status) {
			continue
		}
		if len(q.StatusesNotIn) > 0 && lo.Contains(q.StatusesNotIn, o.Status) {
			continue
		}
		for _, line := range o.Lines {
			if q.SyntheticOnly {
				if line.IsGeneratedBy(q.RuleID) {
					result = append(result, copyLine(line))
				}
				continue
			}
			if line.ReferencesRule(q.RuleID) {
				result = append(result, copyLine(line))
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *InMemoryOrderStore) recomputeTotals(ctx context.Context, o *order.Order) error {
	return order.RecomputeTotals(ctx, o, s.taxRepo.GetBatch)
}

package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/domain/order"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// LineOptionService builds and prices the option rows of a line from the
// product's bill of materials. A line with options derives its unit price
// from the priced options rather than the product's list price.
type LineOptionService interface {
	// ApplyDefaultOptions replaces the line's options with the BOM
	// defaults, prices them, and recomputes the line's unit price
	ApplyDefaultOptions(ctx context.Context, orderID string, lineID string) (*order.Order, error)

	// RepriceOptions reprices the line's existing options after a quantity
	// change and recomputes the line's unit price
	RepriceOptions(ctx context.Context, orderID string, lineID string) (*order.Order, error)

	// ValidateOptions fails when an option quantity is outside the BOM
	// bounds or an option product appears twice on the same line
	ValidateOptions(ctx context.Context, orderID string, lineID string) error
}

type lineOptionService struct {
	ServiceParams
}

// NewLineOptionService creates a line option service
func NewLineOptionService(params ServiceParams) LineOptionService {
	return &lineOptionService{ServiceParams: params}
}

func (s *lineOptionService) ApplyDefaultOptions(ctx context.Context, orderID string, lineID string) (*order.Order, error) {
	o, line, err := s.orderLine(ctx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	prod, err := s.ProductRepo.Get(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	line.Options = nil
	if prod.BOMWithOption {
		for _, bline := range prod.OptionBOMLines() {
			line.Options = append(line.Options, &order.LineOption{
				ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE_OPT),
				LineID:     line.ID,
				BOMLineID:  bline.ID,
				ProductID:  bline.ProductID,
				Qty:        bline.OptDefaultQty,
				MinQty:     bline.OptMinQty,
				DefaultQty: bline.OptDefaultQty,
				MaxQty:     bline.OptMaxQty,
			})
		}
	}
	if err := s.priceOptions(ctx, o, line); err != nil {
		return nil, err
	}
	if err := s.OrderRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *lineOptionService) RepriceOptions(ctx context.Context, orderID string, lineID string) (*order.Order, error) {
	o, line, err := s.orderLine(ctx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	if err := s.priceOptions(ctx, o, line); err != nil {
		return nil, err
	}
	if err := s.OrderRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// priceOptions resolves each option's unit price from the order's pricelist
// at the option quantity scaled by the line quantity, then derives the
// line's unit price from the option totals
func (s *lineOptionService) priceOptions(ctx context.Context, o *order.Order, line *order.Line) error {
	if len(line.Options) == 0 {
		return nil
	}
	plist, err := s.PricelistRepo.Get(ctx, o.PricelistID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, opt := range line.Options {
		priceQty := opt.Qty.Mul(line.Quantity)
		price, ok := plist.PriceGet(opt.ProductID, priceQty)
		if !ok {
			price = decimal.Zero
		}
		opt.LinePriceUnit = price
		opt.LinePrice = price.Mul(opt.Qty)
		total = total.Add(opt.LinePrice)
	}
	if !line.Quantity.IsZero() {
		line.UnitPrice = total.Div(line.Quantity)
	}
	return nil
}

func (s *lineOptionService) ValidateOptions(ctx context.Context, orderID string, lineID string) error {
	_, line, err := s.orderLine(ctx, orderID, lineID)
	if err != nil {
		return err
	}
	seen := lo.CountValuesBy(line.Options, func(opt *order.LineOption) string { return opt.ProductID })
	for productID, count := range seen {
		if count > 1 {
			return ierr.NewError("option must be unique per line").
				WithHint("Option must be unique per Sale line. Check option lines").
				WithReportableDetails(map[string]any{
					"line_id":    line.ID,
					"product_id": productID,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	for _, opt := range line.Options {
		opt.InvalidQty = optionQtyInvalid(opt)
		if opt.InvalidQty {
			return ierr.NewError("option quantity out of bounds").
				WithHint("The quantity is not between the max and the min").
				WithReportableDetails(map[string]any{
					"line_id":   line.ID,
					"option_id": opt.ID,
					"qty":       opt.Qty.String(),
					"min_qty":   opt.MinQty.String(),
					"max_qty":   opt.MaxQty.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func optionQtyInvalid(opt *order.LineOption) bool {
	if !opt.MinQty.IsZero() && opt.Qty.LessThan(opt.MinQty) {
		return true
	}
	if !opt.MaxQty.IsZero() && opt.Qty.GreaterThan(opt.MaxQty) {
		return true
	}
	return false
}

func (s *lineOptionService) orderLine(ctx context.Context, orderID string, lineID string) (*order.Order, *order.Line, error) {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	line := o.Line(lineID)
	if line == nil {
		return nil, nil, ierr.NewError("order line not found").
			WithReportableDetails(map[string]any{
				"order_id": orderID,
				"line_id":  lineID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return o, line, nil
}

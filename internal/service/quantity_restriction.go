package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/product"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// QuantityRestrictionService keeps per-line quantity restriction snapshots in
// sync with the catalog and flags lines ordering outside the allowed range.
// Forced bounds make the line invalid; soft bounds only produce a warning.
type QuantityRestrictionService interface {
	// RefreshLineRestrictions re-snapshots the restriction fields from the
	// products onto every line of the order and recomputes their validity
	RefreshLineRestrictions(ctx context.Context, orderID string) (*order.Order, error)

	// ValidateOrderQuantities fails with a validation error when any line
	// of the order carries an invalid quantity
	ValidateOrderQuantities(ctx context.Context, orderID string) error
}

type quantityRestrictionService struct {
	ServiceParams
}

// NewQuantityRestrictionService creates a quantity restriction service
func NewQuantityRestrictionService(params ServiceParams) QuantityRestrictionService {
	return &quantityRestrictionService{ServiceParams: params}
}

func (s *quantityRestrictionService) RefreshLineRestrictions(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, line := range o.Lines {
		prod, err := s.ProductRepo.Get(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		snapshotRestrictions(line, prod)
		computeQtyValidity(line)
	}
	if err := s.OrderRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *quantityRestrictionService) ValidateOrderQuantities(ctx context.Context, orderID string) error {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	var problems []string
	for _, line := range o.Lines {
		computeQtyValidity(line)
		if line.QtyInvalid {
			problems = append(problems, fmt.Sprintf("%s error: %s", line.Description, line.QtyWarning))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return ierr.NewError(strings.Join(problems, "\n")).
		WithHint("Some order lines have quantities outside the allowed restrictions").
		WithReportableDetails(map[string]any{"order_id": o.ID}).
		Mark(ierr.ErrValidation)
}

func snapshotRestrictions(line *order.Line, prod *product.Product) {
	line.SaleMinQty = prod.SaleMinQty
	line.ForceSaleMinQty = prod.ForceSaleMinQty
	line.SaleMaxQty = prod.SaleMaxQty
	line.ForceSaleMaxQty = prod.ForceSaleMaxQty
	line.SaleMultipleQty = prod.SaleMultipleQty
}

// computeQtyValidity recomputes the line's warning message and invalid flag
// from its restriction snapshot
func computeQtyValidity(line *order.Line) {
	digits := types.PrecisionDigits(types.PrecisionProductUnit)
	qty := line.Quantity

	var message string
	invalid := false
	if !line.SaleMinQty.IsZero() && types.CompareAtPrecision(qty, line.SaleMinQty, digits) < 0 {
		if line.ForceSaleMinQty {
			message = "Higher quantity recommended!"
		} else {
			invalid = true
			message = "Higher quantity required!"
		}
	} else if !line.SaleMaxQty.IsZero() && types.CompareAtPrecision(qty, line.SaleMaxQty, digits) > 0 {
		if line.ForceSaleMaxQty {
			message = "Lower quantity recommended!"
		} else {
			invalid = true
			message = "Lower quantity required!"
		}
	}
	if !line.SaleMultipleQty.IsZero() {
		rest := qty.Mod(line.SaleMultipleQty)
		if types.CompareAtPrecision(rest, decimal.Zero, digits) != 0 {
			invalid = true
			if message != "" {
				message += "\n"
			}
			message += "Correct multiple of quantity required!"
		}
	}
	line.QtyInvalid = invalid
	line.QtyWarning = message
}

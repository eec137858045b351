package service

import (
	"context"

	"github.com/orderkit/orderkit/internal/domain/product"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// RentalService validates the rental relationships of the catalog: a rental
// service product rents out hardware products and must be a dated service
// sold in time units.
type RentalService interface {
	// ValidateRentalProduct checks the constraints a rental service product
	// must satisfy
	ValidateRentalProduct(ctx context.Context, productID string) error

	// RentedProducts resolves the hardware products a rental service rents
	// out
	RentedProducts(ctx context.Context, productID string) ([]*product.Product, error)
}

type rentalService struct {
	ServiceParams
}

// NewRentalService creates a rental bookkeeping service
func NewRentalService(params ServiceParams) RentalService {
	return &rentalService{ServiceParams: params}
}

func (s *rentalService) ValidateRentalProduct(ctx context.Context, productID string) error {
	prod, err := s.ProductRepo.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !prod.IsRentalService() {
		return nil
	}
	if !prod.IsService() {
		return ierr.NewError("rental product must be a service").
			WithHintf("The rental product '%s' must be of type 'Service'", prod.Name).
			WithReportableDetails(map[string]any{"product_id": prod.ID}).
			Mark(ierr.ErrValidation)
	}
	if !prod.MustHaveDates {
		return ierr.NewError("rental product must have start and end dates").
			WithHintf("The rental product '%s' must have the option 'Must Have Start and End Dates' checked", prod.Name).
			WithReportableDetails(map[string]any{"product_id": prod.ID}).
			Mark(ierr.ErrValidation)
	}
	if prod.UOMCategory != product.UOMCategoryWorkingTime {
		return ierr.NewError("rental product must be sold in time units").
			WithHintf("The category of the unit of measure of the rental product '%s' must be 'Working time'", prod.Name).
			WithReportableDetails(map[string]any{
				"product_id":   prod.ID,
				"uom_category": prod.UOMCategory,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s *rentalService) RentedProducts(ctx context.Context, productID string) ([]*product.Product, error) {
	prod, err := s.ProductRepo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(prod.RentedProductIDs) == 0 {
		return nil, nil
	}
	return s.ProductRepo.GetBatch(ctx, prod.RentedProductIDs)
}

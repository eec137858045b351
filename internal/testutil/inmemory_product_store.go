package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/orderkit/orderkit/internal/domain/product"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// InMemoryProductStore implements product.Repository
type InMemoryProductStore struct {
	*InMemoryStore[*product.Product]
}

// NewInMemoryProductStore creates a new in-memory product store
func NewInMemoryProductStore() *InMemoryProductStore {
	return &InMemoryProductStore{
		InMemoryStore: NewInMemoryStore[*product.Product](),
	}
}

func copyProduct(p *product.Product) *product.Product {
	if p == nil {
		return nil
	}
	copied := *p
	copied.TaxRateIDs = append([]string(nil), p.TaxRateIDs...)
	copied.RentedProductIDs = append([]string(nil), p.RentedProductIDs...)
	copied.RentalServiceIDs = append([]string(nil), p.RentalServiceIDs...)
	copied.BOMLines = lo.Map(p.BOMLines, func(l *product.BOMLine, _ int) *product.BOMLine {
		c := *l
		return &c
	})
	return &copied
}

func productNotFound(id string) error {
	return ierr.NewError("product not found").
		WithHint("Product not found").
		WithReportableDetails(map[string]any{"product_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryProductStore) Create(ctx context.Context, p *product.Product) error {
	if p == nil {
		return ierr.NewError("product cannot be nil").
			WithHint("Product cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, p.ID, copyProduct(p)); err != nil {
		return ierr.WithError(err).
			WithHint("Product already exists").
			WithReportableDetails(map[string]any{"product_id": p.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryProductStore) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, productNotFound(id)
	}
	return copyProduct(p), nil
}

func (s *InMemoryProductStore) GetBatch(ctx context.Context, ids []string) ([]*product.Product, error) {
	products := make([]*product.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *InMemoryProductStore) Update(ctx context.Context, p *product.Product) error {
	if err := s.InMemoryStore.Update(ctx, p.ID, copyProduct(p)); err != nil {
		return productNotFound(p.ID)
	}
	return nil
}

func (s *InMemoryProductStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return productNotFound(id)
	}
	return nil
}

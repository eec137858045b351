package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/orderkit/orderkit/internal/domain/pricelist"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// InMemoryPricelistStore implements pricelist.Repository
type InMemoryPricelistStore struct {
	*InMemoryStore[*pricelist.Pricelist]
}

// NewInMemoryPricelistStore creates a new in-memory pricelist store
func NewInMemoryPricelistStore() *InMemoryPricelistStore {
	return &InMemoryPricelistStore{
		InMemoryStore: NewInMemoryStore[*pricelist.Pricelist](),
	}
}

func copyPricelist(p *pricelist.Pricelist) *pricelist.Pricelist {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Items = lo.Map(p.Items, func(item *pricelist.Item, _ int) *pricelist.Item {
		c := *item
		return &c
	})
	return &copied
}

func pricelistNotFound(id string) error {
	return ierr.NewError("pricelist not found").
		WithHint("Pricelist not found").
		WithReportableDetails(map[string]any{"pricelist_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPricelistStore) Create(ctx context.Context, p *pricelist.Pricelist) error {
	if p == nil {
		return ierr.NewError("pricelist cannot be nil").
			WithHint("Pricelist cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, p.ID, copyPricelist(p)); err != nil {
		return ierr.WithError(err).
			WithHint("Pricelist already exists").
			WithReportableDetails(map[string]any{"pricelist_id": p.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPricelistStore) Get(ctx context.Context, id string) (*pricelist.Pricelist, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, pricelistNotFound(id)
	}
	return copyPricelist(p), nil
}

func (s *InMemoryPricelistStore) Update(ctx context.Context, p *pricelist.Pricelist) error {
	if err := s.InMemoryStore.Update(ctx, p.ID, copyPricelist(p)); err != nil {
		return pricelistNotFound(p.ID)
	}
	return nil
}

func (s *InMemoryPricelistStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return pricelistNotFound(id)
	}
	return nil
}

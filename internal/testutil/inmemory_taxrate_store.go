package testutil

import (
	"context"

	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// InMemoryTaxRateStore implements tax.Repository
type InMemoryTaxRateStore struct {
	*InMemoryStore[*tax.TaxRate]
}

// NewInMemoryTaxRateStore creates a new in-memory tax rate store
func NewInMemoryTaxRateStore() *InMemoryTaxRateStore {
	return &InMemoryTaxRateStore{
		InMemoryStore: NewInMemoryStore[*tax.TaxRate](),
	}
}

func taxRateNotFound(id string) error {
	return ierr.NewError("tax rate not found").
		WithHint("Tax rate not found").
		WithReportableDetails(map[string]any{"tax_rate_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTaxRateStore) Create(ctx context.Context, rate *tax.TaxRate) error {
	if rate == nil {
		return ierr.NewError("tax rate cannot be nil").
			WithHint("Tax rate cannot be nil").
			Mark(ierr.ErrValidation)
	}
	copied := *rate
	if err := s.InMemoryStore.Create(ctx, rate.ID, &copied); err != nil {
		return ierr.WithError(err).
			WithHint("Tax rate already exists").
			WithReportableDetails(map[string]any{"tax_rate_id": rate.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryTaxRateStore) Get(ctx context.Context, id string) (*tax.TaxRate, error) {
	rate, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, taxRateNotFound(id)
	}
	copied := *rate
	return &copied, nil
}

func (s *InMemoryTaxRateStore) GetBatch(ctx context.Context, ids []string) ([]*tax.TaxRate, error) {
	rates := make([]*tax.TaxRate, 0, len(ids))
	for _, id := range ids {
		rate, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

func (s *InMemoryTaxRateStore) Update(ctx context.Context, rate *tax.TaxRate) error {
	copied := *rate
	if err := s.InMemoryStore.Update(ctx, rate.ID, &copied); err != nil {
		return taxRateNotFound(rate.ID)
	}
	return nil
}

func (s *InMemoryTaxRateStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return taxRateNotFound(id)
	}
	return nil
}

// InMemoryFiscalPositionStore implements tax.FiscalPositionRepository
type InMemoryFiscalPositionStore struct {
	*InMemoryStore[*tax.FiscalPosition]
}

// NewInMemoryFiscalPositionStore creates a new in-memory fiscal position store
func NewInMemoryFiscalPositionStore() *InMemoryFiscalPositionStore {
	return &InMemoryFiscalPositionStore{
		InMemoryStore: NewInMemoryStore[*tax.FiscalPosition](),
	}
}

func (s *InMemoryFiscalPositionStore) Create(ctx context.Context, fp *tax.FiscalPosition) error {
	if fp == nil {
		return ierr.NewError("fiscal position cannot be nil").
			WithHint("Fiscal position cannot be nil").
			Mark(ierr.ErrValidation)
	}
	copied := *fp
	copied.TaxMap = make(map[string]string, len(fp.TaxMap))
	for k, v := range fp.TaxMap {
		copied.TaxMap[k] = v
	}
	if err := s.InMemoryStore.Create(ctx, fp.ID, &copied); err != nil {
		return ierr.WithError(err).
			WithHint("Fiscal position already exists").
			WithReportableDetails(map[string]any{"fiscal_position_id": fp.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryFiscalPositionStore) Get(ctx context.Context, id string) (*tax.FiscalPosition, error) {
	fp, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("fiscal position not found").
			WithHint("Fiscal position not found").
			WithReportableDetails(map[string]any{"fiscal_position_id": id}).
			Mark(ierr.ErrNotFound)
	}
	copied := *fp
	return &copied, nil
}

package testutil

import (
	"context"

	"github.com/orderkit/orderkit/internal/domain/customer"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
}

// NewInMemoryCustomerStore creates a new in-memory customer store
func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func copyCustomer(c *customer.Customer) *customer.Customer {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

func customerNotFound(id string) error {
	return ierr.NewError("customer not found").
		WithHint("Customer not found").
		WithReportableDetails(map[string]any{"customer_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return ierr.NewError("customer cannot be nil").
			WithHint("Customer cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, c.ID, copyCustomer(c)); err != nil {
		return ierr.WithError(err).
			WithHint("Customer already exists").
			WithReportableDetails(map[string]any{"customer_id": c.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, customerNotFound(id)
	}
	return copyCustomer(c), nil
}

func (s *InMemoryCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	if err := s.InMemoryStore.Update(ctx, c.ID, copyCustomer(c)); err != nil {
		return customerNotFound(c.ID)
	}
	return nil
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return customerNotFound(id)
	}
	return nil
}

package pricelist

import (
	"context"
)

// Repository defines the interface for pricelist data access
type Repository interface {
	Create(ctx context.Context, pricelist *Pricelist) error
	Get(ctx context.Context, id string) (*Pricelist, error)
	Update(ctx context.Context, pricelist *Pricelist) error
	Delete(ctx context.Context, id string) error
}

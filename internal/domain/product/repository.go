package product

import (
	"context"
)

// Repository defines the interface for product data access
type Repository interface {
	Create(ctx context.Context, product *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	GetBatch(ctx context.Context, ids []string) ([]*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
}

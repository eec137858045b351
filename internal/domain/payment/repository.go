package payment

import (
	"context"
)

// Repository defines the interface for payment line data access
type Repository interface {
	Create(ctx context.Context, line *Line) error
	Get(ctx context.Context, id string) (*Line, error)
	Update(ctx context.Context, line *Line) error
	Delete(ctx context.Context, id string) error
	ListByOrder(ctx context.Context, orderID string) ([]*Line, error)
}

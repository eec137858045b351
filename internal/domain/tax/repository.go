package tax

import (
	"context"
)

// Repository defines the interface for tax rate data access
type Repository interface {
	Create(ctx context.Context, rate *TaxRate) error
	Get(ctx context.Context, id string) (*TaxRate, error)
	GetBatch(ctx context.Context, ids []string) ([]*TaxRate, error)
	Update(ctx context.Context, rate *TaxRate) error
	Delete(ctx context.Context, id string) error
}

// FiscalPositionRepository defines the interface for fiscal position data access
type FiscalPositionRepository interface {
	Create(ctx context.Context, fp *FiscalPosition) error
	Get(ctx context.Context, id string) (*FiscalPosition, error)
}

package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/orderkit/orderkit/internal/domain/payment"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Line]
}

// NewInMemoryPaymentStore creates a new in-memory payment line store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Line](),
	}
}

func copyPaymentLine(l *payment.Line) *payment.Line {
	if l == nil {
		return nil
	}
	copied := *l
	if l.OrderID != nil {
		id := *l.OrderID
		copied.OrderID = &id
	}
	return &copied
}

func paymentLineNotFound(id string) error {
	return ierr.NewError("payment line not found").
		WithHint("Payment line not found").
		WithReportableDetails(map[string]any{"payment_line_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, line *payment.Line) error {
	if line == nil {
		return ierr.NewError("payment line cannot be nil").
			WithHint("Payment line cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, line.ID, copyPaymentLine(line)); err != nil {
		return ierr.WithError(err).
			WithHint("Payment line already exists").
			WithReportableDetails(map[string]any{"payment_line_id": line.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Line, error) {
	line, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, paymentLineNotFound(id)
	}
	return copyPaymentLine(line), nil
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, line *payment.Line) error {
	if err := s.InMemoryStore.Update(ctx, line.ID, copyPaymentLine(line)); err != nil {
		return paymentLineNotFound(line.ID)
	}
	return nil
}

func (s *InMemoryPaymentStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return paymentLineNotFound(id)
	}
	return nil
}

func (s *InMemoryPaymentStore) ListByOrder(ctx context.Context, orderID string) ([]*payment.Line, error) {
	lines, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, line *payment.Line, _ interface{}) bool {
		return line.OrderID != nil && *line.OrderID == orderID
	}, func(a, b *payment.Line) bool { return a.ID < b.ID })
	if err != nil {
		return nil, err
	}
	return lo.Map(lines, func(l *payment.Line, _ int) *payment.Line { return copyPaymentLine(l) }), nil
}

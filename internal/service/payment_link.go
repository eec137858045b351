package service

import (
	"context"

	"github.com/orderkit/orderkit/internal/domain/payment"
	ierr "github.com/orderkit/orderkit/internal/errors"
)

// PaymentLinkService links customer payment lines to sale orders. A payment
// line can be linked to one order only, and only through a receivable
// account.
type PaymentLinkService interface {
	LinkToOrder(ctx context.Context, paymentLineID string, orderID string) (*payment.Line, error)
	Unlink(ctx context.Context, paymentLineID string) (*payment.Line, error)
	PaymentsForOrder(ctx context.Context, orderID string) ([]*payment.Line, error)
}

type paymentLinkService struct {
	ServiceParams
}

// NewPaymentLinkService creates a payment link service
func NewPaymentLinkService(params ServiceParams) PaymentLinkService {
	return &paymentLinkService{ServiceParams: params}
}

func (s *paymentLinkService) LinkToOrder(ctx context.Context, paymentLineID string, orderID string) (*payment.Line, error) {
	line, err := s.PaymentRepo.Get(ctx, paymentLineID)
	if err != nil {
		return nil, err
	}
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !line.IsReceivable() {
		return nil, ierr.NewError("payment line is not on a receivable account").
			WithHintf("The payment line '%s' is linked to sale order '%s' but it does not use a receivable account", line.Name, o.Number).
			WithReportableDetails(map[string]any{
				"payment_line_id": line.ID,
				"order_id":        o.ID,
				"account_type":    line.AccountType,
			}).
			Mark(ierr.ErrValidation)
	}
	line.OrderID = &o.ID
	if err := s.PaymentRepo.Update(ctx, line); err != nil {
		return nil, err
	}
	s.Logger.Debugw("linked payment line to order",
		"payment_line_id", line.ID,
		"order_id", o.ID)
	return line, nil
}

func (s *paymentLinkService) Unlink(ctx context.Context, paymentLineID string) (*payment.Line, error) {
	line, err := s.PaymentRepo.Get(ctx, paymentLineID)
	if err != nil {
		return nil, err
	}
	line.OrderID = nil
	if err := s.PaymentRepo.Update(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *paymentLinkService) PaymentsForOrder(ctx context.Context, orderID string) ([]*payment.Line, error) {
	return s.PaymentRepo.ListByOrder(ctx, orderID)
}

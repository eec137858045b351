package types

import (
	"github.com/samber/lo"

	ierr "github.com/orderkit/orderkit/internal/errors"
)

// Status is the lifecycle status of a configuration record
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}

// OrderStatus is the sale order lifecycle state as owned by the host store.
// Promotions attached to orders in StatusSale or StatusDone count as used.
type OrderStatus string

const (
	OrderStatusDraft  OrderStatus = "draft"
	OrderStatusSent   OrderStatus = "sent"
	OrderStatusSale   OrderStatus = "sale"
	OrderStatusDone   OrderStatus = "done"
	OrderStatusCancel OrderStatus = "cancel"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) Validate() error {
	allowed := []OrderStatus{
		OrderStatusDraft,
		OrderStatusSent,
		OrderStatusSale,
		OrderStatusDone,
		OrderStatusCancel,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid order status").
			WithHint("Please provide a valid order status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
				"status":  s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConfirmedOrderStatuses are the states in which promotion usage is counted.
func ConfirmedOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusSale, OrderStatusDone}
}

// IsConfirmed reports whether promotions on an order in this state are
// considered consumed.
func (s OrderStatus) IsConfirmed() bool {
	return lo.Contains(ConfirmedOrderStatuses(), s)
}

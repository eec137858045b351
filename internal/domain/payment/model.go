package payment

import (
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/types"
)

// AccountType classifies the account a payment line posts to. Only
// receivable lines may be linked to sale orders.
type AccountType string

const (
	AccountTypeReceivable AccountType = "receivable"
	AccountTypePayable    AccountType = "payable"
	AccountTypeOther      AccountType = "other"
)

// Line is one journal item from a customer payment. Linking it to an order
// earmarks the amount against that order's balance.
type Line struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	AccountID   string          `json:"account_id" db:"account_id"`
	AccountType AccountType     `json:"account_type" db:"account_type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	OrderID     *string         `json:"order_id" db:"order_id"`
	types.BaseModel
}

// IsReceivable reports whether the line posts to a receivable account
func (l *Line) IsReceivable() bool {
	return l.AccountType == AccountTypeReceivable
}

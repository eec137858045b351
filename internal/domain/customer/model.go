package customer

import (
	"github.com/orderkit/orderkit/internal/types"
)

// Customer represents a partner placing sale orders
type Customer struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	// NewsletterOptOut is set when the customer refused marketing mail;
	// newsletter-gated promotion rules skip these customers
	NewsletterOptOut bool `json:"newsletter_opt_out" db:"newsletter_opt_out"`
	// ReceivableAccountID is the receivable account payments against this
	// customer's orders are expected on
	ReceivableAccountID string `json:"receivable_account_id" db:"receivable_account_id"`
	types.BaseModel
}

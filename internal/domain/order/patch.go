package order

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// LineEditOp discriminates the kinds of line edits carried by a patch
type LineEditOp string

const (
	LineEditCreate LineEditOp = "create"
	LineEditUpdate LineEditOp = "update"
	LineEditDelete LineEditOp = "delete"
)

// LineCreate describes a new line, typically the synthetic line carrying a
// flat-amount discount
type LineCreate struct {
	ProductID       string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TaxRateIDs      []string
	PromotionRuleID *string
	IsPromotionLine bool
}

// LineUpdate carries the writable fields of a line edit. Nil pointers leave
// the field untouched.
type LineUpdate struct {
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	Discount    *decimal.Decimal
	TaxRateIDs  []string
	QtyInvalid  *bool
	QtyWarning  *string

	SetCouponRuleID       *string
	ClearCouponRule       bool
	AddPromotionRuleIDs   []string
	ClearPromotionRuleIDs bool
}

// LineEdit is one line-level mutation inside an order patch
type LineEdit struct {
	Op     LineEditOp
	LineID string
	Create *LineCreate
	Update *LineUpdate
}

// Patch is a batched write against one order. The store applies every edit,
// then recomputes line and order totals once, so callers observe a single
// consistent transition.
type Patch struct {
	SetCouponRuleID *string
	ClearCouponRule bool

	AddRuleIDs    []string
	RemoveRuleIDs []string
	ClearRuleIDs  bool

	LineEdits []LineEdit
}

// IsEmpty reports whether the patch carries no mutation at all
func (p *Patch) IsEmpty() bool {
	return p.SetCouponRuleID == nil &&
		!p.ClearCouponRule &&
		len(p.AddRuleIDs) == 0 &&
		len(p.RemoveRuleIDs) == 0 &&
		!p.ClearRuleIDs &&
		len(p.LineEdits) == 0
}

// UpdateLine appends an update edit for a line
func (p *Patch) UpdateLine(lineID string, update *LineUpdate) {
	p.LineEdits = append(p.LineEdits, LineEdit{
		Op:     LineEditUpdate,
		LineID: lineID,
		Update: update,
	})
}

// CreateLine appends a create edit
func (p *Patch) CreateLine(create *LineCreate) {
	p.LineEdits = append(p.LineEdits, LineEdit{
		Op:     LineEditCreate,
		Create: create,
	})
}

// DeleteLine appends a delete edit for a line
func (p *Patch) DeleteLine(lineID string) {
	p.LineEdits = append(p.LineEdits, LineEdit{
		Op:     LineEditDelete,
		LineID: lineID,
	})
}

// Apply mutates the order in place with every edit of the patch. Stores
// call this inside their write transaction and recompute totals afterwards.
func (p *Patch) Apply(o *Order) error {
	if p.ClearCouponRule {
		o.CouponPromotionRuleID = nil
	}
	if p.SetCouponRuleID != nil {
		id := *p.SetCouponRuleID
		o.CouponPromotionRuleID = &id
	}
	if p.ClearRuleIDs {
		o.PromotionRuleIDs = nil
	}
	if len(p.AddRuleIDs) > 0 {
		o.PromotionRuleIDs = lo.Uniq(append(o.PromotionRuleIDs, p.AddRuleIDs...))
	}
	if len(p.RemoveRuleIDs) > 0 {
		o.PromotionRuleIDs = lo.Without(o.PromotionRuleIDs, p.RemoveRuleIDs...)
	}

	for _, edit := range p.LineEdits {
		switch edit.Op {
		case LineEditCreate:
			if edit.Create == nil {
				return invalidEdit(o.ID, "create edit without payload")
			}
			o.Lines = append(o.Lines, newLine(o.ID, edit.Create))
		case LineEditUpdate:
			line := o.Line(edit.LineID)
			if line == nil || edit.Update == nil {
				return invalidEdit(o.ID, "update edit for unknown line")
			}
			edit.Update.apply(line)
		case LineEditDelete:
			before := len(o.Lines)
			o.Lines = lo.Reject(o.Lines, func(l *Line, _ int) bool { return l.ID == edit.LineID })
			if len(o.Lines) == before {
				return invalidEdit(o.ID, "delete edit for unknown line")
			}
		default:
			return invalidEdit(o.ID, "unknown line edit op")
		}
	}
	return nil
}

func invalidEdit(orderID string, msg string) error {
	return ierr.NewError(msg).
		WithReportableDetails(map[string]any{"order_id": orderID}).
		Mark(ierr.ErrInvalidOperation)
}

func newLine(orderID string, create *LineCreate) *Line {
	line := &Line{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		OrderID:         orderID,
		ProductID:       create.ProductID,
		Description:     create.Description,
		Quantity:        create.Quantity,
		UnitPrice:       create.UnitPrice,
		TaxRateIDs:      append([]string(nil), create.TaxRateIDs...),
		IsPromotionLine: create.IsPromotionLine,
	}
	if create.PromotionRuleID != nil {
		id := *create.PromotionRuleID
		line.PromotionRuleID = &id
	}
	return line
}

func (u *LineUpdate) apply(line *Line) {
	if u.Description != nil {
		line.Description = *u.Description
	}
	if u.Quantity != nil {
		line.Quantity = *u.Quantity
	}
	if u.UnitPrice != nil {
		line.UnitPrice = *u.UnitPrice
	}
	if u.Discount != nil {
		line.Discount = *u.Discount
	}
	if u.TaxRateIDs != nil {
		line.TaxRateIDs = append([]string(nil), u.TaxRateIDs...)
	}
	if u.QtyInvalid != nil {
		line.QtyInvalid = *u.QtyInvalid
	}
	if u.QtyWarning != nil {
		line.QtyWarning = *u.QtyWarning
	}
	if u.ClearCouponRule {
		line.CouponPromotionRuleID = nil
	}
	if u.SetCouponRuleID != nil {
		id := *u.SetCouponRuleID
		line.CouponPromotionRuleID = &id
	}
	if u.ClearPromotionRuleIDs {
		line.PromotionRuleIDs = nil
	}
	if len(u.AddPromotionRuleIDs) > 0 {
		line.PromotionRuleIDs = lo.Uniq(append(line.PromotionRuleIDs, u.AddPromotionRuleIDs...))
	}
}

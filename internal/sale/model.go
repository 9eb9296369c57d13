package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateDraft      State = "draft"
	StateQuotation  State = "quotation"
	StateConfirmed  State = "confirmed"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateCancel     State = "cancel"
)

type Product struct {
	ID        int64
	Name      string
	ListPrice decimal.Decimal
}

type Line struct {
	ID          int64
	ProductID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

func (l Line) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Sale is the order a cart builds up and checkout confirms.
type Sale struct {
	ID                int64
	PartyID           int64
	ShipmentAddressID *int64
	InvoiceAddressID  *int64
	State             State
	Currency          string
	GuestAccessCode   *string
	Comment           string
	Lines             []Line
	// PaidAmount sums transactions that are completed or still in progress.
	PaidAmount decimal.Decimal
	CreatedAt  time.Time
}

func (s *Sale) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

func (s *Sale) AmountDue() decimal.Decimal {
	due := s.TotalAmount().Sub(s.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

func (s *Sale) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Editable reports whether checkout may still change the sale.
func (s *Sale) Editable() bool {
	return s.State == StateDraft || s.State == StateQuotation
}

// CanComment reports whether the buyer may still attach a comment.
func (s *Sale) CanComment() bool {
	return s.State == StateConfirmed || s.State == StateProcessing
}

// AccessibleWith reports whether code grants anonymous access to the sale.
func (s *Sale) AccessibleWith(code string) bool {
	return code != "" && s.GuestAccessCode != nil && *s.GuestAccessCode == code
}

// Summary is one row of a buyer's order history.
type Summary struct {
	ID        int64
	State     State
	Currency  string
	Total     decimal.Decimal
	CreatedAt time.Time
}

const OrdersPerPage = 10

// OrderPage is one page of a party's placed orders, newest first.
type OrderPage struct {
	Orders []Summary
	Page   int
	Total  int64
}

func (p *OrderPage) Pages() int {
	return int((p.Total + OrdersPerPage - 1) / OrdersPerPage)
}

func (p *OrderPage) HasPrev() bool { return p.Page > 1 }
func (p *OrderPage) HasNext() bool { return p.Page < p.Pages() }
func (p *OrderPage) Prev() int     { return p.Page - 1 }
func (p *OrderPage) Next() int     { return p.Page + 1 }

package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method is how a gateway collects money.
type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodManual     Method = "manual"
	MethodRedirect   Method = "redirect"
)

type TransactionState string

const (
	StatePending    TransactionState = "pending"
	StateInProgress TransactionState = "in-progress"
	StateCompleted  TransactionState = "completed"
	StateFailed     TransactionState = "failed"
)

// IsFinal reports whether the state can no longer change.
func (s TransactionState) IsFinal() bool {
	return s == StateCompleted || s == StateFailed
}

// Profile is a saved, provider tokenized card of a registered party.
type Profile struct {
	ID                    int64
	PartyID               int64
	AddressID             int64
	GatewayID             string
	ProviderCustomerID    string
	ProviderPaymentMethod string
	LastDigits            string
	ExpiryMonth           string
	ExpiryYear            string
	CreatedAt             time.Time
}

// Transaction is one attempt to collect the amount due on a sale.
type Transaction struct {
	ID                uuid.UUID
	SaleID            int64
	PartyID           int64
	AddressID         int64
	GatewayID         string
	ProfileID         *int64
	Amount            decimal.Decimal
	Currency          string
	State             TransactionState
	ProviderReference string
	CreatedAt         time.Time
}

// Notice is a provider's report on the outcome of a transaction it was
// handed, received on the payment webhook.
type Notice struct {
	TransactionID     uuid.UUID
	State             TransactionState
	ProviderReference string
	// Amount is what the provider collected, when it says.
	Amount *decimal.Decimal
}

// Card is the credit card form of the payment page.
type Card struct {
	Owner         string `form:"owner" validate:"required,max=128"`
	Number        string `form:"number" validate:"required,credit_card"`
	ExpiryMonth   string `form:"expiry_month" validate:"required,numeric,len=2"`
	ExpiryYear    string `form:"expiry_year" validate:"required,numeric,len=4"`
	CVV           string `form:"cvv" validate:"required,numeric,min=3,max=4"`
	AddToProfiles bool   `form:"add_card_to_profiles"`
}

func (c Card) LastDigits() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// IsBlank reports whether none of the card fields were filled in.
func (c Card) IsBlank() bool {
	return c.Owner == "" && c.Number == "" && c.ExpiryMonth == "" && c.ExpiryYear == "" && c.CVV == ""
}

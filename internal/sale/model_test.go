package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSale_Amounts(t *testing.T) {
	s := &Sale{
		Lines: []Line{
			{Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(10)},
			{Quantity: decimal.RequireFromString("0.5"), UnitPrice: decimal.RequireFromString("3.10")},
		},
	}

	assert.True(t, s.TotalAmount().Equal(decimal.RequireFromString("51.55")))
	assert.True(t, s.AmountDue().Equal(s.TotalAmount()))

	s.PaidAmount = decimal.NewFromInt(50)
	assert.True(t, s.AmountDue().Equal(decimal.RequireFromString("1.55")))

	s.PaidAmount = decimal.NewFromInt(60)
	assert.True(t, s.AmountDue().IsZero())
	assert.False(t, s.IsEmpty())
}

func TestSale_States(t *testing.T) {
	cases := []struct {
		state    State
		editable bool
		comment  bool
	}{
		{StateDraft, true, false},
		{StateQuotation, true, false},
		{StateConfirmed, false, true},
		{StateProcessing, false, true},
		{StateDone, false, false},
		{StateCancel, false, false},
	}
	for _, c := range cases {
		s := &Sale{State: c.state}
		assert.Equal(t, c.editable, s.Editable(), c.state)
		assert.Equal(t, c.comment, s.CanComment(), c.state)
	}
}

func TestSale_AccessibleWith(t *testing.T) {
	code := "abc"
	s := &Sale{GuestAccessCode: &code}

	assert.True(t, s.AccessibleWith("abc"))
	assert.False(t, s.AccessibleWith(""))
	assert.False(t, s.AccessibleWith("abd"))
	assert.False(t, (&Sale{}).AccessibleWith(""))
}

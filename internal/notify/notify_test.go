package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront-be/internal/sale"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.records = append(f.records, r)
	if promise != nil {
		promise(r, f.err)
	}
}

func TestKafkaMailer_QueueMail(t *testing.T) {
	p := &fakeProducer{}
	m := &KafkaMailer{client: p, topic: "storefront.mail"}

	msg := Message{To: "jo@example.com", From: "orders@localhost", Subject: ConfirmationSubject, SaleID: 7}
	require.NoError(t, m.QueueMail(context.Background(), msg))

	require.Len(t, p.records, 1)
	assert.Equal(t, "storefront.mail", p.records[0].Topic)
	assert.Equal(t, "7", string(p.records[0].Key))

	var got Message
	require.NoError(t, json.Unmarshal(p.records[0].Value, &got))
	assert.Equal(t, msg, got)
}

func TestKafkaMailer_DeliveryErrorIsNotReturned(t *testing.T) {
	p := &fakeProducer{err: errors.New("broker down")}
	m := &KafkaMailer{client: p, topic: "storefront.mail"}

	assert.NoError(t, m.QueueMail(context.Background(), Message{SaleID: 1}))
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.QueueMail(context.Background(), Message{To: "jo@example.com"}))
}

func TestRenderConfirmation(t *testing.T) {
	s := &sale.Sale{
		ID:       42,
		Currency: "USD",
		Lines: []sale.Line{
			{Description: "Product 1", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(10)},
			{Description: "Product 2", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("4.5")},
		},
	}

	msg, err := RenderConfirmation("orders@localhost", Confirmation{
		Name:     "Jo Buyer",
		Email:    "jo@example.com",
		OrderURL: "/order/42?access_code=abc&confirmation=1",
		Sale:     s,
	})
	require.NoError(t, err)
	assert.Equal(t, "Order Completed", msg.Subject)
	assert.Equal(t, "jo@example.com", msg.To)
	assert.Equal(t, int64(42), msg.SaleID)

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "confirmation", []byte(msg.Body))
}

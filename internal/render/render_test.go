package render

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/form"
	"storefront-be/internal/sale"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestNew_ParsesAllPages(t *testing.T) {
	r := newRenderer(t)
	assert.Len(t, r.tmpl, len(pages))
}

func TestHTML_EveryPageRendersEmpty(t *testing.T) {
	r := newRenderer(t)
	for _, name := range pages {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.HTML(w, http.StatusOK, name, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		})
	}
}

func TestHTML_ShowsFlashesAndErrors(t *testing.T) {
	r := newRenderer(t)
	w := httptest.NewRecorder()

	errs := form.Errors{}
	errs.Add("new_billing_address-city", form.MsgRequired)
	r.HTML(w, http.StatusOK, "one_step", &Page{
		Flashes: []string{"Could not process payment"},
		Errors:  errs,
		Form:    url.Values{"new_billing_address-name": {"Jo <b>"}},
		Data:    map[string]any{"Registered": true},
	})

	body := w.Body.String()
	assert.Contains(t, body, "Could not process payment")
	assert.Contains(t, body, form.MsgRequired)
	assert.Contains(t, body, "Jo &lt;b&gt;")
	assert.Contains(t, body, `name="billing_address"`)
}

func TestHTML_Order(t *testing.T) {
	r := newRenderer(t)
	w := httptest.NewRecorder()

	s := &sale.Sale{
		ID: 7, State: sale.StateConfirmed, Currency: "USD",
		Lines: []sale.Line{{Description: "Product 1", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(10)}},
	}
	r.HTML(w, http.StatusOK, "order", &Page{Data: map[string]any{
		"Sale":         s,
		"Confirmation": true,
		"Shipment":     &address.Address{Name: "Jo", City: "Lyon"},
	}})

	body := w.Body.String()
	assert.Contains(t, body, "Order #7")
	assert.Contains(t, body, "USD 50.00")
	assert.Contains(t, body, "Lyon")
	assert.Contains(t, body, "/order/7/add-comment")
}

func TestHTML_Orders(t *testing.T) {
	r := newRenderer(t)

	orders := []sale.Summary{{
		ID: 12, State: sale.StateConfirmed, Currency: "USD",
		Total: decimal.NewFromInt(30), CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	w := httptest.NewRecorder()
	r.HTML(w, http.StatusOK, "orders", &Page{Data: map[string]any{
		"Orders": &sale.OrderPage{Orders: orders, Page: 2, Total: 25},
	}})

	body := w.Body.String()
	assert.Contains(t, body, `href="/order/12"`)
	assert.Contains(t, body, "2024-03-01")
	assert.Contains(t, body, "USD 30.00")
	assert.Contains(t, body, "Page 2 of 3")
	assert.Contains(t, body, "/orders?page=1")
	assert.Contains(t, body, "/orders?page=3")

	empty := httptest.NewRecorder()
	r.HTML(empty, http.StatusOK, "orders", &Page{Data: map[string]any{"Orders": &sale.OrderPage{Page: 1}}})
	assert.Contains(t, empty.Body.String(), "not placed any orders")
}

func TestHTML_UnknownTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	newRenderer(t).HTML(w, http.StatusOK, "missing", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDict(t *testing.T) {
	m, err := dict("a", 1, "b", "x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, m)

	_, err = dict("a")
	assert.Error(t, err)
	_, err = dict(1, 2)
	assert.Error(t, err)
}

package checkout

import (
	"errors"
	"net/http"

	"storefront-be/internal/form"
	"storefront-be/internal/sale"

	"github.com/shopspring/decimal"
)

const (
	msgProductUnavailable = "This product is not available."
	msgInvalidQuantity    = "Quantity must be positive."
	msgCartLocked         = "Your order is already being processed."
)

func (h *Handler) cartPage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	p := h.page(r, "Shopping Cart")
	if c.Sale != nil {
		p.Data["Sale"] = c.Sale
	}
	h.render.HTML(w, http.StatusOK, "cart", p)
}

type cartLine struct {
	Product  *int64 `form:"product"`
	Quantity string `form:"quantity"`
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	var in cartLine
	_ = form.Decode(&in, r.PostForm)
	if in.Product == nil {
		h.flashRedirect(w, r, c, msgProductUnavailable, PathCart)
		return
	}
	productID := *in.Product

	qty := decimal.NewFromInt(1)
	if in.Quantity != "" {
		v, err := decimal.NewFromString(in.Quantity)
		if err != nil {
			h.flashRedirect(w, r, c, msgInvalidQuantity, PathCart)
			return
		}
		qty = v
	}

	err := h.carts.AddProduct(r.Context(), c.Cart, c.PartyID(), productID, qty)
	switch {
	case errors.Is(err, sale.ErrProductNotFound):
		h.flashRedirect(w, r, c, msgProductUnavailable, PathCart)
	case errors.Is(err, sale.ErrInvalidQuantity):
		h.flashRedirect(w, r, c, msgInvalidQuantity, PathCart)
	case errors.Is(err, sale.ErrSaleLocked):
		h.flashRedirect(w, r, c, msgCartLocked, PathCart)
	case err != nil:
		h.fail(w, r, err)
	default:
		http.Redirect(w, r, PathCart, http.StatusFound)
	}
}

package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront-be/internal/form"
	"storefront-be/internal/logger"
	"storefront-be/internal/sale"
	"storefront-be/internal/session"

	"go.uber.org/zap"
)

// orderSale loads the order named by the path and checks the visitor may
// see it: either by the guest access code or as the owning user.
func (h *Handler) orderSale(w http.ResponseWriter, r *http.Request, code string) (*sale.Sale, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.notFound(w)
		return nil, false
	}

	s, err := h.sales.Get(r.Context(), id)
	if errors.Is(err, sale.ErrSaleNotFound) {
		h.notFound(w)
		return nil, false
	}
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	if s.AccessibleWith(code) || h.ownsSale(r, s) {
		return s, true
	}

	logger.FromCtx(r.Context()).Warn("order access denied", zap.Int64("sale_id", s.ID))
	h.forbidden(w)
	return nil, false
}

func (h *Handler) ownsSale(r *http.Request, s *sale.Sale) bool {
	sess, ok := session.FromContext(r.Context())
	if !ok || !sess.Authenticated() {
		return false
	}
	u, err := h.users.Get(r.Context(), *sess.UserID)
	if err != nil {
		return false
	}
	return u.PartyID == s.PartyID
}

func (h *Handler) orderPage(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("access_code")
	s, ok := h.orderSale(w, r, code)
	if !ok {
		return
	}

	p := h.page(r, "Order #"+strconv.FormatInt(s.ID, 10))
	p.Data["Sale"] = s
	p.Data["AccessCode"] = code
	p.Data["Confirmation"] = r.URL.Query().Get("confirmation") == "1"

	ctx := r.Context()
	if s.ShipmentAddressID != nil {
		if a, err := h.addresses.Get(ctx, *s.ShipmentAddressID); err == nil {
			p.Data["Shipment"] = a
		}
	}
	if s.InvoiceAddressID != nil {
		if a, err := h.addresses.Get(ctx, *s.InvoiceAddressID); err == nil {
			p.Data["Invoice"] = a
		}
	}

	h.render.HTML(w, http.StatusOK, "order", p)
}

type orderComment struct {
	AccessCode string `form:"access_code"`
	Comment    string `form:"comment"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var in orderComment
	_ = form.Decode(&in, r.PostForm)
	code := in.AccessCode
	if code == "" {
		code = r.URL.Query().Get("access_code")
	}

	s, ok := h.orderSale(w, r, code)
	if !ok {
		return
	}
	if !s.CanComment() {
		h.forbidden(w)
		return
	}

	if err := h.sales.AddComment(r.Context(), s, in.Comment); err != nil {
		if errors.Is(err, sale.ErrCommentNotAllowed) {
			h.forbidden(w)
			return
		}
		h.fail(w, r, err)
		return
	}

	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": msgCommentAdded})
		return
	}

	var accessCode *string
	if s.AccessibleWith(code) {
		accessCode = &code
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		sess.AddFlash(msgCommentAdded)
	}
	http.Redirect(w, r, OrderURL(s.ID, accessCode, false), http.StatusFound)
}

// ordersPage lists the signed-in user's placed orders, ten to a page.
func (h *Handler) ordersPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok || !sess.Authenticated() {
		h.forbidden(w)
		return
	}
	u, err := h.users.Get(ctx, *sess.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var in struct {
		Page int64 `form:"page"`
	}
	_ = form.Decode(&in, r.URL.Query())

	orders, err := h.sales.ListOrders(ctx, u.PartyID, int(in.Page))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p := h.page(r, "My orders")
	p.Data["Orders"] = orders
	h.render.HTML(w, http.StatusOK, "orders", p)
}

package checkout

import (
	"errors"
	"net/http"
	"net/url"

	"storefront-be/internal/address"
	"storefront-be/internal/cache"
	"storefront-be/internal/cart"
	"storefront-be/internal/form"
	"storefront-be/internal/logger"
	"storefront-be/internal/notify"
	"storefront-be/internal/party"
	"storefront-be/internal/payment"
	"storefront-be/internal/render"
	"storefront-be/internal/sale"
	"storefront-be/internal/session"
	"storefront-be/internal/user"

	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "Invalid login credentials"
	msgAddressNotOwned    = "The address you selected is not valid."
	msgPaymentFailed      = "Could not process payment. Please try again."
	msgPaymentInProgress  = "Your payment is already being processed."
	msgRegistrationExists = "A registration already exists with this email. Please login or contact customer care"
	msgCommentAdded       = "Comment Added"
)

// Deps are the collaborators of the storefront handlers.
type Deps struct {
	Carts     cart.Service
	Sales     sale.Service
	Parties   party.Service
	Users     user.Service
	Addresses address.Service
	Payments  payment.Service
	Mailer    notify.Mailer
	Locker    cache.Locker
	Renderer  *render.Renderer
	Policy    Policy
	MailFrom  string
}

type Handler struct {
	carts     cart.Service
	sales     sale.Service
	users     user.Service
	addresses address.Service
	payments  payment.Service
	locker    cache.Locker
	render    *render.Renderer
	policy    Policy

	loader     *Loader
	seq        *Sequencer
	identities *Identities
	confirmer  *Confirmer
}

func NewHandler(d Deps) *Handler {
	locker := d.Locker
	if locker == nil {
		locker = cache.NopLocker{}
	}
	return &Handler{
		carts:      d.Carts,
		sales:      d.Sales,
		users:      d.Users,
		addresses:  d.Addresses,
		payments:   d.Payments,
		locker:     locker,
		render:     d.Renderer,
		policy:     d.Policy,
		loader:     NewLoader(d.Carts, d.Sales, d.Parties, d.Users, d.Policy),
		seq:        NewSequencer(),
		identities: NewIdentities(d.Users, d.Parties, d.Sales, d.Carts),
		confirmer:  NewConfirmer(d.Sales, d.Parties, d.Addresses, d.Mailer, d.MailFrom),
	}
}

// Register mounts the cart, checkout and order routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+PathCart, h.cartPage)
	mux.HandleFunc("POST /cart/add", h.addToCart)

	mux.HandleFunc("GET "+PathOneStep, h.step(StepOneStep, h.oneStepPage))
	mux.HandleFunc("POST "+PathOneStep, h.step(StepOneStep, h.oneStep))

	mux.HandleFunc("GET "+PathSignIn, h.step(StepSignIn, h.signInPage))
	mux.HandleFunc("POST "+PathSignIn, h.step(StepSignIn, h.signIn))

	mux.HandleFunc("GET "+PathShippingAddress, h.step(StepShippingAddress, h.shippingAddressPage))
	mux.HandleFunc("POST "+PathShippingAddress, h.step(StepShippingAddress, h.shippingAddress))

	mux.HandleFunc("GET "+PathValidateAddress, h.step(StepValidateAddress, h.forward(PathDeliveryMethod)))

	mux.HandleFunc("GET "+PathDeliveryMethod, h.step(StepDeliveryMethod, h.forward(PathPayment)))
	mux.HandleFunc("POST "+PathDeliveryMethod, h.step(StepDeliveryMethod, h.forward(PathPayment)))

	mux.HandleFunc("GET "+PathBillingAddress, h.step(StepBillingAddress, h.billingAddressPage))
	mux.HandleFunc("POST "+PathBillingAddress, h.step(StepBillingAddress, h.billingAddress))

	mux.HandleFunc("GET "+PathPayment, h.step(StepPayment, h.paymentPage))
	mux.HandleFunc("POST "+PathPayment, h.step(StepPayment, h.pay))

	mux.HandleFunc("GET /orders", h.ordersPage)
	mux.HandleFunc("GET /order/{id}", h.orderPage)
	mux.HandleFunc("POST /order/{id}/add-comment", h.addComment)

	mux.HandleFunc("POST /payment/webhook/{gateway}", h.paymentWebhook)
}

type stepFunc func(w http.ResponseWriter, r *http.Request, c *Context)

// step loads the checkout context and runs fn only when every guard of
// the step holds.
func (h *Handler) step(step Step, fn stepFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := h.load(w, r)
		if !ok {
			return
		}

		if to, ok := h.seq.Check(step, c); !ok {
			logger.FromCtx(r.Context()).Debug("checkout guard redirect",
				zap.Stringer("step", step),
				zap.String("to", to),
			)
			http.Redirect(w, r, to, http.StatusFound)
			return
		}

		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
		}
		fn(w, r, c)
	}
}

// forward is a step with nothing to do yet beyond its guards.
func (h *Handler) forward(to string) stepFunc {
	return func(w http.ResponseWriter, r *http.Request, _ *Context) {
		http.Redirect(w, r, to, http.StatusFound)
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Context, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		h.fail(w, r, errors.New("request has no session"))
		return nil, false
	}

	c, err := h.loader.Load(r.Context(), sess)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return c, true
}

func (h *Handler) page(r *http.Request, title string) *render.Page {
	p := &render.Page{
		Title:  title,
		Errors: form.Errors{},
		Form:   url.Values{},
		Data:   map[string]any{},
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		p.Flashes = sess.PopFlashes()
	}
	return p
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromCtx(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.render.HTML(w, http.StatusInternalServerError, "error", &render.Page{Title: "Something went wrong"})
}

func (h *Handler) forbidden(w http.ResponseWriter) {
	h.render.HTML(w, http.StatusForbidden, "error", &render.Page{Title: "Forbidden"})
}

func (h *Handler) notFound(w http.ResponseWriter) {
	h.render.HTML(w, http.StatusNotFound, "error", &render.Page{Title: "Not found"})
}

func (h *Handler) flashRedirect(w http.ResponseWriter, r *http.Request, c *Context, msg, to string) {
	c.Session.AddFlash(msg)
	http.Redirect(w, r, to, http.StatusFound)
}

// withoutSecrets drops fields that must never be echoed back into a page.
func withoutSecrets(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		switch k {
		case "password", "number", "cvv":
			continue
		}
		out[k] = vals
	}
	return out
}

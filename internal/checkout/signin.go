package checkout

import (
	"errors"
	"net/http"
	"net/url"

	"storefront-be/internal/form"
	"storefront-be/internal/user"
)

func (h *Handler) signInPage(w http.ResponseWriter, r *http.Request, c *Context) {
	if u := c.User(); u != nil && c.Session.IsFresh(c.Policy.FreshLoginWindow, c.Policy.now()) {
		if err := h.identities.Rehome(r.Context(), c); err != nil {
			h.fail(w, r, err)
			return
		}
		http.Redirect(w, r, PathShippingAddress, http.StatusFound)
		return
	}
	if c.Guest() && c.SignedIn() {
		http.Redirect(w, r, PathShippingAddress, http.StatusFound)
		return
	}

	h.renderSignIn(w, r, url.Values{}, nil)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, c *Context) {
	f := SignInFormFromValues(r.PostForm)
	err := h.identities.SignIn(r.Context(), c, f)

	var verr *form.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, PathShippingAddress, http.StatusFound)
	case errors.As(err, &verr):
		h.renderSignIn(w, r, r.PostForm, verr.Fields)
	case errors.Is(err, user.ErrInvalidCredentials):
		c.Session.AddFlash(msgInvalidCredentials)
		h.renderSignIn(w, r, r.PostForm, nil)
	case errors.Is(err, ErrGuestModeSignedIn):
		h.renderSignIn(w, r, r.PostForm, form.Invalid("checkout_mode", form.MsgInvalidChoice).Fields)
	case errors.Is(err, ErrEmailInUse):
		p := h.page(r, "Email in use")
		p.Data["Email"] = f.Email
		h.render.HTML(w, http.StatusOK, "email_in_use", p)
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) renderSignIn(w http.ResponseWriter, r *http.Request, values url.Values, errs form.Errors) {
	p := h.page(r, "Sign in")
	p.Form = withoutSecrets(values)
	if errs != nil {
		p.Errors = errs
	}
	h.render.HTML(w, http.StatusOK, "sign_in", p)
}

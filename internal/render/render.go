package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"storefront-be/internal/form"
	"storefront-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var files embed.FS

// Page is what every template receives.
type Page struct {
	Title   string
	Flashes []string
	Errors  form.Errors
	Form    url.Values
	Data    map[string]any
}

var pages = []string{
	"cart",
	"sign_in",
	"email_in_use",
	"shipping_address",
	"billing_address",
	"payment",
	"one_step",
	"order",
	"orders",
	"error",
}

var funcs = template.FuncMap{
	"value": func(v url.Values, key string) string { return v.Get(key) },
	"err":   func(e form.Errors, field string) string { return e.First(field) },
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"dict":  dict,
}

// dict builds a map from alternating keys and values so partial templates
// can take more than one argument.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

type Renderer struct {
	tmpl map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{tmpl: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.tmpl[name] = t
	}
	return r, nil
}

// HTML renders the named page inside the layout. A rendering failure
// becomes a bare 500 since nothing has been written yet.
func (r *Renderer) HTML(w http.ResponseWriter, status int, name string, p *Page) {
	if p == nil {
		p = &Page{}
	}
	if p.Errors == nil {
		p.Errors = form.Errors{}
	}
	if p.Form == nil {
		p.Form = url.Values{}
	}

	t, ok := r.tmpl[name]
	if !ok {
		logger.L().Error("unknown template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		logger.L().Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

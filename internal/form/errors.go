package form

import (
	"sort"
	"strings"
)

// Errors maps a form field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// HasPrefix reports whether any field of the named sub form failed.
func (e Errors) HasPrefix(prefix string) bool {
	for k := range e {
		if k == prefix || strings.HasPrefix(k, prefix+"-") {
			return true
		}
	}
	return false
}

func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Merge copies other into e, keying each field as prefix-field.
func (e Errors) Merge(prefix string, other Errors) {
	for k, msgs := range other {
		key := k
		if prefix != "" {
			key = prefix + "-" + k
		}
		e[key] = append(e[key], msgs...)
	}
}

func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError carries field level messages back to the page that
// submitted the form.
type ValidationError struct {
	Fields Errors
}

func (e *ValidationError) Error() string {
	return "invalid form: " + strings.Join(e.Fields.Fields(), ", ")
}

// Invalid builds a single field ValidationError.
func Invalid(field, msg string) *ValidationError {
	errs := Errors{}
	errs.Add(field, msg)
	return &ValidationError{Fields: errs}
}

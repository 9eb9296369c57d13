package form

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	gpform "github.com/go-playground/form/v4"
)

var decoder = newDecoder()

func newDecoder() *gpform.Decoder {
	d := gpform.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return first(vals), nil
	}, "")
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		switch strings.ToLower(first(vals)) {
		case "1", "y", "yes", "on", "true":
			return true, nil
		}
		return false, nil
	}, false)
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		n, err := strconv.ParseInt(first(vals), 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	}, int64(0))
	return d
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// Decode fills dst from values by form tag. Strings are trimmed and any
// checkbox style value sets a bool. A malformed number leaves its field
// unset so validation can report it.
func Decode(dst any, values url.Values) error {
	err := decoder.Decode(dst, values)
	var fields gpform.DecodeErrors
	if errors.As(err, &fields) {
		return nil
	}
	return err
}

// Sub returns the values whose keys start with prefix, keyed without it.
// Nested forms such as "new_billing_address-city" decode through it.
func Sub(values url.Values, prefix string) url.Values {
	if prefix == "" {
		return values
	}
	out := url.Values{}
	for k, v := range values {
		if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
			out[name] = v
		}
	}
	return out
}

// Package request is the model of a request template: method, URL, headers
// and a body in one of three data modes. Templates may contain {{name}}
// tokens that are rendered with Request.Resolve just before dispatch.
package request

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrBadMethod is returned for methods outside the supported set.
const ErrBadMethod errors.Error = "unsupported method"

// Method is an HTTP method.
type Method string

// Supported methods.
const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists the supported methods in menu order.
var Methods = []Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodPatch,
	MethodDelete,
	MethodHead,
	MethodOptions,
}

// HasBody reports whether requests with m carry a body. History entries for
// these methods are never deduplicated.
func (m Method) HasBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// ParseMethod validates s case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}

	return "", fmt.Errorf("%q: %w", s, ErrBadMethod)
}

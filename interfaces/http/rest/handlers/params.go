package handlers

import (
	"net/http"
	"strings"
)

// strict reports whether unknown parameter values must be rejected for r.
func strict(r *http.Request, byDefault bool) bool {
	switch strings.ToLower(r.URL.Query().Get("strict")) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return byDefault
	}
}

// optional returns a pointer to the query value, nil when the parameter is
// absent.
func optional(r *http.Request, name string) *string {
	values, ok := r.URL.Query()[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

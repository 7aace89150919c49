package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathVar returns a route variable; ids are validated by the service.
func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// userID returns the caller set by the auth middleware. Routes are only
// mounted behind it, so a missing value is a wiring bug.
func userID(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

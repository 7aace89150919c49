package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeadersConfig lists the response headers the API always sends. Empty
// values are not sent.
type HeadersConfig struct {
	ContentSecurityPolicy  string
	FrameOptions           string
	ContentTypeOptions     string
	ReferrerPolicy         string
	CrossOriginResourcePol string
	CacheControl           string

	// HSTS is sent on TLS connections only. Zero disables it.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
}

// DefaultHeadersConfig suits a JSON API: nothing may be framed, embedded,
// sniffed or stored.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentSecurityPolicy:  "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:           "DENY",
		ContentTypeOptions:     "nosniff",
		ReferrerPolicy:         "no-referrer",
		CrossOriginResourcePol: "same-origin",
		CacheControl:           "no-store",
		HSTSMaxAge:             365 * 24 * time.Hour,
		HSTSIncludeSubdomains:  true,
	}
}

type HeadersMiddleware struct {
	static http.Header
	hsts   string
}

// NewHeadersMiddleware renders the header values once up front.
func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{static: http.Header{}}
	for name, value := range map[string]string{
		"Content-Security-Policy":      cfg.ContentSecurityPolicy,
		"X-Frame-Options":              cfg.FrameOptions,
		"X-Content-Type-Options":       cfg.ContentTypeOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResourcePol,
		"Cache-Control":                cfg.CacheControl,
	} {
		if value != "" {
			h.static.Set(name, value)
		}
	}
	if cfg.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(int(cfg.HSTSMaxAge/time.Second))
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for name, values := range h.static {
			out[name] = values
		}
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

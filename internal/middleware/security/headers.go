// Package security applies response hardening headers for the JSON API.
package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginOpener   string
	CrossOriginResource string

	// CacheControl stops intermediaries from caching financial data.
	CacheControl string
}

// DefaultHeadersConfig returns secure defaults
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		HSTSPreload:           true,

		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		CrossOriginOpener:   "same-origin",
		CrossOriginResource: "same-origin",
		CacheControl:        "no-store",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
}

// NewHeadersMiddleware creates a new security headers middleware
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()

	headers.Set("X-Content-Type-Options", h.config.XContentTypeOptions)
	headers.Set("X-Frame-Options", h.config.XFrameOptions)
	headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
	headers.Set("Cross-Origin-Opener-Policy", h.config.CrossOriginOpener)
	headers.Set("Cross-Origin-Resource-Policy", h.config.CrossOriginResource)

	if h.config.CacheControl != "" {
		headers.Set("Cache-Control", h.config.CacheControl)
	}

	// HSTS header (only for HTTPS)
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		hstsValue := fmt.Sprintf("max-age=%d", h.config.HSTSMaxAge)
		if h.config.HSTSIncludeSubdomains {
			hstsValue += "; includeSubDomains"
		}
		if h.config.HSTSPreload {
			hstsValue += "; preload"
		}
		headers.Set("Strict-Transport-Security", hstsValue)
	}
}

package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, PATCH, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, Accept, " + RequestIDHeader
	corsMaxAge       = "86400"
)

// corsOrigins is the set of browser origins allowed to call the API with credentials.
type corsOrigins map[string]struct{}

func newCORSOrigins(origins []string) corsOrigins {
	set := make(corsOrigins, len(origins))
	for _, o := range origins {
		if o = strings.TrimSuffix(strings.TrimSpace(o), "/"); o != "" {
			set[o] = struct{}{}
		}
	}
	return set
}

func (c corsOrigins) allows(origin string) bool {
	_, ok := c[origin]
	return origin != "" && ok
}

// CORS answers preflight requests with 204 and tags responses to allowed origins. Requests from
// other origins are served without CORS headers so the browser blocks them.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	origins := newCORSOrigins(allowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origins.allows(origin)

		if r.Method == http.MethodOptions {
			if allowed {
				hdr := w.Header()
				hdr.Set("Access-Control-Allow-Methods", corsAllowMethods)
				hdr.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				hdr.Set("Access-Control-Max-Age", corsMaxAge)
				setAllowOrigin(hdr, origin)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if allowed {
			setAllowOrigin(w.Header(), origin)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		}
		next.ServeHTTP(w, r)
	})
}

func setAllowOrigin(hdr http.Header, origin string) {
	hdr.Set("Access-Control-Allow-Origin", origin)
	hdr.Set("Access-Control-Allow-Credentials", "true")
	hdr.Add("Vary", "Origin")
}

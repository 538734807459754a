package middleware

import "net/http"

// MaxBody caps the request body at limit bytes. Oversized bodies make
// the JSON decoder fail with a *http.MaxBytesError, which handlers turn
// into a 413.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

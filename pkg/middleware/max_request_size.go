package middleware

import (
	"net/http"

	apperrors "classflow/pkg/errors"
	httputil "classflow/pkg/http"
)

// MaxRequestSize caps request bodies at limit bytes. Declared oversize
// bodies are rejected up front; undeclared ones fail on read.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = httputil.WriteError(w, apperrors.New(
					apperrors.CodeInvalidInput,
					"Request body too large",
					http.StatusRequestEntityTooLarge,
				).WithDetails(map[string]any{"limit_bytes": limit}))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

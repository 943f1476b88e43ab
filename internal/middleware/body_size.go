package middleware

import (
	"errors"
	"net/http"
	"strings"
)

// MaxBodySize caps request bodies at maxBytes. Requests that announce a
// larger Content-Length are refused with 413 before the handler runs; the
// rest fail on Read once the cap is crossed, which handlers detect with
// IsMaxBytesError.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// IsMaxBytesError reports whether err came from an exhausted MaxBytesReader.
// mime/multipart does not always wrap the reader error, so the message is
// matched as a fallback.
func IsMaxBytesError(err error) bool {
	if err == nil {
		return false
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "http: request body too large")
}

package observability

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID returns the caller supplied X-Request-Id, or a fresh one.
func RequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func DeviceID(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

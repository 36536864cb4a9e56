package restapi

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128
)

type requestIDKey struct{}

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-._:]+$`)

// RequestIDMiddleware tags every request with an ID: the client's
// X-Request-ID when it is short and plain, a fresh UUID otherwise. The ID is
// echoed back so a client can quote it when reporting a bad route.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	return id != "" && len(id) <= maxRequestIDLength && requestIDPattern.MatchString(id)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns "" outside RequestIDMiddleware.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

package trace

import (
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	applog "expensetracker/internal/log"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns every request an id, attaches a request-scoped logger
// and logs the outcome.
type Middleware struct {
	logger        *applog.Logger
	extractIP     func(*http.Request) string
	totalRequests atomic.Int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		logger:    logger,
		extractIP: extractIP,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	logged := applog.AccessLog(m.extractIP)(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.totalRequests.Add(1)

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := applog.NewContext(r.Context(), m.logger.WithComponent(applog.ComponentHTTP).With(applog.FieldRequestID, requestID))

		logged.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GenerateRequestID returns a random UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// TotalRequests reports how many requests passed through the middleware.
func (m *Middleware) TotalRequests() int64 {
	return m.totalRequests.Load()
}

package testutil

import (
	"net/http"
	"time"

	"restapidemo/pkg/requestcontext"
)

// WithRequestID sets the request ID the RequestID middleware would assign.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request clock so timestamps are deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithClientMetadata sets the client IP and user agent the ClientMetadata
// middleware would extract.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}

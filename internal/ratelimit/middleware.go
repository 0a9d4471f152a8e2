package ratelimit

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/sundayc666/vision-api/internal/identity"
)

// KeyFunc extracts the partition key for a request.
type KeyFunc func(r *http.Request) string

type Options struct {
	Store RateStore
	// KeyFn defaults to identity.FromRequest.
	KeyFn KeyFunc
}

// RejectResponse is the 429 body sent when admission fails.
type RejectResponse struct {
	Detail    string `json:"detail"`
	Limit     *int   `json:"limit"`
	Remaining *int   `json:"remaining"`
	Reset     *int64 `json:"reset"`
}

// Middleware gates the wrapped handler behind the rate limiter. The check
// runs before the body is touched, so rejected requests never reach image
// decoding or the classifier. X-RateLimit-* headers are set on every response
// that consulted the limiter, admitted or not.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = identity.FromRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec, err := opts.Store.Admit(r.Context(), key)
			if err != nil {
				// Fail open: a store outage must not take the endpoint down.
				log.Printf("rate-limit store error for key %q: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))

			if !dec.Allowed {
				writeReject(w, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeReject(w http.ResponseWriter, dec Decision) {
	retryAfter := int(time.Until(dec.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	reset := dec.ResetAt.Unix()
	_ = json.NewEncoder(w).Encode(RejectResponse{
		Detail:    fmt.Sprintf("rate limit exceeded: %d requests in the current window", dec.Limit),
		Limit:     &dec.Limit,
		Remaining: &dec.Remaining,
		Reset:     &reset,
	})
}

package apiclient

import (
	"golang.org/x/time/rate"
)

// newLimiter creates the client-side limiter; non-positive values fall back to defaults.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

package signal

import "golang.org/x/time/rate"

// newEventLimiter is a per-connection token bucket for inbound events.
func newEventLimiter(perSecond float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

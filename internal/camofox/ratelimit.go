package camofox

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 1.0
	defaultBurst = 3
)

// newLimiter paces every REST call the client makes to the Camofox server
// (tab open, navigate, snapshot, click, close). Each of those turns into a
// Nitter request or browser action, and public instances ban bursts.
// CAMOFOX_RPS and CAMOFOX_BURST override rps and burst; non-positive values
// fall back to the defaults.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if v, err := strconv.ParseFloat(os.Getenv("CAMOFOX_RPS"), 64); err == nil && v > 0 {
		rps = v
	}
	if v, err := strconv.Atoi(os.Getenv("CAMOFOX_BURST")); err == nil && v > 0 {
		burst = v
	}
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// SetRateLimit replaces the request pacing, subject to the env overrides.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.limiter = newLimiter(rps, burst)
}

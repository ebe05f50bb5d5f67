package parallel

import (
	"time"

	"github.com/juju/ratelimit"
)

type RateLimiter interface {
	Take(count int64) time.Duration
}

// NewRateLimiter creates a token bucket refilled with rps tokens every second. The
// limiter is unlimited if rps is not positive.
func NewRateLimiter(rps int) RateLimiter {
	if rps <= 0 {
		return &Unlimited{}
	}
	return ratelimit.NewBucketWithQuantum(time.Second, int64(rps), int64(rps))
}

type Unlimited struct{}

func (n *Unlimited) Take(count int64) time.Duration {
	return 0
}

package runtime

import (
	"context"
	"time"

	"github.com/R3E-Network/records_service/internal/middleware"
)

// limiterJanitor evicts idle rate limiter visitors while the service runs.
type limiterJanitor struct {
	limiter  *middleware.RateLimiter
	interval time.Duration
	stop     chan struct{}
}

func newLimiterJanitor(limiter *middleware.RateLimiter, interval time.Duration) *limiterJanitor {
	return &limiterJanitor{limiter: limiter, interval: interval}
}

func (j *limiterJanitor) Name() string { return "rate-limit-janitor" }

func (j *limiterJanitor) Start(context.Context) error {
	j.stop = make(chan struct{})
	j.limiter.StartCleanup(j.interval, j.stop)
	return nil
}

func (j *limiterJanitor) Stop(context.Context) error {
	if j.stop != nil {
		close(j.stop)
		j.stop = nil
	}
	return nil
}

package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/records_service/internal/app/metrics"
	"github.com/R3E-Network/records_service/pkg/logger"
)

// Counter is the part of Service the sampler needs.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Sampler periodically publishes the record count as a metric.
type Sampler struct {
	counter  Counter
	schedule string
	timeout  time.Duration
	log      *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
	last int
}

// NewSampler builds a sampler running on a cron schedule such as "@every 30s".
func NewSampler(counter Counter, schedule string, log *logger.Logger) *Sampler {
	if log == nil {
		log = logger.NewDefault("records-sampler")
	}
	if schedule == "" {
		schedule = "@every 30s"
	}
	return &Sampler{counter: counter, schedule: schedule, timeout: 5 * time.Second, log: log}
}

func (s *Sampler) Name() string { return "records-sampler" }

// Start samples once, then schedules further samples.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Sample(context.Background()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	s.sampleLocked(ctx)
	c.Start()
	s.cron = c
	s.log.WithField("schedule", s.schedule).Info("record sampler started")
	return nil
}

// Stop halts the schedule and waits for a running sample to finish.
func (s *Sampler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sample reads the current count and publishes it.
func (s *Sampler) Sample(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleLocked(ctx)
}

// Last returns the most recently sampled count.
func (s *Sampler) Last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sampler) sampleLocked(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.counter.Count(ctx)
	if err != nil {
		s.log.WithError(err).Warn("sample record count")
		return
	}
	s.last = n
	metrics.SetRecordsHeld(n)
}

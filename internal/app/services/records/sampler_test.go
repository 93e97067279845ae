package records

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/R3E-Network/records_service/pkg/logger"
)

type countFunc func(ctx context.Context) (int, error)

func (f countFunc) Count(ctx context.Context) (int, error) { return f(ctx) }

func TestSamplerStartSamplesImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	s := NewSampler(countFunc(func(context.Context) (int, error) {
		calls.Add(1)
		return 4, nil
	}), "@every 1h", logger.NewDiscard())

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 4, s.Last())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

func TestSamplerKeepsLastOnError(t *testing.T) {
	fail := false
	s := NewSampler(countFunc(func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("store down")
		}
		return 2, nil
	}), "", logger.NewDiscard())

	s.Sample(context.Background())
	fail = true
	s.Sample(context.Background())
	assert.Equal(t, 2, s.Last())
}

func TestSamplerRejectsBadSchedule(t *testing.T) {
	s := NewSampler(countFunc(func(context.Context) (int, error) { return 0, nil }), "not a schedule", logger.NewDiscard())
	assert.Error(t, s.Start(context.Background()))
}

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/system"
	"github.com/R3E-Network/records_service/pkg/logger"
)

func TestNewDefaultsToMemory(t *testing.T) {
	application, err := New(Stores{}, logger.NewDiscard(), Options{HashCost: 4, SampleSchedule: "@every 1h"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, application.Start(ctx))
	defer application.Stop(ctx)

	rec, err := application.Records.Create(ctx, record.CreateInput{Name: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)

	application.Sampler.Sample(ctx)
	assert.Equal(t, 1, application.Sampler.Last())
	assert.Equal(t, []string{"records", "records-sampler"}, application.Services())
}

func TestAttachAfterStartFails(t *testing.T) {
	application, err := New(Stores{}, logger.NewDiscard())
	require.NoError(t, err)
	require.NoError(t, application.Attach(system.NoopService{ServiceName: "extra"}))

	ctx := context.Background()
	require.NoError(t, application.Start(ctx))
	defer application.Stop(ctx)
	assert.Error(t, application.Attach(system.NoopService{ServiceName: "late"}))
}

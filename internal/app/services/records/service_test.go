package records

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/storage/memory"
	"github.com/R3E-Network/records_service/internal/app/validation"
	"github.com/R3E-Network/records_service/pkg/logger"
	"github.com/R3E-Network/records_service/pkg/testutil"
)

func newTestService() *Service {
	return New(memory.New(), logger.NewDiscard(), WithHashCost(bcrypt.MinCost))
}

func input(name string) record.CreateInput {
	return record.CreateInput{Name: name, Email: name + "@example.com", Password: "password-" + name}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	a, err := svc.Create(ctx, input("alice"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, input("bob"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.ID, b.ID)
	assert.NotEqual(t, "password-alice", a.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("password-alice")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("password-bob")))

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, a)
	assert.Contains(t, list, b)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestServiceGetUnassigned(t *testing.T) {
	svc := newTestService()
	for _, id := range []int64{-1, 0, 1, 1000} {
		_, err := svc.Get(context.Background(), id)
		assert.True(t, IsNotFound(err), "id %d", id)
	}
}

func TestServiceCreateSanitizesAndValidates(t *testing.T) {
	svc := newTestService()

	rec, err := svc.Create(context.Background(), record.CreateInput{
		Name:     "  Carol ",
		Email:    "CAROL@Example.com",
		Password: "long-enough",
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol", rec.Name)
	assert.Equal(t, "carol@example.com", rec.Email)

	_, err = svc.Create(context.Background(), record.CreateInput{Name: "Dan"})
	verr, ok := validation.AsError(err)
	require.True(t, ok)
	assert.Len(t, verr.Fields, 2)

	n, _ := svc.Count(context.Background())
	assert.Equal(t, 1, n, "invalid input must not be stored")
}

func TestServiceConcurrentCreateUniqueIDs(t *testing.T) {
	const n = 50
	svc := newTestService()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := svc.Create(context.Background(), input("worker"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[rec.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, n)
}

func TestServiceWrapsStoreErrors(t *testing.T) {
	boom := errors.New("disk full")
	store := testutil.NewMockRecordStore()
	store.FailOn(testutil.OpCreate, boom)
	store.FailOn(testutil.OpCount, boom)
	svc := New(store, logger.NewDiscard(), WithHashCost(bcrypt.MinCost))

	_, err := svc.Create(context.Background(), input("erin"))
	assert.ErrorIs(t, err, boom)
	_, isValidation := validation.AsError(err)
	assert.False(t, isValidation)

	_, err = svc.Count(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestWithHashCostIgnoresOutOfRange(t *testing.T) {
	svc := New(memory.New(), logger.NewDiscard(), WithHashCost(99))
	assert.Equal(t, bcrypt.DefaultCost, svc.cost)
}

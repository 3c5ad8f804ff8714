package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtc-api/internal/payment"
	"rtc-api/internal/payment/entities"
	"rtc-api/internal/testutils"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService() (*payment.Service, *testutils.MockClock) {
	clock := testutils.NewMockClock(testStart)
	return payment.NewPaymentService(payment.NewInMemoryRepository(), clock), clock
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()

	p, err := service.Create(ctx, entities.TypeSSEPix, 100, entities.Metadata{"pixKey": "user@example.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, entities.StatusPending, p.Status)
	assert.Equal(t, entities.TypeSSEPix, p.Type)
	assert.Equal(t, 100.0, p.Amount)
	assert.True(t, p.UpdatedAt.Equal(p.CreatedAt))

	other, err := service.Create(ctx, entities.TypeSSEPix, 50, nil)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, other.ID)
}

func TestService_GetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()

	p, err := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	require.NoError(t, err)

	first, exists := service.Get(ctx, p.ID)
	require.True(t, exists)
	for i := 0; i < 10; i++ {
		again, exists := service.Get(ctx, p.ID)
		require.True(t, exists)
		assert.Equal(t, first, again)
	}
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()
	service, clock := newService()

	p, err := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	require.NoError(t, err)

	clock.Sleep(ctx, 6*time.Second)
	updated, exists := service.SetStatus(ctx, p.ID, entities.StatusProcessing)
	require.True(t, exists)
	assert.Equal(t, entities.StatusProcessing, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, exists = service.SetStatus(ctx, "nope", entities.StatusProcessing)
	assert.False(t, exists)
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()

	p, _ := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	updated, exists := service.Complete(ctx, p.ID, true)
	require.True(t, exists)
	assert.Equal(t, entities.StatusCompleted, updated.Status)

	q, _ := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	updated, exists = service.Complete(ctx, q.ID, false)
	require.True(t, exists)
	assert.Equal(t, entities.StatusFailed, updated.Status)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	service, _ := newService()

	p, _ := service.Create(ctx, entities.TypeWebsocketOTP, 100, nil)
	canceled, ok := service.Cancel(ctx, p.ID)
	require.True(t, ok)
	assert.Equal(t, entities.StatusCanceled, canceled.Status)

	// terminal payments cannot be canceled again
	_, ok = service.Cancel(ctx, p.ID)
	assert.False(t, ok)

	_, ok = service.Cancel(ctx, "nope")
	assert.False(t, ok)
}

package payment_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtc-api/internal/payment"
	"rtc-api/internal/payment/entities"
	"rtc-api/internal/testutils"
)

const testDwell = 6 * time.Second

func newEngine(outcome float64) (*payment.Engine, *payment.Service, *testutils.MockClock) {
	clock := testutils.NewMockClock(testStart)
	service := payment.NewPaymentService(payment.NewInMemoryRepository(), clock)
	rnd := &testutils.MockRand{ValInt: 23456, ValFloat: outcome}
	handler := slog.NewTextHandler(io.Discard, nil)
	return payment.NewEngine(service, clock, rnd, testDwell, 0.1, handler), service, clock
}

func statuses(items []payment.Notification) []entities.PaymentStatus {
	var out []entities.PaymentStatus
	for _, n := range items {
		if n.Type == payment.NotificationStatus {
			out = append(out, n.Status)
		}
	}
	return out
}

func TestRunAutonomous_SuccessSequence(t *testing.T) {
	ctx := context.Background()
	engine, service, clock := newEngine(0.9) // 0.9 > 0.1 -> success

	p, err := service.Create(ctx, entities.TypeSSEPix, 100, entities.Metadata{"pixKey": "user@example.com"})
	require.NoError(t, err)

	sink := &testutils.NotificationSink{}
	require.NoError(t, engine.RunAutonomous(ctx, p.ID, sink.Emit))

	assert.Equal(t, []entities.PaymentStatus{
		entities.StatusPending,
		entities.StatusProcessing,
		entities.StatusInTransit,
		entities.StatusCompleted,
	}, statuses(sink.Items()))

	last := sink.Last()
	assert.Equal(t, payment.NotificationComplete, last.Type)
	require.NotNil(t, last.Success)
	assert.True(t, *last.Success)

	persisted, _ := service.Get(ctx, p.ID)
	assert.Equal(t, entities.StatusCompleted, persisted.Status)
	assert.True(t, persisted.UpdatedAt.After(persisted.CreatedAt))

	// one dwell per stage plus one before the outcome draw
	assert.Len(t, clock.Sleeps(), 3)
}

func TestRunAutonomous_TransitionsNeverRevisit(t *testing.T) {
	ctx := context.Background()
	engine, service, _ := newEngine(0.9)

	p, _ := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	sink := &testutils.NotificationSink{}
	require.NoError(t, engine.RunAutonomous(ctx, p.ID, sink.Emit))

	visited := map[entities.PaymentStatus]bool{}
	for _, s := range statuses(sink.Items()) {
		assert.False(t, visited[s], "status %s emitted twice", s)
		visited[s] = true
	}
}

func TestRunAutonomous_Failure(t *testing.T) {
	ctx := context.Background()
	engine, service, _ := newEngine(0.05) // 0.05 <= 0.1 -> failure

	p, _ := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	sink := &testutils.NotificationSink{}
	require.NoError(t, engine.RunAutonomous(ctx, p.ID, sink.Emit))

	seq := statuses(sink.Items())
	assert.Equal(t, entities.StatusFailed, seq[len(seq)-1])

	last := sink.Last()
	require.NotNil(t, last.Success)
	assert.False(t, *last.Success)

	persisted, _ := service.Get(ctx, p.ID)
	assert.Equal(t, entities.StatusFailed, persisted.Status)
}

func TestRunAutonomous_UnknownPayment(t *testing.T) {
	engine, _, _ := newEngine(0.9)

	sink := &testutils.NotificationSink{}
	err := engine.RunAutonomous(context.Background(), "nope", sink.Emit)
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
	assert.Zero(t, sink.Len())
}

func TestRunAutonomous_TerminalReattach(t *testing.T) {
	ctx := context.Background()
	engine, service, clock := newEngine(0.9)

	p, _ := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	service.Complete(ctx, p.ID, true)

	sink := &testutils.NotificationSink{}
	require.NoError(t, engine.RunAutonomous(ctx, p.ID, sink.Emit))

	// terminal status re-delivered once, no timers fired
	items := sink.Items()
	require.Len(t, items, 2)
	assert.Equal(t, entities.StatusCompleted, items[0].Status)
	assert.Equal(t, payment.NotificationComplete, items[1].Type)
	require.NotNil(t, items[1].Success)
	assert.True(t, *items[1].Success)
	assert.Empty(t, clock.Sleeps())
}

func TestRunAutonomous_ResumesMidProgression(t *testing.T) {
	ctx := context.Background()
	engine, service, _ := newEngine(0.9)

	p, _ := service.Create(ctx, entities.TypeSSEPix, 100, nil)
	service.SetStatus(ctx, p.ID, entities.StatusProcessing)

	sink := &testutils.NotificationSink{}
	require.NoError(t, engine.RunAutonomous(ctx, p.ID, sink.Emit))

	assert.Equal(t, []entities.PaymentStatus{
		entities.StatusProcessing,
		entities.StatusInTransit,
		entities.StatusCompleted,
	}, statuses(sink.Items()))
}

func TestRunAutonomous_CanceledBeforeFirstStage(t *testing.T) {
	engine, service, _ := newEngine(0.9)

	p, _ := service.Create(context.Background(), entities.TypeSSEPix, 100, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &testutils.NotificationSink{}
	err := engine.RunAutonomous(ctx, p.ID, sink.Emit)
	assert.ErrorIs(t, err, context.Canceled)

	// only the initial status was delivered and nothing was persisted
	assert.Equal(t, 1, sink.Len())
	persisted, _ := service.Get(context.Background(), p.ID)
	assert.Equal(t, entities.StatusPending, persisted.Status)
}

func TestRunAutonomous_WrongTypeRejected(t *testing.T) {
	engine, service, _ := newEngine(0.9)

	p, _ := service.Create(context.Background(), entities.TypeWebsocketOTP, 100, nil)

	sink := &testutils.NotificationSink{}
	err := engine.RunAutonomous(context.Background(), p.ID, sink.Emit)
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)

	assert.Equal(t, 0, sink.Len())
	persisted, _ := service.Get(context.Background(), p.ID)
	assert.Equal(t, entities.StatusPending, persisted.Status)
}

package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"rtc-api/internal/payment/entities"
	"rtc-api/internal/simulation"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Service owns record creation and persistence. It runs no legality checks on
// status transitions; that is the progression engine's job.
type Service struct {
	paymentRepository Repository
	clock             simulation.Clock
}

func NewPaymentService(repo Repository, clock simulation.Clock) *Service {
	return &Service{paymentRepository: repo, clock: clock}
}

func (s *Service) Create(ctx context.Context, paymentType entities.PaymentType, amount float64, metadata entities.Metadata) (entities.Payment, error) {
	now := s.clock.Now().UTC()
	p := entities.Payment{
		ID:        uuid.NewString(),
		Type:      paymentType,
		Amount:    amount,
		Status:    entities.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	if err := s.paymentRepository.Save(ctx, p); err != nil {
		return entities.Payment{}, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (entities.Payment, bool) {
	return s.paymentRepository.Get(ctx, id)
}

func (s *Service) SetStatus(ctx context.Context, id string, status entities.PaymentStatus) (entities.Payment, bool) {
	return s.paymentRepository.UpdateStatus(ctx, id, status, s.clock.Now().UTC())
}

func (s *Service) Complete(ctx context.Context, id string, success bool) (entities.Payment, bool) {
	status := entities.StatusCompleted
	if !success {
		status = entities.StatusFailed
	}
	return s.SetStatus(ctx, id, status)
}

// Cancel moves a non-terminal payment to canceled. Part of the status
// taxonomy; no transport drives it today.
func (s *Service) Cancel(ctx context.Context, id string) (entities.Payment, bool) {
	p, exists := s.paymentRepository.Get(ctx, id)
	if !exists {
		return entities.Payment{}, false
	}
	if p.Status.Terminal() {
		return p, false
	}
	return s.SetStatus(ctx, id, entities.StatusCanceled)
}

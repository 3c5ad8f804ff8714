package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/robbyt/go-fsm"

	"rtc-api/internal/payment/entities"
	"rtc-api/internal/simulation"
)

const (
	NotificationConnected = "connected"
	NotificationStatus    = "status"
	NotificationOTPSent   = "otp_sent"
	NotificationComplete  = "complete"
	NotificationError     = "error"
)

// Notification is one server-to-client message. SSE maps Type to the event
// name; the websocket channel sends it as-is.
type Notification struct {
	Type      string                 `json:"type"`
	Status    entities.PaymentStatus `json:"status,omitempty"`
	Message   string                 `json:"message,omitempty"`
	OTP       string                 `json:"otp,omitempty"`
	Success   *bool                  `json:"success,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

var pixMessages = map[entities.PaymentStatus]string{
	entities.StatusPending:    "Payment initiated, waiting for PIX confirmation...",
	entities.StatusProcessing: "PIX payment detected, processing...",
	entities.StatusInTransit:  "Payment in transit to merchant account...",
	entities.StatusCompleted:  "Payment completed successfully!",
	entities.StatusFailed:     "Payment failed due to insufficient funds",
	entities.StatusCanceled:   "Payment canceled",
}

// pixStages are the intermediate stops of the autonomous discipline; the
// terminal stage is decided by the outcome draw.
var pixStages = []entities.PaymentStatus{entities.StatusProcessing, entities.StatusInTransit}

// Engine drives a payment through its status graph, persisting every
// transition and emitting one notification per transition. Clock and Rand are
// injected so tests can force timing and outcomes.
type Engine struct {
	service     *Service
	clock       simulation.Clock
	rand        simulation.Rand
	stageDwell  time.Duration
	failureRate float64
	logHandler  slog.Handler
}

func NewEngine(service *Service, clock simulation.Clock, rnd simulation.Rand, stageDwell time.Duration, failureRate float64, logHandler slog.Handler) *Engine {
	return &Engine{
		service:     service,
		clock:       clock,
		rand:        rnd,
		stageDwell:  stageDwell,
		failureRate: failureRate,
		logHandler:  logHandler,
	}
}

func (e *Engine) Service() *Service { return e.service }

func (e *Engine) newMachine(current entities.PaymentStatus) (*fsm.Machine, error) {
	return fsm.New(e.logHandler, string(current), entities.StatusTransitions)
}

func (e *Engine) stamp() string {
	return e.clock.Now().UTC().Format(time.RFC3339)
}

func (e *Engine) drawOutcome() bool {
	return e.rand.Float64() > e.failureRate
}

func (e *Engine) statusNotification(status entities.PaymentStatus, message string) Notification {
	return Notification{
		Type:      NotificationStatus,
		Status:    status,
		Message:   message,
		Timestamp: e.stamp(),
	}
}

func (e *Engine) completeNotification(success bool) Notification {
	return Notification{
		Type:      NotificationComplete,
		Success:   &success,
		Timestamp: e.stamp(),
	}
}

// RunAutonomous executes the timer-driven PIX discipline for one attached
// stream: emit the current status, then advance one stage per dwell until a
// terminal status, persisting each transition. The success draw happens once,
// at the final stage. Attaching to an already-terminal payment re-delivers
// the terminal status and the complete flag without starting any timer.
// Canceling ctx stops the run before the next transition is persisted.
// Payments of another transport's type are treated as not found.
func (e *Engine) RunAutonomous(ctx context.Context, id string, emit func(Notification)) error {
	p, exists := e.service.Get(ctx, id)
	if !exists || p.Type != entities.TypeSSEPix {
		return ErrPaymentNotFound
	}

	emit(e.statusNotification(p.Status, pixMessages[p.Status]))

	if p.Status.Terminal() {
		emit(e.completeNotification(p.Status == entities.StatusCompleted))
		return nil
	}

	machine, err := e.newMachine(p.Status)
	if err != nil {
		return err
	}

	for _, stage := range remainingStages(p.Status) {
		if err := e.clock.Sleep(ctx, e.stageDwell); err != nil {
			return err
		}
		if err := machine.Transition(string(stage)); err != nil {
			return err
		}
		if _, ok := e.service.SetStatus(ctx, id, stage); !ok {
			return ErrPaymentNotFound
		}
		emit(e.statusNotification(stage, pixMessages[stage]))
	}

	if err := e.clock.Sleep(ctx, e.stageDwell); err != nil {
		return err
	}

	success := e.drawOutcome()
	final := entities.StatusCompleted
	if !success {
		final = entities.StatusFailed
	}
	if err := machine.Transition(string(final)); err != nil {
		return err
	}
	if _, ok := e.service.Complete(ctx, id, success); !ok {
		return ErrPaymentNotFound
	}
	emit(e.statusNotification(final, pixMessages[final]))
	emit(e.completeNotification(success))

	slog.Info("payment progression finished", "paymentId", id, "status", final)
	return nil
}

// remainingStages returns the intermediate stages still ahead of the current
// status, so a stream re-attached mid-progression resumes where it left off.
func remainingStages(current entities.PaymentStatus) []entities.PaymentStatus {
	for i, stage := range pixStages {
		if stage == current {
			return pixStages[i+1:]
		}
	}
	return pixStages
}

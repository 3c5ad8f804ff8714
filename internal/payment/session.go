package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robbyt/go-fsm"

	"rtc-api/internal/payment/entities"
)

const (
	MessageStartPayment = "start_payment"
	MessageVerifyOTP    = "verify_otp"
)

// ClientMessage is one inbound request on the duplex channel.
type ClientMessage struct {
	Type string `json:"type"`
	OTP  string `json:"otp,omitempty"`
}

var cardMessages = map[entities.PaymentStatus]string{
	entities.StatusProcessing:  "Processing credit card payment...",
	entities.StatusOTPSent:     "OTP sent to your registered mobile number",
	entities.StatusOTPVerified: "OTP verified successfully!",
	entities.StatusCompleted:   "Payment completed successfully!",
	entities.StatusFailed:      "Payment failed - card declined",
	entities.StatusCanceled:    "Payment canceled",
}

// Session runs the message-driven OTP discipline for one payment bound to one
// live channel. The pending OTP lives only here; it is never persisted and
// dies with the connection. Retries are unbounded, matching the source
// behavior. All transitions for the payment are serialized by mu.
type Session struct {
	engine    *Engine
	paymentID string
	send      func(Notification)

	mu      sync.Mutex
	machine *fsm.Machine
	otp     string

	done     chan struct{}
	finished bool
}

func NewSession(engine *Engine, paymentID string, send func(Notification)) *Session {
	return &Session{
		engine:    engine,
		paymentID: paymentID,
		send:      send,
		done:      make(chan struct{}),
	}
}

// Done is closed after the complete notification has been sent; the adapter
// shuts the connection down when it fires.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Connected() {
	s.send(Notification{
		Type:      NotificationConnected,
		Message:   "WebSocket connection established",
		Timestamp: s.engine.stamp(),
	})
}

// HandleMessage parses and dispatches one inbound payload. Malformed input
// degrades to an error notification; the channel stays open.
func (s *Session) HandleMessage(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid websocket payload", "paymentId", s.paymentID, "error", err)
		s.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case MessageStartPayment:
		s.start(ctx)
	case MessageVerifyOTP:
		s.verify(ctx, msg.OTP)
	default:
		s.sendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (s *Session) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// messages racing the close of the channel are dropped
	if s.finished {
		return
	}

	p, exists := s.engine.service.Get(ctx, s.paymentID)
	if !exists || p.Type != entities.TypeWebsocketOTP {
		s.sendError("Payment not found")
		return
	}

	if p.Status.Terminal() {
		s.send(s.engine.statusNotification(p.Status, cardMessages[p.Status]))
		s.send(s.engine.completeNotification(p.Status == entities.StatusCompleted))
		s.finish()
		return
	}

	if err := s.transition(entities.StatusProcessing, p.Status); err != nil {
		s.sendError("Payment already in progress")
		return
	}
	s.engine.service.SetStatus(ctx, s.paymentID, entities.StatusProcessing)
	s.send(s.engine.statusNotification(entities.StatusProcessing, cardMessages[entities.StatusProcessing]))

	go s.sendOTP(ctx)
}

func (s *Session) sendOTP(ctx context.Context) {
	if err := s.engine.clock.Sleep(ctx, s.engine.stageDwell); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(entities.StatusOTPSent, ""); err != nil {
		return
	}
	s.engine.service.SetStatus(ctx, s.paymentID, entities.StatusOTPSent)

	code := fmt.Sprintf("%06d", 100000+s.engine.rand.Intn(900000))
	s.otp = code

	s.send(Notification{
		Type:      NotificationOTPSent,
		Status:    entities.StatusOTPSent,
		Message:   cardMessages[entities.StatusOTPSent],
		OTP:       code,
		Timestamp: s.engine.stamp(),
	})
}

func (s *Session) verify(ctx context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}

	p, exists := s.engine.service.Get(ctx, s.paymentID)
	if !exists {
		s.sendError("Payment not found")
		return
	}

	// A verify before any OTP was generated counts as a mismatch.
	if s.otp == "" || code != s.otp {
		s.sendError("Invalid OTP. Please try again.")
		return
	}

	if err := s.transition(entities.StatusOTPVerified, p.Status); err != nil {
		s.sendError("Payment already in progress")
		return
	}
	s.engine.service.SetStatus(ctx, s.paymentID, entities.StatusOTPVerified)
	s.send(s.engine.statusNotification(entities.StatusOTPVerified, cardMessages[entities.StatusOTPVerified]))

	go s.resolve(ctx)
}

func (s *Session) resolve(ctx context.Context) {
	if err := s.engine.clock.Sleep(ctx, s.engine.stageDwell); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	success := s.engine.drawOutcome()
	final := entities.StatusCompleted
	if !success {
		final = entities.StatusFailed
	}
	if err := s.transition(final, ""); err != nil {
		return
	}
	s.engine.service.Complete(ctx, s.paymentID, success)

	s.send(s.engine.statusNotification(final, cardMessages[final]))
	s.send(s.engine.completeNotification(success))

	slog.Info("payment progression finished", "paymentId", s.paymentID, "status", final)
	s.finish()
}

// transition applies one fsm step, building the machine from the persisted
// status on first use so a reconnected session resumes mid-graph. Callers
// hold mu.
func (s *Session) transition(to, current entities.PaymentStatus) error {
	if s.machine == nil {
		if current == "" {
			p, exists := s.engine.service.Get(context.Background(), s.paymentID)
			if !exists {
				return ErrPaymentNotFound
			}
			current = p.Status
		}
		machine, err := s.engine.newMachine(current)
		if err != nil {
			return err
		}
		s.machine = machine
	}
	return s.machine.Transition(string(to))
}

func (s *Session) sendError(message string) {
	s.send(Notification{
		Type:      NotificationError,
		Message:   message,
		Timestamp: s.engine.stamp(),
	})
}

func (s *Session) finish() {
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}

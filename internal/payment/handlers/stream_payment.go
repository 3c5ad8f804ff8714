package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rtc-api/internal/payment"
	"rtc-api/internal/payment/entities"
)

// StreamPaymentHandler binds the autonomous discipline to a server-sent event
// stream. One attach runs one full progression; the stream closes after the
// complete event or after an error event.
type StreamPaymentHandler struct {
	paymentService *payment.Service
	engine         *payment.Engine
}

func NewStreamPaymentHandler(s *payment.Service, engine *payment.Engine) *StreamPaymentHandler {
	return &StreamPaymentHandler{paymentService: s, engine: engine}
}

func (h *StreamPaymentHandler) Handle(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	if p, exists := h.paymentService.Get(ctx, id); !exists || p.Type != entities.TypeSSEPix {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Payment not found"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	h.run(ctx, id, func(n payment.Notification) {
		writeEvent(res, n)
	})
	return nil
}

func (h *StreamPaymentHandler) run(ctx context.Context, id string, emit func(payment.Notification)) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("payment stream panic", "paymentId", id, "error", rec)
			emit(errorNotification())
		}
	}()

	err := h.engine.RunAutonomous(ctx, id, emit)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	slog.Error("payment stream failed", "paymentId", id, "error", err)
	emit(errorNotification())
}

func errorNotification() payment.Notification {
	return payment.Notification{
		Type:      payment.NotificationError,
		Error:     "Payment processing failed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func writeEvent(res *echo.Response, n payment.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	fmt.Fprintf(res, "event: %s\ndata: %s\n\n", n.Type, data)
	res.Flush()
}

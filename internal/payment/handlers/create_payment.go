package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"rtc-api/internal/payment"
	"rtc-api/internal/payment/entities"
)

type CreatePaymentRequest struct {
	Type     string         `json:"type"`
	Amount   float64        `json:"amount"`
	Metadata map[string]any `json:"metadata"`
}

type PaymentResponse struct {
	Success bool             `json:"success"`
	Data    entities.Payment `json:"data"`
}

// CreatePaymentHandler validates and creates one payment of a fixed type.
// The SSE route requires a pixKey, the websocket route a cardNumber; both are
// wired as separate instances of this handler.
type CreatePaymentHandler struct {
	paymentService *payment.Service
	paymentType    entities.PaymentType
	metadataKey    string
}

func NewCreatePaymentHandler(s *payment.Service, paymentType entities.PaymentType, metadataKey string) *CreatePaymentHandler {
	return &CreatePaymentHandler{
		paymentService: s,
		paymentType:    paymentType,
		metadataKey:    metadataKey,
	}
}

func (h *CreatePaymentHandler) Handle(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Type != string(h.paymentType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payment type"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payment amount"})
	}
	value, ok := req.Metadata[h.metadataKey].(string)
	if !ok || value == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": h.metadataKey + " is required"})
	}

	metadata := entities.Metadata{h.metadataKey: value}
	if h.paymentType == entities.TypeWebsocketOTP {
		metadata["otpSent"] = false
	}

	p, err := h.paymentService.Create(c.Request().Context(), h.paymentType, req.Amount, metadata)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create payment"})
	}

	return c.JSON(http.StatusOK, PaymentResponse{Success: true, Data: p})
}

package entities

import "time"

type PaymentStatus string

const (
	StatusPending     PaymentStatus = "pending"
	StatusProcessing  PaymentStatus = "processing"
	StatusInTransit   PaymentStatus = "in_transit"
	StatusOTPSent     PaymentStatus = "otp_sent"
	StatusOTPVerified PaymentStatus = "otp_verified"
	StatusCompleted   PaymentStatus = "completed"
	StatusFailed      PaymentStatus = "failed"
	StatusCanceled    PaymentStatus = "canceled"
)

// StatusTransitions is the allowed state graph, consumed by fsm.New. Terminal
// states keep empty lists so the machine rejects any further transition.
var StatusTransitions = map[string][]string{
	string(StatusPending):     {string(StatusProcessing), string(StatusCanceled)},
	string(StatusProcessing):  {string(StatusInTransit), string(StatusOTPSent), string(StatusCanceled)},
	string(StatusInTransit):   {string(StatusCompleted), string(StatusFailed), string(StatusCanceled)},
	string(StatusOTPSent):     {string(StatusOTPVerified), string(StatusCanceled)},
	string(StatusOTPVerified): {string(StatusCompleted), string(StatusFailed), string(StatusCanceled)},
	string(StatusCompleted):   {},
	string(StatusFailed):      {},
	string(StatusCanceled):    {},
}

func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

type PaymentType string

const (
	TypePollingStock PaymentType = "polling-stock"
	TypeSSEPix       PaymentType = "sse-pix"
	TypeWebsocketOTP PaymentType = "websocket-otp"
)

// Metadata holds creation-time attributes of a payment (pixKey, cardNumber).
// Session-ephemeral values such as a pending OTP never land here.
type Metadata map[string]any

type Payment struct {
	ID        string        `json:"id"`
	Type      PaymentType   `json:"type"`
	Amount    float64       `json:"amount"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Metadata  Metadata      `json:"metadata,omitempty"`
}

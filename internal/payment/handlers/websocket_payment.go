package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"rtc-api/internal/payment"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 512 * 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// PaymentSocketHandler binds the message-driven OTP discipline to a websocket
// channel. The connection context cancels any pending stage timer, so a
// detached client never causes another store write.
type PaymentSocketHandler struct {
	engine *payment.Engine
}

func NewPaymentSocketHandler(engine *payment.Engine) *PaymentSocketHandler {
	return &PaymentSocketHandler{engine: engine}
}

func (h *PaymentSocketHandler) Handle(c echo.Context) error {
	id := c.Param("id")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	send := make(chan []byte, sendBufferSize)

	session := payment.NewSession(h.engine, id, func(n payment.Notification) {
		data, err := json.Marshal(n)
		if err != nil {
			return
		}
		select {
		case send <- data:
		default:
			// drop on backpressure rather than block the session
		}
	})

	go h.writePump(ctx, conn, send, session.Done())

	session.Connected()
	h.readPump(ctx, conn, session)

	cancel()
	slog.Info("websocket connection closed", "paymentId", id)
	return nil
}

func (h *PaymentSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, session *payment.Session) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		session.HandleMessage(ctx, data)
	}
}

// writePump owns all writes on the connection. The send channel is never
// closed; when done fires the pump drains what is already buffered, writes a
// close frame and shuts the connection down.
func (h *PaymentSocketHandler) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-done:
			for {
				select {
				case msg := <-send:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

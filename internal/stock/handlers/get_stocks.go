package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"rtc-api/internal/stock"
)

type StocksResponse struct {
	Success bool              `json:"success"`
	Data    []stock.StockQuote `json:"data"`
}

type StockResponse struct {
	Success bool             `json:"success"`
	Data    stock.StockQuote `json:"data"`
}

// GetStocksHandler is the stateless polling adapter: every call recomputes
// the quotes, no session, no payment coupling.
type GetStocksHandler struct {
	stocks *stock.Repository
}

func NewGetStocksHandler(stocks *stock.Repository) *GetStocksHandler {
	return &GetStocksHandler{stocks: stocks}
}

func (h *GetStocksHandler) Handle(c echo.Context) error {
	quotes := h.stocks.QuoteAll()
	slog.Info("stocks fetched", "count", len(quotes))
	return c.JSON(http.StatusOK, StocksResponse{Success: true, Data: quotes})
}

func (h *GetStocksHandler) HandleBySymbol(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	quote, exists := h.stocks.Quote(symbol)
	if !exists {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "error": "Stock not found"})
	}
	return c.JSON(http.StatusOK, StockResponse{Success: true, Data: quote})
}

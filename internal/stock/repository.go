package stock

import (
	"sync"
	"time"

	"rtc-api/internal/simulation"
)

type StockQuote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// priceFloor keeps the walk strictly positive no matter how long it trends
// down.
const priceFloor = 1.0

var seedData = []struct {
	symbol    string
	basePrice float64
}{
	{"AAPL", 150},
	{"GOOGL", 140},
	{"MSFT", 300},
	{"TSLA", 200},
	{"AMZN", 130},
}

// Repository holds the seeded quotes and mutates them in place on every read,
// simulating drift even under concurrent pollers. Quotes keep insertion
// order.
type Repository struct {
	mu     sync.Mutex
	stocks map[string]*StockQuote
	order  []string
	rand   simulation.Rand
	clock  simulation.Clock
}

func NewRepository(rnd simulation.Rand, clock simulation.Clock) *Repository {
	r := &Repository{
		stocks: make(map[string]*StockQuote),
		rand:   rnd,
		clock:  clock,
	}

	for _, seed := range seedData {
		variation := (rnd.Float64() - 0.5) * 0.1
		r.stocks[seed.symbol] = &StockQuote{
			Symbol:      seed.symbol,
			Price:       seed.basePrice * (1 + variation),
			LastUpdated: clock.Now().UTC(),
		}
		r.order = append(r.order, seed.symbol)
	}
	return r
}

// Quote recomputes and returns a single quote. Volatility 0.5%-2%.
func (r *Repository) Quote(symbol string) (StockQuote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.stocks[symbol]
	if !exists {
		return StockQuote{}, false
	}
	r.walk(s, 0.005, 0.02)
	return *s, true
}

// QuoteAll recomputes every seeded quote and returns them in insertion order.
// Volatility 0.3%-1.5%.
func (r *Repository) QuoteAll() []StockQuote {
	r.mu.Lock()
	defer r.mu.Unlock()

	quotes := make([]StockQuote, 0, len(r.order))
	for _, symbol := range r.order {
		s := r.stocks[symbol]
		r.walk(s, 0.003, 0.015)
		quotes = append(quotes, *s)
	}
	return quotes
}

func (r *Repository) walk(s *StockQuote, volMin, volMax float64) {
	volatility := volMin + r.rand.Float64()*(volMax-volMin)
	direction := 1.0
	if r.rand.Float64() <= 0.5 {
		direction = -1.0
	}

	newPrice := s.Price * (1 + direction*volatility)
	if newPrice < priceFloor {
		newPrice = priceFloor
	}

	s.Change = newPrice - s.Price
	s.ChangePercent = direction * volatility * 100
	s.Price = newPrice
	s.LastUpdated = r.clock.Now().UTC()
}

package stock_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtc-api/internal/simulation"
	"rtc-api/internal/stock"
	"rtc-api/internal/testutils"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRepository_SeedsFiveSymbolsInOrder(t *testing.T) {
	repo := stock.NewRepository(&testutils.MockRand{ValFloat: 0.5}, testutils.NewMockClock(testStart))

	quotes := repo.QuoteAll()
	require.Len(t, quotes, 5)

	var symbols []string
	for _, q := range quotes {
		symbols = append(symbols, q.Symbol)
	}
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"}, symbols)

	// order is stable across reads
	again := repo.QuoteAll()
	for i, q := range again {
		assert.Equal(t, symbols[i], q.Symbol)
	}
}

func TestQuote_UnknownSymbol(t *testing.T) {
	repo := stock.NewRepository(&testutils.MockRand{ValFloat: 0.5}, testutils.NewMockClock(testStart))

	_, exists := repo.Quote("NOPE")
	assert.False(t, exists)
}

func TestQuote_ChangeConsistency(t *testing.T) {
	repo := stock.NewRepository(&testutils.MockRand{ValFloat: 0.7}, testutils.NewMockClock(testStart))

	before, exists := repo.Quote("AAPL")
	require.True(t, exists)

	after, exists := repo.Quote("AAPL")
	require.True(t, exists)

	assert.InDelta(t, after.Price-before.Price, after.Change, 1e-9)
	assert.InDelta(t, (after.Price-before.Price)/before.Price*100, after.ChangePercent, 1e-9)
	// ValFloat 0.7 -> upward walk with volatility 0.005 + 0.7*0.015
	assert.InDelta(t, (0.005+0.7*0.015)*100, after.ChangePercent, 1e-9)
}

func TestQuote_PriceNeverBelowFloor(t *testing.T) {
	// ValFloat 0 forces a permanent downward walk
	repo := stock.NewRepository(&testutils.MockRand{ValFloat: 0}, testutils.NewMockClock(testStart))

	for i := 0; i < 5000; i++ {
		q, exists := repo.Quote("AMZN")
		require.True(t, exists)
		require.GreaterOrEqual(t, q.Price, 1.0)
	}

	// after thousands of downward steps the floor must have engaged
	q, _ := repo.Quote("AMZN")
	assert.Equal(t, 1.0, q.Price)
}

func TestQuoteAll_PricesStayPositive(t *testing.T) {
	repo := stock.NewRepository(&testutils.MockRand{ValFloat: 0}, testutils.NewMockClock(testStart))

	for i := 0; i < 5000; i++ {
		for _, q := range repo.QuoteAll() {
			require.GreaterOrEqual(t, q.Price, 1.0)
		}
	}
}

func TestQuoteAll_ConcurrentPollers(t *testing.T) {
	repo := stock.NewRepository(simulation.RealRand{}, simulation.RealClock{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				quotes := repo.QuoteAll()
				assert.Len(t, quotes, 5)
				for _, q := range quotes {
					assert.False(t, math.IsNaN(q.Price))
					assert.GreaterOrEqual(t, q.Price, 1.0)
				}
			}
		}()
	}
	wg.Wait()
}

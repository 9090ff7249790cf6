package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"RLTrader/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData map[string][]model.OHLCV
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if bars, ok := m.DailyData[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, symbol string) (float64, error) {
	if bars := m.DailyData[symbol]; len(bars) > 0 {
		return bars[len(bars)-1].Close, nil
	}
	return m.Price, nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Instrument maps an instrument name to the fetcher's ticker symbol.
type Instrument struct {
	Name   string
	Symbol string
}

// Collector orchestrates data fetching for the traded instruments.
type Collector struct {
	Fetcher     Fetcher
	Instruments []Instrument
	Days        int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, days int, instruments ...Instrument) *Collector {
	return &Collector{Fetcher: fetcher, Instruments: instruments, Days: days}
}

// Snapshot fetches the recent daily history of every instrument. The last
// bar's close is refreshed with the current price when it is available.
func (c *Collector) Snapshot(ctx context.Context) (*model.StockMarketData, error) {
	data := model.NewStockMarketData()
	for _, in := range c.Instruments {
		bars, err := c.Fetcher.FetchDailyBars(ctx, in.Symbol, c.Days)
		if err != nil {
			return nil, fmt.Errorf("fetch daily bars %s: %w", in.Symbol, err)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("fetch daily bars %s: no data", in.Symbol)
		}
		bars = append([]model.OHLCV(nil), bars...)
		if price, err := c.Fetcher.FetchCurrentPrice(ctx, in.Symbol); err != nil {
			log.Printf("[WARN] current price for %s failed: %v, using last close", in.Symbol, err)
		} else if price > 0 {
			bars[len(bars)-1].Close = price
		}
		data.Add(in.Name, bars)
	}
	return data, nil
}

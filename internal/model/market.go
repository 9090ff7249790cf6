package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// StockMarketData holds time-ordered bars per instrument.
type StockMarketData struct {
	Series map[string][]OHLCV
}

// NewStockMarketData creates an empty StockMarketData.
func NewStockMarketData() *StockMarketData {
	return &StockMarketData{Series: make(map[string][]OHLCV)}
}

// Add sets the bar history for an instrument. Bars must be sorted oldest first.
func (d *StockMarketData) Add(instrument string, bars []OHLCV) {
	if d.Series == nil {
		d.Series = make(map[string][]OHLCV)
	}
	d.Series[instrument] = bars
}

// Price returns the most recent close for the instrument.
func (d *StockMarketData) Price(instrument string) (float64, bool) {
	bars := d.Series[instrument]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

// Closes returns the close history for the instrument, oldest first.
func (d *StockMarketData) Closes(instrument string) []float64 {
	bars := d.Series[instrument]
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Len returns the length of the shortest series, i.e. the number of steps
// for which every instrument has a bar.
func (d *StockMarketData) Len() int {
	n := -1
	for _, bars := range d.Series {
		if n < 0 || len(bars) < n {
			n = len(bars)
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// Until returns a view containing bars [0, i] of every series.
func (d *StockMarketData) Until(i int) *StockMarketData {
	view := &StockMarketData{Series: make(map[string][]OHLCV, len(d.Series))}
	for name, bars := range d.Series {
		end := i + 1
		if end > len(bars) {
			end = len(bars)
		}
		view.Series[name] = bars[:end]
	}
	return view
}

// Time returns the timestamp of the most recent bar of the instrument.
func (d *StockMarketData) Time(instrument string) time.Time {
	bars := d.Series[instrument]
	if len(bars) == 0 {
		return time.Time{}
	}
	return bars[len(bars)-1].Time
}

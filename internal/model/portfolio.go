package model

import "time"

// Holding is a quantity of shares of one instrument.
type Holding struct {
	Instrument string `json:"instrument"`
	Quantity   int    `json:"quantity"`
}

// Portfolio is the cash and ordered holdings of a trader.
type Portfolio struct {
	Name      string    `json:"name"`
	Cash      float64   `json:"cash"`
	Holdings  []Holding `json:"holdings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quantity returns the held quantity of the instrument, 0 if none.
func (p Portfolio) Quantity(instrument string) int {
	for _, h := range p.Holdings {
		if h.Instrument == instrument {
			return h.Quantity
		}
	}
	return 0
}

// Value returns cash plus holdings valued at the latest market prices.
// Holdings without a price contribute nothing.
func (p Portfolio) Value(market *StockMarketData) float64 {
	total := p.Cash
	for _, h := range p.Holdings {
		if price, ok := market.Price(h.Instrument); ok {
			total += price * float64(h.Quantity)
		}
	}
	return total
}

// Clone returns a deep copy.
func (p Portfolio) Clone() Portfolio {
	c := p
	c.Holdings = append([]Holding(nil), p.Holdings...)
	return c
}

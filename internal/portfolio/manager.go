package portfolio

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"RLTrader/internal/model"
)

var (
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// cashTolerance absorbs float rounding between the order sizing and the ledger.
var cashTolerance = decimal.New(1, -6)

// Execution is one applied trading action.
type Execution struct {
	Action model.TradingAction
	Price  float64
	Amount float64 // cash paid (buy) or received (sell)
}

// Fill summarizes an Apply call.
type Fill struct {
	Executions []Execution
	CashBefore float64
	CashAfter  float64
}

// Manager is a paper portfolio ledger with concurrency safety. When filePath
// is set every change is persisted.
type Manager struct {
	mu       sync.Mutex
	state    *model.Portfolio
	filePath string
}

// NewManager creates a Manager, loading state from disk or starting with initialCash.
func NewManager(filePath, name string, initialCash float64) (*Manager, error) {
	var state *model.Portfolio
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, fmt.Errorf("load portfolio: %w", err)
		}
	}
	if state == nil {
		state = &model.Portfolio{Name: name, Cash: initialCash}
	}

	m := &Manager{state: state, filePath: filePath}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Portfolio returns a copy of the current portfolio.
func (m *Manager) Portfolio() model.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Value returns cash plus holdings at the latest prices of market.
func (m *Manager) Value(market *model.StockMarketData) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Value(market)
}

// Apply executes actions in order at the latest prices. Either every action
// is applied or none is.
func (m *Manager) Apply(actions model.TradingActionList, market *model.StockMarketData) (Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	cash := decimal.NewFromFloat(next.Cash)
	fill := Fill{CashBefore: next.Cash}

	for _, a := range actions {
		if a.Amount <= 0 {
			return Fill{}, fmt.Errorf("apply %v: amount must be positive", a)
		}
		price, ok := market.Price(a.Instrument)
		if !ok || price <= 0 {
			return Fill{}, fmt.Errorf("apply %v: no price", a)
		}
		value := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(a.Amount)))
		held := next.Quantity(a.Instrument)

		switch a.Direction {
		case model.Buy:
			if value.Sub(cash).GreaterThan(cashTolerance) {
				return Fill{}, fmt.Errorf("apply %v: costs %s with %s available: %w", a, value.StringFixed(2), cash.StringFixed(2), ErrInsufficientCash)
			}
			cash = cash.Sub(value)
			if cash.IsNegative() {
				cash = decimal.Zero
			}
			setQuantity(&next, a.Instrument, held+a.Amount)
		case model.Sell:
			if a.Amount > held {
				return Fill{}, fmt.Errorf("apply %v: %d held: %w", a, held, ErrInsufficientHoldings)
			}
			cash = cash.Add(value)
			setQuantity(&next, a.Instrument, held-a.Amount)
		default:
			return Fill{}, fmt.Errorf("apply %v: unknown direction", a)
		}
		fill.Executions = append(fill.Executions, Execution{Action: a, Price: price, Amount: value.InexactFloat64()})
	}

	next.Cash = cash.InexactFloat64()
	fill.CashAfter = next.Cash
	*m.state = next

	if len(actions) > 0 {
		if err := m.save(); err != nil {
			log.Printf("[ERROR] failed to save portfolio state: %v", err)
		}
	}
	return fill, nil
}

// Reset clears all holdings and sets cash.
func (m *Manager) Reset(cash float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Cash = cash
	m.state.Holdings = nil

	if err := m.save(); err != nil {
		log.Printf("[ERROR] failed to save portfolio state after reset: %v", err)
	}
}

func setQuantity(p *model.Portfolio, instrument string, qty int) {
	for i := range p.Holdings {
		if p.Holdings[i].Instrument == instrument {
			if qty == 0 {
				p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
				return
			}
			p.Holdings[i].Quantity = qty
			return
		}
	}
	if qty > 0 {
		p.Holdings = append(p.Holdings, model.Holding{Instrument: instrument, Quantity: qty})
	}
}

func (m *Manager) save() error {
	if m.filePath == "" {
		return nil
	}
	return SaveState(m.filePath, m.state)
}

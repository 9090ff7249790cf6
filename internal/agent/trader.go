package agent

import (
	"RLTrader/internal/model"
)

// Trader adapts the engine to the portfolio evaluation harness. It owns the
// episode session.
type Trader struct {
	engine  *Engine
	session Session
	last    Decision
}

// NewTrader returns a trader starting COLD.
func NewTrader(e *Engine) *Trader {
	return &Trader{engine: e}
}

// DoTrade decides the trading actions for the current step. value is the
// portfolio value at the current prices as computed by the harness. done
// marks the last step of an episode.
func (t *Trader) DoTrade(p model.Portfolio, value float64, market *model.StockMarketData, done bool) (model.TradingActionList, error) {
	d, next, err := t.engine.Step(t.session, Input{
		Portfolio:      p,
		PortfolioValue: value,
		Market:         market,
		Done:           done,
	})
	if err != nil {
		return nil, err
	}
	t.session = next
	t.last = d
	return d.Actions, nil
}

// NewEpisode forgets the previous decision so the next call starts COLD.
func (t *Trader) NewEpisode() {
	t.session = Session{}
}

// LastDecision returns the details of the most recent successful DoTrade.
func (t *Trader) LastDecision() Decision { return t.last }

// Engine returns the underlying engine.
func (t *Trader) Engine() *Engine { return t.engine }

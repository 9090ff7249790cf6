package notifier

import (
	"fmt"
	"strings"
	"time"

	"RLTrader/internal/model"
)

// TradeReport is the content of a trade tick notification.
type TradeReport struct {
	Time     time.Time
	State    model.State
	ActionA  float64
	ActionB  float64
	Explored bool
	Actions  model.TradingActionList
	Value    float64
	Epsilon  float64
}

// Status is the agent and ledger summary shown by /status.
type Status struct {
	Epsilon    float64
	MemoryLen  int
	TrainSteps int
	LastTick   time.Time
	Value      float64
	Portfolio  model.Portfolio
}

// FormatTradeReport formats one decision step into a Telegram message.
func FormatTradeReport(r TradeReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🤖 <b>RLTrader</b> | %s\n\n", r.Time.Format("2006-01-02 15:04")))
	s := r.State
	b.WriteString(fmt.Sprintf("A: %.2f → %.2f (held %d)\n", s.PriceA, s.PredictedA, s.HoldingA))
	b.WriteString(fmt.Sprintf("B: %.2f → %.2f (held %d)\n", s.PriceB, s.PredictedB, s.HoldingB))

	mode := "greedy"
	if r.Explored {
		mode = "explore"
	}
	b.WriteString(fmt.Sprintf("Action: %+.3f / %+.3f (%s, ε %.3f)\n\n", r.ActionA, r.ActionB, mode, r.Epsilon))

	if len(r.Actions) == 0 {
		b.WriteString("💤 No trades\n")
	} else {
		b.WriteString("💰 <b>Orders:</b>\n")
		for _, a := range r.Actions {
			b.WriteString(fmt.Sprintf("  %s\n", a))
		}
	}
	b.WriteString(fmt.Sprintf("\nPortfolio value: %.2f\n", r.Value))
	return b.String()
}

// FormatPortfolio formats the paper portfolio for display.
func FormatPortfolio(p model.Portfolio, value float64) string {
	var b strings.Builder
	b.WriteString("📦 <b>Portfolio</b>\n\n")
	b.WriteString(fmt.Sprintf("Cash: %.2f\n", p.Cash))
	if len(p.Holdings) == 0 {
		b.WriteString("Holdings: none\n")
	}
	for _, h := range p.Holdings {
		b.WriteString(fmt.Sprintf("%s: %d\n", h.Instrument, h.Quantity))
	}
	b.WriteString(fmt.Sprintf("Value: %.2f\n", value))
	if !p.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Updated: %s\n", p.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatStatus formats the agent status for display.
func FormatStatus(s Status) string {
	var b strings.Builder
	b.WriteString("📊 <b>Agent status</b>\n\n")
	b.WriteString(fmt.Sprintf("Epsilon: %.4f\n", s.Epsilon))
	b.WriteString(fmt.Sprintf("Replay memory: %d\n", s.MemoryLen))
	b.WriteString(fmt.Sprintf("Train steps: %d\n", s.TrainSteps))
	if s.LastTick.IsZero() {
		b.WriteString("Last tick: never\n")
	} else {
		b.WriteString(fmt.Sprintf("Last tick: %s\n", s.LastTick.Format("2006-01-02 15:04")))
	}
	b.WriteString(fmt.Sprintf("Portfolio value: %.2f\n", s.Value))
	return b.String()
}

// FormatError formats an error alert.
func FormatError(what string, err error) string {
	return fmt.Sprintf("⚠️ <b>RLTrader error</b>\n\n%s: %v", what, err)
}

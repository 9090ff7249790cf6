package model

import "fmt"

// Direction is the side of a trading action.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// TradingAction is a single instruction to buy or sell a whole number of shares.
type TradingAction struct {
	Instrument string    `json:"instrument"`
	Direction  Direction `json:"direction"`
	Amount     int       `json:"amount"`
}

func (a TradingAction) String() string {
	return fmt.Sprintf("%s %d %s", a.Direction, a.Amount, a.Instrument)
}

// TradingActionList is an ordered list of actions. It may be empty but is never nil.
type TradingActionList []TradingAction

// NewTradingActionList returns an empty, non-nil list.
func NewTradingActionList() TradingActionList {
	return TradingActionList{}
}

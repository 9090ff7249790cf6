package agent

import (
	"errors"
	"fmt"
	"math"

	"RLTrader/internal/model"
)

// ErrActionOutOfRange is returned for action components outside [-1, 1] or non-finite.
var ErrActionOutOfRange = errors.New("action out of range")

// quantity tolerance absorbs float error such as tanh(atanh(0.5)) landing just below 0.5.
const qtyTolerance = 1e-9

func checkAction(a, b float64) error {
	for i, v := range [2]float64{a, b} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < -1 || v > 1 {
			return fmt.Errorf("%w: component %d is %v", ErrActionOutOfRange, i, v)
		}
	}
	return nil
}

// Translate converts an action pair into trading instructions for instruments
// A and B. A positive component spends that fraction of the available cash,
// a negative one sells that fraction of the holding. Components below the
// deadband and orders that round to zero shares are dropped. A is evaluated
// first and its purchase reduces the cash available to B.
func Translate(s model.State, nameA, nameB string, a, b, deadband float64) (model.TradingActionList, error) {
	if err := checkAction(a, b); err != nil {
		return nil, err
	}
	actions := model.NewTradingActionList()
	cash := s.Cash

	legs := [2]struct {
		name  string
		act   float64
		price float64
		held  int
	}{
		{nameA, a, s.PriceA, s.HoldingA},
		{nameB, b, s.PriceB, s.HoldingB},
	}
	for _, leg := range legs {
		if math.Abs(leg.act) < deadband {
			continue
		}
		if leg.act > 0 {
			if leg.price <= 0 || cash <= 0 {
				continue
			}
			qty := int(math.Floor(cash*leg.act/leg.price + qtyTolerance))
			// Never spend more than is left after the previous leg.
			for qty > 0 && float64(qty)*leg.price > cash {
				qty--
			}
			if qty == 0 {
				continue
			}
			cash -= float64(qty) * leg.price
			actions = append(actions, model.TradingAction{Instrument: leg.name, Direction: model.Buy, Amount: qty})
			continue
		}
		qty := int(math.Floor(float64(leg.held)*-leg.act + qtyTolerance))
		if qty > leg.held {
			qty = leg.held
		}
		if qty == 0 {
			continue
		}
		actions = append(actions, model.TradingAction{Instrument: leg.name, Direction: model.Sell, Amount: qty})
	}
	return actions, nil
}

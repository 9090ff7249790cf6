package agent

import (
	"fmt"
	"math"

	"RLTrader/internal/model"
	"RLTrader/internal/nn"
	"RLTrader/internal/predictor"
)

// Predictors supplies the forecast for each instrument.
type Predictors struct {
	A predictor.Predictor
	B predictor.Predictor
}

// BuildState assembles the state for instruments a and b. Missing prices and
// non-finite values (including predictions) are rejected here.
func BuildState(p model.Portfolio, market *model.StockMarketData, a, b string, preds Predictors) (model.State, error) {
	if market == nil {
		return model.State{}, fmt.Errorf("%w: no market data", model.ErrInvalidState)
	}
	priceA, predA, err := quote(market, a, preds.A)
	if err != nil {
		return model.State{}, err
	}
	priceB, predB, err := quote(market, b, preds.B)
	if err != nil {
		return model.State{}, err
	}
	s := model.State{
		Cash:       p.Cash,
		HoldingA:   p.Quantity(a),
		HoldingB:   p.Quantity(b),
		PriceA:     priceA,
		PriceB:     priceB,
		PredictedA: predA,
		PredictedB: predB,
	}
	if err := s.Validate(); err != nil {
		return model.State{}, err
	}
	return s, nil
}

func quote(market *model.StockMarketData, name string, p predictor.Predictor) (price, predicted float64, err error) {
	price, ok := market.Price(name)
	if !ok {
		return 0, 0, fmt.Errorf("%w: no price for %s", model.ErrInvalidState, name)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, 0, fmt.Errorf("%w: price for %s is %v", model.ErrInvalidState, name, price)
	}
	if p == nil {
		return 0, 0, fmt.Errorf("%w: no predictor for %s", model.ErrInvalidState, name)
	}
	predicted, err = p.Predict(market.Closes(name))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: predict %s: %w", model.ErrInvalidState, name, err)
	}
	return price, predicted, nil
}

// Encode maps a state to the approximator's input features, keeping Vector order.
func Encode(s model.State) []float64 {
	return nn.Log1pScale(s.Vector())
}

// criticInput appends the two action components to the encoded state.
func criticInput(features []float64, a, b float64) []float64 {
	x := make([]float64, 0, len(features)+2)
	x = append(x, features...)
	return append(x, a, b)
}

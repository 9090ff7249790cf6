package model

import (
	"errors"
	"fmt"
	"math"
)

// StateSize is the length of State.Vector.
const StateSize = 7

// ErrInvalidState is returned when a state carries a non-finite value or a negative holding.
var ErrInvalidState = errors.New("invalid state")

// State is the trader's view of the market at one decision step.
type State struct {
	Cash       float64 `json:"cash"`
	HoldingA   int     `json:"holding_a"`
	HoldingB   int     `json:"holding_b"`
	PriceA     float64 `json:"price_a"`
	PriceB     float64 `json:"price_b"`
	PredictedA float64 `json:"predicted_a"`
	PredictedB float64 `json:"predicted_b"`
}

// Vector returns the state in the fixed order the approximator is trained on:
// cash, holdingA, holdingB, priceA, priceB, predictedA, predictedB.
func (s State) Vector() []float64 {
	return []float64{
		s.Cash,
		float64(s.HoldingA),
		float64(s.HoldingB),
		s.PriceA,
		s.PriceB,
		s.PredictedA,
		s.PredictedB,
	}
}

// Validate checks that all fields are finite and holdings are non-negative.
func (s State) Validate() error {
	names := [...]string{"cash", "holding_a", "holding_b", "price_a", "price_b", "predicted_a", "predicted_b"}
	for i, v := range s.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidState, names[i], v)
		}
	}
	if s.HoldingA < 0 || s.HoldingB < 0 {
		return fmt.Errorf("%w: negative holding (a=%d, b=%d)", ErrInvalidState, s.HoldingA, s.HoldingB)
	}
	return nil
}

func (s State) String() string {
	return fmt.Sprintf("cash: %.2f, A: %d x %.2f (%.2f), B: %d x %.2f (%.2f)",
		s.Cash, s.HoldingA, s.PriceA, s.PredictedA, s.HoldingB, s.PriceB, s.PredictedB)
}

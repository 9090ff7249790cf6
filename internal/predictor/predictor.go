package predictor

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotEnoughHistory is returned when a predictor gets an empty history.
var ErrNotEnoughHistory = errors.New("not enough price history")

// Predictor forecasts the next price of an instrument from its close history (oldest first).
type Predictor interface {
	Predict(history []float64) (float64, error)
}

// Kind names a predictor implementation in the config file.
type Kind string

const (
	KindSimple        Kind = "simple"
	KindMovingAverage Kind = "moving_average"
	KindMeanReversion Kind = "mean_reversion"
)

// New returns the predictor registered under kind.
func New(kind Kind) (Predictor, error) {
	switch kind {
	case KindSimple, "":
		return Simple{}, nil
	case KindMovingAverage:
		return MovingAverage{Window: 10}, nil
	case KindMeanReversion:
		return MeanReversion{Lookback: 30, RSIPeriod: 14, Strength: 0.5}, nil
	default:
		return nil, fmt.Errorf("unknown predictor kind: %s", kind)
	}
}

// Simple extrapolates the most recent change one step ahead.
type Simple struct{}

func (Simple) Predict(history []float64) (float64, error) {
	switch len(history) {
	case 0:
		return 0, ErrNotEnoughHistory
	case 1:
		return history[0], nil
	}
	last := history[len(history)-1]
	prev := history[len(history)-2]
	return math.Max(0, last+(last-prev)), nil
}

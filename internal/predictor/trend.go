package predictor

import (
	"math"

	"RLTrader/internal/calculator"
)

// MovingAverage projects the SMA forward along the average slope of the window.
// The SMA lags the last close by (Window-1)/2 steps, so the one-step-ahead
// forecast is SMA + slope*(Window+1)/2. Falls back to Simple on short histories.
type MovingAverage struct {
	Window int
}

func (m MovingAverage) Predict(history []float64) (float64, error) {
	sma, err := calculator.CalculateSMA(history, m.Window)
	if err != nil {
		return Simple{}.Predict(history)
	}
	slope, err := calculator.CalculateMomentum(history, m.Window)
	if err != nil {
		return Simple{}.Predict(history)
	}
	return math.Max(0, sma+slope*float64(m.Window+1)/2), nil
}

// MeanReversion pulls the last close toward the midpoint of its recent range,
// harder the further RSI is from 50.
type MeanReversion struct {
	Lookback  int
	RSIPeriod int
	Strength  float64 // 0 = no pull, 1 = jump to the midpoint at RSI extremes
}

func (m MeanReversion) Predict(history []float64) (float64, error) {
	if len(history) == 0 {
		return 0, ErrNotEnoughHistory
	}
	last := history[len(history)-1]
	high, low, err := calculator.CalculateRange(history, m.Lookback)
	if err != nil {
		return 0, err
	}
	rsi, err := calculator.CalculateRSI(history, m.RSIPeriod)
	if err != nil {
		return 0, err
	}
	weight := math.Abs(rsi-50) / 50
	mid := (high + low) / 2
	return last + m.Strength*weight*(mid-last), nil
}

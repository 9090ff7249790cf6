package recorder

import (
	"time"

	"RLTrader/internal/model"
)

// DecisionEvent holds one decision step of the trading engine.
type DecisionEvent struct {
	RunID          string
	Episode        int
	Step           int
	MarketTime     time.Time
	State          model.State
	PortfolioValue float64
	ActionA        float64
	ActionB        float64
	Explored       bool
	Recorded       bool
	Reward         int
	Epsilon        float64
	CriticLoss     float64
	ActorLoss      float64
	Actions        model.TradingActionList
}

// EpisodeEvent summarizes a completed episode.
type EpisodeEvent struct {
	RunID        string
	Episode      int
	Steps        int
	InitialValue float64
	FinalValue   float64
	Trades       int
	Epsilon      float64
	TrainSteps   int
}

// Return is the episode's relative change in portfolio value.
func (e EpisodeEvent) Return() float64 {
	if e.InitialValue == 0 {
		return 0
	}
	return e.FinalValue/e.InitialValue - 1
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordDecision(evt *DecisionEvent) error
	RecordEpisode(evt *EpisodeEvent) error
	Close() error
}

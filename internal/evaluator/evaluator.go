// Package evaluator drives a trader through historical market data the way a
// portfolio evaluation harness does: one decision per time step, the
// portfolio valued at that step's prices, and done raised on the last step.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"RLTrader/internal/agent"
	"RLTrader/internal/model"
	"RLTrader/internal/portfolio"
	"RLTrader/internal/recorder"
)

// Trader is the harness-facing decision interface.
type Trader interface {
	DoTrade(p model.Portfolio, value float64, market *model.StockMarketData, done bool) (model.TradingActionList, error)
	NewEpisode()
}

// decisionSource is implemented by traders that expose the last decision's details.
type decisionSource interface {
	LastDecision() agent.Decision
}

// Options configures an evaluation run.
type Options struct {
	RunID   string
	Episode int
	// WarmUp is the index of the first bar the trader decides on; earlier
	// bars only feed the predictors.
	WarmUp   int
	Recorder recorder.Recorder
}

// Result summarizes one episode.
type Result struct {
	RunID        string
	Episode      int
	Steps        int
	InitialValue float64
	FinalValue   float64
	Trades       int
	Portfolio    model.Portfolio
	Epsilon      float64
	TrainSteps   int
}

// Return is the relative change in portfolio value over the episode.
func (r Result) Return() float64 {
	if r.InitialValue == 0 {
		return 0
	}
	return r.FinalValue/r.InitialValue - 1
}

// Run plays one episode over market, starting from initialCash and no holdings.
func Run(ctx context.Context, trader Trader, market *model.StockMarketData, initialCash float64, opts Options) (Result, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	n := market.Len()
	if opts.WarmUp < 0 || opts.WarmUp >= n {
		return Result{}, fmt.Errorf("warm-up index %d outside %d bars", opts.WarmUp, n)
	}

	ledger, err := portfolio.NewManager("", "evaluation", initialCash)
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: opts.RunID, Episode: opts.Episode, InitialValue: initialCash}
	src, hasDetails := trader.(decisionSource)

	trader.NewEpisode()
	for i := opts.WarmUp; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		view := market.Until(i)
		p := ledger.Portfolio()
		value := ledger.Value(view)
		done := i == n-1

		actions, err := trader.DoTrade(p, value, view, done)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i, err)
		}
		if _, err := ledger.Apply(actions, view); err != nil {
			return res, fmt.Errorf("step %d: apply: %w", i, err)
		}
		res.Steps++
		res.Trades += len(actions)

		if hasDetails {
			d := src.LastDecision()
			res.Epsilon = d.Epsilon
			if d.Training.Steps > res.TrainSteps {
				res.TrainSteps = d.Training.Steps
			}
			if err := opts.Recorder.RecordDecision(&recorder.DecisionEvent{
				RunID:          opts.RunID,
				Episode:        opts.Episode,
				Step:           i,
				MarketTime:     latestTime(view),
				State:          d.State,
				PortfolioValue: value,
				ActionA:        d.ActionA,
				ActionB:        d.ActionB,
				Explored:       d.Explored,
				Recorded:       d.Recorded,
				Reward:         d.Reward,
				Epsilon:        d.Epsilon,
				CriticLoss:     d.Training.CriticLoss,
				ActorLoss:      d.Training.ActorLoss,
				Actions:        actions,
			}); err != nil {
				log.Printf("[ERROR] failed to record decision: %v", err)
			}
		}
	}

	res.Portfolio = ledger.Portfolio()
	res.FinalValue = ledger.Value(market.Until(n - 1))
	return res, nil
}

// RunEpisodes plays episodes back to back over the same history, recording
// each summary. It stops at the first failing episode.
func RunEpisodes(ctx context.Context, trader Trader, market *model.StockMarketData, initialCash float64, episodes int, opts Options) ([]Result, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	var results []Result
	for ep := 1; ep <= episodes; ep++ {
		opts.Episode = ep
		res, err := Run(ctx, trader, market, initialCash, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("[WARN] training interrupted in episode %d", ep)
			}
			return results, fmt.Errorf("episode %d: %w", ep, err)
		}
		results = append(results, res)
		log.Printf("[INFO] episode %d/%d: steps: %d, value: %.2f -> %.2f (%+.2f%%), trades: %d, epsilon: %.4f",
			ep, episodes, res.Steps, res.InitialValue, res.FinalValue, res.Return()*100, res.Trades, res.Epsilon)

		if err := opts.Recorder.RecordEpisode(&recorder.EpisodeEvent{
			RunID:        res.RunID,
			Episode:      ep,
			Steps:        res.Steps,
			InitialValue: res.InitialValue,
			FinalValue:   res.FinalValue,
			Trades:       res.Trades,
			Epsilon:      res.Epsilon,
			TrainSteps:   res.TrainSteps,
		}); err != nil {
			log.Printf("[ERROR] failed to record episode: %v", err)
		}
	}
	return results, nil
}

// latestTime returns the most recent bar time across instruments.
func latestTime(m *model.StockMarketData) time.Time {
	var latest time.Time
	for name := range m.Series {
		if t := m.Time(name); t.After(latest) {
			latest = t
		}
	}
	return latest
}

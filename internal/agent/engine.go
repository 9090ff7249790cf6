package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"RLTrader/internal/model"
	"RLTrader/internal/modelstore"
	"RLTrader/internal/nn"
	"RLTrader/internal/replay"
)

// trainLogEvery controls how often training progress is logged.
const trainLogEvery = 1000

type memory struct {
	value   float64
	state   model.State
	actionA float64
	actionB float64
}

// Session carries what the engine remembers between two decisions of one
// episode. The zero value is COLD: the next step records no transition.
type Session struct {
	prev *memory
}

// Warm reports whether a previous decision is remembered.
func (s Session) Warm() bool { return s.prev != nil }

// LastPortfolioValue returns the value seen at the previous decision.
func (s Session) LastPortfolioValue() (float64, bool) {
	if s.prev == nil {
		return 0, false
	}
	return s.prev.value, true
}

// Input is everything the engine observes at one decision step.
type Input struct {
	Portfolio      model.Portfolio
	PortfolioValue float64
	Market         *model.StockMarketData
	// Done marks the last step of an episode. It is never inferred.
	Done bool
}

// Decision describes what happened during one Step.
type Decision struct {
	State    model.State
	ActionA  float64
	ActionB  float64
	Explored bool
	// Recorded is true when a transition was appended; Reward is only
	// meaningful in that case.
	Recorded bool
	Reward   int
	Epsilon  float64
	Training TrainStats
	Actions  model.TradingActionList
}

// Engine is the trading decision engine. It is not safe for concurrent use.
type Engine struct {
	cfg    Config
	preds  Predictors
	store  modelstore.Store
	policy *Policy
	buffer *replay.Buffer
	train  *Trainer
}

// NewEngine builds an engine, restoring learned parameters from store when
// it holds a valid model. A missing or corrupt model yields fresh networks.
// store may be nil.
func NewEngine(ctx context.Context, cfg Config, preds Predictors, store modelstore.Store) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}
	rng := newRand(cfg.Seed)

	actor, err := NewActor(cfg.HiddenSize, cfg.LearningRate, rng)
	if err != nil {
		return nil, fmt.Errorf("build actor: %w", err)
	}
	critic, err := NewCritic(cfg.HiddenSize, cfg.LearningRate, rng)
	if err != nil {
		return nil, fmt.Errorf("build critic: %w", err)
	}
	epsilon := cfg.Epsilon
	steps := 0

	if store != nil {
		res := store.Load(ctx)
		switch res.Status {
		case modelstore.Loaded:
			a, c, err := restore(res.Artifact)
			if err != nil {
				log.Printf("[WARN] saved model unusable, starting fresh: %v", err)
				break
			}
			actor, critic = a, c
			epsilon = res.Artifact.Epsilon
			steps = res.Artifact.TrainSteps
			log.Printf("[INFO] model restored: epsilon: %.4f, train steps: %d", epsilon, steps)
		case modelstore.Corrupt:
			log.Printf("[WARN] saved model corrupt, starting fresh: %v", res.Err)
		default:
			log.Printf("[INFO] no saved model, starting fresh")
		}
	}

	return &Engine{
		cfg:    cfg,
		preds:  preds,
		store:  store,
		policy: NewPolicy(epsilon, cfg.EpsilonDecay, cfg.EpsilonMin, rng),
		buffer: replay.NewBuffer(cfg.MemorySize),
		train:  NewTrainer(cfg, actor, critic, steps, rng),
	}, nil
}

func restore(a modelstore.Artifact) (actor, critic *nn.Network, err error) {
	actor, err = nn.Unmarshal(a.Actor, model.StateSize, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("actor: %w", err)
	}
	critic, err = nn.Unmarshal(a.Critic, model.StateSize+2, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("critic: %w", err)
	}
	return actor, critic, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Step runs one decision. On error the session is returned unchanged and no
// partial action list is produced.
func (e *Engine) Step(s Session, in Input) (Decision, Session, error) {
	if math.IsNaN(in.PortfolioValue) || math.IsInf(in.PortfolioValue, 0) {
		return Decision{}, s, fmt.Errorf("%w: portfolio value is %v", model.ErrInvalidState, in.PortfolioValue)
	}
	state, err := BuildState(in.Portfolio, in.Market, e.cfg.InstrumentA, e.cfg.InstrumentB, e.preds)
	if err != nil {
		return Decision{}, s, err
	}

	d := Decision{State: state}
	if s.prev != nil {
		last, current := s.prev.value, in.PortfolioValue
		d.Reward = Reward(&last, &current)
		d.Recorded = true
		e.buffer.Append(model.Transition{
			State:     s.prev.state,
			ActionA:   s.prev.actionA,
			ActionB:   s.prev.actionB,
			Reward:    d.Reward,
			NextState: state,
			Done:      in.Done,
		})
		if d.Training, err = e.train.Train(e.buffer); err != nil {
			return Decision{}, s, err
		}
		if d.Training.Trained && d.Training.Steps%trainLogEvery == 0 {
			log.Printf("[INFO] train steps: %d, critic loss: %.5f, actor loss: %.5f, epsilon: %.4f",
				d.Training.Steps, d.Training.CriticLoss, d.Training.ActorLoss, e.policy.Epsilon())
		}
		e.policy.Decay()
	}

	d.ActionA, d.ActionB, d.Explored, err = e.policy.Select(e.train.Actor(), Encode(state))
	if err != nil {
		return Decision{}, s, err
	}
	d.Actions, err = Translate(state, e.cfg.InstrumentA, e.cfg.InstrumentB, d.ActionA, d.ActionB, e.cfg.ActionDeadband)
	if err != nil {
		return Decision{}, s, err
	}
	d.Epsilon = e.policy.Epsilon()

	if in.Done {
		// The episode is over; the next call starts COLD.
		return d, Session{}, nil
	}
	return d, Session{prev: &memory{
		value:   in.PortfolioValue,
		state:   state,
		actionA: d.ActionA,
		actionB: d.ActionB,
	}}, nil
}

// Save writes the current parameters and epsilon to the model store.
func (e *Engine) Save(ctx context.Context) error {
	if e.store == nil {
		return errors.New("save model: no store configured")
	}
	actor, err := e.train.Actor().Marshal()
	if err != nil {
		return fmt.Errorf("save model: actor: %w", err)
	}
	critic, err := e.train.Critic().Marshal()
	if err != nil {
		return fmt.Errorf("save model: critic: %w", err)
	}
	err = e.store.Save(ctx, modelstore.Artifact{
		Actor:      actor,
		Critic:     critic,
		Epsilon:    e.policy.Epsilon(),
		TrainSteps: e.train.Steps(),
	})
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Epsilon returns the current exploration probability.
func (e *Engine) Epsilon() float64 { return e.policy.Epsilon() }

// MemoryLen returns the number of stored transitions.
func (e *Engine) MemoryLen() int { return e.buffer.Len() }

// TrainSteps returns the number of completed training updates.
func (e *Engine) TrainSteps() int { return e.train.Steps() }

// Instruments returns the names of instruments A and B.
func (e *Engine) Instruments() (string, string) { return e.cfg.InstrumentA, e.cfg.InstrumentB }

package agent

import (
	"fmt"
	"math"
	"math/rand/v2"

	"RLTrader/internal/model"
	"RLTrader/internal/nn"
	"RLTrader/internal/replay"
)

// TrainStats summarizes one call to Trainer.Train.
type TrainStats struct {
	Trained    bool
	BatchSize  int
	CriticLoss float64
	ActorLoss  float64
	Steps      int
}

// Trainer runs experience replay updates over an actor μ(s) and a critic Q(s, a).
// Target copies of both are refreshed every TargetSyncInterval updates.
type Trainer struct {
	cfg Config
	rng *rand.Rand

	actor        *nn.Network
	critic       *nn.Network
	targetActor  *nn.Network
	targetCritic *nn.Network

	steps int
}

// NewActor builds the policy network: 7 features in, two tanh outputs.
func NewActor(hidden int, lr float64, rng *rand.Rand) (*nn.Network, error) {
	return nn.New([]int{model.StateSize, hidden, hidden, 2}, nn.ReLU, nn.Tanh, lr, rng)
}

// NewCritic builds the action-value network over features plus both action components.
func NewCritic(hidden int, lr float64, rng *rand.Rand) (*nn.Network, error) {
	return nn.New([]int{model.StateSize + 2, hidden, hidden, 1}, nn.ReLU, nn.Linear, lr, rng)
}

// NewTrainer wires the trainer around existing networks. steps is the number
// of updates already performed, restored from a saved model.
func NewTrainer(cfg Config, actor, critic *nn.Network, steps int, rng *rand.Rand) *Trainer {
	return &Trainer{
		cfg:          cfg,
		rng:          rng,
		actor:        actor,
		critic:       critic,
		targetActor:  actor.Clone(),
		targetCritic: critic.Clone(),
		steps:        steps,
	}
}

// Actor returns the online policy network.
func (t *Trainer) Actor() *nn.Network { return t.actor }

// Critic returns the online action-value network.
func (t *Trainer) Critic() *nn.Network { return t.critic }

// Steps returns the number of completed updates.
func (t *Trainer) Steps() int { return t.steps }

// Train performs one update from buf. Nothing happens until the buffer holds
// TrainStart transitions.
func (t *Trainer) Train(buf *replay.Buffer) (TrainStats, error) {
	stats := TrainStats{Steps: t.steps}
	if buf.Len() < t.cfg.TrainStart {
		return stats, nil
	}
	n := min(t.cfg.BatchSize, buf.Len())
	batch, err := buf.Sample(t.rng, n)
	if err != nil {
		return stats, fmt.Errorf("train: %w", err)
	}

	states := make([][]float64, n)
	criticX := make([][]float64, n)
	criticY := make([][]float64, n)
	for i, tr := range batch {
		states[i] = Encode(tr.State)
		criticX[i] = criticInput(states[i], tr.ActionA, tr.ActionB)
		y, err := t.target(tr)
		if err != nil {
			return stats, fmt.Errorf("train: critic target: %w", err)
		}
		criticY[i] = []float64{y}
	}

	criticLoss, err := t.critic.Fit(criticX, criticY)
	if err != nil {
		return stats, fmt.Errorf("train: critic: %w", err)
	}

	actorY := make([][]float64, n)
	for i, x := range states {
		if actorY[i], err = t.actorTarget(x); err != nil {
			return stats, fmt.Errorf("train: actor target: %w", err)
		}
	}
	actorLoss, err := t.actor.Fit(states, actorY)
	if err != nil {
		return stats, fmt.Errorf("train: actor: %w", err)
	}

	t.steps++
	if t.steps%t.cfg.TargetSyncInterval == 0 {
		if err := t.syncTargets(); err != nil {
			return stats, fmt.Errorf("train: %w", err)
		}
	}
	return TrainStats{
		Trained:    true,
		BatchSize:  n,
		CriticLoss: criticLoss,
		ActorLoss:  actorLoss,
		Steps:      t.steps,
	}, nil
}

// target is r for terminal transitions, otherwise r + γ·Q'(s', μ'(s')).
func (t *Trainer) target(tr model.Transition) (float64, error) {
	r := float64(tr.Reward)
	if tr.Done {
		return r, nil
	}
	next := Encode(tr.NextState)
	a, err := t.targetActor.Predict(next)
	if err != nil {
		return 0, err
	}
	q, err := t.targetCritic.Predict(criticInput(next, a[0], a[1]))
	if err != nil {
		return 0, err
	}
	return r + t.cfg.DiscountFactor*q[0], nil
}

// actorTarget nudges μ(x) along the critic's action gradient, clipped to [-1, 1].
func (t *Trainer) actorTarget(x []float64) ([]float64, error) {
	mu, err := t.actor.Predict(x)
	if err != nil {
		return nil, err
	}
	grad, err := t.critic.InputGradient(criticInput(x, mu[0], mu[1]), []float64{1})
	if err != nil {
		return nil, err
	}
	dA := grad[len(x):]
	out := make([]float64, 2)
	for i := range out {
		out[i] = math.Max(-1, math.Min(1, mu[i]+t.cfg.ActorStep*dA[i]))
	}
	return out, nil
}

func (t *Trainer) syncTargets() error {
	if err := t.targetActor.CopyFrom(t.actor); err != nil {
		return fmt.Errorf("sync target actor: %w", err)
	}
	if err := t.targetCritic.CopyFrom(t.critic); err != nil {
		return fmt.Errorf("sync target critic: %w", err)
	}
	return nil
}

package agent

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Approximator maps a feature vector to the two action components.
type Approximator interface {
	Predict(x []float64) ([]float64, error)
}

// Policy is an epsilon-greedy action selector over a continuous action space.
type Policy struct {
	epsilon float64
	decay   float64
	min     float64
	rng     *rand.Rand
}

// NewPolicy returns a policy starting at epsilon.
func NewPolicy(epsilon, decay, min float64, rng *rand.Rand) *Policy {
	p := &Policy{decay: decay, min: min, rng: rng}
	p.SetEpsilon(epsilon)
	return p
}

// Select returns the action for features x. With probability epsilon both
// components are drawn uniformly from [-1, 1]; otherwise the actor decides.
func (p *Policy) Select(actor Approximator, x []float64) (a, b float64, explored bool, err error) {
	if p.rng.Float64() < p.epsilon {
		return p.uniform(), p.uniform(), true, nil
	}
	y, err := actor.Predict(x)
	if err != nil {
		return 0, 0, false, fmt.Errorf("select action: %w", err)
	}
	if len(y) != 2 {
		return 0, 0, false, fmt.Errorf("select action: actor returned %d components, want 2", len(y))
	}
	return y[0], y[1], false, nil
}

func (p *Policy) uniform() float64 {
	return p.rng.Float64()*2 - 1
}

// Decay multiplies epsilon by the decay rate, never going below the floor.
func (p *Policy) Decay() {
	p.epsilon = math.Max(p.epsilon*p.decay, p.min)
}

// Epsilon returns the current exploration probability.
func (p *Policy) Epsilon() float64 { return p.epsilon }

// SetEpsilon sets epsilon, clamped into [min, 1].
func (p *Policy) SetEpsilon(e float64) {
	if math.IsNaN(e) {
		e = 1
	}
	p.epsilon = math.Min(1, math.Max(p.min, e))
}

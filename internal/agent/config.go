package agent

import (
	"fmt"
	"math"
)

// Config holds the decision engine's hyperparameters.
type Config struct {
	InstrumentA string
	InstrumentB string

	HiddenSize         int
	DiscountFactor     float64
	LearningRate       float64
	Epsilon            float64
	EpsilonDecay       float64
	EpsilonMin         float64
	BatchSize          int
	TrainStart         int
	MemorySize         int
	TargetSyncInterval int
	// ActorStep scales the critic's action gradient when building actor targets.
	ActorStep float64
	// ActionDeadband is the magnitude below which an action issues no trade.
	ActionDeadband float64
	// Seed for all randomness; 0 seeds from the clock.
	Seed uint64
}

// DefaultConfig returns the hyperparameters the agent was tuned with.
func DefaultConfig() Config {
	return Config{
		InstrumentA:        "stock_a",
		InstrumentB:        "stock_b",
		HiddenSize:         24,
		DiscountFactor:     0.99,
		LearningRate:       0.001,
		Epsilon:            1.0,
		EpsilonDecay:       0.999,
		EpsilonMin:         0.01,
		BatchSize:          64,
		TrainStart:         1000,
		MemorySize:         2000,
		TargetSyncInterval: 100,
		ActorStep:          0.1,
		ActionDeadband:     0.01,
	}
}

// Validate checks ranges that would otherwise break learning silently.
func (c Config) Validate() error {
	if c.InstrumentA == "" || c.InstrumentB == "" || c.InstrumentA == c.InstrumentB {
		return fmt.Errorf("two distinct instruments are required, got %q and %q", c.InstrumentA, c.InstrumentB)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be positive")
	}
	if c.DiscountFactor < 0 || c.DiscountFactor > 1 {
		return fmt.Errorf("discount_factor must be in [0, 1]")
	}
	if c.LearningRate <= 0 || math.IsInf(c.LearningRate, 0) {
		return fmt.Errorf("learning_rate must be positive")
	}
	if c.EpsilonMin < 0 || c.EpsilonMin > 1 {
		return fmt.Errorf("epsilon_min must be in [0, 1]")
	}
	if c.Epsilon < c.EpsilonMin || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [epsilon_min, 1]")
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon_decay must be in (0, 1]")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.MemorySize <= 0 {
		return fmt.Errorf("memory_size must be positive")
	}
	if c.TrainStart <= 0 || c.TrainStart > c.MemorySize {
		return fmt.Errorf("train_start must be in [1, memory_size]")
	}
	if c.TargetSyncInterval <= 0 {
		return fmt.Errorf("target_sync_interval must be positive")
	}
	if c.ActorStep <= 0 {
		return fmt.Errorf("actor_step must be positive")
	}
	if c.ActionDeadband < 0 || c.ActionDeadband >= 1 {
		return fmt.Errorf("action_deadband must be in [0, 1)")
	}
	return nil
}

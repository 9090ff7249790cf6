package nn

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt is returned by Unmarshal when the serialized form is unreadable or inconsistent.
var ErrCorrupt = errors.New("corrupt network")

// Marshal serializes the network parameters. Optimizer moments are not persisted.
func (n *Network) Marshal() ([]byte, error) {
	return json.Marshal(n)
}

// Unmarshal restores a network produced by Marshal and checks that its shape
// matches wantIn/wantOut when they are positive.
func Unmarshal(data []byte, wantIn, wantOut int) (*Network, error) {
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(n.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrCorrupt)
	}
	prevOut := -1
	for i, l := range n.Layers {
		if l == nil || len(l.W) == 0 || len(l.W[0]) == 0 {
			return nil, fmt.Errorf("%w: layer %d is empty", ErrCorrupt, i)
		}
		for _, row := range l.W {
			if len(row) != len(l.W[0]) {
				return nil, fmt.Errorf("%w: layer %d has ragged weights", ErrCorrupt, i)
			}
			if !finite(row) {
				return nil, fmt.Errorf("%w: layer %d has non-finite weights", ErrCorrupt, i)
			}
		}
		if len(l.B) != len(l.W) || !finite(l.B) {
			return nil, fmt.Errorf("%w: layer %d bias mismatch", ErrCorrupt, i)
		}
		switch l.Act {
		case ReLU, Tanh, Linear:
		default:
			return nil, fmt.Errorf("%w: layer %d has unknown activation %q", ErrCorrupt, i, l.Act)
		}
		if prevOut >= 0 && l.in() != prevOut {
			return nil, fmt.Errorf("%w: layer %d input %d does not match previous output %d", ErrCorrupt, i, l.in(), prevOut)
		}
		prevOut = l.out()
		l.resetMoments()
	}
	if wantIn > 0 && n.InputSize() != wantIn {
		return nil, fmt.Errorf("%w: input size %d, want %d", ErrCorrupt, n.InputSize(), wantIn)
	}
	if wantOut > 0 && n.OutputSize() != wantOut {
		return nil, fmt.Errorf("%w: output size %d, want %d", ErrCorrupt, n.OutputSize(), wantOut)
	}
	if n.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate %v", ErrCorrupt, n.LearningRate)
	}
	return &n, nil
}

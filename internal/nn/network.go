package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrDiverged is returned when a forward or backward pass produces NaN or Inf.
var ErrDiverged = errors.New("numerical divergence")

// Activation names a layer's output non-linearity.
type Activation string

const (
	ReLU   Activation = "relu"
	Tanh   Activation = "tanh"
	Linear Activation = "linear"
)

// Adam hyperparameters, as in Keras' defaults.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// Layer is a dense layer y = act(W·x + b). W is Out x In.
type Layer struct {
	W   [][]float64 `json:"w"`
	B   []float64   `json:"b"`
	Act Activation  `json:"activation"`

	// Adam moments, same shapes as W and B.
	mW, vW [][]float64
	mB, vB []float64
}

func newLayer(in, out int, act Activation, rng *rand.Rand) *Layer {
	// he_uniform
	limit := math.Sqrt(6.0 / float64(in))
	l := &Layer{
		W:   make([][]float64, out),
		B:   make([]float64, out),
		Act: act,
	}
	for i := range l.W {
		l.W[i] = make([]float64, in)
		for j := range l.W[i] {
			l.W[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	l.resetMoments()
	return l
}

func (l *Layer) in() int  { return len(l.W[0]) }
func (l *Layer) out() int { return len(l.W) }

func (l *Layer) resetMoments() {
	l.mW = zeros2(l.out(), l.in())
	l.vW = zeros2(l.out(), l.in())
	l.mB = make([]float64, l.out())
	l.vB = make([]float64, l.out())
}

func (l *Layer) forward(x []float64) []float64 {
	y := make([]float64, l.out())
	for i, row := range l.W {
		z := l.B[i]
		for j, w := range row {
			z += w * x[j]
		}
		y[i] = activate(l.Act, z)
	}
	return y
}

func activate(act Activation, z float64) float64 {
	switch act {
	case ReLU:
		if z > 0 {
			return z
		}
		return 0
	case Tanh:
		return math.Tanh(z)
	default:
		return z
	}
}

// derivative is expressed in terms of the activation output y.
func derivative(act Activation, y float64) float64 {
	switch act {
	case ReLU:
		if y > 0 {
			return 1
		}
		return 0
	case Tanh:
		return 1 - y*y
	default:
		return 1
	}
}

// Network is a fully connected feed-forward network trained with Adam on MSE.
type Network struct {
	Layers       []*Layer `json:"layers"`
	LearningRate float64  `json:"learning_rate"`
	Step         int      `json:"step"`
}

// New builds a network with the given layer sizes, e.g. []int{7, 24, 24, 2}.
// Hidden layers use hidden, the last layer uses output.
func New(sizes []int, hidden, output Activation, learningRate float64, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network needs at least 2 layer sizes, got %d", len(sizes))
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("layer size must be positive, got %d", s)
		}
	}
	n := &Network{LearningRate: learningRate}
	for i := 1; i < len(sizes); i++ {
		act := hidden
		if i == len(sizes)-1 {
			act = output
		}
		n.Layers = append(n.Layers, newLayer(sizes[i-1], sizes[i], act, rng))
	}
	return n, nil
}

// InputSize returns the expected input length.
func (n *Network) InputSize() int { return n.Layers[0].in() }

// OutputSize returns the output length.
func (n *Network) OutputSize() int { return n.Layers[len(n.Layers)-1].out() }

// Predict evaluates the network on one input vector.
func (n *Network) Predict(x []float64) ([]float64, error) {
	if len(x) != n.InputSize() {
		return nil, fmt.Errorf("input size %d, want %d", len(x), n.InputSize())
	}
	acts := n.forward(x)
	y := acts[len(acts)-1]
	if !finite(y) {
		return nil, fmt.Errorf("predict: %w", ErrDiverged)
	}
	return y, nil
}

// forward returns the input followed by every layer's output.
func (n *Network) forward(x []float64) [][]float64 {
	acts := make([][]float64, 0, len(n.Layers)+1)
	acts = append(acts, x)
	for _, l := range n.Layers {
		x = l.forward(x)
		acts = append(acts, x)
	}
	return acts
}

// backward propagates dOut (gradient w.r.t. the network output) through the
// cached activations. Parameter gradients are accumulated into gW/gB when
// they are non-nil. It returns the gradient w.r.t. the input.
func (n *Network) backward(acts [][]float64, dOut []float64, gW [][][]float64, gB [][]float64) []float64 {
	delta := dOut
	for li := len(n.Layers) - 1; li >= 0; li-- {
		l := n.Layers[li]
		x := acts[li]
		y := acts[li+1]
		dz := make([]float64, len(delta))
		for i := range delta {
			dz[i] = delta[i] * derivative(l.Act, y[i])
		}
		dx := make([]float64, len(x))
		for i, row := range l.W {
			if dz[i] == 0 {
				continue
			}
			if gW != nil {
				gRow := gW[li][i]
				for j := range row {
					gRow[j] += dz[i] * x[j]
				}
				gB[li][i] += dz[i]
			}
			for j, w := range row {
				dx[j] += w * dz[i]
			}
		}
		delta = dx
	}
	return delta
}

// Fit performs one pass over the batch: a single Adam step on the mean squared
// error between the network outputs and ys. It returns the pre-update loss.
// On divergence the parameters are left untouched.
func (n *Network) Fit(xs, ys [][]float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errors.New("fit: empty batch")
	}
	if len(xs) != len(ys) {
		return 0, fmt.Errorf("fit: %d inputs but %d targets", len(xs), len(ys))
	}
	outSize := n.OutputSize()
	gW := make([][][]float64, len(n.Layers))
	gB := make([][]float64, len(n.Layers))
	for i, l := range n.Layers {
		gW[i] = zeros2(l.out(), l.in())
		gB[i] = make([]float64, l.out())
	}

	scale := 2.0 / float64(len(xs)*outSize)
	var loss float64
	for k, x := range xs {
		if len(x) != n.InputSize() {
			return 0, fmt.Errorf("fit: input %d has size %d, want %d", k, len(x), n.InputSize())
		}
		if len(ys[k]) != outSize {
			return 0, fmt.Errorf("fit: target %d has size %d, want %d", k, len(ys[k]), outSize)
		}
		acts := n.forward(x)
		y := acts[len(acts)-1]
		dOut := make([]float64, outSize)
		for i := range y {
			diff := y[i] - ys[k][i]
			loss += diff * diff
			dOut[i] = scale * diff
		}
		n.backward(acts, dOut, gW, gB)
	}
	loss /= float64(len(xs) * outSize)

	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss, fmt.Errorf("fit: loss is %v: %w", loss, ErrDiverged)
	}
	for i := range gW {
		if !finite(gB[i]) {
			return loss, fmt.Errorf("fit: layer %d bias gradient: %w", i, ErrDiverged)
		}
		for _, row := range gW[i] {
			if !finite(row) {
				return loss, fmt.Errorf("fit: layer %d weight gradient: %w", i, ErrDiverged)
			}
		}
	}

	n.applyAdam(gW, gB)
	return loss, nil
}

func (n *Network) applyAdam(gW [][][]float64, gB [][]float64) {
	n.Step++
	t := float64(n.Step)
	lr := n.LearningRate * math.Sqrt(1-math.Pow(adamBeta2, t)) / (1 - math.Pow(adamBeta1, t))
	update := func(p, m, v *float64, g float64) {
		*m = adamBeta1**m + (1-adamBeta1)*g
		*v = adamBeta2**v + (1-adamBeta2)*g*g
		*p -= lr * *m / (math.Sqrt(*v) + adamEpsilon)
	}
	for li, l := range n.Layers {
		if l.mW == nil {
			l.resetMoments()
		}
		for i := range l.W {
			for j := range l.W[i] {
				update(&l.W[i][j], &l.mW[i][j], &l.vW[i][j], gW[li][i][j])
			}
			update(&l.B[i], &l.mB[i], &l.vB[i], gB[li][i])
		}
	}
}

// InputGradient returns the gradient of dot(dOut, Predict(x)) with respect to x.
func (n *Network) InputGradient(x, dOut []float64) ([]float64, error) {
	if len(x) != n.InputSize() {
		return nil, fmt.Errorf("input size %d, want %d", len(x), n.InputSize())
	}
	if len(dOut) != n.OutputSize() {
		return nil, fmt.Errorf("output gradient size %d, want %d", len(dOut), n.OutputSize())
	}
	acts := n.forward(x)
	dx := n.backward(acts, dOut, nil, nil)
	if !finite(dx) {
		return nil, fmt.Errorf("input gradient: %w", ErrDiverged)
	}
	return dx, nil
}

// Clone returns a deep copy of the parameters with fresh optimizer state.
func (n *Network) Clone() *Network {
	c := &Network{LearningRate: n.LearningRate, Step: n.Step}
	for _, l := range n.Layers {
		cl := &Layer{
			W:   make([][]float64, len(l.W)),
			B:   append([]float64(nil), l.B...),
			Act: l.Act,
		}
		for i, row := range l.W {
			cl.W[i] = append([]float64(nil), row...)
		}
		cl.resetMoments()
		c.Layers = append(c.Layers, cl)
	}
	return c
}

// CopyFrom overwrites the parameters with those of src, which must have the same shape.
func (n *Network) CopyFrom(src *Network) error {
	if len(src.Layers) != len(n.Layers) {
		return fmt.Errorf("copy: %d layers, want %d", len(src.Layers), len(n.Layers))
	}
	for li, l := range n.Layers {
		s := src.Layers[li]
		if s.out() != l.out() || s.in() != l.in() {
			return fmt.Errorf("copy: layer %d is %dx%d, want %dx%d", li, s.out(), s.in(), l.out(), l.in())
		}
		for i := range l.W {
			copy(l.W[i], s.W[i])
		}
		copy(l.B, s.B)
	}
	return nil
}

func zeros2(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

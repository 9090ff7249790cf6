package nn

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func newTestNetwork(t *testing.T, sizes []int, out Activation) *Network {
	t.Helper()
	n, err := New(sizes, ReLU, out, 0.01, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return n
}

func TestPredict_TanhOutputBounded(t *testing.T) {
	n := newTestNetwork(t, []int{7, 24, 24, 2}, Tanh)
	inputs := [][]float64{
		{0, 0, 0, 0, 0, 0, 0},
		{50000, 100, 3, 10, 20, 11, 19},
		{-1e6, 1e6, -1e6, 1e6, -1e6, 1e6, -1e6},
	}
	for _, x := range inputs {
		y, err := n.Predict(x)
		if err != nil {
			t.Fatalf("predict %v: %v", x, err)
		}
		if len(y) != 2 {
			t.Fatalf("expected 2 outputs, got %d", len(y))
		}
		for _, v := range y {
			if v < -1 || v > 1 {
				t.Errorf("output %v outside [-1, 1] for input %v", v, x)
			}
		}
	}
}

func TestPredict_RejectsWrongSize(t *testing.T) {
	n := newTestNetwork(t, []int{3, 4, 1}, Linear)
	if _, err := n.Predict([]float64{1, 2}); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestFit_ReducesLoss(t *testing.T) {
	n := newTestNetwork(t, []int{2, 16, 1}, Linear)
	xs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	ys := [][]float64{{0.1}, {0.5}, {0.5}, {0.9}}

	first, err := n.Fit(xs, ys)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	var last float64
	for i := 0; i < 500; i++ {
		if last, err = n.Fit(xs, ys); err != nil {
			t.Fatalf("fit %d: %v", i, err)
		}
	}
	if last >= first {
		t.Errorf("expected loss to decrease, first=%.6f last=%.6f", first, last)
	}
	if last > 0.01 {
		t.Errorf("expected loss below 0.01 after 500 steps, got %.6f", last)
	}
}

func TestFit_DivergenceLeavesParametersUntouched(t *testing.T) {
	n := newTestNetwork(t, []int{2, 4, 1}, Linear)
	before := n.Clone()

	_, err := n.Fit([][]float64{{1, 1}}, [][]float64{{math.NaN()}})
	if !errors.Is(err, ErrDiverged) {
		t.Fatalf("expected ErrDiverged, got %v", err)
	}
	for li, l := range n.Layers {
		for i := range l.W {
			for j := range l.W[i] {
				if l.W[i][j] != before.Layers[li].W[i][j] {
					t.Fatalf("layer %d weight [%d][%d] changed after divergent fit", li, i, j)
				}
			}
		}
	}
}

func TestPredict_DetectsNaNWeights(t *testing.T) {
	n := newTestNetwork(t, []int{2, 3, 1}, Linear)
	n.Layers[1].B[0] = math.Inf(1)
	if _, err := n.Predict([]float64{1, 1}); !errors.Is(err, ErrDiverged) {
		t.Fatalf("expected ErrDiverged, got %v", err)
	}
}

func TestInputGradient_MatchesFiniteDifference(t *testing.T) {
	n := newTestNetwork(t, []int{3, 8, 1}, Tanh)
	x := []float64{0.3, -0.2, 0.7}
	grad, err := n.InputGradient(x, []float64{1})
	if err != nil {
		t.Fatalf("input gradient: %v", err)
	}
	const h = 1e-6
	for i := range x {
		plus := append([]float64(nil), x...)
		minus := append([]float64(nil), x...)
		plus[i] += h
		minus[i] -= h
		yp, _ := n.Predict(plus)
		ym, _ := n.Predict(minus)
		numeric := (yp[0] - ym[0]) / (2 * h)
		if math.Abs(numeric-grad[i]) > 1e-4 {
			t.Errorf("component %d: analytic %.6f, numeric %.6f", i, grad[i], numeric)
		}
	}
}

func TestCopyFrom_SynchronizesOutputs(t *testing.T) {
	a := newTestNetwork(t, []int{2, 4, 2}, Tanh)
	b, err := New([]int{2, 4, 2}, ReLU, Tanh, 0.01, rand.New(rand.NewPCG(9, 9)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := b.CopyFrom(a); err != nil {
		t.Fatalf("copy: %v", err)
	}
	x := []float64{0.4, -1.2}
	ya, _ := a.Predict(x)
	yb, _ := b.Predict(x)
	for i := range ya {
		if ya[i] != yb[i] {
			t.Errorf("output %d differs after copy: %v vs %v", i, ya[i], yb[i])
		}
	}

	wrong := newTestNetwork(t, []int{3, 4, 2}, Tanh)
	if err := b.CopyFrom(wrong); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestUnmarshal_RestoresPredictions(t *testing.T) {
	n := newTestNetwork(t, []int{7, 24, 24, 2}, Tanh)
	data, err := n.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := Unmarshal(data, 7, 2)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	x := []float64{1, 2, 3, 4, 5, 6, 7}
	want, _ := n.Predict(x)
	got, _ := restored.Predict(x)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("output %d: want %v, got %v", i, want[i], got[i])
		}
	}
	// The restored network must still be trainable.
	if _, err := restored.Fit([][]float64{x}, [][]float64{{0.1, -0.1}}); err != nil {
		t.Errorf("fit after restore: %v", err)
	}
}

func TestUnmarshal_Corrupt(t *testing.T) {
	n := newTestNetwork(t, []int{7, 4, 2}, Tanh)
	good, _ := n.Marshal()

	tests := []struct {
		name    string
		data    []byte
		in, out int
	}{
		{"garbage", []byte("not json"), 7, 2},
		{"empty", []byte(`{"layers":[],"learning_rate":0.001}`), 7, 2},
		{"wrong input", good, 9, 2},
		{"wrong output", good, 7, 1},
		{"bad activation", []byte(`{"layers":[{"w":[[1]],"b":[0],"activation":"sigmoid"}],"learning_rate":0.001}`), 1, 1},
		{"ragged", []byte(`{"layers":[{"w":[[1,2],[1]],"b":[0,0],"activation":"relu"}],"learning_rate":0.001}`), 2, 2},
	}
	for _, tt := range tests {
		if _, err := Unmarshal(tt.data, tt.in, tt.out); !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: expected ErrCorrupt, got %v", tt.name, err)
		}
	}
}

func TestLog1pScale_PreservesSignAndOrder(t *testing.T) {
	got := Log1pScale([]float64{-100, 0, 100, 50000})
	if got[0] >= 0 || got[1] != 0 || got[2] <= 0 {
		t.Errorf("sign not preserved: %v", got)
	}
	if got[3] <= got[2] {
		t.Errorf("order not preserved: %v", got)
	}
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"RLTrader/internal/model"
	"RLTrader/internal/modelstore"
	"RLTrader/internal/nn"
)

// nextTick predicts the last close plus one.
type nextTick struct{}

func (nextTick) Predict(history []float64) (float64, error) {
	return history[len(history)-1] + 1, nil
}

type constPredictor float64

func (c constPredictor) Predict([]float64) (float64, error) { return float64(c), nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InstrumentA = "A"
	cfg.InstrumentB = "B"
	cfg.Seed = 7
	return cfg
}

func testPredictors() Predictors {
	return Predictors{A: nextTick{}, B: nextTick{}}
}

func market(priceA, priceB float64) *model.StockMarketData {
	m := model.NewStockMarketData()
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	m.Add("A", []model.OHLCV{{Time: now, Close: priceA}})
	m.Add("B", []model.OHLCV{{Time: now, Close: priceB}})
	return m
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), cfg, testPredictors(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func step(t *testing.T, e *Engine, s Session, cash, value float64, done bool) (Decision, Session) {
	t.Helper()
	d, next, err := e.Step(s, Input{
		Portfolio:      model.Portfolio{Cash: cash},
		PortfolioValue: value,
		Market:         market(10, 20),
		Done:           done,
	})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	return d, next
}

func TestReward(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name          string
		last, current *float64
		want          int
	}{
		{"gain", f(100000), f(105000), 1},
		{"loss", f(105000), f(100000), -1},
		{"flat", f(100000), f(100000), 0},
		{"no last", nil, f(100000), 0},
		{"no current", f(100000), nil, 0},
		{"tiny gain", f(100000), f(100000.01), 1},
	}
	for _, tt := range tests {
		if got := Reward(tt.last, tt.current); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestStep_ColdFirstCallRecordsNothing(t *testing.T) {
	e := newTestEngine(t, testConfig())

	d, s := step(t, e, Session{}, 50000, 50000, false)
	if d.Recorded {
		t.Error("COLD step must not record a transition")
	}
	if e.MemoryLen() != 0 {
		t.Fatalf("expected empty memory, got %d", e.MemoryLen())
	}
	if !s.Warm() {
		t.Fatal("expected WARM session after first step")
	}
	if v, ok := s.LastPortfolioValue(); !ok || v != 50000 {
		t.Errorf("expected last value 50000, got %v (%v)", v, ok)
	}

	d, _ = step(t, e, s, 50000, 51000, false)
	if !d.Recorded || d.Reward != 1 {
		t.Errorf("expected recorded transition with reward 1, got %+v", d)
	}
	if e.MemoryLen() != 1 {
		t.Errorf("expected 1 transition, got %d", e.MemoryLen())
	}
}

func TestStep_DoneEndsEpisode(t *testing.T) {
	e := newTestEngine(t, testConfig())
	_, s := step(t, e, Session{}, 50000, 50000, false)
	_, s = step(t, e, s, 50000, 49000, true)
	if s.Warm() {
		t.Fatal("expected COLD session after done")
	}
	if !e.buffer.At(0).Done {
		t.Error("expected the terminal transition to carry done")
	}
	d, _ := step(t, e, s, 50000, 50000, false)
	if d.Recorded {
		t.Error("first step of a new episode must not record a transition")
	}
}

func TestStep_EpsilonDecay(t *testing.T) {
	cfg := testConfig()
	cfg.TrainStart = cfg.MemorySize // no training within this test

	e := newTestEngine(t, cfg)
	s := Session{}
	for i := 0; i <= 500; i++ {
		_, s = step(t, e, s, 50000, 50000, false)
	}
	if math.Abs(e.Epsilon()-0.6064) > 1e-4 {
		t.Errorf("expected epsilon ~0.6064 after 500 WARM steps, got %.6f", e.Epsilon())
	}

	cfg.EpsilonDecay = 0.5
	e = newTestEngine(t, cfg)
	s = Session{}
	prev := e.Epsilon()
	for i := 0; i < 30; i++ {
		_, s = step(t, e, s, 50000, 50000, false)
		if e.Epsilon() > prev {
			t.Fatalf("epsilon increased from %v to %v", prev, e.Epsilon())
		}
		prev = e.Epsilon()
	}
	if e.Epsilon() != cfg.EpsilonMin {
		t.Errorf("expected epsilon floored at %v, got %v", cfg.EpsilonMin, e.Epsilon())
	}
}

func TestStep_ActionsBoundedAndAffordable(t *testing.T) {
	cfg := testConfig()
	cfg.TrainStart = 16
	cfg.BatchSize = 8
	cfg.MemorySize = 64
	e := newTestEngine(t, cfg)

	s := Session{}
	p := model.Portfolio{Cash: 1000, Holdings: []model.Holding{{Instrument: "A", Quantity: 40}, {Instrument: "B", Quantity: 3}}}
	for i := 0; i < 200; i++ {
		d, next, err := e.Step(s, Input{Portfolio: p, PortfolioValue: p.Value(market(10, 20)), Market: market(10, 20)})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		s = next
		for _, a := range []float64{d.ActionA, d.ActionB} {
			if a < -1 || a > 1 || math.IsNaN(a) {
				t.Fatalf("step %d: action %v out of range", i, a)
			}
		}
		if len(d.Actions) > 2 {
			t.Fatalf("step %d: %d actions", i, len(d.Actions))
		}
		var spent float64
		for _, act := range d.Actions {
			if act.Amount <= 0 {
				t.Fatalf("step %d: non-positive amount in %v", i, act)
			}
			if act.Direction == model.Buy {
				price, _ := market(10, 20).Price(act.Instrument)
				spent += float64(act.Amount) * price
			} else if act.Amount > p.Quantity(act.Instrument) {
				t.Fatalf("step %d: sells more than held: %v", i, act)
			}
		}
		if spent > p.Cash {
			t.Fatalf("step %d: spends %.2f with %.2f cash", i, spent, p.Cash)
		}
	}
	if e.TrainSteps() == 0 {
		t.Error("expected training to have started")
	}
}

func TestStep_DeterministicWithSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Epsilon = 0
	cfg.EpsilonMin = 0
	cfg.TrainStart = 4
	cfg.BatchSize = 4
	cfg.MemorySize = 8

	run := func() []model.TradingActionList {
		e := newTestEngine(t, cfg)
		s := Session{}
		var out []model.TradingActionList
		for i := 0; i < 20; i++ {
			var d Decision
			d, s = step(t, e, s, 50000, 50000+float64(i%3)*100, false)
			out = append(out, d.Actions)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if len(a[i]) != len(b[i]) {
			t.Fatalf("step %d: %v vs %v", i, a[i], b[i])
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("step %d: %v vs %v", i, a[i], b[i])
			}
		}
	}
}

func TestStep_EndToEndBuy(t *testing.T) {
	cfg := testConfig()
	cfg.Epsilon = 0
	cfg.EpsilonMin = 0
	e := newTestEngine(t, cfg)

	actor := e.train.Actor()
	for _, l := range actor.Layers {
		for i := range l.W {
			for j := range l.W[i] {
				l.W[i][j] = 0
			}
			l.B[i] = 0
		}
	}
	last := actor.Layers[len(actor.Layers)-1]
	last.B[0] = math.Atanh(0.5)

	d, _, err := e.Step(Session{}, Input{
		Portfolio:      model.Portfolio{Cash: 50000},
		PortfolioValue: 50000,
		Market:         market(10, 20),
	})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if d.State.PredictedA != 11 || d.State.PredictedB != 21 {
		t.Errorf("unexpected predictions in state: %+v", d.State)
	}
	if d.Recorded || e.MemoryLen() != 0 {
		t.Error("COLD step must not record a transition")
	}
	want := model.TradingAction{Instrument: "A", Direction: model.Buy, Amount: 2500}
	if len(d.Actions) != 1 || d.Actions[0] != want {
		t.Fatalf("expected [%v], got %v", want, d.Actions)
	}
}

func TestTranslate(t *testing.T) {
	s := model.State{Cash: 1000, HoldingA: 10, HoldingB: 7, PriceA: 100, PriceB: 30}
	tests := []struct {
		name string
		a, b float64
		want model.TradingActionList
	}{
		{"deadband", 0.005, -0.009, model.TradingActionList{}},
		{"buy both shares cash", 1, 1, model.TradingActionList{
			{Instrument: "A", Direction: model.Buy, Amount: 10},
		}},
		{"buy half then rest", 0.5, 1, model.TradingActionList{
			{Instrument: "A", Direction: model.Buy, Amount: 5},
			{Instrument: "B", Direction: model.Buy, Amount: 16},
		}},
		{"sell", -0.5, -1, model.TradingActionList{
			{Instrument: "A", Direction: model.Sell, Amount: 5},
			{Instrument: "B", Direction: model.Sell, Amount: 7},
		}},
		{"rounds to zero", 0.05, -0.1, model.TradingActionList{}},
	}
	for _, tt := range tests {
		got, err := Translate(s, "A", "B", tt.a, tt.b, 0.01)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got == nil {
			t.Fatalf("%s: nil list", tt.name)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: action %d = %v, want %v", tt.name, i, got[i], tt.want[i])
			}
		}
	}

	for _, bad := range [][2]float64{{1.5, 0}, {0, -1.01}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		if _, err := Translate(s, "A", "B", bad[0], bad[1], 0.01); !errors.Is(err, ErrActionOutOfRange) {
			t.Errorf("action %v: expected ErrActionOutOfRange, got %v", bad, err)
		}
	}
}

func TestStep_InvalidState(t *testing.T) {
	e, err := NewEngine(context.Background(), testConfig(), Predictors{A: constPredictor(math.NaN()), B: nextTick{}}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	_, s, err := e.Step(Session{}, Input{Portfolio: model.Portfolio{Cash: 100}, PortfolioValue: 100, Market: market(10, 20)})
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if s.Warm() {
		t.Error("failed step must not warm the session")
	}

	e = newTestEngine(t, testConfig())
	missing := model.NewStockMarketData()
	missing.Add("A", []model.OHLCV{{Close: 10}})
	if _, _, err := e.Step(Session{}, Input{Portfolio: model.Portfolio{Cash: 100}, PortfolioValue: 100, Market: missing}); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for missing price, got %v", err)
	}
}

func TestStep_Divergence(t *testing.T) {
	cfg := testConfig()
	cfg.Epsilon = 0
	cfg.EpsilonMin = 0
	e := newTestEngine(t, cfg)
	layers := e.train.Actor().Layers
	layers[len(layers)-1].B[0] = math.NaN()

	_, _, err := e.Step(Session{}, Input{Portfolio: model.Portfolio{Cash: 100}, PortfolioValue: 100, Market: market(10, 20)})
	if !errors.Is(err, nn.ErrDiverged) {
		t.Fatalf("expected ErrDiverged, got %v", err)
	}
}

func TestEngine_SaveAndRestore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Epsilon = 0.3
	store := modelstore.NewMemory()

	e, err := NewEngine(ctx, cfg, testPredictors(), store)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg.Epsilon = 1
	cfg.Seed = 99
	restored, err := NewEngine(ctx, cfg, testPredictors(), store)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Epsilon() != 0.3 {
		t.Errorf("expected restored epsilon 0.3, got %v", restored.Epsilon())
	}
	x := Encode(model.State{Cash: 5000, PriceA: 10, PriceB: 20, PredictedA: 11, PredictedB: 19})
	want, _ := e.train.Actor().Predict(x)
	got, _ := restored.train.Actor().Predict(x)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("actor output %d: want %v, got %v", i, want[i], got[i])
		}
	}
}

func TestNewEngine_FallsBackToFresh(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	corrupt := modelstore.NewMemory()
	corrupt.SetRaw([]byte("{not json"))

	unusable := modelstore.NewMemory()
	if err := unusable.Save(ctx, modelstore.Artifact{
		Actor:   json.RawMessage(`{"layers":[]}`),
		Critic:  json.RawMessage(`{"layers":[]}`),
		Epsilon: 0.2,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	for name, store := range map[string]modelstore.Store{
		"not found": modelstore.NewMemory(),
		"corrupt":   corrupt,
		"unusable":  unusable,
	} {
		e, err := NewEngine(ctx, cfg, testPredictors(), store)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if e.Epsilon() != cfg.Epsilon {
			t.Errorf("%s: expected fresh epsilon %v, got %v", name, cfg.Epsilon, e.Epsilon())
		}
		if _, _, err := e.Step(Session{}, Input{Portfolio: model.Portfolio{Cash: 100}, PortfolioValue: 100, Market: market(10, 20)}); err != nil {
			t.Errorf("%s: fresh engine step: %v", name, err)
		}
	}
}

func TestTrader_DoTrade(t *testing.T) {
	tr := NewTrader(newTestEngine(t, testConfig()))
	p := model.Portfolio{Cash: 50000}
	m := market(10, 20)

	actions, err := tr.DoTrade(p, 50000, m, false)
	if err != nil {
		t.Fatalf("do trade: %v", err)
	}
	if actions == nil {
		t.Fatal("expected non-nil action list")
	}
	if _, err := tr.DoTrade(p, 50000, m, false); err != nil {
		t.Fatalf("do trade: %v", err)
	}
	if !tr.LastDecision().Recorded {
		t.Error("second call should record a transition")
	}
	tr.NewEpisode()
	if _, err := tr.DoTrade(p, 50000, m, false); err != nil {
		t.Fatalf("do trade: %v", err)
	}
	if tr.LastDecision().Recorded {
		t.Error("call after NewEpisode should start COLD")
	}
}

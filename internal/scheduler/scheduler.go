package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"RLTrader/internal/agent"
	"RLTrader/internal/collector"
	"RLTrader/internal/notifier"
	"RLTrader/internal/portfolio"
	"RLTrader/internal/recorder"
)

// Sender delivers notifications.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks of live paper trading. Ticks, saves and
// commands are serialized so the engine only ever sees one decision at a time.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Ledger    *portfolio.Manager
	Trader    *agent.Trader
	Notifier  Sender
	Recorder  recorder.Recorder
	Ctx       context.Context
	RunID     string

	mu       sync.Mutex
	step     int
	lastTick time.Time
}

// NewScheduler creates a new Scheduler. tn may be nil to disable notifications.
func NewScheduler(ctx context.Context, col *collector.Collector, ledger *portfolio.Manager, trader *agent.Trader, tn Sender, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Ledger:    ledger,
		Trader:    trader,
		Notifier:  tn,
		Recorder:  rec,
		Ctx:       ctx,
		RunID:     uuid.NewString(),
	}
}

// RegisterAll registers the trade tick and the periodic model save.
func (s *Scheduler) RegisterAll(tradeCron, saveCron string) error {
	if _, err := s.Cron.AddFunc(tradeCron, s.tradeTask); err != nil {
		return fmt.Errorf("register trade task: %w", err)
	}
	if _, err := s.Cron.AddFunc(saveCron, s.saveTask); err != nil {
		return fmt.Errorf("register save task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Printf("[INFO] scheduler started, run: %s", s.RunID)
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunTradeNow executes one trade tick immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunTradeNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trade()
}

func (s *Scheduler) tradeTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.trade(); err != nil {
		log.Printf("[ERROR] trade tick: %v", err)
		s.trySend(notifier.FormatError("trade tick", err))
	}
}

// trade runs collect, decide, apply, record and notify. Callers hold mu.
func (s *Scheduler) trade() error {
	log.Println("[INFO] running trade tick")
	market, err := s.Collector.Snapshot(s.Ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	p := s.Ledger.Portfolio()
	value := s.Ledger.Value(market)

	// Live trading is one continuing episode; done is never raised.
	actions, err := s.Trader.DoTrade(p, value, market, false)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	if _, err := s.Ledger.Apply(actions, market); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	s.step++
	s.lastTick = time.Now()

	d := s.Trader.LastDecision()
	if err := s.Recorder.RecordDecision(&recorder.DecisionEvent{
		RunID:          s.RunID,
		Step:           s.step,
		MarketTime:     s.lastTick,
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
		log.Printf("[ERROR] record decision: %v", err)
	}

	log.Printf("[INFO] tick %d: actions: %v, value: %.2f, epsilon: %.4f", s.step, actions, value, d.Epsilon)
	s.trySend(notifier.FormatTradeReport(notifier.TradeReport{
		Time:     s.lastTick,
		State:    d.State,
		ActionA:  d.ActionA,
		ActionB:  d.ActionB,
		Explored: d.Explored,
		Actions:  actions,
		Value:    s.Ledger.Value(market),
		Epsilon:  d.Epsilon,
	}))
	return nil
}

func (s *Scheduler) saveTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Trader.Engine().Save(s.Ctx); err != nil {
		log.Printf("[ERROR] save model: %v", err)
		s.trySend(notifier.FormatError("save model", err))
		return
	}
	log.Println("[INFO] model saved")
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		s.mu.Lock()
		defer s.mu.Unlock()
		e := s.Trader.Engine()
		return notifier.FormatStatus(notifier.Status{
			Epsilon:    e.Epsilon(),
			MemoryLen:  e.MemoryLen(),
			TrainSteps: e.TrainSteps(),
			LastTick:   s.lastTick,
			Value:      s.lastValue(),
		})
	case "/portfolio":
		s.mu.Lock()
		defer s.mu.Unlock()
		return notifier.FormatPortfolio(s.Ledger.Portfolio(), s.lastValue())
	case "/save":
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.Trader.Engine().Save(s.Ctx); err != nil {
			return notifier.FormatError("save model", err)
		}
		return "💾 Model saved"
	case "/trade":
		s.tradeTask()
		return ""
	default:
		return "Commands:\n• /status\n• /portfolio\n• /save\n• /trade"
	}
}

// lastValue is the portfolio value at the prices of the last decision.
func (s *Scheduler) lastValue() float64 {
	d := s.Trader.LastDecision()
	p := s.Ledger.Portfolio()
	a, b := s.Trader.Engine().Instruments()
	return p.Cash + float64(p.Quantity(a))*d.State.PriceA + float64(p.Quantity(b))*d.State.PriceB
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

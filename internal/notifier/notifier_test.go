package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"RLTrader/internal/model"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []string
	failures int
	updates  string
}

func (f *fakeBot) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if !strings.HasPrefix(r.URL.Path, "/bottoken/") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if f.failures > 0 {
				f.failures--
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			f.sent = append(f.sent, body["text"])
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(f.updates))
		default:
			http.NotFound(w, r)
		}
	}
}

func TestSendWithRetry(t *testing.T) {
	bot := &fakeBot{failures: 2}
	srv := httptest.NewServer(bot.handler(t))
	defer srv.Close()

	n := newTelegramNotifier(srv.URL, "token", "42", "")
	if err := n.sendWithRetry(context.Background(), "hello", 3, time.Millisecond); err != nil {
		t.Fatalf("send with retry: %v", err)
	}
	if len(bot.sent) != 1 || bot.sent[0] != "hello" {
		t.Errorf("expected one delivered message, got %v", bot.sent)
	}

	bot.mu.Lock()
	bot.failures = 10
	bot.mu.Unlock()
	if err := n.sendWithRetry(context.Background(), "lost", 1, time.Millisecond); err == nil {
		t.Error("expected error once retries are exhausted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.sendWithRetry(ctx, "cancelled", 3, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPoll_DispatchesCommands(t *testing.T) {
	bot := &fakeBot{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /status "}},
		{"update_id":8}
	]}`}
	srv := httptest.NewServer(bot.handler(t))
	defer srv.Close()

	n := newTelegramNotifier(srv.URL, "token", "42", "")
	var got []string
	offset, err := n.poll(context.Background(), 0, 0, func(cmd string) string {
		got = append(got, cmd)
		return "ok: " + cmd
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if offset != 9 {
		t.Errorf("expected next offset 9, got %d", offset)
	}
	if len(got) != 1 || got[0] != "/status" {
		t.Errorf("expected trimmed /status command, got %v", got)
	}
	if len(bot.sent) != 1 || bot.sent[0] != "ok: /status" {
		t.Errorf("expected reply to be sent, got %v", bot.sent)
	}
}

func TestFormatters(t *testing.T) {
	msg := FormatTradeReport(TradeReport{
		Time:    time.Date(2024, 1, 2, 22, 5, 0, 0, time.UTC),
		State:   model.State{PriceA: 10, PredictedA: 11, PriceB: 20, PredictedB: 19},
		ActionA: 0.5,
		Actions: model.TradingActionList{{Instrument: "A", Direction: model.Buy, Amount: 2500}},
		Value:   50000,
	})
	if !strings.Contains(msg, "BUY 2500 A") || !strings.Contains(msg, "greedy") {
		t.Errorf("unexpected trade report:\n%s", msg)
	}
	if msg := FormatTradeReport(TradeReport{Explored: true}); !strings.Contains(msg, "No trades") || !strings.Contains(msg, "explore") {
		t.Errorf("unexpected empty report:\n%s", msg)
	}

	p := model.Portfolio{Cash: 100, Holdings: []model.Holding{{Instrument: "A", Quantity: 3}}}
	if msg := FormatPortfolio(p, 130); !strings.Contains(msg, "A: 3") || !strings.Contains(msg, "130.00") {
		t.Errorf("unexpected portfolio message:\n%s", msg)
	}
	if msg := FormatStatus(Status{Epsilon: 0.5, MemoryLen: 12}); !strings.Contains(msg, "never") || !strings.Contains(msg, "12") {
		t.Errorf("unexpected status message:\n%s", msg)
	}
}

package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so reports can read while training writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			run_id          TEXT NOT NULL,
			episode         INTEGER,
			step            INTEGER,
			market_time     INTEGER,
			cash            REAL,
			holding_a       INTEGER,
			holding_b       INTEGER,
			price_a         REAL,
			price_b         REAL,
			predicted_a     REAL,
			predicted_b     REAL,
			portfolio_value REAL,
			action_a        REAL,
			action_b        REAL,
			explored        INTEGER,
			recorded        INTEGER,
			reward          INTEGER,
			epsilon         REAL,
			critic_loss     REAL,
			actor_loss      REAL,
			actions         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id, episode)`,

		`CREATE TABLE IF NOT EXISTS episodes (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			run_id        TEXT NOT NULL,
			episode       INTEGER,
			steps         INTEGER,
			initial_value REAL,
			final_value   REAL,
			return_pct    REAL,
			trades        INTEGER,
			epsilon       REAL,
			train_steps   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_ts ON episodes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDecision(evt *DecisionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]string, len(evt.Actions))
	for i, a := range evt.Actions {
		actions[i] = a.String()
	}
	s := evt.State
	_, err := r.db.Exec(`INSERT INTO decisions
		(timestamp, run_id, episode, step, market_time,
		 cash, holding_a, holding_b, price_a, price_b, predicted_a, predicted_b,
		 portfolio_value, action_a, action_b, explored, recorded, reward,
		 epsilon, critic_loss, actor_loss, actions)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.RunID, evt.Episode, evt.Step, evt.MarketTime.Unix(),
		s.Cash, s.HoldingA, s.HoldingB, s.PriceA, s.PriceB, s.PredictedA, s.PredictedB,
		evt.PortfolioValue, evt.ActionA, evt.ActionB, evt.Explored, evt.Recorded, evt.Reward,
		evt.Epsilon, evt.CriticLoss, evt.ActorLoss, strings.Join(actions, "; "),
	)
	return err
}

func (r *SQLiteRecorder) RecordEpisode(evt *EpisodeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO episodes
		(timestamp, run_id, episode, steps, initial_value, final_value, return_pct, trades, epsilon, train_steps)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.RunID, evt.Episode, evt.Steps,
		evt.InitialValue, evt.FinalValue, evt.Return()*100,
		evt.Trades, evt.Epsilon, evt.TrainSteps,
	)
	return err
}

// RecentEpisodes returns up to limit episode summaries, newest first.
func (r *SQLiteRecorder) RecentEpisodes(limit int) ([]EpisodeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, episode, steps, initial_value, final_value, trades, epsilon, train_steps
		FROM episodes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeEvent
	for rows.Next() {
		var e EpisodeEvent
		if err := rows.Scan(&e.RunID, &e.Episode, &e.Steps, &e.InitialValue, &e.FinalValue, &e.Trades, &e.Epsilon, &e.TrainSteps); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

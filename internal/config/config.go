package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"RLTrader/internal/agent"
	"RLTrader/internal/predictor"
)

// Instrument names one of the two traded instruments.
type Instrument struct {
	Name      string         `yaml:"name"`
	Symbol    string         `yaml:"symbol"`
	Predictor predictor.Kind `yaml:"predictor"`
}

// Config holds all application configuration.
type Config struct {
	Agent struct {
		HiddenSize         int     `yaml:"hidden_size"`
		DiscountFactor     float64 `yaml:"discount_factor"`
		LearningRate       float64 `yaml:"learning_rate"`
		Epsilon            float64 `yaml:"epsilon"`
		EpsilonDecay       float64 `yaml:"epsilon_decay"`
		EpsilonMin         float64 `yaml:"epsilon_min"`
		BatchSize          int     `yaml:"batch_size"`
		TrainStart         int     `yaml:"train_start"`
		MemorySize         int     `yaml:"memory_size"`
		TargetSyncInterval int     `yaml:"target_sync_interval"`
		ActorStep          float64 `yaml:"actor_step"`
		ActionDeadband     float64 `yaml:"action_deadband"`
	} `yaml:"agent"`
	Instruments struct {
		A Instrument `yaml:"a"`
		B Instrument `yaml:"b"`
	} `yaml:"instruments"`
	Data struct {
		Pattern     string `yaml:"pattern"`
		HistoryDays int    `yaml:"history_days"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"data"`
	Training struct {
		Episodes    int     `yaml:"episodes"`
		InitialCash float64 `yaml:"initial_cash"`
		WarmUp      int     `yaml:"warm_up"`
		Seed        uint64  `yaml:"seed"`
	} `yaml:"training"`
	Model struct {
		Store string `yaml:"store"`
		Path  string `yaml:"path"`
	} `yaml:"model"`
	Portfolio struct {
		StateFile   string  `yaml:"state_file"`
		InitialCash float64 `yaml:"initial_cash"`
	} `yaml:"portfolio"`
	Schedule struct {
		TradeCron string `yaml:"trade_cron"`
		SaveCron  string `yaml:"save_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then .env, then applies environment
// variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("DATA_PATTERN"); v != "" {
		cfg.Data.Pattern = v
	}
	if v := os.Getenv("MODEL_STORE"); v != "" {
		cfg.Model.Store = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("TRAINING_EPISODES"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.Training.Episodes = n
		}
	}
	if v := os.Getenv("AGENT_SEED"); v != "" {
		var seed uint64
		if _, err := fmt.Sscanf(v, "%d", &seed); err == nil {
			cfg.Training.Seed = seed
		}
	}
	if v := os.Getenv("INITIAL_CASH"); v != "" {
		var cash float64
		if _, err := fmt.Sscanf(v, "%f", &cash); err == nil {
			cfg.Training.InitialCash = cash
			cfg.Portfolio.InitialCash = cash
		}
	}
	if v := os.Getenv("CRON_TRADE"); v != "" {
		cfg.Schedule.TradeCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := agent.DefaultConfig()
	a := &c.Agent
	if a.HiddenSize == 0 {
		a.HiddenSize = def.HiddenSize
	}
	if a.DiscountFactor == 0 {
		a.DiscountFactor = def.DiscountFactor
	}
	if a.LearningRate == 0 {
		a.LearningRate = def.LearningRate
	}
	if a.Epsilon == 0 {
		a.Epsilon = def.Epsilon
	}
	if a.EpsilonDecay == 0 {
		a.EpsilonDecay = def.EpsilonDecay
	}
	if a.EpsilonMin == 0 {
		a.EpsilonMin = def.EpsilonMin
	}
	if a.BatchSize == 0 {
		a.BatchSize = def.BatchSize
	}
	if a.TrainStart == 0 {
		a.TrainStart = def.TrainStart
	}
	if a.MemorySize == 0 {
		a.MemorySize = def.MemorySize
	}
	if a.TargetSyncInterval == 0 {
		a.TargetSyncInterval = def.TargetSyncInterval
	}
	if a.ActorStep == 0 {
		a.ActorStep = def.ActorStep
	}
	if a.ActionDeadband == 0 {
		a.ActionDeadband = def.ActionDeadband
	}

	if c.Instruments.A.Name == "" {
		c.Instruments.A.Name = "stock_a"
	}
	if c.Instruments.B.Name == "" {
		c.Instruments.B.Name = "stock_b"
	}
	if c.Instruments.A.Predictor == "" {
		c.Instruments.A.Predictor = predictor.KindSimple
	}
	if c.Instruments.B.Predictor == "" {
		c.Instruments.B.Predictor = predictor.KindSimple
	}

	if c.Data.Pattern == "" {
		c.Data.Pattern = "data/history/*.csv"
	}
	if c.Data.HistoryDays == 0 {
		c.Data.HistoryDays = 60
	}
	if c.Data.BaseURL == "" {
		c.Data.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Training.Episodes == 0 {
		c.Training.Episodes = 10
	}
	if c.Training.InitialCash == 0 {
		c.Training.InitialCash = 100000
	}
	if c.Training.WarmUp == 0 {
		c.Training.WarmUp = 1
	}
	if c.Model.Store == "" {
		c.Model.Store = "file"
	}
	if c.Model.Path == "" {
		if c.Model.Store == "sqlite" {
			c.Model.Path = "data/model.db"
		} else {
			c.Model.Path = "data/model.json"
		}
	}
	if c.Portfolio.StateFile == "" {
		c.Portfolio.StateFile = "data/portfolio_state.json"
	}
	if c.Portfolio.InitialCash == 0 {
		c.Portfolio.InitialCash = c.Training.InitialCash
	}
	if c.Schedule.TradeCron == "" {
		c.Schedule.TradeCron = "0 5 22 * * 1-5"
	}
	if c.Schedule.SaveCron == "" {
		c.Schedule.SaveCron = "0 30 22 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/rltrader.db"
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if err := c.AgentConfig().Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	for _, in := range []Instrument{c.Instruments.A, c.Instruments.B} {
		if _, err := predictor.New(in.Predictor); err != nil {
			return fmt.Errorf("instrument %s: %w", in.Name, err)
		}
	}
	if c.Model.Store != "file" && c.Model.Store != "sqlite" {
		return fmt.Errorf("model.store must be file or sqlite, got %q", c.Model.Store)
	}
	if c.Training.Episodes <= 0 {
		return fmt.Errorf("training.episodes must be positive")
	}
	if c.Training.InitialCash <= 0 {
		return fmt.Errorf("training.initial_cash must be positive")
	}
	if c.Training.WarmUp < 0 {
		return fmt.Errorf("training.warm_up must not be negative")
	}
	if c.Portfolio.InitialCash <= 0 {
		return fmt.Errorf("portfolio.initial_cash must be positive")
	}
	return nil
}

// ValidateLive checks the additional settings paper trading needs.
func (c *Config) ValidateLive() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Instruments.A.Symbol == "" || c.Instruments.B.Symbol == "" {
		return fmt.Errorf("instruments.a.symbol and instruments.b.symbol are required")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required")
		}
	}
	return nil
}

// AgentConfig converts the agent section into engine hyperparameters.
func (c *Config) AgentConfig() agent.Config {
	a := c.Agent
	return agent.Config{
		InstrumentA:        c.Instruments.A.Name,
		InstrumentB:        c.Instruments.B.Name,
		HiddenSize:         a.HiddenSize,
		DiscountFactor:     a.DiscountFactor,
		LearningRate:       a.LearningRate,
		Epsilon:            a.Epsilon,
		EpsilonDecay:       a.EpsilonDecay,
		EpsilonMin:         a.EpsilonMin,
		BatchSize:          a.BatchSize,
		TrainStart:         a.TrainStart,
		MemorySize:         a.MemorySize,
		TargetSyncInterval: a.TargetSyncInterval,
		ActorStep:          a.ActorStep,
		ActionDeadband:     a.ActionDeadband,
		Seed:               c.Training.Seed,
	}
}

// Predictors builds the predictor for each instrument.
func (c *Config) Predictors() (agent.Predictors, error) {
	a, err := predictor.New(c.Instruments.A.Predictor)
	if err != nil {
		return agent.Predictors{}, err
	}
	b, err := predictor.New(c.Instruments.B.Predictor)
	if err != nil {
		return agent.Predictors{}, err
	}
	return agent.Predictors{A: a, B: b}, nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string
	HTTPPort         int
	DecisionPollSecs int

	Symbols []string

	Pipeline PipelineConfig
}

// PipelineConfig carries every threshold, window and risk level used by the
// core pipeline. Components receive it explicitly; nothing is hardwired at a
// call site.
type PipelineConfig struct {
	NewsBullishThreshold    float64
	NewsBearishThreshold    float64
	HighConfidenceThreshold float64
	BreakoutThreshold       float64
	DecayHalfLifeDays       float64
	ImportanceEpsilon       float64

	SMAShortWindow   int
	SMALongWindow    int
	RSIPeriod        int
	VolatilityWindow int

	WalkForwardWindow  int
	WalkForwardWorkers int
	BoostRounds        int
	BoostMaxDepth      int
	BoostLearningRate  float64
	BoostSubSample     float64
	Seed               int64

	StopLoss        float64
	TakeProfit      float64
	RiskPerTrade    float64
	MinPositionSize float64
	StartingCapital float64
	MinPriceRows    int

	EnableAnomalyGuard bool
	AnomalyThreshold   float64
	AnomalyDampMax     float64
	AnomalyTrees       int
	AnomalySampleSize  int
}

func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		NewsBullishThreshold:    0.1,
		NewsBearishThreshold:    -0.1,
		HighConfidenceThreshold: 0.25,
		BreakoutThreshold:       0.35,
		DecayHalfLifeDays:       3,
		ImportanceEpsilon:       0.1,

		SMAShortWindow:   20,
		SMALongWindow:    50,
		RSIPeriod:        14,
		VolatilityWindow: 20,

		WalkForwardWindow:  500,
		WalkForwardWorkers: 4,
		BoostRounds:        100,
		BoostMaxDepth:      3,
		BoostLearningRate:  0.05,
		BoostSubSample:     0.8,
		Seed:               42,

		StopLoss:        0.02,
		TakeProfit:      0.04,
		RiskPerTrade:    0.01,
		MinPositionSize: 0.01,
		StartingCapital: 100000,
		MinPriceRows:    600,

		EnableAnomalyGuard: false,
		AnomalyThreshold:   0.62,
		AnomalyDampMax:     0.65,
		AnomalyTrees:       200,
		AnomalySampleSize:  256,
	}
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Pipeline:         DefaultPipeline(),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, alerts disabled")
	}

	cfg.HTTPPort = envInt("HTTP_PORT", 8080)
	cfg.DecisionPollSecs = envInt("DECISION_POLL_SECS", 900)
	cfg.Symbols = parseSymbols(os.Getenv("SYMBOLS"))

	p := &cfg.Pipeline
	p.NewsBullishThreshold = envFloat("NEWS_BULLISH_THRESHOLD", p.NewsBullishThreshold)
	p.NewsBearishThreshold = envFloat("NEWS_BEARISH_THRESHOLD", p.NewsBearishThreshold)
	p.HighConfidenceThreshold = envFloat("FUSION_HIGH_CONFIDENCE_THRESHOLD", p.HighConfidenceThreshold)
	p.BreakoutThreshold = envFloat("FUSION_BREAKOUT_THRESHOLD", p.BreakoutThreshold)
	p.DecayHalfLifeDays = envFloat("DECAY_HALF_LIFE_DAYS", p.DecayHalfLifeDays)
	p.ImportanceEpsilon = envFloat("IMPORTANCE_EPSILON", p.ImportanceEpsilon)

	p.SMAShortWindow = envInt("SMA_SHORT_WINDOW", p.SMAShortWindow)
	p.SMALongWindow = envInt("SMA_LONG_WINDOW", p.SMALongWindow)
	p.RSIPeriod = envInt("RSI_PERIOD", p.RSIPeriod)
	p.VolatilityWindow = envInt("VOLATILITY_WINDOW", p.VolatilityWindow)

	p.WalkForwardWindow = envInt("WALK_FORWARD_WINDOW", p.WalkForwardWindow)
	p.WalkForwardWorkers = envInt("WALK_FORWARD_WORKERS", p.WalkForwardWorkers)
	p.BoostRounds = envInt("BOOST_ROUNDS", p.BoostRounds)
	p.BoostMaxDepth = envInt("BOOST_MAX_DEPTH", p.BoostMaxDepth)
	p.BoostLearningRate = envFloat("BOOST_LEARNING_RATE", p.BoostLearningRate)
	p.BoostSubSample = envFloat("BOOST_SUBSAMPLE", p.BoostSubSample)
	p.Seed = int64(envInt("MODEL_SEED", int(p.Seed)))

	p.StopLoss = envFloat("STOP_LOSS", p.StopLoss)
	p.TakeProfit = envFloat("TAKE_PROFIT", p.TakeProfit)
	p.RiskPerTrade = envFloat("RISK_PER_TRADE", p.RiskPerTrade)
	p.MinPositionSize = envFloat("MIN_POSITION_SIZE", p.MinPositionSize)
	p.StartingCapital = envFloat("STARTING_CAPITAL", p.StartingCapital)
	p.MinPriceRows = envInt("MIN_PRICE_ROWS", p.MinPriceRows)

	p.EnableAnomalyGuard = envBool("ENABLE_ANOMALY_GUARD", p.EnableAnomalyGuard)
	p.AnomalyThreshold = envFloat("ANOMALY_THRESHOLD", p.AnomalyThreshold)
	p.AnomalyDampMax = envFloat("ANOMALY_DAMP_MAX", p.AnomalyDampMax)
	p.AnomalyTrees = envInt("ANOMALY_TREES", p.AnomalyTrees)
	p.AnomalySampleSize = envInt("ANOMALY_SAMPLE_SIZE", p.AnomalySampleSize)

	return cfg
}

// Validate rejects configurations the pipeline cannot run with. Callers treat
// an error here as fatal before any component is constructed.
func (p PipelineConfig) Validate() error {
	if p.NewsBullishThreshold <= 0 || p.NewsBullishThreshold > 1 {
		return fmt.Errorf("news bullish threshold must be in (0,1], got %v", p.NewsBullishThreshold)
	}
	if p.NewsBearishThreshold >= 0 || p.NewsBearishThreshold < -1 {
		return fmt.Errorf("news bearish threshold must be in [-1,0), got %v", p.NewsBearishThreshold)
	}
	if p.HighConfidenceThreshold <= 0 || p.HighConfidenceThreshold > 1 {
		return fmt.Errorf("high confidence threshold must be in (0,1], got %v", p.HighConfidenceThreshold)
	}
	if p.BreakoutThreshold <= 0 || p.BreakoutThreshold > 1 {
		return fmt.Errorf("breakout threshold must be in (0,1], got %v", p.BreakoutThreshold)
	}
	if p.DecayHalfLifeDays <= 0 {
		return fmt.Errorf("decay half-life must be positive, got %v", p.DecayHalfLifeDays)
	}
	if p.ImportanceEpsilon <= 0 {
		return fmt.Errorf("importance epsilon must be positive, got %v", p.ImportanceEpsilon)
	}
	if p.SMAShortWindow <= 0 || p.SMALongWindow <= 0 || p.SMAShortWindow >= p.SMALongWindow {
		return fmt.Errorf("sma windows must satisfy 0 < short < long, got %d/%d", p.SMAShortWindow, p.SMALongWindow)
	}
	if p.RSIPeriod <= 0 {
		return fmt.Errorf("rsi period must be positive, got %d", p.RSIPeriod)
	}
	if p.VolatilityWindow <= 0 {
		return fmt.Errorf("volatility window must be positive, got %d", p.VolatilityWindow)
	}
	if p.WalkForwardWindow <= 0 {
		return fmt.Errorf("walk-forward window must be positive, got %d", p.WalkForwardWindow)
	}
	if p.WalkForwardWorkers <= 0 {
		return fmt.Errorf("walk-forward workers must be positive, got %d", p.WalkForwardWorkers)
	}
	if p.BoostRounds <= 0 || p.BoostMaxDepth <= 0 {
		return fmt.Errorf("boost rounds and depth must be positive, got %d/%d", p.BoostRounds, p.BoostMaxDepth)
	}
	if p.BoostLearningRate <= 0 || p.BoostLearningRate >= 1 {
		return fmt.Errorf("learning rate must be in (0,1), got %v", p.BoostLearningRate)
	}
	if p.BoostSubSample <= 0 || p.BoostSubSample > 1 {
		return fmt.Errorf("subsample must be in (0,1], got %v", p.BoostSubSample)
	}
	if p.StopLoss <= 0 || p.TakeProfit <= 0 {
		return fmt.Errorf("stop loss and take profit must be positive, got %v/%v", p.StopLoss, p.TakeProfit)
	}
	if p.RiskPerTrade <= 0 {
		return fmt.Errorf("risk per trade must be positive, got %v", p.RiskPerTrade)
	}
	if p.MinPositionSize < 0 || p.MinPositionSize > 1 {
		return fmt.Errorf("minimum position size must be in [0,1], got %v", p.MinPositionSize)
	}
	if p.StartingCapital <= 0 {
		return fmt.Errorf("starting capital must be positive, got %v", p.StartingCapital)
	}
	if p.MinPriceRows <= p.SMALongWindow {
		return fmt.Errorf("minimum price rows (%d) must exceed the long sma window (%d)", p.MinPriceRows, p.SMALongWindow)
	}
	if p.AnomalyThreshold <= 0 || p.AnomalyThreshold >= 1 {
		return fmt.Errorf("anomaly threshold must be in (0,1), got %v", p.AnomalyThreshold)
	}
	if p.AnomalyDampMax < 0 || p.AnomalyDampMax > 1 {
		return fmt.Errorf("anomaly damp max must be in [0,1], got %v", p.AnomalyDampMax)
	}
	return nil
}

func parseSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true")
}

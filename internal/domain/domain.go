package domain

import "time"

type Instrument struct {
	Symbol string
	Name   string
}

type PriceSignal string

const (
	SignalBuy  PriceSignal = "BUY"
	SignalHold PriceSignal = "HOLD"
	SignalSell PriceSignal = "SELL"
)

type NewsBias string

const (
	BiasBullish NewsBias = "BULLISH"
	BiasBearish NewsBias = "BEARISH"
	BiasNeutral NewsBias = "NEUTRAL"
)

type Decision string

const (
	DecisionBuy           Decision = "BUY"
	DecisionBuyHighConf   Decision = "BUY_HIGH_CONFIDENCE"
	DecisionAvoidNegNews  Decision = "AVOID_NEGATIVE_NEWS"
	DecisionWatchBreakout Decision = "WATCH_FOR_BREAKOUT"
	DecisionHold          Decision = "HOLD"
	DecisionSell          Decision = "SELL"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// NewsItem is a single scored news article. Immutable once scored.
type NewsItem struct {
	Symbol            string         `json:"symbol"`
	PublishedAt       time.Time      `json:"published_at"`
	Source            string         `json:"source"`
	Author            string         `json:"author,omitempty"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	URL               string         `json:"url,omitempty"`
	SentimentCompound float64        `json:"sentiment_compound"`
	SentimentLabel    SentimentLabel `json:"sentiment_label"`
	ImportanceWeight  float64        `json:"importance_weight"`
	RecencyDecay      float64        `json:"recency_decay"`
	BehaviouralScore  float64        `json:"behavioural_score"`
}

// DailyNewsAggregate collapses all same-day items into one score and bias.
// One per calendar day; derived, never mutated.
type DailyNewsAggregate struct {
	Symbol           string    `json:"symbol"`
	Date             time.Time `json:"date"`
	BehaviouralScore float64   `json:"behavioural_score"`
	ItemCount        int       `json:"item_count"`
	Bias             NewsBias  `json:"news_bias"`
}

// PriceBar is one trading day of close-only price data plus derived features.
type PriceBar struct {
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	Return     float64   `json:"return"`
	SMAShort   float64   `json:"sma_short"`
	SMALong    float64   `json:"sma_long"`
	RSI        float64   `json:"rsi"`
	Volatility float64   `json:"volatility"`
}

// AnnotatedBar is a PriceBar with its trend signal attached. Bars inside the
// SMA warm-up window are never annotated; they are dropped upstream.
type AnnotatedBar struct {
	PriceBar
	Signal PriceSignal `json:"price_signal"`
}

// FusionRecord is the merged news+price decision for one trading day.
type FusionRecord struct {
	Symbol           string      `json:"symbol"`
	Date             time.Time   `json:"date"`
	Close            float64     `json:"close"`
	PriceSignal      PriceSignal `json:"price_signal"`
	BehaviouralScore float64     `json:"behavioural_score"`
	NewsBias         NewsBias    `json:"news_bias"`
	FinalDecision    Decision    `json:"final_decision"`
}

// PredictionRecord is one walk-forward prediction. Only rows at or after the
// first full training window carry a prediction.
type PredictionRecord struct {
	Date      time.Time `json:"date"`
	Direction int       `json:"predicted_direction"` // 0 or 1
}

// StrategyRecord is one day of backtest output for a single instrument.
type StrategyRecord struct {
	Date           time.Time `json:"date"`
	Signal         int       `json:"signal"` // prediction AND trend agree
	RealizedReturn float64   `json:"realized_return"`
	Equity         float64   `json:"equity"`
	MarketEquity   float64   `json:"market_equity"`
	PositionSize   float64   `json:"position_size"`
	PaperEquity    float64   `json:"paper_equity"`
}

// PortfolioRecord is the cross-instrument equity state at one date.
type PortfolioRecord struct {
	Date             time.Time          `json:"date"`
	InstrumentEquity map[string]float64 `json:"instrument_equity"`
	PortfolioEquity  float64            `json:"portfolio_equity"`
}

// Metric is one row of the performance summary table.
type Metric struct {
	Name  string  `json:"metric"`
	Value float64 `json:"value"`
}

const (
	MetricCAGR        = "CAGR"
	MetricMaxDrawdown = "Max Drawdown"
	MetricSharpe      = "Sharpe Ratio"
	MetricWinRate     = "Win Rate"
	MetricTotalTrades = "Total Trades"
)

var DefaultSymbols = []string{"TCS", "INFY", "HDFCBANK", "ICICIBANK"}

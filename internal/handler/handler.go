package handler

import (
	"context"
	"net/http"

	"quantfuse/internal/domain"
	"quantfuse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type DecisionService interface {
	ListDecisions(ctx context.Context, symbol string, limit int) ([]domain.FusionRecord, error)
	GetLatestDecision(ctx context.Context, symbol string) (*domain.FusionRecord, error)
}

type BacktestReader interface {
	GetEquityCurve(ctx context.Context, symbol string, limit int) ([]domain.StrategyRecord, error)
	GetMetrics(ctx context.Context) ([]domain.Metric, error)
}

type BacktestRunner interface {
	Run(ctx context.Context, symbols []string) (*service.BacktestResult, error)
}

type Handler struct {
	tracer    trace.Tracer
	decisions DecisionService
	backtests BacktestReader
	runner    BacktestRunner
	symbols   []string
}

func New(tracer trace.Tracer, decisions DecisionService, backtests BacktestReader) *Handler {
	return &Handler{
		tracer:    tracer,
		decisions: decisions,
		backtests: backtests,
	}
}

// WithBacktestRunner enables the backtest trigger endpoint for the given
// default symbol set.
func (h *Handler) WithBacktestRunner(runner BacktestRunner, symbols []string) *Handler {
	h.runner = runner
	h.symbols = symbols
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/decisions/:symbol", h.GetDecisions)
	r.GET("/api/decisions/:symbol/latest", h.GetLatestDecision)
	r.GET("/api/equity/:symbol", h.GetEquityCurve)
	r.GET("/api/metrics", h.GetMetrics)
	r.POST("/api/backtest/run", h.RunBacktest)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

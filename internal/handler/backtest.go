package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

func (h *Handler) GetEquityCurve(c *gin.Context) {
	if h.backtests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtest storage unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-equity-curve")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	span.SetAttributes(attribute.String("symbol", symbol))

	limit := 500
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 || n > 2000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 2000"})
			return
		}
		limit = n
	}

	curve, err := h.backtests.GetEquityCurve(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(curve) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no backtest results for " + symbol})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "equity": curve})
}

func (h *Handler) RunBacktest(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtest runner unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-backtest")
	defer span.End()

	var req struct {
		Symbols []string `json:"symbols"`
	}
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = h.symbols
	}
	span.SetAttributes(attribute.Int("symbols", len(symbols)))

	result, err := h.runner.Run(ctx, symbols)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbols": symbols,
		"metrics": result.Metrics,
		"days":    len(result.Portfolio),
	})
}

func (h *Handler) GetMetrics(c *gin.Context) {
	if h.backtests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtest storage unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-metrics")
	defer span.End()

	metrics, err := h.backtests.GetMetrics(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quantfuse/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type DecisionQuerier interface {
	ListDecisions(ctx context.Context, symbol string, limit int) ([]domain.FusionRecord, error)
	GetLatestDecision(ctx context.Context, symbol string) (*domain.FusionRecord, error)
}

type MetricsReader interface {
	GetMetrics(ctx context.Context) ([]domain.Metric, error)
}

func StartTelegramBot(decisionService DecisionQuerier, metricsReader MetricsReader, symbols []string) *AlertDispatcher {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	alerts := NewAlertDispatcher(b)
	supported := strings.Join(symbols, ", ")

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/decision", func(c tele.Context) error {
		if decisionService == nil {
			return c.Send("Decision service unavailable")
		}
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /decision TCS\nSupported: %s", supported))
		}
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		rec, err := decisionService.GetLatestDecision(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching decision for %s: %v", symbol, err))
		}
		if rec == nil {
			return c.Send(fmt.Sprintf("No decision yet for %s.", symbol))
		}
		return c.Send(formatDecision(*rec))
	})

	b.Handle("/decisions", func(c tele.Context) error {
		if decisionService == nil {
			return c.Send("Decision service unavailable")
		}
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /decisions INFY\nSupported: %s", supported))
		}
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		records, err := decisionService.ListDecisions(context.Background(), symbol, 5)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching decisions for %s: %v", symbol, err))
		}
		if len(records) == 0 {
			return c.Send(fmt.Sprintf("No decisions yet for %s.", symbol))
		}
		lines := make([]string, 0, len(records)+1)
		lines = append(lines, fmt.Sprintf("Latest decisions for %s:", symbol))
		for _, r := range records {
			lines = append(lines, formatDecision(r))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/metrics", func(c tele.Context) error {
		if metricsReader == nil {
			return c.Send("Backtest metrics unavailable")
		}
		metrics, err := metricsReader.GetMetrics(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching metrics: %v", err))
		}
		if len(metrics) == 0 {
			return c.Send("No backtest metrics yet. Run a backtest first.")
		}
		return c.Send(formatMetrics(metrics))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Decision alerts enabled for this chat.")
			}
			return c.Send("Decision alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Decision alerts disabled for this chat.")
			}
			return c.Send("Decision alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	log.Println("Telegram bot started")
	go b.Start()
	return alerts
}

func formatDecision(r domain.FusionRecord) string {
	return fmt.Sprintf(
		"%s %s: %s (price %s, news %s %.3f, close %.2f)",
		r.Symbol,
		r.Date.UTC().Format("2006-01-02"),
		r.FinalDecision,
		r.PriceSignal,
		r.NewsBias,
		r.BehaviouralScore,
		r.Close,
	)
}

func formatMetrics(metrics []domain.Metric) string {
	lines := make([]string, 0, len(metrics)+1)
	lines = append(lines, "Portfolio backtest metrics:")
	for _, m := range metrics {
		switch m.Name {
		case domain.MetricTotalTrades:
			lines = append(lines, fmt.Sprintf("%s: %.0f", m.Name, m.Value))
		case domain.MetricSharpe:
			lines = append(lines, fmt.Sprintf("%s: %.2f", m.Name, m.Value))
		default:
			lines = append(lines, fmt.Sprintf("%s: %.2f%%", m.Name, m.Value*100))
		}
	}
	return strings.Join(lines, "\n")
}

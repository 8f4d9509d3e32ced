package job

import (
	"context"
	"log"
	"time"

	"quantfuse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type DecisionRefresher interface {
	RefreshSymbol(ctx context.Context, symbol string) (*domain.FusionRecord, error)
}

type DecisionNotifier interface {
	NotifyDecisions(ctx context.Context, records []domain.FusionRecord) error
}

// DecisionPoller periodically recomputes fusion decisions for every
// configured symbol and pushes actionable ones to the notifier.
type DecisionPoller struct {
	tracer   trace.Tracer
	service  DecisionRefresher
	notifier DecisionNotifier
	symbols  []string
	interval time.Duration
}

func NewDecisionPoller(tracer trace.Tracer, service DecisionRefresher, notifier DecisionNotifier, symbols []string, pollSecs int) *DecisionPoller {
	if pollSecs <= 0 {
		pollSecs = 300
	}
	return &DecisionPoller{
		tracer:   tracer,
		service:  service,
		notifier: notifier,
		symbols:  symbols,
		interval: time.Duration(pollSecs) * time.Second,
	}
}

// Start refreshes once immediately, then on every tick. Blocks until ctx is
// cancelled.
func (p *DecisionPoller) Start(ctx context.Context) {
	if p.service == nil || len(p.symbols) == 0 {
		log.Println("Decision poller disabled: no decision service or symbols")
		<-ctx.Done()
		return
	}

	log.Println("Decision poller starting...")
	p.RefreshAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Decision poller stopped")
			return
		case <-ticker.C:
			p.RefreshAll(ctx)
		}
	}
}

func (p *DecisionPoller) RefreshAll(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "decision-poller.refresh-all")
	defer span.End()

	var actionable []domain.FusionRecord
	for _, symbol := range p.symbols {
		rec, err := p.service.RefreshSymbol(ctx, symbol)
		if err != nil {
			log.Printf("decision refresh error for %s: %v", symbol, err)
			continue
		}
		if rec != nil && isActionable(rec.FinalDecision) {
			actionable = append(actionable, *rec)
		}
	}

	if p.notifier == nil || len(actionable) == 0 {
		return
	}
	if err := p.notifier.NotifyDecisions(ctx, actionable); err != nil {
		log.Printf("decision alert error: %v", err)
	}
}

func isActionable(d domain.Decision) bool {
	return d == domain.DecisionBuyHighConf || d == domain.DecisionAvoidNegNews
}

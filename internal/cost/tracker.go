package cost

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

const (
	defaultBufferSize  = 256
	warningThreshold   = 0.8
	alertDedupeWindow  = 24 * time.Hour
)

// Metrics is the narrow surface the cost tracker emits to, satisfied by
// an OTel adapter or an in-memory test double.
type Metrics interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
}

// Tracker accepts usage records, computes cost from a pricing table, and
// persists them asynchronously while evaluating budget thresholds. The
// caller-facing Track call never does I/O itself — it only appends to an
// in-memory buffer, per §4.10.
type Tracker struct {
	gateway storage.Gateway
	pricing PricingTable
	budget  float64
	metrics Metrics

	buf      chan domain.ApiUsage
	fallback atomic.Bool
	done     chan struct{}
}

// NewTracker constructs a Tracker and re-evaluates fallback mode against
// the persisted monthly spend so a process restart mid-overrun doesn't
// silently lose the fallback state.
func NewTracker(ctx context.Context, gateway storage.Gateway, pricing PricingTable, monthlyBudget float64, metrics Metrics) *Tracker {
	t := &Tracker{
		gateway: gateway,
		pricing: pricing,
		budget:  monthlyBudget,
		metrics: metrics,
		buf:     make(chan domain.ApiUsage, defaultBufferSize),
		done:    make(chan struct{}),
	}

	if monthlyBudget > 0 {
		if spend, err := gateway.MonthlySpend(ctx, time.Now()); err == nil && spend >= monthlyBudget {
			t.fallback.Store(true)
		}
	}

	go t.run()
	return t
}

// Track records one paid API call. It must not block beyond the channel
// send; a full buffer drops the record with a logged warning rather than
// stalling the caller.
func (t *Tracker) Track(provider string, operation domain.ApiOperation, tokens int64, model, collectionID string) {
	usage := domain.ApiUsage{
		Provider:     provider,
		Operation:    operation,
		Tokens:       tokens,
		CostUSD:      t.pricing.Cost(provider, model, operation, tokens),
		CollectionID: collectionID,
		Timestamp:    time.Now(),
	}
	select {
	case t.buf <- usage:
	default:
		slog.Warn("cost: usage buffer full, dropping record", "provider", provider, "operation", operation)
	}
}

// Fallback reports whether budget-exhaustion fallback mode is active.
// Satisfies embedding.FallbackSignal structurally.
func (t *Tracker) Fallback() bool {
	return t.fallback.Load()
}

// ClearFallback manually clears the sticky fallback flag, per §4.10's
// "sticky until manually cleared or calendar month rolls over".
func (t *Tracker) ClearFallback() {
	t.fallback.Store(false)
}

// Close stops the background drain goroutine. Buffered records not yet
// flushed are discarded.
func (t *Tracker) Close() {
	close(t.done)
}

func (t *Tracker) run() {
	ctx := context.Background()
	for {
		select {
		case u := <-t.buf:
			if err := t.gateway.InsertApiUsage(ctx, u); err != nil {
				slog.Warn("cost: failed to persist usage record", "error", err)
				continue
			}
			t.recordMetrics(u)
			t.checkBudget(ctx)
		case <-t.done:
			return
		}
	}
}

func (t *Tracker) recordMetrics(u domain.ApiUsage) {
	if t.metrics == nil {
		return
	}
	labels := map[string]string{"provider": u.Provider, "operation": string(u.Operation)}
	t.metrics.IncCounter("cost_usage_records_total", labels)
	t.metrics.ObserveHistogram("cost_usage_cost_usd", u.CostUSD, labels)
}

// checkBudget implements §4.10's debounced threshold checks: evaluate
// monthly spend against 0.8·B and B, emitting at most one alert of each
// kind per 24h window, and toggling fallback on limit_reached.
func (t *Tracker) checkBudget(ctx context.Context) {
	if t.budget <= 0 {
		return
	}
	spend, err := t.gateway.MonthlySpend(ctx, time.Now())
	if err != nil {
		slog.Warn("cost: failed to read monthly spend for budget check", "error", err)
		return
	}

	if spend >= t.budget {
		t.maybeAlert(ctx, domain.AlertLimitReached, t.budget, spend)
		t.fallback.Store(true)
		return
	}
	if spend >= warningThreshold*t.budget {
		t.maybeAlert(ctx, domain.AlertWarning, warningThreshold*t.budget, spend)
	}
}

func (t *Tracker) maybeAlert(ctx context.Context, alertType domain.AlertType, threshold, spend float64) {
	exists, err := t.gateway.HasUnacknowledgedAlert(ctx, alertType, alertDedupeWindow)
	if err != nil {
		slog.Warn("cost: failed to check existing alerts", "error", err)
		return
	}
	if exists {
		return
	}
	_, err = t.gateway.InsertBudgetAlert(ctx, domain.BudgetAlert{
		Type:         alertType,
		Threshold:    threshold,
		CurrentSpend: spend,
		Period:       domain.PeriodMonthly,
		Time:         time.Now(),
	})
	if err != nil {
		slog.Warn("cost: failed to insert budget alert", "error", err)
	}
}

// MonthlySpend, DailySpend, and SpendBreakdown pass through to the
// gateway; Tracker exists to gate writes, not reads.
func (t *Tracker) MonthlySpend(ctx context.Context) (float64, error) {
	return t.gateway.MonthlySpend(ctx, time.Now())
}

func (t *Tracker) DailySpend(ctx context.Context) (float64, error) {
	return t.gateway.DailySpend(ctx, time.Now())
}

func (t *Tracker) SpendBreakdown(ctx context.Context, since time.Time) ([]storage.SpendBreakdown, error) {
	return t.gateway.SpendBreakdown(ctx, since)
}

func (t *Tracker) RecentAlerts(ctx context.Context, limit int) ([]domain.BudgetAlert, error) {
	return t.gateway.RecentAlerts(ctx, limit)
}

package cost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

// fakeGateway is an in-memory stand-in implementing only the spend/alert
// surface of storage.Gateway that the tracker touches.
type fakeGateway struct {
	storage.Gateway

	mu      sync.Mutex
	usage   []domain.ApiUsage
	alerts  []domain.BudgetAlert
	spend   float64
}

func (f *fakeGateway) InsertApiUsage(_ context.Context, u domain.ApiUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = append(f.usage, u)
	f.spend += u.CostUSD
	return nil
}

func (f *fakeGateway) MonthlySpend(_ context.Context, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spend, nil
}

func (f *fakeGateway) DailySpend(_ context.Context, _ time.Time) (float64, error) {
	return f.spend, nil
}

func (f *fakeGateway) HasUnacknowledgedAlert(_ context.Context, t domain.AlertType, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.Type == t {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGateway) InsertBudgetAlert(_ context.Context, a domain.BudgetAlert) (domain.BudgetAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeGateway) RecentAlerts(_ context.Context, _ int) ([]domain.BudgetAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPricingTokenVsRequestUnits(t *testing.T) {
	table := DefaultPricingTable()

	tokenCost := table.Cost("openai", "text-embedding-3-small", domain.OpEmbed, 1000)
	assert.InDelta(t, 0.00002, tokenCost, 1e-9)

	requestCost := table.Cost("cloud", "gpt-4o-mini", domain.OpRerank, 999999)
	assert.Equal(t, 0.001, requestCost)

	unknown := table.Cost("nope", "nope", domain.OpEmbed, 100)
	assert.Zero(t, unknown)
}

func TestTrackPersistsUsageAsynchronously(t *testing.T) {
	gw := &fakeGateway{}
	tracker := NewTracker(context.Background(), gw, DefaultPricingTable(), 0, nil)
	defer tracker.Close()

	tracker.Track("openai", domain.OpEmbed, 1000, "text-embedding-3-small", "col-1")

	waitFor(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.usage) == 1
	})
}

func TestTrackTriggersLimitAlertWhenBudgetExceeded(t *testing.T) {
	gw := &fakeGateway{}
	tracker := NewTracker(context.Background(), gw, DefaultPricingTable(), 0.0001, nil)
	defer tracker.Close()

	tracker.Track("cloud", domain.OpRerank, 0, "gpt-4o-mini", "col-1")

	waitFor(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.alerts) > 0
	})

	gw.mu.Lock()
	alertType := gw.alerts[len(gw.alerts)-1].Type
	gw.mu.Unlock()
	assert.Equal(t, domain.AlertLimitReached, alertType)
	assert.True(t, tracker.Fallback())
}

func TestFallbackEvaluatedOnConstructionFromExistingSpend(t *testing.T) {
	gw := &fakeGateway{spend: 10}
	tracker := NewTracker(context.Background(), gw, DefaultPricingTable(), 5, nil)
	defer tracker.Close()
	require.True(t, tracker.Fallback())
}

func TestClearFallbackResetsStickyFlag(t *testing.T) {
	gw := &fakeGateway{spend: 10}
	tracker := NewTracker(context.Background(), gw, DefaultPricingTable(), 5, nil)
	defer tracker.Close()
	require.True(t, tracker.Fallback())
	tracker.ClearFallback()
	assert.False(t, tracker.Fallback())
}

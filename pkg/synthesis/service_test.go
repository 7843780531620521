package synthesis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/config"
	"github.com/Beaulewis1977/synthesis-sub002/internal/events"
	"github.com/Beaulewis1977/synthesis-sub002/internal/hybrid"
)

func TestHybridModeFor(t *testing.T) {
	assert.Equal(t, hybrid.ModeHybrid, hybridModeFor(config.SearchModeHybrid))
	assert.Equal(t, hybrid.ModeVector, hybridModeFor(config.SearchModeVector))
	assert.Equal(t, hybrid.ModeVector, hybridModeFor(""))
}

func TestEmitDropsWhenChannelFull(t *testing.T) {
	svc := &Service{events: make(chan events.Event, 1)}

	svc.emit(events.Event{Type: events.TypeIngestStarted, Message: "first"})
	svc.emit(events.Event{Type: events.TypeIngestComplete, Message: "dropped"})

	select {
	case e := <-svc.events:
		assert.Equal(t, "first", e.Message)
	case <-time.After(time.Second):
		t.Fatal("expected the first event to be buffered")
	}

	select {
	case e := <-svc.events:
		t.Fatalf("expected no second event, got %+v", e)
	default:
	}
}

func TestRerankEmptyInputShortCircuits(t *testing.T) {
	svc := &Service{}

	out, err := svc.rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

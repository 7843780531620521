package cost

import "github.com/Beaulewis1977/synthesis-sub002/internal/domain"

// PricingUnit names how a PricingEntry's rate is expressed.
type PricingUnit string

const (
	UnitPerThousandTokens PricingUnit = "token"
	UnitPerRequest        PricingUnit = "request"
)

// PricingEntry is one {provider, model, unit, rate_per_unit} row.
type PricingEntry struct {
	Provider    string
	Model       string
	Unit        PricingUnit
	RatePerUnit float64
}

// PricingTable is an immutable lookup from (provider, model) to rate,
// grounded on the models.dev-style lookup
// pkg/rag/strategy/semantic_embeddings.go's calculateSemanticUsageCost
// performs against a ModelsStore, generalised here to a static table
// since Synthesis has no live pricing feed.
type PricingTable struct {
	entries map[string]PricingEntry
}

func NewPricingTable(entries ...PricingEntry) PricingTable {
	m := make(map[string]PricingEntry, len(entries))
	for _, e := range entries {
		m[pricingKey(e.Provider, e.Model)] = e
	}
	return PricingTable{entries: m}
}

// DefaultPricingTable covers the providers this module ships, at
// publicly listed per-token/per-request rates current as of authoring.
func DefaultPricingTable() PricingTable {
	return NewPricingTable(
		PricingEntry{Provider: "openai", Model: "text-embedding-3-small", Unit: UnitPerThousandTokens, RatePerUnit: 0.00002},
		PricingEntry{Provider: "openai", Model: "text-embedding-3-large", Unit: UnitPerThousandTokens, RatePerUnit: 0.00013},
		PricingEntry{Provider: "voyage", Model: "voyage-code-3", Unit: UnitPerThousandTokens, RatePerUnit: 0.00018},
		PricingEntry{Provider: "bedrock", Model: "amazon.titan-embed-text-v2:0", Unit: UnitPerThousandTokens, RatePerUnit: 0.00002},
		PricingEntry{Provider: "ollama", Model: "nomic-embed-text", Unit: UnitPerThousandTokens, RatePerUnit: 0},
		PricingEntry{Provider: "cloud", Model: "gpt-4o-mini", Unit: UnitPerRequest, RatePerUnit: 0.001},
	)
}

// Cost computes the USD cost of one usage record. Rerank (and any entry
// explicitly priced per-request) ignores tokens entirely — §4.10's
// "special case: per-request pricing for rerank providers".
func (p PricingTable) Cost(provider, model string, operation domain.ApiOperation, tokens int64) float64 {
	entry, ok := p.entries[pricingKey(provider, model)]
	if !ok {
		return 0
	}
	if operation == domain.OpRerank || entry.Unit == UnitPerRequest {
		return entry.RatePerUnit
	}
	return float64(tokens) / 1000.0 * entry.RatePerUnit
}

func pricingKey(provider, model string) string {
	return provider + "/" + model
}

package synthesis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// VerdictJudge asks an LLM whether two approaches contradict each other.
// The cloud rerank provider and this judge share the same "ask for
// strict JSON, parse defensively" shape from
// pkg/model/provider/openai/client.go's Rerank.
type VerdictJudge interface {
	Judge(ctx context.Context, topic, summaryA, summaryB string) (Verdict, error)
}

// Verdict is the structured JSON contract §4.9 step 4 names.
type Verdict struct {
	Contradictory bool    `json:"contradictory"`
	Difference    string  `json:"difference"`
	Severity      string  `json:"severity"`
	Prefer        string  `json:"prefer"`
	Reasoning     string  `json:"reasoning"`
	Confidence    float64 `json:"confidence"`
}

// detectConflicts checks every approach pair whose summary-embedding
// cosine similarity falls in the (0.2, 0.7) gray zone — too similar
// means agreement, too different means unrelated topics, per §4.9 step
// 4 — and asks judge for a verdict on the rest. Malformed verdicts are
// skipped, never crash the pipeline.
func detectConflicts(ctx context.Context, approaches []domain.Approach, embeddings [][]float32, judge VerdictJudge, minSim, maxSim float64) []domain.Conflict {
	var conflicts []domain.Conflict

	for i := 0; i < len(approaches); i++ {
		for j := i + 1; j < len(approaches); j++ {
			sim := cosineSimilarity(embeddings[i], embeddings[j])
			if sim > maxSim || sim < minSim {
				continue
			}

			verdict, err := judge.Judge(ctx, approaches[i].Method, approaches[i].Summary, approaches[j].Summary)
			if err != nil {
				slog.Warn("synthesis: contradiction judge failed, skipping pair", "error", err)
				continue
			}
			if !verdict.Contradictory {
				continue
			}

			conflicts = append(conflicts, domain.Conflict{
				Topic:          approaches[i].Method,
				SourceA:        approachLabel(approaches[i]),
				SourceB:        approachLabel(approaches[j]),
				Severity:       severityFromString(verdict.Severity),
				Difference:     verdict.Difference,
				Recommendation: verdict.Prefer,
				Confidence:     verdict.Confidence,
			})
		}
	}
	return conflicts
}

func approachLabel(a domain.Approach) string {
	if a.Method != "" {
		return a.Method
	}
	if len(a.Sources) > 0 {
		return a.Sources[0].DocumentTitle
	}
	return "unknown"
}

func severityFromString(s string) domain.ConflictSeverity {
	switch domain.ConflictSeverity(s) {
	case domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
		return domain.ConflictSeverity(s)
	default:
		return domain.SeverityLow
	}
}

// parseVerdict defensively decodes a raw LLM response into a Verdict,
// returning ok=false on any malformed JSON instead of erroring — per
// §4.9 step 4's "parse defensively" requirement.
func parseVerdict(raw string) (Verdict, bool) {
	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Verdict{}, false
	}
	return v, true
}

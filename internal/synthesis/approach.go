package synthesis

import (
	"sort"
	"strings"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

const sampleChars = 500

// candidateSample truncates text to the character budget clustering
// operates over (§4.9 step 1 embeds "each candidate's first ≈500
// characters").
func candidateSample(text string) string {
	r := []rune(text)
	if len(r) <= sampleChars {
		return string(r)
	}
	return string(r[:sampleChars])
}

// buildApproach turns one cluster's members into an Approach: a method
// label extracted from the densest trigram across member text, an
// extractive summary from the highest-reranked member, and the consensus
// score from §4.9 step 3. cohesion is the cluster's mean cosine
// similarity to its centroid, computed by the caller (synthesis.go) from
// the clustering embeddings that Approach itself doesn't carry.
func buildApproach(members []domain.ReRankedResult, cohesion float64) domain.Approach {
	sort.SliceStable(members, func(i, j int) bool { return members[i].RerankScore > members[j].RerankScore })

	method := densestTrigram(members)
	if method == "" && len(members) > 0 {
		method = members[0].DocumentTitle
	}

	summary := ""
	if len(members) > 0 {
		summary = extractiveSummary(members[0].Text)
	}

	return domain.Approach{
		Method:         method,
		Summary:        summary,
		Sources:        members,
		ConsensusScore: consensusScore(members, cohesion),
	}
}

func extractiveSummary(text string) string {
	const maxLen = 280
	trimmed := strings.TrimSpace(text)
	r := []rune(trimmed)
	if len(r) <= maxLen {
		return trimmed
	}
	cut := string(r[:maxLen])
	if idx := strings.LastIndexAny(cut, ".!? "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}

// densestTrigram finds the most frequent 3-word run across all member
// texts, a cheap proxy for "what this cluster is about" without calling
// an LLM.
func densestTrigram(members []domain.ReRankedResult) string {
	counts := map[string]int{}
	order := map[string]int{}
	n := 0
	for _, m := range members {
		words := strings.Fields(strings.ToLower(m.Text))
		for i := 0; i+3 <= len(words); i++ {
			tri := strings.Join(words[i:i+3], " ")
			if _, ok := counts[tri]; !ok {
				order[tri] = n
				n++
			}
			counts[tri]++
		}
	}
	best := ""
	bestCount := 0
	bestOrder := int(^uint(0) >> 1)
	for tri, c := range counts {
		if c > bestCount || (c == bestCount && order[tri] < bestOrder) {
			best, bestCount, bestOrder = tri, c, order[tri]
		}
	}
	return best
}

// consensusScore implements §4.9 step 3's formula.
func consensusScore(members []domain.ReRankedResult, cohesion float64) float64 {
	if len(members) == 0 {
		return 0
	}

	qualityAgreement := fractionWhere(members, func(m domain.ReRankedResult) bool {
		return m.DocMetadata.SourceQuality == domain.QualityOfficial || m.DocMetadata.SourceQuality == domain.QualityVerified
	})

	if len(members) <= 1 {
		cohesion = 1.0
	}

	freshnessAgreement := fractionWhere(members, func(m domain.ReRankedResult) bool {
		if m.DocMetadata.LastVerified == nil {
			return false
		}
		return time.Since(*m.DocMetadata.LastVerified) < 6*30*24*time.Hour
	})
	if allUnknownFreshness(members) {
		freshnessAgreement = 0.7
	}

	return 0.4*qualityAgreement + 0.4*cohesion + 0.2*freshnessAgreement
}

func fractionWhere(members []domain.ReRankedResult, pred func(domain.ReRankedResult) bool) float64 {
	if len(members) == 0 {
		return 0
	}
	count := 0
	for _, m := range members {
		if pred(m) {
			count++
		}
	}
	return float64(count) / float64(len(members))
}

func allUnknownFreshness(members []domain.ReRankedResult) bool {
	for _, m := range members {
		if m.DocMetadata.LastVerified != nil {
			return false
		}
	}
	return true
}

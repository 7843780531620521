package synthesis

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// Embedder produces one vector per input text. Kept narrow and local so
// this package depends on a capability, not a concrete provider —
// mirrors the pattern hybrid.Engine uses for its searcher dependencies.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config tunes the synthesis pipeline. Zero-valued fields fall back to
// the defaults §4.9 names.
type Config struct {
	MaxIter               int
	SimilarityMin         float64
	SimilarityMax         float64
	ContradictionsEnabled bool
}

const (
	defaultMaxIter = 10
	defaultSimMin  = 0.2
	defaultSimMax  = 0.7
)

// Engine runs the clustering → approach extraction → contradiction
// detection → recommendation pipeline.
type Engine struct {
	embedder Embedder
	judge    VerdictJudge
	cfg      Config
	pick     func(n int) []int
}

func NewEngine(embedder Embedder, judge VerdictJudge, cfg Config) *Engine {
	if cfg.MaxIter == 0 {
		cfg.MaxIter = defaultMaxIter
	}
	if cfg.SimilarityMin == 0 && cfg.SimilarityMax == 0 {
		cfg.SimilarityMin, cfg.SimilarityMax = defaultSimMin, defaultSimMax
	}
	return &Engine{embedder: embedder, judge: judge, cfg: cfg, pick: samplePick}
}

// samplePick returns a random permutation of [0,n); kmeans seeds from its
// first k entries, which samples k distinct indices without replacement,
// the seeding strategy §4.9 step 1 names for k-means initialisation.
func samplePick(n int) []int {
	perm := rand.Perm(n)
	return perm
}

// Synthesize runs the full pipeline over a set of re-ranked candidates
// for one query, implementing §4.9 end to end.
func (e *Engine) Synthesize(ctx context.Context, query string, candidates []domain.ReRankedResult) (domain.SynthesisResult, error) {
	start := time.Now()

	if len(candidates) == 0 {
		return domain.SynthesisResult{
			Query:    query,
			Metadata: domain.SynthesisMetadata{SynthesisTimeMs: time.Since(start).Milliseconds()},
		}, nil
	}

	samples := make([]string, len(candidates))
	for i, c := range candidates {
		samples[i] = candidateSample(c.Text)
	}

	embeddings, err := e.embedder.Embed(ctx, samples)
	if err != nil {
		return domain.SynthesisResult{}, err
	}

	k := clusterK(len(candidates))
	assignments, centroids := kmeans(embeddings, k, e.cfg.MaxIter, e.pick)

	type cluster struct {
		members    []domain.ReRankedResult
		embeddings [][]float32
		centroid   []float32
	}
	clusters := make([]cluster, k)
	for i := range clusters {
		clusters[i].centroid = centroids[i]
	}
	for i, c := range assignments {
		clusters[c].members = append(clusters[c].members, candidates[i])
		clusters[c].embeddings = append(clusters[c].embeddings, embeddings[i])
	}

	var approaches []domain.Approach
	for _, cl := range clusters {
		if len(cl.members) == 0 {
			continue
		}
		cohesion := meanCohesion(cl.embeddings, cl.centroid)
		approaches = append(approaches, buildApproach(cl.members, cohesion))
	}

	summaries := make([]string, len(approaches))
	for i, a := range approaches {
		summaries[i] = a.Summary
	}
	approachEmbeddings, err := e.embedder.Embed(ctx, summaries)
	if err != nil {
		return domain.SynthesisResult{}, err
	}

	sortApproachesWithEmbeddings(approaches, approachEmbeddings)

	var conflicts []domain.Conflict
	if e.cfg.ContradictionsEnabled && e.judge != nil && len(approaches) > 1 {
		conflicts = detectConflicts(ctx, approaches, approachEmbeddings, e.judge, e.cfg.SimilarityMin, e.cfg.SimilarityMax)
	}

	result := domain.SynthesisResult{
		Query:      query,
		Approaches: approaches,
		Conflicts:  conflicts,
		Metadata: domain.SynthesisMetadata{
			TotalSources:    len(candidates),
			ApproachesFound: len(approaches),
			ConflictsFound:  len(conflicts),
			SynthesisTimeMs: time.Since(start).Milliseconds(),
		},
	}

	if idx := recommend(approaches, conflicts); idx >= 0 {
		recommended := approaches[idx]
		result.Recommended = &recommended
	}
	return result, nil
}

// sortApproachesWithEmbeddings orders approaches by descending consensus
// score, keeping each approach's summary embedding aligned by index so
// contradiction detection compares the right pair of approaches.
func sortApproachesWithEmbeddings(approaches []domain.Approach, embeddings [][]float32) {
	idx := make([]int, len(approaches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return approaches[idx[i]].ConsensusScore > approaches[idx[j]].ConsensusScore })

	sortedApproaches := make([]domain.Approach, len(approaches))
	sortedEmbeddings := make([][]float32, len(embeddings))
	for newPos, oldPos := range idx {
		sortedApproaches[newPos] = approaches[oldPos]
		sortedEmbeddings[newPos] = embeddings[oldPos]
	}
	copy(approaches, sortedApproaches)
	copy(embeddings, sortedEmbeddings)
}

func meanCohesion(embeddings [][]float32, centroid []float32) float64 {
	if len(embeddings) <= 1 {
		return 1.0
	}
	var sum float64
	for _, v := range embeddings {
		sum += cosineSimilarity(v, centroid)
	}
	return sum / float64(len(embeddings))
}

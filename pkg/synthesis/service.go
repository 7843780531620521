// Package synthesis is the module's composition root. Service wires the
// Storage Gateway, Embedding Router, Lexical/Vector/Hybrid retrieval, the
// Rerank Chain, the Synthesis Engine, the Cost Tracker, and the Ingestion
// Orchestrator into one object, mirroring pkg/rag.Manager's
// New/Initialize/Query/Close lifecycle: construct once from a Config,
// call Initialize to warm per-collection state, then Ingest/Query/Close.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Beaulewis1977/synthesis-sub002/internal/chunk"
	"github.com/Beaulewis1977/synthesis-sub002/internal/config"
	"github.com/Beaulewis1977/synthesis-sub002/internal/cost"
	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/embedding"
	"github.com/Beaulewis1977/synthesis-sub002/internal/events"
	"github.com/Beaulewis1977/synthesis-sub002/internal/hybrid"
	"github.com/Beaulewis1977/synthesis-sub002/internal/ingest"
	"github.com/Beaulewis1977/synthesis-sub002/internal/lexical"
	"github.com/Beaulewis1977/synthesis-sub002/internal/relationships"
	"github.com/Beaulewis1977/synthesis-sub002/internal/rerank"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
	"github.com/Beaulewis1977/synthesis-sub002/internal/synthesis"
	"github.com/Beaulewis1977/synthesis-sub002/internal/vector"
)

// QueryOptions narrows and tunes one Query call.
type QueryOptions struct {
	Mode      hybrid.Mode
	TopK      int
	Filter    *hybrid.Filter
	Synthesis bool // run the Synthesis Engine over the reranked results
}

// QueryResult is the composed response of a single Query call.
type QueryResult struct {
	Results   []domain.ReRankedResult
	Synthesis *domain.SynthesisResult

	// Degraded is true when the query embedding was produced by a
	// fallback provider rather than the route's preferred one (§7:
	// search degradations surface as a boolean on the response, never
	// as a failed request).
	Degraded bool
}

// Service is the assembled RAG-with-synthesis pipeline for one deployment.
type Service struct {
	cfg     config.Config
	gateway storage.Gateway

	registry *embedding.Registry
	router   *embedding.Router

	vectorSearcher *vector.Searcher
	hybridWeights  hybrid.Weights

	lexMu   sync.RWMutex
	lexical map[string]*lexical.Index

	rerankCloud rerank.Provider
	rerankLocal rerank.Provider
	rerankCfg   rerank.Config

	synthEngine *synthesis.Engine

	tracker *cost.Tracker

	orchestrator *ingest.Orchestrator

	events chan events.Event

	watcher *fileWatcher

	metricsReader *sdkmetric.ManualReader
}

// New builds the full dependency graph from cfg and connects to storage.
// Provider construction only wires clients that have credentials; the
// Ollama local embedding route is always available since it needs none.
func New(ctx context.Context, cfg config.Config) (*Service, error) {
	gateway, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	metricsReader := cost.InstallMeterProvider()
	metrics := cost.NewOtelMetrics()
	tracker := cost.NewTracker(ctx, gateway, cost.DefaultPricingTable(), cfg.MonthlyBudgetUSD, metrics)

	providers := []embedding.Provider{embedding.NewOllama(cfg.OllamaBaseURL, "", 0)}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, embedding.NewOpenAI(cfg.OpenAIAPIKey, "", 0))
	}
	if cfg.VoyageAPIKey != "" {
		providers = append(providers, embedding.NewVoyage(cfg.VoyageAPIKey, "", 0))
	}
	if cfg.BedrockRegion != "" {
		bedrock, err := embedding.NewBedrock(ctx, cfg.BedrockRegion, "", 0)
		if err != nil {
			slog.Warn("synthesis: bedrock embedding provider unavailable, skipping", "error", err)
		} else {
			providers = append(providers, bedrock)
		}
	}
	registry := embedding.NewRegistry(providers...)

	router := embedding.NewRouter(registry, embedding.RouterConfig{
		Code:          cfg.CodeEmbeddingProvider,
		Writing:       cfg.WritingEmbeddingProvider,
		Documentation: cfg.DocEmbeddingProvider,
		Fallback:      "ollama",
	}, tracker)

	var judge synthesis.VerdictJudge
	if cfg.EnableContradictionDetection {
		switch {
		case cfg.JudgeProvider == "anthropic" && cfg.AnthropicAPIKey != "":
			judge = synthesis.NewAnthropicJudge(cfg.AnthropicAPIKey, "")
		case cfg.OpenAIAPIKey != "":
			judge = synthesis.NewOpenAIJudge(cfg.OpenAIAPIKey, "")
		}
	}

	svc := &Service{
		cfg:            cfg,
		gateway:        gateway,
		registry:       registry,
		router:         router,
		vectorSearcher: vector.NewSearcher(gateway),
		hybridWeights: hybrid.Weights{
			VectorWeight:  cfg.HybridVectorWeight,
			LexicalWeight: cfg.HybridBM25Weight,
			RRFK:          cfg.HybridRRFK,
		},
		lexical:       make(map[string]*lexical.Index),
		rerankCloud:   rerank.NewCloudProvider(cfg.OpenAIAPIKey, ""),
		rerankLocal:   rerank.NewLocalProvider(),
		rerankCfg:     rerank.Config{TopK: 0, Threshold: 0},
		tracker:       tracker,
		events:        make(chan events.Event, 64),
		metricsReader: metricsReader,
	}

	svc.synthEngine = synthesis.NewEngine(&writingEmbedder{svc: svc}, judge, synthesis.Config{
		ContradictionsEnabled: cfg.EnableContradictionDetection,
		SimilarityMin:         cfg.ContradictionMinSimilarity,
		SimilarityMax:         cfg.ContradictionMaxSimilarity,
	})

	svc.orchestrator = ingest.NewOrchestrator(gateway, router, tracker, ingest.Config{
		ASTOptions: chunk.ASTOptions{
			MaxChunkLines:   cfg.CodeMaxChunkLines,
			PreserveImports: cfg.PreserveImports,
		},
	})

	return svc, nil
}

// Initialize warms the in-memory lexical index for every existing
// collection, run in parallel the way pkg/rag.Manager.Initialize spins up
// one goroutine per strategy and fans results back in.
func (s *Service) Initialize(ctx context.Context) error {
	collections, err := s.gateway.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	type result struct {
		id  string
		err error
	}
	results := make(chan result, len(collections))
	for _, c := range collections {
		c := c
		go func() {
			err := s.refreshLexicalIndex(ctx, c.ID)
			results <- result{id: c.ID, err: err}
		}()
	}

	var firstErr error
	for range collections {
		r := <-results
		if r.err != nil {
			slog.Error("synthesis: lexical index warm-up failed", "collection", r.id, "error", r.err)
			if firstErr == nil {
				firstErr = r.err
			}
		}
	}
	return firstErr
}

// CreateCollection assigns a fresh ID and persists a new collection.
func (s *Service) CreateCollection(ctx context.Context, name, description string) (domain.Collection, error) {
	return s.gateway.CreateCollection(ctx, domain.Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	})
}

// Ingest assigns a document ID if unset, runs it through the Ingestion
// Orchestrator's chunk/embed/persist state machine, then refreshes the
// collection's lexical index and derives file relationships from the
// chunks the orchestrator just wrote (§4.11).
func (s *Service) Ingest(ctx context.Context, doc domain.Document, content string) (domain.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.ByteSize = int64(len(content))

	s.emit(events.Event{Type: events.TypeIngestStarted, Component: "ingest", Message: doc.FilePath})

	result, err := s.orchestrator.Ingest(ctx, doc, content)
	if err != nil {
		s.emit(events.Event{Type: events.TypeError, Component: "ingest", Message: doc.FilePath, Err: err})
		return result, err
	}

	if err := s.refreshLexicalIndex(ctx, result.CollectionID); err != nil {
		slog.Warn("synthesis: lexical index refresh failed after ingest", "collection", result.CollectionID, "error", err)
	}
	if err := s.deriveRelationships(ctx, result, content); err != nil {
		slog.Warn("synthesis: relationship derivation failed after ingest", "document", result.ID, "error", err)
	}

	s.emit(events.Event{Type: events.TypeIngestComplete, Component: "ingest", Message: doc.FilePath})
	return result, nil
}

// Query runs hybrid retrieval (C5+C6+C7), reranks (C8), and optionally
// synthesizes (C9) over one collection.
func (s *Service) Query(ctx context.Context, collectionID, query string, opts QueryOptions) (QueryResult, error) {
	mode := opts.Mode
	if mode == "" {
		mode = hybridModeFor(s.cfg.SearchMode)
	}

	queryEmbedding, degraded, err := s.embedQuery(ctx, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("embedding query: %w", err)
	}

	idx := s.lexicalIndexFor(collectionID)
	engine := hybrid.NewEngine(s.vectorSearcher, idx, s.hybridWeights)
	fused, err := engine.Query(ctx, collectionID, query, queryEmbedding, mode, opts.TopK, opts.Filter)
	if err != nil {
		return QueryResult{}, fmt.Errorf("hybrid query: %w", err)
	}

	reranked, err := s.rerank(ctx, query, fused)
	if err != nil {
		return QueryResult{}, fmt.Errorf("reranking: %w", err)
	}

	out := QueryResult{Results: reranked, Degraded: degraded}
	if opts.Synthesis && s.cfg.EnableSynthesis {
		result, err := s.synthEngine.Synthesize(ctx, query, reranked)
		if err != nil {
			return out, fmt.Errorf("synthesizing: %w", err)
		}
		out.Synthesis = &result
	}
	return out, nil
}

// RelatedFiles reshapes the storage layer's forward/reverse relationship
// edges into the directional view §4.11 describes.
func (s *Service) RelatedFiles(ctx context.Context, collectionID, path string) (relationships.Related, error) {
	return relationships.Query(ctx, s.gateway, collectionID, path)
}

// Events returns the shared lifecycle event stream, mirroring
// pkg/rag.Manager.Events.
func (s *Service) Events() <-chan events.Event {
	return s.events
}

// MetricsSnapshot collects the current value of every cost/provider
// instrument registered through internal/cost.OtelMetrics.
func (s *Service) MetricsSnapshot(ctx context.Context) (metricdata.ResourceMetrics, error) {
	return cost.Snapshot(ctx, s.metricsReader)
}

// Close releases every owned resource: file watcher, lexical indexes,
// cost tracker drain goroutine, and the storage pool.
func (s *Service) Close() error {
	if s.watcher != nil {
		s.watcher.Close()
	}

	s.lexMu.Lock()
	for id, idx := range s.lexical {
		if err := idx.Close(); err != nil {
			slog.Warn("synthesis: closing lexical index", "collection", id, "error", err)
		}
	}
	s.lexical = nil
	s.lexMu.Unlock()

	s.tracker.Close()
	s.gateway.Close()
	return nil
}

func (s *Service) emit(e events.Event) {
	select {
	case s.events <- e:
	default:
		slog.Warn("synthesis: event channel full, dropping event", "type", e.Type)
	}
}

func (s *Service) lexicalIndexFor(collectionID string) *lexical.Index {
	s.lexMu.RLock()
	idx := s.lexical[collectionID]
	s.lexMu.RUnlock()
	if idx != nil {
		return idx
	}
	empty, err := lexical.Build(collectionID, nil, nil)
	if err != nil {
		slog.Warn("synthesis: building empty lexical index", "collection", collectionID, "error", err)
	}
	return empty
}

// refreshLexicalIndex rebuilds a collection's bleve index from storage —
// the source of truth that never goes stale across process restarts,
// per §4.5.
func (s *Service) refreshLexicalIndex(ctx context.Context, collectionID string) error {
	chunks, err := s.gateway.AllChunksForLexicalIndex(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	docs, err := s.gateway.ListDocuments(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	byID := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	idx, err := lexical.Build(collectionID, chunks, byID)
	if err != nil {
		return fmt.Errorf("building lexical index: %w", err)
	}

	s.lexMu.Lock()
	old := s.lexical[collectionID]
	s.lexical[collectionID] = idx
	s.lexMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// deriveRelationships extracts import edges from the AST chunker's
// captured import statements, usage/test/sibling/parent edges from the
// document set, and syncs all of it to storage (§4.11).
func (s *Service) deriveRelationships(ctx context.Context, doc domain.Document, content string) error {
	chunks, err := s.gateway.ListChunksByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	var imports []string
	for _, c := range chunks {
		imports = append(imports, c.Metadata.Imports...)
	}

	edges := relationships.DeriveImportEdges(doc.CollectionID, doc.FilePath, imports)
	edges = append(edges, relationships.DeriveUsageEdges(doc.CollectionID, doc.FilePath, content, edges)...)
	if relationships.IsTestFile(doc.FilePath) {
		if edge, ok := relationships.DeriveTestEdge(doc.CollectionID, doc.FilePath); ok {
			edges = append(edges, edge)
		}
	}
	edges = append(edges, relationships.DeriveParentEdge(doc.CollectionID, doc.FilePath))

	docs, err := s.gateway.ListDocuments(ctx, doc.CollectionID)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.FilePath
	}
	edges = append(edges, relationships.DeriveSiblingEdges(doc.CollectionID, paths)...)

	return relationships.Sync(ctx, s.gateway, edges)
}

// rerank builds a fresh provider chain per call so a change in fallback
// mode (budget exhausted mid-session) is honoured on the very next query,
// per §4.8's selection priority.
func (s *Service) rerank(ctx context.Context, query string, fused []domain.HybridSearchResult) ([]domain.ReRankedResult, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	candidates := make([]rerank.Candidate, len(fused))
	for i, f := range fused {
		candidates[i] = rerank.Candidate{Text: f.Text, Score: f.FusedScore}
	}

	providers := rerank.BuildProviders(s.cfg.RerankerProvider, s.rerankCloud, s.rerankLocal, s.cfg.OpenAIAPIKey != "", s.tracker.Fallback())
	chain := rerank.NewChain(s.rerankCfg, providers...)

	scored, err := chain.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}
	if s.cfg.OpenAIAPIKey != "" && !s.tracker.Fallback() {
		s.tracker.Track("cloud", domain.OpRerank, 0, "gpt-4o-mini", "")
	}

	out := make([]domain.ReRankedResult, len(scored))
	for i, r := range scored {
		out[i] = domain.ReRankedResult{HybridSearchResult: fused[r.Index], RerankScore: r.Score}
	}
	return out, nil
}

// embedQuery routes a query string through the documentation embedding
// route — queries are prose, not source, regardless of what they're
// searching for. Provider failures and budget-exhaustion fallback are
// handled by Router.EmbedAs, which degrades to Ollama instead of failing;
// the returned bool mirrors that degradation back to the caller.
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, bool, error) {
	providerID, res, err := s.router.EmbedAs(ctx, embedding.ContentDocumentation, []string{query})
	if err != nil {
		return nil, false, err
	}
	if len(res.Embeddings) == 0 {
		return nil, false, fmt.Errorf("embedding provider %s returned no vectors", providerID)
	}
	s.tracker.Track(providerID, domain.OpEmbed, res.TotalTokens, res.Model, "")
	return res.Embeddings[0], res.Degraded, nil
}

// writingEmbedder adapts Service's router to synthesis.Embedder, always
// routing through the ContentWriting path whatever the text: the
// Synthesis Engine embeds candidate chunk samples (which may be source
// code) as well as the approach summaries it generates.
type writingEmbedder struct {
	svc *Service
}

func (w *writingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	providerID, res, err := w.svc.router.EmbedAs(ctx, embedding.ContentWriting, texts)
	if err != nil {
		return nil, err
	}
	w.svc.tracker.Track(providerID, domain.OpEmbed, res.TotalTokens, res.Model, "")
	return res.Embeddings, nil
}

func hybridModeFor(mode config.SearchMode) hybrid.Mode {
	if mode == config.SearchModeHybrid {
		return hybrid.ModeHybrid
	}
	return hybrid.ModeVector
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Beaulewis1977/synthesis-sub002/internal/chunk"
	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/embedding"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

// Embedder is the narrow capability the orchestrator needs from the
// embedding router: classify-then-embed a batch of texts for one file.
type Embedder interface {
	Embed(ctx context.Context, filePath, sample string, texts []string) (string, embedding.Result, error)
}

// UsageTracker records paid API calls. Optional — a nil tracker means
// usage simply isn't recorded, useful for tests and offline providers.
type UsageTracker interface {
	Track(provider string, operation domain.ApiOperation, tokens int64, model, collectionID string)
}

// Config tunes chunking and embedding parallelism. Zero values fall back
// to the same defaults pkg/rag/embed.Embedder uses.
type Config struct {
	MaxConcurrency int
	BatchSize      int
	ASTOptions     chunk.ASTOptions
	TextOptions    chunk.TextOptions
}

const (
	defaultMaxConcurrency = 5
	defaultBatchSize      = 50
	classifySampleChars   = 500
)

// Orchestrator drives one document through the §4.4 state machine:
// pending -> extracting -> chunking -> embedding -> complete/error.
type Orchestrator struct {
	gateway  storage.Gateway
	embedder Embedder
	tracker  UsageTracker
	cfg      Config
}

func NewOrchestrator(gateway storage.Gateway, embedder Embedder, tracker UsageTracker, cfg Config) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.ASTOptions.MaxChunkLines == 0 {
		cfg.ASTOptions = chunk.DefaultASTOptions()
	}
	if cfg.TextOptions.TokenSize == 0 {
		cfg.TextOptions = chunk.DefaultTextOptions()
	}
	return &Orchestrator{gateway: gateway, embedder: embedder, tracker: tracker, cfg: cfg}
}

// Ingest chunks, embeds, and persists one document's extracted content.
// Extraction of the raw artefact (PDF/DOCX/HTML/etc. into plain text) is
// assumed to have already happened upstream of this call — content is
// the extracted text. The orchestrator owns everything from chunking
// onward, including the status transitions §4.4/§5 name.
func (o *Orchestrator) Ingest(ctx context.Context, doc domain.Document, content string) (domain.Document, error) {
	doc.Status = domain.StatusPending
	created, err := o.gateway.CreateDocument(ctx, doc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("creating document: %w", err)
	}
	doc = created

	if err := o.transition(ctx, &doc, domain.StatusExtracting); err != nil {
		return doc, err
	}
	// Extraction already done by the caller; this transition exists so
	// status observers see the full state machine even when extraction
	// was instantaneous (e.g. plain text/markdown).

	if err := o.checkCancelled(ctx, &doc); err != nil {
		return doc, err
	}
	if err := o.transition(ctx, &doc, domain.StatusChunking); err != nil {
		return doc, err
	}

	results := o.chunkContent(doc.FilePath, content)
	if len(results) == 0 {
		return o.fail(ctx, &doc, "no chunks produced")
	}

	if err := o.checkCancelled(ctx, &doc); err != nil {
		return doc, err
	}
	if err := o.transition(ctx, &doc, domain.StatusEmbedding); err != nil {
		return doc, err
	}

	inserts, providerID, model, totalTokens, degraded, err := o.embedChunks(ctx, doc.FilePath, content, results)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(ctx, &doc, "cancelled")
		}
		return o.fail(ctx, &doc, err.Error())
	}

	// Atomic partial-failure semantics: chunks are only persisted once
	// every chunk in the document embedded successfully.
	if err := o.gateway.InsertChunks(ctx, doc.ID, inserts); err != nil {
		return o.fail(ctx, &doc, err.Error())
	}

	if o.tracker != nil && totalTokens > 0 {
		o.tracker.Track(providerID, domain.OpEmbed, totalTokens, model, doc.CollectionID)
	}

	// §3: embedding_dimensions must match every chunk's vector dimension.
	doc.Metadata.EmbeddingProvider = providerID
	doc.Metadata.EmbeddingModel = model
	if len(inserts) > 0 {
		doc.Metadata.EmbeddingDimensions = len(inserts[0].Embedding)
	}
	if degraded {
		if doc.Metadata.Extra == nil {
			doc.Metadata.Extra = make(map[string]string, 1)
		}
		doc.Metadata.Extra["embedding_degraded"] = "true"
	}

	if err := o.transition(ctx, &doc, domain.StatusComplete); err != nil {
		return doc, err
	}
	return doc, nil
}

func (o *Orchestrator) chunkContent(filePath, content string) []chunk.Result {
	ext := strings.ToLower(path.Ext(filePath))
	if chunk.SupportsAST(ext) || ext == ".dart" {
		return chunk.ChunkSource(filePath, []byte(content), o.cfg.ASTOptions, o.cfg.TextOptions)
	}
	return chunk.ChunkText(content, o.cfg.TextOptions)
}

// embedChunks embeds every chunk's text with bounded concurrency,
// grounded directly on pkg/rag/embed.Embedder.embedBatchOptimized's
// errgroup-with-limit-and-mutex-guarded-writes pattern.
func (o *Orchestrator) embedChunks(ctx context.Context, filePath, content string, results []chunk.Result) ([]storage.ChunkInsert, string, string, int64, bool, error) {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	sample := classifySample(content)

	embeddings := make([][]float32, len(texts))
	var mu sync.Mutex
	var providerID, model string
	var totalTokens int64
	var degraded bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrency)

	for start := 0; start < len(texts); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			batch := texts[start:end]
			id, res, err := o.embedder.Embed(gctx, filePath, sample, batch)
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end, err)
			}
			if len(res.Embeddings) != len(batch) {
				return fmt.Errorf("embedding provider %s returned %d vectors for %d inputs", id, len(res.Embeddings), len(batch))
			}

			mu.Lock()
			copy(embeddings[start:end], res.Embeddings)
			providerID = id
			model = res.Model
			totalTokens += res.TotalTokens
			degraded = degraded || res.Degraded
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, "", "", 0, false, err
	}

	inserts := make([]storage.ChunkInsert, len(results))
	for i, r := range results {
		inserts[i] = storage.ChunkInsert{
			Index:          r.Index,
			Text:           r.Text,
			TokenCount:     len(r.Text) / 4,
			Embedding:      embeddings[i],
			EmbeddingModel: model,
			Metadata:       r.Meta,
		}
	}
	return inserts, providerID, model, totalTokens, degraded, nil
}

func classifySample(text string) string {
	r := []rune(text)
	if len(r) <= classifySampleChars {
		return string(r)
	}
	return string(r[:classifySampleChars])
}

func (o *Orchestrator) transition(ctx context.Context, doc *domain.Document, status domain.DocumentStatus) error {
	doc.Status = status
	doc.UpdatedAt = time.Now()
	if err := o.gateway.UpdateDocument(ctx, *doc); err != nil {
		return fmt.Errorf("transitioning to %s: %w", status, err)
	}
	return nil
}

func (o *Orchestrator) checkCancelled(ctx context.Context, doc *domain.Document) error {
	if ctx.Err() == nil {
		return nil
	}
	_, err := o.fail(ctx, doc, "cancelled")
	return err
}

// fail transitions the document to error status with message, using a
// background context since the triggering context may already be
// cancelled or timed out.
func (o *Orchestrator) fail(ctx context.Context, doc *domain.Document, message string) (domain.Document, error) {
	doc.Status = domain.StatusError
	doc.ErrorMessage = message
	doc.UpdatedAt = time.Now()
	if err := o.gateway.UpdateDocument(context.Background(), *doc); err != nil {
		slog.Warn("ingest: failed to persist error status", "document", doc.ID, "error", err)
	}
	return *doc, fmt.Errorf("ingestion failed: %s", message)
}

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/embedding"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

type fakeGateway struct {
	storage.Gateway

	mu        sync.Mutex
	created   domain.Document
	updates   []domain.Document
	inserted  []storage.ChunkInsert
	insertErr error
}

func (f *fakeGateway) CreateDocument(_ context.Context, d domain.Document) (domain.Document, error) {
	d.ID = "doc-1"
	f.mu.Lock()
	f.created = d
	f.mu.Unlock()
	return d, nil
}

func (f *fakeGateway) UpdateDocument(_ context.Context, d domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, d)
	return nil
}

func (f *fakeGateway) InsertChunks(_ context.Context, _ string, chunks []storage.ChunkInsert) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	f.inserted = chunks
	f.mu.Unlock()
	return nil
}

func (f *fakeGateway) lastStatus() domain.DocumentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return ""
	}
	return f.updates[len(f.updates)-1].Status
}

type fakeEmbedder struct {
	dims     int
	err      error
	degraded bool
}

func (f fakeEmbedder) Embed(_ context.Context, _, _ string, texts []string) (string, embedding.Result, error) {
	if f.err != nil {
		return "", embedding.Result{}, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = make([]float32, f.dims)
	}
	return "fake", embedding.Result{Embeddings: vecs, Model: "fake-model", TotalTokens: int64(len(texts) * 10), Degraded: f.degraded}, nil
}

type fakeTracker struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTracker) Track(_ string, _ domain.ApiOperation, _ int64, _, _ string) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func TestIngestSucceedsAndPersistsChunks(t *testing.T) {
	gw := &fakeGateway{}
	tracker := &fakeTracker{}
	o := NewOrchestrator(gw, fakeEmbedder{dims: 4}, tracker, Config{})

	doc := domain.Document{CollectionID: "c1", FilePath: "notes.md"}
	result, err := o.Ingest(context.Background(), doc, "# Title\n\nSome body text about things.")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, result.Status)
	assert.Equal(t, domain.StatusComplete, gw.lastStatus())
	assert.NotEmpty(t, gw.inserted)
	assert.Equal(t, 1, tracker.calls)
	assert.Equal(t, "fake", result.Metadata.EmbeddingProvider)
	assert.Equal(t, "fake-model", result.Metadata.EmbeddingModel)
	assert.Equal(t, 4, result.Metadata.EmbeddingDimensions)
	assert.Empty(t, result.Metadata.Extra["embedding_degraded"])
}

func TestIngestMarksDocumentDegradedWhenEmbeddingFellBack(t *testing.T) {
	gw := &fakeGateway{}
	o := NewOrchestrator(gw, fakeEmbedder{dims: 4, degraded: true}, nil, Config{})

	doc := domain.Document{CollectionID: "c1", FilePath: "notes.md"}
	result, err := o.Ingest(context.Background(), doc, "# Title\n\nSome body text about things.")
	require.NoError(t, err)
	assert.Equal(t, "true", result.Metadata.Extra["embedding_degraded"])
}

func TestIngestFailsDocumentOnEmbeddingError(t *testing.T) {
	gw := &fakeGateway{}
	o := NewOrchestrator(gw, fakeEmbedder{err: errors.New("provider down")}, nil, Config{})

	doc := domain.Document{CollectionID: "c1", FilePath: "notes.md"}
	_, err := o.Ingest(context.Background(), doc, "some content to chunk and embed")
	require.Error(t, err)
	assert.Equal(t, domain.StatusError, gw.lastStatus())
	assert.Empty(t, gw.inserted)
}

func TestIngestFailsWhenChunkPersistenceFails(t *testing.T) {
	gw := &fakeGateway{insertErr: errors.New("db down")}
	o := NewOrchestrator(gw, fakeEmbedder{dims: 4}, nil, Config{})

	doc := domain.Document{CollectionID: "c1", FilePath: "notes.md"}
	_, err := o.Ingest(context.Background(), doc, "some content to chunk and embed")
	require.Error(t, err)
	assert.Equal(t, domain.StatusError, gw.lastStatus())
}

func TestIngestCancellationMarksDocumentCancelled(t *testing.T) {
	gw := &fakeGateway{}
	o := NewOrchestrator(gw, fakeEmbedder{dims: 4}, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := domain.Document{CollectionID: "c1", FilePath: "notes.md"}
	_, err := o.Ingest(ctx, doc, "some content")
	require.Error(t, err)
	assert.Equal(t, domain.StatusError, gw.lastStatus())
	assert.Equal(t, "cancelled", gw.updates[len(gw.updates)-1].ErrorMessage)
}

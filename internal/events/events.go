// Package events defines the lifecycle event shared by ingestion, search,
// and cost tracking — the same Event shape the teacher's RAG strategies,
// fusion, and reranker emit, adapted to the synthesis domain.
package events

// Type names a lifecycle event kind.
type Type string

const (
	TypeIngestStarted  Type = "ingest_started"
	TypeIngestProgress Type = "ingest_progress"
	TypeIngestComplete Type = "ingest_complete"
	TypeUsage          Type = "usage"
	TypeError          Type = "error"
	TypeAlert          Type = "alert"
)

// Progress reports position within a multi-step operation.
type Progress struct {
	Current int
	Total   int
}

// Event is the canonical lifecycle event used by ingestion, embedding,
// reranking, and cost tracking.
type Event struct {
	Type        Type
	Component   string // name of the component emitting the event
	Message     string
	Progress    *Progress
	Err         error
	TotalTokens int64
	CostUSD     float64
}

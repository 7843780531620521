// Package domain holds the entities shared across every component:
// Collection, Document, Chunk, FileRelationship, ApiUsage, BudgetAlert,
// and the transient search/synthesis result types.
package domain

import "time"

// Collection is a logical grouping of documents.
type Collection struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// DocumentStatus is the Ingestion Orchestrator's state machine position.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusExtracting DocumentStatus = "extracting"
	StatusChunking   DocumentStatus = "chunking"
	StatusEmbedding  DocumentStatus = "embedding"
	StatusComplete   DocumentStatus = "complete"
	StatusError      DocumentStatus = "error"
)

// SourceQuality classifies how much a document's claims should be trusted.
type SourceQuality string

const (
	QualityOfficial  SourceQuality = "official"
	QualityVerified  SourceQuality = "verified"
	QualityCommunity SourceQuality = "community"
	QualityUnknown   SourceQuality = "unknown"
)

// DocumentMetadata holds the recognised keys from §3, plus an opaque map
// for anything else — the "JSON-blob with heterogeneous keys" pattern
// re-expressed as a typed record with optional fields, per §9.
type DocumentMetadata struct {
	DocType             string
	SourceQuality       SourceQuality
	SourceURL           string
	Framework           string
	FrameworkVersion    string
	SDKConstraints      string
	Language            string
	FilePath            string
	RepoName            string
	RepoStars           int
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int
	LastVerified        *time.Time
	PublishedDate       *time.Time
	Tags                []string
	Extra               map[string]string
}

// Document is a single ingested artefact.
type Document struct {
	ID           string
	CollectionID string
	Title        string
	SourceURL    string
	FilePath     string
	ContentType  string
	ByteSize     int64
	Status       DocumentStatus
	ErrorMessage string
	Metadata     DocumentMetadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChunkType names the structural kind of a chunk produced by C3.
type ChunkType string

const (
	ChunkText     ChunkType = "text"
	ChunkFunction ChunkType = "function"
	ChunkMethod   ChunkType = "method"
	ChunkClass    ChunkType = "class"
	ChunkConstant ChunkType = "constant"
	ChunkHeading  ChunkType = "heading"
	ChunkList     ChunkType = "list"
)

// ChunkMetadata carries the structural attributes an AST-aware chunk adds
// on top of the common chunk fields.
type ChunkMetadata struct {
	Type         ChunkType
	FunctionName string
	ClassName    string
	StartLine    int
	EndLine      int
	Imports      []string
	Language     string
	Extra        map[string]string
}

// Chunk is a contiguous or structural fragment of a document.
type Chunk struct {
	ID             int64
	DocumentID     string
	Index          int
	Text           string
	TokenCount     int
	Embedding      []float32
	EmbeddingModel string
	Metadata       ChunkMetadata
}

// RelationshipType names an edge kind between two file paths.
type RelationshipType string

const (
	RelImport  RelationshipType = "import"
	RelUsage   RelationshipType = "usage"
	RelTest    RelationshipType = "test"
	RelSibling RelationshipType = "sibling"
	RelParent  RelationshipType = "parent"
)

// FileRelationship is an edge between two file paths within a collection.
type FileRelationship struct {
	CollectionID string
	SourcePath   string
	TargetPath   string
	Type         RelationshipType
	Metadata     map[string]string
}

// ApiOperation names the kind of paid API call an ApiUsage record covers.
type ApiOperation string

const (
	OpEmbed  ApiOperation = "embed"
	OpRerank ApiOperation = "rerank"
	OpChat   ApiOperation = "chat"
)

// ApiUsage is one accounting record per paid API call.
type ApiUsage struct {
	ID           int64
	Provider     string
	Operation    ApiOperation
	Tokens       int64
	CostUSD      float64
	CollectionID string
	UserID       string
	Timestamp    time.Time
	Metadata     map[string]string
}

// AlertType names a budget threshold crossing.
type AlertType string

const (
	AlertWarning      AlertType = "warning"
	AlertLimitReached AlertType = "limit_reached"
)

// BudgetPeriod names the accounting window a BudgetAlert concerns.
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "daily"
	PeriodMonthly BudgetPeriod = "monthly"
)

// BudgetAlert is a threshold event emitted by the Cost Tracker.
type BudgetAlert struct {
	ID           int64
	Type         AlertType
	Threshold    float64
	CurrentSpend float64
	Period       BudgetPeriod
	Time         time.Time
	Acknowledged bool
}

// SourceTag records which retrieval list(s) contributed a hybrid result.
type SourceTag string

const (
	SourceVector  SourceTag = "vector"
	SourceLexical SourceTag = "lexical"
	SourceBoth    SourceTag = "both"
)

// SearchResult is the transient value type returned by C5/C6/C7.
type SearchResult struct {
	ChunkID       int64
	Text          string
	DocumentID    string
	DocumentTitle string
	SourceURL     string
	Metadata      ChunkMetadata
	DocMetadata   DocumentMetadata
	Score         float64
	Citation      string
}

// HybridSearchResult extends SearchResult with the per-signal scores C7
// tracks through fusion.
type HybridSearchResult struct {
	SearchResult
	VectorScore  float64
	LexicalScore float64
	FusedScore   float64
	Source       SourceTag
}

// ReRankedResult adds a cross-encoder score on top of a hybrid result.
type ReRankedResult struct {
	HybridSearchResult
	RerankScore float64
}

// Approach is one synthesis cluster: a method/approach with its
// consensus score and contributing sources.
type Approach struct {
	Method         string
	Summary        string
	Sources        []ReRankedResult
	ConsensusScore float64
}

// ConflictSeverity grades how serious a detected contradiction is.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// Conflict is a detected contradiction between two Approaches.
type Conflict struct {
	Topic          string
	SourceA        string
	SourceB        string
	Severity       ConflictSeverity
	Difference     string
	Recommendation string
	Confidence     float64
}

// SynthesisMetadata carries the summary counters that accompany a
// SynthesisResult.
type SynthesisMetadata struct {
	TotalSources     int
	ApproachesFound  int
	ConflictsFound   int
	SynthesisTimeMs  int64
}

// SynthesisResult is the top-level response of the synthesis engine.
type SynthesisResult struct {
	Query       string
	Approaches  []Approach
	Conflicts   []Conflict
	Recommended *Approach
	Metadata    SynthesisMetadata
}

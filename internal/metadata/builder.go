package metadata

import (
	"path"
	"strings"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

const starThreshold = 1000

// Builder fluently constructs domain.DocumentMetadata. Auto-detection
// heuristics run in the setters as each field is set; Build only fills in
// defaults for fields still empty. Chainable
// setters mirror the functional-options idiom
// pkg/model/provider/options.Opt uses elsewhere in the pack, adapted
// here to method chaining since §4.12 calls for fluent construction
// rather than a fixed option list passed to one constructor.
type Builder struct {
	meta domain.DocumentMetadata
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SourceURL(url string) *Builder {
	b.meta.SourceURL = url
	if b.meta.SourceQuality == "" {
		b.meta.SourceQuality = qualityFromHost(url)
	}
	return b
}

func (b *Builder) FilePath(filePath string) *Builder {
	b.meta.FilePath = filePath
	if b.meta.Language == "" {
		b.meta.Language = languageFromExtension(path.Ext(filePath))
	}
	return b
}

func (b *Builder) DocType(docType string) *Builder {
	b.meta.DocType = docType
	return b
}

func (b *Builder) SourceQuality(q domain.SourceQuality) *Builder {
	b.meta.SourceQuality = q
	return b
}

func (b *Builder) Framework(name, version string) *Builder {
	b.meta.Framework = name
	b.meta.FrameworkVersion = version
	return b
}

func (b *Builder) SDKConstraints(constraints string) *Builder {
	b.meta.SDKConstraints = constraints
	return b
}

func (b *Builder) RepoName(name string) *Builder {
	b.meta.RepoName = name
	return b
}

// RepoStars records the repository's star count and upgrades a
// community-quality source to verified once it crosses the popularity
// threshold §4.12 names.
func (b *Builder) RepoStars(stars int) *Builder {
	b.meta.RepoStars = stars
	if stars >= starThreshold && (b.meta.SourceQuality == "" || b.meta.SourceQuality == domain.QualityCommunity) {
		b.meta.SourceQuality = domain.QualityVerified
	}
	return b
}

func (b *Builder) Embedding(provider, model string, dimensions int) *Builder {
	b.meta.EmbeddingProvider = provider
	b.meta.EmbeddingModel = model
	b.meta.EmbeddingDimensions = dimensions
	return b
}

func (b *Builder) LastVerified(t time.Time) *Builder {
	b.meta.LastVerified = &t
	return b
}

func (b *Builder) PublishedDate(t time.Time) *Builder {
	b.meta.PublishedDate = &t
	return b
}

func (b *Builder) Tags(tags ...string) *Builder {
	b.meta.Tags = append(b.meta.Tags, tags...)
	return b
}

func (b *Builder) Extra(key, value string) *Builder {
	if b.meta.Extra == nil {
		b.meta.Extra = map[string]string{}
	}
	b.meta.Extra[key] = value
	return b
}

// Build applies §4.12's build-time defaults to whatever the chain left
// unset and returns the finished metadata.
func (b *Builder) Build() domain.DocumentMetadata {
	if b.meta.SourceQuality == "" {
		b.meta.SourceQuality = domain.QualityCommunity
	}
	if b.meta.DocType == "" {
		b.meta.DocType = "tutorial"
	}
	if b.meta.EmbeddingProvider == "" {
		b.meta.EmbeddingProvider = "ollama"
		b.meta.EmbeddingModel = "nomic-embed-text"
		b.meta.EmbeddingDimensions = 768
	}
	return b.meta
}

var officialHosts = map[string]bool{
	"docs.python.org":        true,
	"pkg.go.dev":             true,
	"developer.mozilla.org":  true,
	"kubernetes.io":          true,
	"react.dev":              true,
	"nodejs.org":             true,
	"docs.aws.amazon.com":    true,
	"learn.microsoft.com":    true,
	"docs.docker.com":        true,
}

var verifiedHosts = map[string]bool{
	"stackoverflow.com": true,
	"github.com":        true,
	"medium.com":        true,
}

// qualityFromHost classifies a source_url's host against recognised
// vendor and aggregator domains, per §4.12.
func qualityFromHost(rawURL string) domain.SourceQuality {
	host := extractHost(rawURL)
	if host == "" {
		return ""
	}
	if officialHosts[host] {
		return domain.QualityOfficial
	}
	if verifiedHosts[host] {
		return domain.QualityVerified
	}
	return domain.QualityCommunity
}

func extractHost(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	rest = strings.TrimPrefix(rest, "www.")
	return strings.ToLower(rest)
}

var extensionLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".jsx":  "javascript",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".c":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".md":   "markdown",
}

func languageFromExtension(ext string) string {
	return extensionLanguages[strings.ToLower(ext)]
}

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

func TestBuildAppliesDefaults(t *testing.T) {
	meta := NewBuilder().Build()
	assert.Equal(t, domain.QualityCommunity, meta.SourceQuality)
	assert.Equal(t, "tutorial", meta.DocType)
	assert.Equal(t, "ollama", meta.EmbeddingProvider)
	assert.Equal(t, "nomic-embed-text", meta.EmbeddingModel)
	assert.Equal(t, 768, meta.EmbeddingDimensions)
}

func TestSourceURLDetectsOfficialQuality(t *testing.T) {
	meta := NewBuilder().SourceURL("https://docs.python.org/3/library/os.html").Build()
	assert.Equal(t, domain.QualityOfficial, meta.SourceQuality)
}

func TestSourceURLDetectsVerifiedQuality(t *testing.T) {
	meta := NewBuilder().SourceURL("https://github.com/example/repo").Build()
	assert.Equal(t, domain.QualityVerified, meta.SourceQuality)
}

func TestUnknownHostDefaultsToCommunity(t *testing.T) {
	meta := NewBuilder().SourceURL("https://some-random-blog.example/post").Build()
	assert.Equal(t, domain.QualityCommunity, meta.SourceQuality)
}

func TestFilePathDetectsLanguage(t *testing.T) {
	meta := NewBuilder().FilePath("pkg/foo/bar.rs").Build()
	assert.Equal(t, "rust", meta.Language)
}

func TestRepoStarsUpgradesCommunityToVerified(t *testing.T) {
	meta := NewBuilder().SourceURL("https://some-random-blog.example/post").RepoStars(5000).Build()
	assert.Equal(t, domain.QualityVerified, meta.SourceQuality)
}

func TestRepoStarsBelowThresholdLeavesQualityAlone(t *testing.T) {
	meta := NewBuilder().SourceURL("https://some-random-blog.example/post").RepoStars(10).Build()
	assert.Equal(t, domain.QualityCommunity, meta.SourceQuality)
}

func TestExplicitSourceQualityNotOverriddenByHostHeuristic(t *testing.T) {
	meta := NewBuilder().SourceQuality(domain.QualityOfficial).SourceURL("https://some-random-blog.example/post").Build()
	assert.Equal(t, domain.QualityOfficial, meta.SourceQuality)
}

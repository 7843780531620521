package relationships

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

func TestImportPathResolvesRelativeAndPackageSpecifiers(t *testing.T) {
	assert.Equal(t, "./foo", ImportPath(`import foo from './foo'`))
	assert.Equal(t, "pkg/bar", ImportPath(`import "pkg/bar"`))
	assert.Equal(t, "", ImportPath("not an import"))
}

func TestDeriveImportEdgesResolvesRelativePaths(t *testing.T) {
	edges := DeriveImportEdges("c1", "src/pkg/file.go", []string{
		`import "./sibling"`,
		`import "github.com/example/lib"`,
	})
	require.Len(t, edges, 2)
	assert.Equal(t, "src/pkg/sibling", edges[0].TargetPath)
	assert.Equal(t, "github.com/example/lib", edges[1].TargetPath)
}

func TestDeriveUsageEdgesMatchesCapitalizedIdentifier(t *testing.T) {
	imports := []domain.FileRelationship{{TargetPath: "src/pkg/widget.go"}}
	content := "func main() { w := Widget{}; _ = w }"
	edges := DeriveUsageEdges("c1", "src/main.go", content, imports)
	require.Len(t, edges, 1)
	assert.Equal(t, domain.RelUsage, edges[0].Type)
	assert.Equal(t, "Widget", edges[0].Metadata["symbol"])
}

func TestIsTestFileRecognisesConventions(t *testing.T) {
	assert.True(t, IsTestFile("pkg/foo_test.go"))
	assert.True(t, IsTestFile("tests/foo.py"))
	assert.False(t, IsTestFile("pkg/foo.go"))
}

func TestDeriveTestEdgeInfersSourceFromSuffix(t *testing.T) {
	edge, ok := DeriveTestEdge("c1", "pkg/foo_test.go")
	require.True(t, ok)
	assert.Equal(t, "pkg/foo.go", edge.TargetPath)

	_, ok = DeriveTestEdge("c1", "pkg/foo.go")
	assert.False(t, ok)
}

func TestDeriveSiblingEdgesLinksSameDirectory(t *testing.T) {
	edges := DeriveSiblingEdges("c1", []string{"a/one.go", "a/two.go", "b/three.go"})
	require.Len(t, edges, 2)
}

type fakeRelGateway struct {
	storage.Gateway
	forward map[domain.RelationshipType][]string
	reverse map[domain.RelationshipType][]string
}

func (f *fakeRelGateway) RelatedFiles(_ context.Context, _, _ string) (map[domain.RelationshipType][]string, map[domain.RelationshipType][]string, error) {
	return f.forward, f.reverse, nil
}

func TestQueryCombinesForwardAndReverseEdges(t *testing.T) {
	gw := &fakeRelGateway{
		forward: map[domain.RelationshipType][]string{domain.RelImport: {"a.go"}},
		reverse: map[domain.RelationshipType][]string{domain.RelImport: {"b.go"}},
	}
	related, err := Query(context.Background(), gw, "c1", "main.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, related.Imports)
	assert.Equal(t, []string{"b.go"}, related.ImportedBy)
}

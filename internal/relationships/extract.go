package relationships

import (
	"path"
	"regexp"
	"strings"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// importLiteral matches the first quoted or bare module specifier inside
// an import statement, covering Go (`"pkg/path"`), JS/TS
// (`from './foo'`), and Python (`from .foo import bar`) shapes without
// needing a per-language parser — the statement text itself already
// came from chunk.extractImports' AST walk.
var importLiteral = regexp.MustCompile(`["']([^"']+)["']|from\s+(\.+[\w./]*)|import\s+(\.+[\w./]*)`)

// ImportPath extracts the module specifier from one raw import statement.
// Returns "" if no specifier could be found.
func ImportPath(statement string) string {
	m := importLiteral.FindStringSubmatch(statement)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// DeriveImportEdges resolves each raw import statement against
// sourcePath's directory, per §4.11: relative specifiers are resolved,
// package-scheme specifiers (no leading "." or "/") are stored verbatim.
func DeriveImportEdges(collectionID, sourcePath string, imports []string) []domain.FileRelationship {
	dir := path.Dir(sourcePath)
	var edges []domain.FileRelationship
	seen := map[string]bool{}

	for _, stmt := range imports {
		spec := ImportPath(stmt)
		if spec == "" {
			continue
		}
		target := spec
		if strings.HasPrefix(spec, ".") {
			target = path.Clean(path.Join(dir, spec))
		}
		if seen[target] {
			continue
		}
		seen[target] = true
		edges = append(edges, domain.FileRelationship{
			CollectionID: collectionID,
			SourcePath:   sourcePath,
			TargetPath:   target,
			Type:         domain.RelImport,
		})
	}
	return edges
}

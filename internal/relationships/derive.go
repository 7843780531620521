package relationships

import (
	"path"
	"regexp"
	"strings"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

var capitalizedIdentifier = regexp.MustCompile(`\b[A-Z][A-Za-z0-9_]*\b`)

// DeriveUsageEdges implements §4.11's heuristic symbol-reference
// detection: for each import edge already resolved for sourcePath, guess
// the symbol the import would export (its base name) and, if that
// identifier occurs capitalised somewhere in the file's content, record
// a usage edge attributing the reference back to the imported source.
// Precision is intentionally low — this is a heuristic, not a resolver.
func DeriveUsageEdges(collectionID, sourcePath, content string, importEdges []domain.FileRelationship) []domain.FileRelationship {
	identifiers := map[string]bool{}
	for _, m := range capitalizedIdentifier.FindAllString(content, -1) {
		identifiers[m] = true
	}

	var edges []domain.FileRelationship
	for _, imp := range importEdges {
		symbol := guessSymbol(imp.TargetPath)
		if symbol == "" || !identifiers[symbol] {
			continue
		}
		edges = append(edges, domain.FileRelationship{
			CollectionID: collectionID,
			SourcePath:   sourcePath,
			TargetPath:   imp.TargetPath,
			Type:         domain.RelUsage,
			Metadata:     map[string]string{"symbol": symbol},
		})
	}
	return edges
}

func guessSymbol(importPath string) string {
	base := path.Base(importPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" {
		return ""
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

var testFilePattern = regexp.MustCompile(`_test\.[A-Za-z0-9]+$`)

// IsTestFile reports whether path follows a recognised test-file
// convention: a "_test.<ext>" suffix, or residing under a "test"/"tests"
// directory root.
func IsTestFile(filePath string) bool {
	if testFilePattern.MatchString(filePath) {
		return true
	}
	for _, part := range strings.Split(path.Dir(filePath), "/") {
		if part == "test" || part == "tests" {
			return true
		}
	}
	return false
}

// DeriveTestEdge infers the source file a test file exercises from
// naming convention, returning ok=false when no inference is possible.
func DeriveTestEdge(collectionID, testPath string) (domain.FileRelationship, bool) {
	if !IsTestFile(testPath) {
		return domain.FileRelationship{}, false
	}

	if testFilePattern.MatchString(testPath) {
		ext := path.Ext(testPath)
		sourcePath := strings.TrimSuffix(testPath, "_test"+ext) + ext
		return domain.FileRelationship{
			CollectionID: collectionID,
			SourcePath:   testPath,
			TargetPath:   sourcePath,
			Type:         domain.RelTest,
		}, true
	}

	// Under a test/ or tests/ root: map to the same relative path with
	// that root segment removed, e.g. "tests/foo/bar.py" -> "foo/bar.py".
	parts := strings.Split(testPath, "/")
	for i, part := range parts {
		if part == "test" || part == "tests" {
			rest := append(append([]string{}, parts[:i]...), parts[i+1:]...)
			return domain.FileRelationship{
				CollectionID: collectionID,
				SourcePath:   testPath,
				TargetPath:   strings.Join(rest, "/"),
				Type:         domain.RelTest,
			}, true
		}
	}
	return domain.FileRelationship{}, false
}

// DeriveSiblingEdges links every pair of files sharing a parent
// directory. O(n^2) per directory, acceptable at collection-ingestion
// scale.
func DeriveSiblingEdges(collectionID string, paths []string) []domain.FileRelationship {
	byDir := map[string][]string{}
	for _, p := range paths {
		dir := path.Dir(p)
		byDir[dir] = append(byDir[dir], p)
	}

	var edges []domain.FileRelationship
	for _, files := range byDir {
		for i, a := range files {
			for j, b := range files {
				if i == j {
					continue
				}
				edges = append(edges, domain.FileRelationship{
					CollectionID: collectionID,
					SourcePath:   a,
					TargetPath:   b,
					Type:         domain.RelSibling,
				})
			}
		}
	}
	return edges
}

// DeriveParentEdge links a file to its enclosing directory, giving
// `related()` a single deterministic parent target instead of the
// many-to-many sibling set.
func DeriveParentEdge(collectionID, filePath string) domain.FileRelationship {
	return domain.FileRelationship{
		CollectionID: collectionID,
		SourcePath:   filePath,
		TargetPath:   path.Dir(filePath),
		Type:         domain.RelParent,
	}
}

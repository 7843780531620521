package embedding

import (
	"path/filepath"
	"strings"
)

var codeExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rb": true, ".java": true, ".rs": true, ".c": true,
	".cpp": true, ".h": true, ".hpp": true, ".dart": true, ".kt": true,
	".swift": true, ".cs": true, ".php": true,
}

var docExtensions = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".adoc": true,
}

// writingSignals mark a sample as personal/creative writing rather than
// reference material — the one case §4.2 carves out of the documentation
// default.
var writingSignals = []string{"dear diary", "dear journal", "chapter ", "once upon a time"}

var importSignals = []string{
	"import ", "#include", "require(", "package ", "from __future__",
	"using namespace", "namespace ",
}

// Classify picks the content type a document's embedding should route
// through: file extension first, then content signals for input whose
// extension is missing or unrecognised, with documentation as the default and personal writing as the
// one marked exception (§4.2 step 2) — the file-type dispatch
// pkg/rag/treesitter.go uses to decide AST vs plain-text chunking,
// extended one step further to choose an embedding provider.
func Classify(filePath string, sample string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))
	if codeExtensions[ext] {
		return ContentCode
	}
	if docExtensions[ext] {
		return ContentDocumentation
	}

	lower := strings.ToLower(sample)

	for _, s := range writingSignals {
		if strings.Contains(lower, s) {
			return ContentWriting
		}
	}
	if looksLikeCode(sample) {
		return ContentCode
	}
	return ContentDocumentation
}

// looksLikeCode flags unclassified samples that read as source: import or
// include statements, or a brace density too high for prose.
func looksLikeCode(sample string) bool {
	if sample == "" {
		return false
	}
	lower := strings.ToLower(sample)
	for _, s := range importSignals {
		if strings.Contains(lower, s) {
			return true
		}
	}

	var braces, total int
	for _, r := range sample {
		total++
		if r == '{' || r == '}' || r == ';' {
			braces++
		}
	}
	return total > 0 && float64(braces)/float64(total) > 0.02
}

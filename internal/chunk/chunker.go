package chunk

import (
	"path/filepath"
	"strings"
)

// Options bundles the text and AST strategy configuration for one call.
type Options struct {
	Text TextOptions
	AST  ASTOptions
}

// DefaultOptions returns the §4.3 defaults for both strategies.
func DefaultOptions() Options {
	return Options{Text: DefaultTextOptions(), AST: DefaultASTOptions()}
}

var astExtensions = map[string]bool{
	".dart": true,
	".ts":   true,
	".tsx":  true,
	".js":   true,
	".jsx":  true,
}

// Chunk selects the text or AST strategy by file extension (§4.3) and
// produces the chunk sequence for path/content.
func Chunk(path string, content []byte, opts Options) []Result {
	ext := strings.ToLower(filepath.Ext(path))
	if astExtensions[ext] {
		return ChunkSource(path, content, opts.AST, opts.Text)
	}
	return ChunkText(string(content), opts.Text)
}

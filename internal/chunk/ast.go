package chunk

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// ASTOptions configures the AST-aware chunking strategy.
type ASTOptions struct {
	MaxChunkLines   int  // classes larger than this are split per-method
	PreserveImports bool // prepend the file's import list to each chunk
}

// DefaultASTOptions mirrors the teacher's defaults.
func DefaultASTOptions() ASTOptions {
	return ASTOptions{MaxChunkLines: 200, PreserveImports: true}
}

var langByExt = map[string]*sitter.Language{
	".go":  golang.GetLanguage(),
	".js":  javascript.GetLanguage(),
	".jsx": javascript.GetLanguage(),
	".ts":  typescript.GetLanguage(),
	".tsx": tsx.GetLanguage(),
}

// functionKinds and classKinds map grammar node type names to the
// structural role this chunker cares about, per supported language. ".dart"
// has no grammar in the retrieval pack and is handled separately by
// chunkDartHeuristic.
var functionKinds = map[string]bool{
	"function_declaration": true,
	"method_declaration":   true,
	"method_definition":    true,
	"function":             true,
	"arrow_function":       true,
}

var classKinds = map[string]bool{
	"class_declaration":    true,
	"type_declaration":     true, // Go: `type X struct { ... }`
	"interface_declaration": true,
}

var importKinds = map[string]bool{
	"import_declaration": true, // Go
	"import_statement":   true, // JS/TS
}

// SupportsAST reports whether ext has a tree-sitter grammar wired in.
func SupportsAST(ext string) bool {
	_, ok := langByExt[strings.ToLower(ext)]
	return ok
}

// ChunkSource runs the AST strategy for the given extension, falling back
// to the text strategy (and logging a non-fatal warning) on parse
// failure, excessive element size, or unrecognised structure, per §4.3.
func ChunkSource(path string, content []byte, opts ASTOptions, textOpts TextOptions) []Result {
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".dart" {
		if results, ok := chunkDartHeuristic(content, opts); ok {
			return results
		}
		slog.Warn("dart heuristic chunking failed, falling back to text", "path", path)
		return ChunkText(string(content), textOpts)
	}

	lang, ok := langByExt[ext]
	if !ok {
		return ChunkText(string(content), textOpts)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil || tree.RootNode() == nil {
		slog.Warn("AST parse failed, falling back to text chunking", "path", path, "error", err)
		return ChunkText(string(content), textOpts)
	}

	root := tree.RootNode()
	imports := extractImports(root, content)

	var elements []*sitter.Node
	var walk func(*sitter.Node, bool)
	walk = func(n *sitter.Node, topLevel bool) {
		kind := n.Type()
		if functionKinds[kind] || classKinds[kind] {
			elements = append(elements, n)
			return
		}
		for i := range int(n.ChildCount()) {
			child := n.Child(i)
			if child != nil {
				walk(child, false)
			}
		}
	}
	walk(root, true)

	if len(elements) == 0 {
		slog.Warn("no recognised top-level elements, falling back to text chunking", "path", path)
		return ChunkText(string(content), textOpts)
	}

	var results []Result
	index := 0
	text := string(content)
	importHeader := ""
	if opts.PreserveImports && len(imports) > 0 {
		importHeader = strings.Join(imports, "\n") + "\n\n"
	}

	for _, el := range elements {
		kind := el.Type()
		start := int(findPrecedingComments(el, content))
		end := int(el.EndByte())
		if start < 0 || end <= start || end > len(text) {
			continue
		}

		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}

		lineCount := strings.Count(body, "\n") + 1
		meta := buildElementMetadata(el, kind, content)
		meta.Imports = imports

		if classKinds[kind] && lineCount > opts.MaxChunkLines {
			methods := extractMethods(el)
			if len(methods) > 0 {
				for _, m := range methods {
					mStart := int(findPrecedingComments(m, content))
					mEnd := int(m.EndByte())
					if mStart < 0 || mEnd <= mStart || mEnd > len(text) {
						continue
					}
					mBody := strings.TrimSpace(text[mStart:mEnd])
					if mBody == "" {
						continue
					}
					mMeta := buildElementMetadata(m, m.Type(), content)
					mMeta.ClassName = meta.ClassName
					mMeta.Type = domain.ChunkMethod
					mMeta.Imports = imports
					results = append(results, Result{
						Index: index,
						Text:  importHeader + mBody,
						Meta:  mMeta,
					})
					index++
				}
				continue
			}
		}

		results = append(results, Result{
			Index: index,
			Text:  importHeader + body,
			Meta:  meta,
		})
		index++
	}

	if len(results) == 0 {
		return ChunkText(string(content), textOpts)
	}

	return results
}

func extractMethods(classNode *sitter.Node) []*sitter.Node {
	var methods []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if functionKinds[n.Type()] {
			methods = append(methods, n)
			return
		}
		for i := range int(n.ChildCount()) {
			if c := n.Child(i); c != nil {
				walk(c)
			}
		}
	}
	for i := range int(classNode.ChildCount()) {
		if c := classNode.Child(i); c != nil {
			walk(c)
		}
	}
	return methods
}

func extractImports(root *sitter.Node, content []byte) []string {
	var imports []string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if importKinds[n.Type()] {
			imports = append(imports, strings.TrimSpace(nodeText(content, n)))
			return
		}
		for i := range int(n.ChildCount()) {
			if c := n.Child(i); c != nil {
				walk(c)
			}
		}
	}
	walk(root)
	return imports
}

// findPrecedingComments walks backward through AST siblings to find doc
// comments immediately preceding a declaration, stopping if more than one
// blank line separates them. Adapted from the teacher's treesitter chunker.
func findPrecedingComments(n *sitter.Node, content []byte) uint32 {
	start := n.StartByte()
	parent := n.Parent()
	if parent == nil {
		return start
	}

	idx := -1
	for i := range int(parent.ChildCount()) {
		if parent.Child(i) == n {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return start
	}

	var comments []*sitter.Node
	for i := idx - 1; i >= 0; i-- {
		sibling := parent.Child(i)
		if sibling == nil {
			break
		}
		if sibling.Type() == "comment" {
			comments = append([]*sitter.Node{sibling}, comments...)
			continue
		}
		s, e := int(sibling.StartByte()), int(sibling.EndByte())
		if s >= 0 && e <= len(content) && e > s && strings.TrimSpace(string(content[s:e])) != "" {
			break
		}
	}

	if len(comments) == 0 {
		return start
	}

	last := comments[len(comments)-1]
	gap := string(content[last.EndByte():n.StartByte()])
	if strings.Count(gap, "\n") > 2 {
		return start
	}
	return comments[0].StartByte()
}

func buildElementMetadata(n *sitter.Node, kind string, content []byte) domain.ChunkMetadata {
	meta := domain.ChunkMetadata{
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}

	name := strings.TrimSpace(nodeText(content, n.ChildByFieldName("name")))

	switch {
	case functionKinds[kind]:
		meta.Type = domain.ChunkFunction
		meta.FunctionName = name
	case classKinds[kind]:
		meta.Type = domain.ChunkClass
		meta.ClassName = name
	default:
		meta.Type = domain.ChunkText
	}

	return meta
}

func nodeText(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if end <= start || int(end) > len(content) {
		return ""
	}
	return string(content[start:end])
}

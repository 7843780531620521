package chunk

import (
	"regexp"
	"strings"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// No tree-sitter grammar for Dart exists anywhere in the retrieval pack,
// so Dart AST chunking falls back to a brace-matching/regex heuristic,
// grounded on the same style of regex-boundary code chunking used by
// the pack's other hand-rolled code chunkers. Brace matching must
// correctly skip over strings, character literals, and comments, which
// findMatchingBrace below implements directly.

var (
	dartImportRe = regexp.MustCompile(`^\s*import\s+'([^']+)'`)
	dartClassRe  = regexp.MustCompile(`^\s*(?:abstract\s+)?class\s+(\w+)`)
	dartFuncRe   = regexp.MustCompile(`^\s*(?:static\s+)?(?:Future<\w*>\s+|void\s+|[\w<>,\s]+\s+)?(\w+)\s*\([^)]*\)\s*(?:async\s*)?\{`)
)

func chunkDartHeuristic(content []byte, opts ASTOptions) ([]Result, bool) {
	lines := strings.Split(string(content), "\n")

	var imports []string
	for _, l := range lines {
		if m := dartImportRe.FindStringSubmatch(l); m != nil {
			imports = append(imports, strings.TrimSpace(l))
		}
	}
	importHeader := ""
	if opts.PreserveImports && len(imports) > 0 {
		importHeader = strings.Join(imports, "\n") + "\n\n"
	}

	var results []Result
	index := 0

	i := 0
	for i < len(lines) {
		line := lines[i]

		if m := dartClassRe.FindStringSubmatch(line); m != nil {
			endLine := findMatchingBrace(lines, i)
			if endLine > i {
				body := strings.Join(lines[i:endLine+1], "\n")
				results = append(results, Result{
					Index: index,
					Text:  importHeader + body,
					Meta: domain.ChunkMetadata{
						Type:      domain.ChunkClass,
						ClassName: m[1],
						StartLine: i + 1,
						EndLine:   endLine + 1,
						Language:  "dart",
						Imports:   imports,
					},
				})
				index++
				i = endLine + 1
				continue
			}
		}

		if m := dartFuncRe.FindStringSubmatch(line); m != nil {
			endLine := findMatchingBrace(lines, i)
			if endLine > i {
				body := strings.Join(lines[i:endLine+1], "\n")
				results = append(results, Result{
					Index: index,
					Text:  importHeader + body,
					Meta: domain.ChunkMetadata{
						Type:         domain.ChunkFunction,
						FunctionName: m[1],
						StartLine:    i + 1,
						EndLine:      endLine + 1,
						Language:     "dart",
						Imports:      imports,
					},
				})
				index++
				i = endLine + 1
				continue
			}
		}

		i++
	}

	if len(results) == 0 {
		return nil, false
	}
	return results, true
}

// findMatchingBrace scans forward from the line containing the opening
// brace and returns the line index of the matching closing brace,
// skipping over string/char literals and line/block comments so that a
// brace inside a string doesn't desynchronise the count.
func findMatchingBrace(lines []string, startLine int) int {
	depth := 0
	seenOpen := false
	inBlockComment := false

	for li := startLine; li < len(lines); li++ {
		line := lines[li]
		inString := byte(0)
		for i := 0; i < len(line); i++ {
			c := line[i]

			if inBlockComment {
				if c == '*' && i+1 < len(line) && line[i+1] == '/' {
					inBlockComment = false
					i++
				}
				continue
			}
			if inString != 0 {
				if c == '\\' {
					i++
					continue
				}
				if c == inString {
					inString = 0
				}
				continue
			}
			switch c {
			case '/':
				if i+1 < len(line) && line[i+1] == '/' {
					i = len(line)
					continue
				}
				if i+1 < len(line) && line[i+1] == '*' {
					inBlockComment = true
					i++
					continue
				}
			case '\'', '"':
				inString = c
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
				if seenOpen && depth == 0 {
					return li
				}
			}
		}
	}
	return -1
}

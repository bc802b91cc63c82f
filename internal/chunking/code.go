package chunking

import (
	"regexp"
	"strings"
)

// blockStartPatterns mark the start of a function/type/class block across
// the handful of languages codeExtensions recognizes. A single ingested
// repository mixes languages far more often than any one chunk needs
// per-language precision, so one pattern set covers Go/Python/JS/TS rather
// than dispatching by file extension.
var blockStartPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^func\s+\(?.*?\)?\s*[A-Za-z_][A-Za-z0-9_]*\s*\(.*\)`),
	regexp.MustCompile(`(?m)^type\s+[A-Za-z_][A-Za-z0-9_]*\s+struct\s*{`),
	regexp.MustCompile(`(?m)^def\s+[A-Za-z_][A-Za-z0-9_]*\s*\(.*\)\s*:`),
	regexp.MustCompile(`(?m)^class\s+[A-Za-z_][A-Za-z0-9_]*\s*(\(.*\))?\s*:`),
	regexp.MustCompile(`(?m)^(function\s+[A-Za-z_][A-Za-z0-9_]*\s*\(|[A-Za-z_][A-Za-z0-9_]*\s*=\s*\(.*\)\s*=>)`),
}

// splitCodeBlocks splits source text at every line matching a
// blockStartPatterns entry, each block running up to the line before the
// next match.
func splitCodeBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	isStart := func(line string) bool {
		for _, re := range blockStartPatterns {
			if re.MatchString(line) {
				return true
			}
		}
		return false
	}

	lines := strings.Split(text, "\n")
	var blocks []string
	var cur []string
	for i, ln := range lines {
		if isStart(ln) && len(cur) > 0 {
			if b := strings.TrimSpace(strings.Join(cur, "\n")); b != "" {
				blocks = append(blocks, b)
			}
			cur = cur[:0]
		}
		cur = append(cur, ln)
		if i == len(lines)-1 {
			if b := strings.TrimSpace(strings.Join(cur, "\n")); b != "" {
				blocks = append(blocks, b)
			}
		}
	}
	return blocks
}

// chunkCode implements spec §4.2's Code strategy: above
// max_file_size_for_ast, fall back to text chunking; otherwise split on
// function/class/type block boundaries, capped at max_elements_to_process,
// further splitting any block over max_element_size via the same
// paragraph/sentence window the Default strategy uses, and stamping
// element type/name/line-range metadata.
func chunkCode(content string, opts Options) []piece {
	if len(content) > opts.MaxFileSizeForAST {
		return chunkText(content, opts)
	}

	blocks := splitCodeBlocks(content)
	if len(blocks) == 0 {
		return chunkText(content, opts)
	}
	if len(blocks) > opts.MaxElementsToProcess {
		blocks = blocks[:opts.MaxElementsToProcess]
	}

	norm := strings.ReplaceAll(content, "\r\n", "\n")
	searchFrom := 0
	out := make([]piece, 0, len(blocks))
	for _, block := range blocks {
		// Blocks are trimmed, so locate each one in the source to number
		// its lines instead of summing block lengths.
		startLine := strings.Count(norm[:searchFrom], "\n") + 1
		if idx := strings.Index(norm[searchFrom:], block); idx >= 0 {
			startLine = strings.Count(norm[:searchFrom+idx], "\n") + 1
			searchFrom += idx + len(block)
		}
		lines := strings.Count(block, "\n") + 1
		elemType, elemName := classifyCodeBlock(block)

		meta := map[string]any{
			"element_type": elemType,
			"element_name": elemName,
			"start_line":   startLine,
			"end_line":     startLine + lines - 1,
			"skip_nlp":     len(block) > opts.MaxChunkSizeForNLP,
		}
		if len(block) > opts.MaxElementSize {
			for _, sub := range splitHybrid(block, opts.MaxElementSize, opts.ChunkOverlap) {
				out = append(out, piece{content: sub, metadata: cloneMeta(meta)})
			}
			continue
		}
		out = append(out, piece{content: block, metadata: meta})
	}
	return out
}

var (
	funcNamePattern   = regexp.MustCompile(`func\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)
	typeNamePattern   = regexp.MustCompile(`type\s+([A-Za-z_][A-Za-z0-9_]*)`)
	defNamePattern    = regexp.MustCompile(`def\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classNamePattern  = regexp.MustCompile(`class\s+([A-Za-z_][A-Za-z0-9_]*)`)
	jsFuncNamePattern = regexp.MustCompile(`(?:function\s+([A-Za-z_][A-Za-z0-9_]*)|([A-Za-z_][A-Za-z0-9_]*)\s*=\s*\(.*\)\s*=>)`)
)

// classifyCodeBlock returns a coarse element type ("function", "type",
// "class", "block") and the extracted identifier, if any.
func classifyCodeBlock(block string) (elemType, elemName string) {
	if m := typeNamePattern.FindStringSubmatch(block); m != nil {
		return "type", m[1]
	}
	if m := classNamePattern.FindStringSubmatch(block); m != nil {
		return "class", m[1]
	}
	if m := funcNamePattern.FindStringSubmatch(block); m != nil {
		return "function", m[1]
	}
	if m := defNamePattern.FindStringSubmatch(block); m != nil {
		return "function", m[1]
	}
	if m := jsFuncNamePattern.FindStringSubmatch(block); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		return "function", name
	}
	return "block", ""
}

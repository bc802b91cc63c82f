package chunking

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// chunkMarkdown splits by heading-delimited sections, attaching the
// heading breadcrumb trail to each chunk's metadata, then further splits
// any section exceeding chunk_size via the Default text strategy.
// Grounded on ternarybob-quaero's goldmark Parse-then-ast.Walk usage
// (internal/services/pdf/service.go), generalized from PDF rendering onto
// extracting heading boundaries.
func chunkMarkdown(content string, opts Options) []piece {
	src := []byte(content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	type section struct {
		breadcrumb []string
		start, end int
	}
	var sections []section
	var trail []string

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if len(sections) > 0 {
			sections[len(sections)-1].end = h.Lines().At(0).Start
		} else if h.Lines().Len() > 0 && h.Lines().At(0).Start > 0 {
			sections = append(sections, section{breadcrumb: append([]string{}, trail...), start: 0, end: h.Lines().At(0).Start})
		}
		level := h.Level
		if level > len(trail) {
			for len(trail) < level-1 {
				trail = append(trail, "")
			}
		} else {
			trail = trail[:level-1]
		}
		title := string(h.Text(src))
		trail = append(trail[:level-1], title)

		start := 0
		if h.Lines().Len() > 0 {
			start = h.Lines().At(0).Start
		}
		sections = append(sections, section{breadcrumb: append([]string{}, trail...), start: start, end: len(src)})
		if len(sections) > opts.MaxSectionsToProcess {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if len(sections) == 0 {
		return chunkText(content, opts)
	}
	// Fix up end boundaries now that all headings are known.
	for i := 0; i < len(sections)-1; i++ {
		sections[i].end = sections[i+1].start
	}

	var out []piece
	for _, sec := range sections {
		if sec.start >= sec.end || sec.start < 0 || sec.end > len(src) {
			continue
		}
		body := string(src[sec.start:sec.end])
		if len(bytes.TrimSpace([]byte(body))) == 0 {
			continue
		}
		meta := map[string]any{
			"breadcrumb": append([]string{}, sec.breadcrumb...),
			"depth":      len(sec.breadcrumb),
		}
		if len(sec.breadcrumb) > 0 {
			meta["section"] = sec.breadcrumb[len(sec.breadcrumb)-1]
		}
		if len(body) > opts.ChunkSize {
			for _, sub := range chunkText(body, opts) {
				subMeta := cloneMeta(meta)
				out = append(out, piece{content: sub.content, metadata: subMeta})
			}
			continue
		}
		meta["skip_nlp"] = len(body) > opts.MaxChunkSizeForNLP
		out = append(out, piece{content: body, metadata: meta})
	}
	if len(out) == 0 {
		return chunkText(content, opts)
	}
	return out
}

func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

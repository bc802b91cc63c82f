package chunking

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// chunkHTML implements spec §4.2's HTML strategy: above
// simple_parsing_threshold it falls back to tag-stripping + Default text
// chunking; otherwise it walks the DOM by semantic section boundaries
// (headings, <article>, <section>), carrying a heading breadcrumb and the
// has_code/tables/images/links flags on each chunk. Grounded on
// ternarybob-quaero's goquery.NewDocumentFromReader + Selection.Each DOM
// walk (internal/services/crawler/content_processor.go), generalized from
// markdown conversion onto section-boundary chunking.
func chunkHTML(content string, opts Options) []piece {
	if len(content) > opts.SimpleParsingThreshold {
		return chunkText(stripTags(content), opts)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return chunkText(stripTags(content), opts)
	}

	sectionSelector := "h1, h2, h3, h4, h5, h6, article, section"
	selections := doc.Find(sectionSelector)
	if selections.Length() == 0 {
		return chunkTextFromHTML(doc.Selection, opts)
	}

	var out []piece
	var trail []string
	processed := 0
	selections.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if processed >= opts.MaxSectionsToProcess {
			return false
		}
		processed++

		tag := goquery.NodeName(sel)
		if len(tag) == 2 && tag[0] == 'h' {
			level := int(tag[1] - '0')
			if level >= 1 && level <= 6 {
				title := strings.TrimSpace(sel.Text())
				if level > len(trail) {
					for len(trail) < level-1 {
						trail = append(trail, "")
					}
					trail = append(trail, title)
				} else {
					trail = append(trail[:level-1], title)
				}
			}
			return true
		}

		body := strings.TrimSpace(sel.Text())
		if body == "" {
			return true
		}
		html, _ := sel.Html()
		meta := map[string]any{
			"breadcrumb":    append([]string{}, trail...),
			"depth":         len(trail),
			"has_code":      sel.Find("pre, code").Length() > 0,
			"has_tables":    sel.Find("table").Length() > 0,
			"has_images":    sel.Find("img").Length() > 0,
			"has_links":     sel.Find("a[href]").Length() > 0,
			"skip_nlp":      len(body) > opts.MaxChunkSizeForNLP,
			"source_format": "html",
		}
		_ = html
		if len(body) > opts.ChunkSize {
			for _, sub := range chunkText(body, opts) {
				out = append(out, piece{content: sub.content, metadata: cloneMeta(meta)})
			}
		} else {
			out = append(out, piece{content: body, metadata: meta})
		}
		return true
	})

	if len(out) == 0 {
		return chunkTextFromHTML(doc.Selection, opts)
	}
	return out
}

func chunkTextFromHTML(sel *goquery.Selection, opts Options) []piece {
	text := strings.TrimSpace(sel.Text())
	pieces := chunkText(text, opts)
	for i := range pieces {
		if pieces[i].metadata == nil {
			pieces[i].metadata = map[string]any{}
		}
		pieces[i].metadata["has_code"] = sel.Find("pre, code").Length() > 0
		pieces[i].metadata["has_tables"] = sel.Find("table").Length() > 0
		pieces[i].metadata["has_images"] = sel.Find("img").Length() > 0
		pieces[i].metadata["has_links"] = sel.Find("a[href]").Length() > 0
	}
	return pieces
}

// stripTags is the cheap fallback path used when a document exceeds
// simple_parsing_threshold (spec §4.2): strip angle-bracket tags rather
// than pay for a full DOM parse.
func stripTags(html string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

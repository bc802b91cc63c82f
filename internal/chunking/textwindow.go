package chunking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentenceRe and paragraphRe are the naive boundary finders the Default
// text strategy, and the Code strategy's oversized-block regrouping, pack
// units from.
var (
	sentenceRe  = regexp.MustCompile(`(?s)([^.!?]+[.!?]+|[^.!?]+$)`)
	paragraphRe = regexp.MustCompile(`\n\s*\n+`)
)

func splitSentences(text string) []string {
	parts := sentenceRe.FindAllString(strings.TrimSpace(text), -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	raw := paragraphRe.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// windowUnits greedily packs units (paragraphs or sentences) into windows of
// at most size runes, carrying up to overlap runes from the tail of one
// window into the start of the next.
func windowUnits(units []string, size, overlap int) []string {
	if len(units) == 0 {
		return nil
	}
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	var chunks []string
	var cur strings.Builder
	for i, u := range units {
		if u == "" {
			continue
		}
		candidate := u
		if cur.Len() > 0 {
			candidate = cur.String() + "\n" + u
		}
		if cur.Len() == 0 || utf8.RuneCountInString(candidate) <= size {
			if cur.Len() > 0 {
				cur.WriteString("\n")
			}
			cur.WriteString(u)
			if i == len(units)-1 {
				if s := cur.String(); s != "" {
					chunks = append(chunks, s)
				}
			}
			continue
		}
		s := cur.String()
		chunks = append(chunks, s)
		tail := overlapTail(s, overlap)
		cur.Reset()
		if tail != "" {
			cur.WriteString(tail)
			cur.WriteString("\n")
		}
		cur.WriteString(u)
		if i == len(units)-1 {
			if s := cur.String(); s != "" {
				chunks = append(chunks, s)
			}
		}
	}
	return chunks
}

// overlapTail returns the last want runes of s, rune-boundary safe.
func overlapTail(s string, want int) string {
	if want <= 0 || s == "" {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if want >= n {
		return s
	}
	idxs := make([]int, 0, n+1)
	idxs = append(idxs, 0)
	for i := 0; i < len(s); {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
		idxs = append(idxs, i)
	}
	return s[idxs[n-want]:]
}

// splitHybrid groups text by paragraph, falling further down to sentences
// for any paragraph more than twice the target size, then packs the
// resulting units into size/overlap windows. This backs both the Default
// text strategy and the Code strategy's regrouping of oversized
// function/class blocks.
func splitHybrid(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	paras := splitParagraphs(text)
	var units []string
	for _, p := range paras {
		if size > 0 && utf8.RuneCountInString(p) > size*2 {
			units = append(units, splitSentences(p)...)
		} else {
			units = append(units, p)
		}
	}
	return windowUnits(units, size, overlap)
}

// splitFixed cuts text into fixed-length, rune-boundary-safe windows with
// the given char overlap. It backs fixedWindow, the Default text strategy's
// last-resort fallback when paragraph/sentence packing yields no window.
func splitFixed(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap
	if step <= 0 {
		step = 1
	}

	idxs := make([]int, 0, utf8.RuneCountInString(text)+1)
	idxs = append(idxs, 0)
	for i := 0; i < len(text); {
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
		idxs = append(idxs, i)
	}

	var chunks []string
	for start := 0; start < len(idxs)-1; start += step {
		end := start + size
		if end >= len(idxs)-1 {
			end = len(idxs) - 1
		}
		if end <= start {
			break
		}
		if chunk := text[idxs[start]:idxs[end]]; chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(idxs)-1 {
			break
		}
	}
	return chunks
}

// Package nlpanalyzer is the single seam a real NLP backend (e.g. spaCy,
// called out-of-process) would fill. Entity/topic/key-phrase/POS extraction
// is declared out of scope by the source system, so this package exposes
// the interface the rest of the search and chunking pipeline depends on,
// backed by a deterministic heuristic implementation: regex-based entity
// and POS-tag detection, frequency-ranked keyword/key-phrase extraction,
// and a small stopword-driven topic extractor. This keeps query expansion,
// faceting, topic chaining, and cross-document intelligence fully
// exercised and testable without a model dependency.
package nlpanalyzer

import (
	"regexp"
	"sort"
	"strings"
)

// Analysis is the structured output of AnalyzeText.
type Analysis struct {
	Entities   []Entity
	Topics     []string
	KeyPhrases []string
	POSTags    []string
	Keywords   []string
}

// Entity is a named span with a coarse type label.
type Entity struct {
	Text string
	Type string // URL, DATE, ORG, TECH
}

// Analyzer is the seam a real NLP backend implements.
type Analyzer interface {
	AnalyzeText(text string) Analysis
}

// HeuristicAnalyzer is the default, model-free Analyzer.
type HeuristicAnalyzer struct {
	// MaxKeywords bounds the number of keywords/key phrases returned.
	MaxKeywords int
	// MaxTopics bounds the number of topics returned.
	MaxTopics int
}

// New returns a HeuristicAnalyzer with spec-reasonable defaults.
func New() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{MaxKeywords: 10, MaxTopics: 5}
}

var (
	urlPattern    = regexp.MustCompile(`https?://[^\s)]+`)
	datePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	numberPattern = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	// properNounRun matches runs of 1-4 capitalized words, a rough proxy for
	// PERSON/ORG/PRODUCT entities absent a trained NER model.
	properNounRun = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9]+(?:\s+[A-Z][a-zA-Z0-9]+){0,3})\b`)
	// techTerm matches common technical-domain tokens (acronyms, CamelCase,
	// dotted identifiers) that a technical_lookup intent should surface.
	techTerm  = regexp.MustCompile(`\b([A-Z]{2,6}|[a-zA-Z]+\.[a-zA-Z]+|[a-z]+[A-Z][a-zA-Z]*)\b`)
	wordSplit = regexp.MustCompile(`[^a-zA-Z0-9_]+`)
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"was": true, "were": true, "with": true, "by": true, "at": true, "as": true,
	"it": true, "this": true, "that": true, "be": true, "from": true, "has": true,
	"have": true, "had": true, "can": true, "will": true, "would": true, "should": true,
	"but": true, "not": true, "you": true, "your": true, "we": true, "our": true,
	"they": true, "their": true, "what": true, "which": true, "who": true, "how": true,
	"why": true, "when": true, "where": true, "do": true, "does": true, "did": true,
}

// AnalyzeText runs all extractors over text.
func (a *HeuristicAnalyzer) AnalyzeText(text string) Analysis {
	maxKw := a.MaxKeywords
	if maxKw <= 0 {
		maxKw = 10
	}
	maxTopics := a.MaxTopics
	if maxTopics <= 0 {
		maxTopics = 5
	}
	return Analysis{
		Entities:   extractEntities(text),
		Topics:     extractTopics(text, maxTopics),
		KeyPhrases: extractKeyPhrases(text, maxKw),
		POSTags:    approximatePOSTags(text),
		Keywords:   extractKeywords(text, maxKw),
	}
}

func extractEntities(text string) []Entity {
	var out []Entity
	seen := map[string]bool{}
	add := func(txt, typ string) {
		key := typ + ":" + txt
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Entity{Text: txt, Type: typ})
	}
	for _, m := range urlPattern.FindAllString(text, -1) {
		add(m, "URL")
	}
	for _, m := range datePattern.FindAllString(text, -1) {
		add(m, "DATE")
	}
	for _, m := range properNounRun.FindAllString(text, -1) {
		add(m, "ORG")
	}
	for _, m := range techTerm.FindAllString(text, -1) {
		if len(m) >= 2 {
			add(m, "TECH")
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// extractTopics ranks non-stopword tokens by frequency, folding case, as a
// stand-in for a trained topic model.
func extractTopics(text string, max int) []string {
	freq := tokenFrequency(text)
	type kv struct {
		k string
		v int
	}
	kvs := make([]kv, 0, len(freq))
	for k, v := range freq {
		kvs = append(kvs, kv{k, v})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].v != kvs[j].v {
			return kvs[i].v > kvs[j].v
		}
		return kvs[i].k < kvs[j].k
	})
	out := make([]string, 0, max)
	for _, e := range kvs {
		if len(out) >= max {
			break
		}
		out = append(out, e.k)
	}
	return out
}

func extractKeywords(text string, max int) []string {
	return extractTopics(text, max)
}

// extractKeyPhrases groups adjacent non-stopword tokens into 2-3 word
// phrases, ranked by frequency.
func extractKeyPhrases(text string, max int) []string {
	tokens := tokenize(text)
	freq := map[string]int{}
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			window := tokens[i : i+n]
			if stopwords[window[0]] || stopwords[window[len(window)-1]] {
				continue
			}
			phrase := strings.Join(window, " ")
			freq[phrase]++
		}
	}
	type kv struct {
		k string
		v int
	}
	kvs := make([]kv, 0, len(freq))
	for k, v := range freq {
		if v < 2 {
			continue
		}
		kvs = append(kvs, kv{k, v})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].v != kvs[j].v {
			return kvs[i].v > kvs[j].v
		}
		return kvs[i].k < kvs[j].k
	})
	out := make([]string, 0, max)
	for _, e := range kvs {
		if len(out) >= max {
			break
		}
		out = append(out, e.k)
	}
	return out
}

// approximatePOSTags buckets tokens into a minimal tag set used only as a
// coarse signal for intent classification's POS-sequence matches.
func approximatePOSTags(text string) []string {
	tokens := tokenize(text)
	tags := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch {
		case numberPattern.MatchString(t):
			tags = append(tags, "NUM")
		case len(t) > 0 && t[0] >= 'A' && t[0] <= 'Z':
			tags = append(tags, "PROPN")
		case stopwords[t]:
			tags = append(tags, "FUNC")
		default:
			tags = append(tags, "NOUN")
		}
	}
	return tags
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := wordSplit.Split(lower, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func tokenFrequency(text string) map[string]int {
	freq := map[string]int{}
	for _, t := range tokenize(text) {
		if stopwords[t] || len(t) < 3 {
			continue
		}
		freq[t]++
	}
	return freq
}

// Package search implements the hybrid search engine (spec §4.7): query
// expansion, parallel dense+sparse retrieval, and a weighted combiner.
// Grounded on internal/rag/retrieve/fusion.go's FuseRRF (candidate-union by
// ID, deterministic desc-score sort with ID tie-break), generalized from
// reciprocal-rank fusion to the spec's weighted-sum combiner since the spec
// names exact score-combination weights rather than an RRF constant.
package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"qdrantloader/internal/model"
	"qdrantloader/internal/nlpanalyzer"
	"qdrantloader/internal/vectorstore"
)

// Embedder embeds a single query string.
type Embedder interface {
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
}

// VectorSearcher is the subset of internal/vectorstore.Store the engine needs.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error)
	Scroll(ctx context.Context, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error)
}

// Weights is the spec §4.7 combiner's weight triple plus its score floor.
type Weights struct {
	VectorWeight   float64
	KeywordWeight  float64
	MetadataWeight float64
	MinScore       float64
}

// DefaultWeights matches spec §4.7's named defaults.
func DefaultWeights() Weights {
	return Weights{VectorWeight: 0.6, KeywordWeight: 0.3, MetadataWeight: 0.1, MinScore: 0.3}
}

// domainExpansions is the dictionary fallback spec §4.7 names for when NLP
// expansion fails ("api" -> {"interface", "endpoint", ...}).
var domainExpansions = map[string][]string{
	"api":    {"interface", "endpoint", "service", "restful"},
	"db":     {"database", "storage", "persistence"},
	"auth":   {"authentication", "authorization", "login", "credentials"},
	"config": {"configuration", "settings", "options"},
	"ui":     {"interface", "frontend", "screen"},
	"infra":  {"infrastructure", "deployment", "provisioning"},
}

// SessionContext carries the optional session-scoping inputs spec §4.9 names.
type SessionContext struct {
	Domain   string
	UserRole string
	Urgency  string
}

// Query is one hybrid-search invocation's inputs (spec §4.7's public operation).
// Limit is a pointer so an explicit 0 (spec §8: "limit = 0 on search returns
// an empty list, not an error") is distinguishable from an unset limit,
// which defaults to 5.
type Query struct {
	Text              string
	Limit             *int
	SourceTypes       []string
	ProjectIDs        []string
	SessionContext    *SessionContext
	BehavioralHistory []string
	// Aggressive expands the query with more keywords/concepts/entity forms
	// (spec §4.7 step 2's "aggressive mode").
	Aggressive bool
}

// Engine runs the hybrid search pipeline.
type Engine struct {
	embedder Embedder
	vectors  VectorSearcher
	analyzer nlpanalyzer.Analyzer
	weights  Weights
}

// New builds an Engine with the given component wiring and default weights.
func New(embedder Embedder, vectors VectorSearcher, analyzer nlpanalyzer.Analyzer) *Engine {
	return &Engine{embedder: embedder, vectors: vectors, analyzer: analyzer, weights: DefaultWeights()}
}

// WithWeights returns a copy of the Engine using w instead of the defaults —
// used by adaptive strategies (spec §4.9) to temporarily override weights
// for a single call without mutating shared state (spec §4.7 step 6: "restore
// any temporarily adapted weights after the call").
func (e *Engine) WithWeights(w Weights) *Engine {
	cp := *e
	cp.weights = w
	return &cp
}

// Search runs the full spec §4.7 pipeline: expand, dense search, sparse
// search, combine, sort, filter, truncate.
func (e *Engine) Search(ctx context.Context, q Query) ([]model.SearchResult, error) {
	if q.Limit != nil && *q.Limit == 0 {
		return []model.SearchResult{}, nil
	}
	limit := 5
	if q.Limit != nil {
		limit = *q.Limit
	}
	expanded := e.expandQuery(q.Text, q.Aggressive)
	queryAnalysis := e.analyzer.AnalyzeText(q.Text)

	overFetch := limit * 3

	vecs, err := e.embedder.EmbedBatch(ctx, []string{expanded})
	if err != nil {
		return nil, err
	}
	var queryVector []float32
	if len(vecs) > 0 {
		queryVector = vecs[0]
	}

	filter := projectFilter(q.ProjectIDs)

	var denseHits, sparseHits []vectorstore.Hit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		denseHits, err = e.vectors.Search(gctx, queryVector, overFetch, filter)
		return err
	})
	g.Go(func() (err error) {
		sparseHits, err = e.vectors.Scroll(gctx, overFetch, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := e.combine(denseHits, sparseHits, queryAnalysis)

	filtered := combined[:0]
	for _, c := range combined {
		if c.score < e.weights.MinScore {
			continue
		}
		if len(q.SourceTypes) > 0 && !containsStr(q.SourceTypes, c.result.SourceType) {
			continue
		}
		if len(q.ProjectIDs) > 1 && !containsStr(q.ProjectIDs, c.result.ProjectID) {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].score != filtered[j].score {
			return filtered[i].score > filtered[j].score
		}
		if filtered[i].denseScore != filtered[j].denseScore {
			return filtered[i].denseScore > filtered[j].denseScore
		}
		return filtered[i].result.DocumentID < filtered[j].result.DocumentID
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	out := make([]model.SearchResult, len(filtered))
	for i, c := range filtered {
		out[i] = c.result
	}
	return out, nil
}

type candidate struct {
	result     model.SearchResult
	denseScore float64
	sparseRaw  float64
	score      float64
}

// combine implements spec §4.7 step 5: weighted-sum of normalized dense
// score, normalized sparse score, and a metadata boost.
func (e *Engine) combine(dense, sparse []vectorstore.Hit, queryAnalysis nlpanalyzer.Analysis) []candidate {
	byID := map[string]*candidate{}
	order := []string{}
	get := func(id string) *candidate {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &candidate{}
		byID[id] = c
		order = append(order, id)
		return c
	}

	var maxDense float64
	for _, h := range dense {
		c := get(h.ID)
		c.denseScore = h.Score
		c.result = resultFromPayload(h.ID, h.Payload)
		if h.Score > maxDense {
			maxDense = h.Score
		}
	}

	queryTokens := tokenize(strings.ToLower(strings.Join(append([]string{}, queryAnalysis.Keywords...), " ")))
	var maxSparse float64
	for _, h := range sparse {
		c := get(h.ID)
		if c.result.DocumentID == "" {
			c.result = resultFromPayload(h.ID, h.Payload)
		}
		content, _ := h.Payload["content"].(string)
		c.sparseRaw = keywordScore(content, queryTokens)
		if c.sparseRaw > maxSparse {
			maxSparse = c.sparseRaw
		}
	}

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		c := *byID[id]
		normDense := normalize(c.denseScore, maxDense)
		normSparse := normalize(c.sparseRaw, maxSparse)
		boost := metadataBoost(c.result, queryAnalysis)
		c.score = e.weights.VectorWeight*normDense + e.weights.KeywordWeight*normSparse + e.weights.MetadataWeight*boost
		out = append(out, c)
	}
	return out
}

func normalize(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}

// metadataBoost rewards payloads whose entities/topics overlap the query's
// extracted ones (spec §4.7 step 5). Content-type flags (has_code,
// has_tables, has_images) do not contribute to the boost.
func metadataBoost(r model.SearchResult, qa nlpanalyzer.Analysis) float64 {
	var boost float64
	overlapCount := func(a []string, b []string) int {
		set := make(map[string]bool, len(b))
		for _, v := range b {
			set[strings.ToLower(v)] = true
		}
		n := 0
		for _, v := range a {
			if set[strings.ToLower(v)] {
				n++
			}
		}
		return n
	}
	if n := overlapCount(r.Entities, entityTexts(qa.Entities)); n > 0 {
		boost += 0.5 * math.Min(1, float64(n)/3)
	}
	if n := overlapCount(r.Topics, qa.Topics); n > 0 {
		boost += 0.5 * math.Min(1, float64(n)/3)
	}
	return math.Min(boost, 1.0)
}

func entityTexts(entities []nlpanalyzer.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Text
	}
	return out
}

func resultFromPayload(id string, payload map[string]any) model.SearchResult {
	str := func(k string) string {
		v, _ := payload[k].(string)
		return v
	}
	boolv := func(k string) bool {
		v, _ := payload[k].(bool)
		return v
	}
	r := model.SearchResult{
		ChunkID:      id,
		DocumentID:   str("document_id"),
		SourceType:   str("source_type"),
		SourceTitle:  str("source"),
		URL:          str("url"),
		ProjectID:    str("project_id"),
		Title:        str("title"),
		MimeType:     str("mime_type"),
		OriginalType: str("original_file_type"),
		HasCode:      boolv("has_code"),
		HasTables:    boolv("has_tables"),
		HasImages:    boolv("has_images"),
		HasLinks:     boolv("has_links"),
		IsAttachment: boolv("is_attachment"),
		IsConverted:  boolv("is_converted"),
		Metadata:     payload,
	}
	if bc, ok := payload["breadcrumb"].([]string); ok {
		r.Breadcrumb = bc
	}
	if topics, ok := payload["topics"].([]string); ok {
		r.Topics = topics
	}
	if entities, ok := payload["entities"].([]string); ok {
		r.Entities = entities
	}
	if kp, ok := payload["key_phrases"].([]string); ok {
		r.KeyPhrases = kp
	}
	return r
}

// expandQuery implements spec §4.7 step 2: add up to three semantic
// keywords and two concepts (five keywords, four concepts and three entity
// surface forms in aggressive mode), falling back to the domain-expansions
// dictionary only when the analyzer yields nothing to add.
func (e *Engine) expandQuery(query string, aggressive bool) string {
	maxKeywords, maxConcepts := 3, 2
	if aggressive {
		maxKeywords, maxConcepts = 5, 4
	}
	analysis := e.analyzer.AnalyzeText(query)

	var extra []string
	for i, kw := range analysis.Keywords {
		if i >= maxKeywords {
			break
		}
		extra = append(extra, kw)
	}
	for i, topic := range analysis.Topics {
		if i >= maxConcepts {
			break
		}
		extra = append(extra, topic)
	}
	if aggressive {
		for i, ent := range analysis.Entities {
			if i >= 3 {
				break
			}
			extra = append(extra, ent.Text)
		}
	}
	if len(extra) == 0 {
		for _, tok := range tokenize(strings.ToLower(query)) {
			if exp, ok := domainExpansions[tok]; ok {
				extra = append(extra, exp...)
			}
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(dedupe(extra), " ")
}

func keywordScore(content string, queryTokens []string) float64 {
	if content == "" || len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenize(strings.ToLower(content))
	freq := map[string]int{}
	for _, t := range contentTokens {
		freq[t]++
	}
	var score float64
	for _, qt := range queryTokens {
		score += float64(freq[qt])
	}
	return score
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func projectFilter(projectIDs []string) vectorstore.Filter {
	if len(projectIDs) == 0 {
		return vectorstore.Filter{}
	}
	// vectorstore.Filter is a conjunction of exact-match conditions; project
	// scoping (spec §4.7's "project_id IN [...]") with a single configured
	// project is the common case and is expressed directly. Filter has no
	// native IN-list condition, so multi-project queries retrieve unscoped
	// and Search drops results whose project_id is not in the list.
	if len(projectIDs) == 1 {
		return vectorstore.Filter{Must: map[string]string{"project_id": projectIDs[0]}}
	}
	return vectorstore.Filter{}
}

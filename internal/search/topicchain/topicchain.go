// Package topicchain builds topic relationship maps over a seed result set
// and drives multi-step "search chains" that explore related topics (spec
// §4.10). Grounded on original_source's topic-chaining module for the
// PMI-style co-occurrence formula and the chain-quality metrics; semantic
// similarity is a word-overlap heuristic (the same documented NLP-library
// exception as internal/nlpanalyzer), cached via hashicorp/golang-lru/v2
// (teacher dep) as the spec's "symmetric cache of topic-to-topic semantic
// similarities".
package topicchain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"qdrantloader/internal/model"
)

// semanticThreshold is spec §4.10's similarity floor for a semantic edge.
const semanticThreshold = 0.4

// cooccurrenceSignificance is spec §4.10's minimum co-occurrence count.
const cooccurrenceSignificance = 2

// Strategy selects generate_search_chain's exploration algorithm.
type Strategy string

const (
	BreadthFirst     Strategy = "breadth_first"
	DepthFirst       Strategy = "depth_first"
	RelevanceRanked  Strategy = "relevance_ranked"
	MixedExploration Strategy = "mixed_exploration"
)

// RelatedTopic is one (topic, score, relationship_type) tuple from
// FindRelatedTopics.
type RelatedTopic struct {
	Topic            string
	Score            float64
	RelationshipType string // semantic | cooccurrence
}

// Engine holds the process-wide topic-similarity cache.
type Engine struct {
	mu       sync.Mutex
	simCache *lru.Cache[string, float64]
}

// New builds an Engine with a bounded similarity cache.
func New(cacheSize int) *Engine {
	if cacheSize <= 0 {
		cacheSize = 2000
	}
	cache, _ := lru.New[string, float64](cacheSize)
	return &Engine{simCache: cache}
}

// topicMap is the relationship map built from one seed result set: document
// frequency per topic and pairwise co-occurrence counts.
type topicMap struct {
	docFreq      map[string]int
	cooccurrence map[[2]string]int
	totalDocs    int
}

func buildTopicMap(seed []model.SearchResult) topicMap {
	tm := topicMap{docFreq: map[string]int{}, cooccurrence: map[[2]string]int{}, totalDocs: len(seed)}
	for _, r := range seed {
		topics := dedupe(r.Topics)
		for _, t := range topics {
			tm.docFreq[t]++
		}
		for i := 0; i < len(topics); i++ {
			for j := i + 1; j < len(topics); j++ {
				tm.cooccurrence[pairKey(topics[i], topics[j])]++
			}
		}
	}
	return tm
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// FindRelatedTopics scores every topic observed in seed against the seed's
// dominant ("anchor") topic via semantic similarity and/or co-occurrence,
// returning up to max tuples sorted by score descending (spec §4.10).
func (e *Engine) FindRelatedTopics(seed []model.SearchResult, max int, semantic, cooccurrence bool) []RelatedTopic {
	if max <= 0 {
		max = 5
	}
	tm := buildTopicMap(seed)
	anchor := dominantTopic(tm.docFreq)
	if anchor == "" {
		return nil
	}

	var out []RelatedTopic
	for topic, freq := range tm.docFreq {
		if topic == anchor {
			continue
		}
		if semantic {
			sim := e.semanticSimilarity(anchor, topic)
			dfFactor := math.Min(1.2, 1+float64(freq)/float64(maxInt(1, tm.totalDocs)))
			score := sim * dfFactor
			if score >= semanticThreshold {
				out = append(out, RelatedTopic{Topic: topic, Score: clamp01(score), RelationshipType: "semantic"})
			}
		}
		if cooccurrence {
			count := tm.cooccurrence[pairKey(anchor, topic)]
			if count >= cooccurrenceSignificance {
				score := pmiScore(count, tm.docFreq[anchor], freq, tm.totalDocs)
				out = append(out, RelatedTopic{Topic: topic, Score: clamp01(score), RelationshipType: "cooccurrence"})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// pmiScore implements the PMI-style formula normalized into [0,1] spec
// §4.10 names: log(P(a,b)/(P(a)*P(b))) rescaled via a sigmoid.
func pmiScore(cooccurCount, freqA, freqB, totalDocs int) float64 {
	if totalDocs == 0 || freqA == 0 || freqB == 0 {
		return 0
	}
	n := float64(totalDocs)
	pAB := float64(cooccurCount) / n
	pA := float64(freqA) / n
	pB := float64(freqB) / n
	if pAB == 0 || pA == 0 || pB == 0 {
		return 0
	}
	pmi := math.Log(pAB / (pA * pB))
	return 1 / (1 + math.Exp(-pmi))
}

// semanticSimilarity returns a cached word-overlap similarity between two
// topic strings (stand-in for an NLP embedding comparison).
func (e *Engine) semanticSimilarity(a, b string) float64 {
	key := fmt.Sprintf("%s|%s", pairKey(a, b)[0], pairKey(a, b)[1])
	e.mu.Lock()
	if v, ok := e.simCache.Get(key); ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	score := jaccard(tokenSet(a), tokenSet(b))

	e.mu.Lock()
	e.simCache.Add(key, score)
	e.mu.Unlock()
	return score
}

func dominantTopic(freq map[string]int) string {
	var best string
	var bestCount int
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if freq[k] > bestCount {
			best, bestCount = k, freq[k]
		}
	}
	return best
}

// GenerateSearchChain builds a TopicSearchChain of up to maxLinks links
// exploring topics related to query's seed results, per strategy. Every
// strategy produces strictly increasing chain_position, decaying
// relevance_score, and parent_query pointing at the preceding link (or the
// original query at position 0) (spec §4.10).
func (e *Engine) GenerateSearchChain(query string, seed []model.SearchResult, strategy Strategy, maxLinks int) model.TopicSearchChain {
	if maxLinks <= 0 {
		maxLinks = 5
	}
	related := e.FindRelatedTopics(seed, maxLinks*2, true, true)
	ordered := orderByStrategy(related, strategy)

	chain := model.TopicSearchChain{OriginalQuery: query, Strategy: string(strategy)}
	parent := query
	decay := 1.0
	for i, rt := range ordered {
		if i >= maxLinks {
			break
		}
		decay *= 0.85
		relevance := clamp01(rt.Score * decay)
		if n := len(chain.Links); n > 0 && relevance >= chain.Links[n-1].RelevanceScore {
			relevance = chain.Links[n-1].RelevanceScore * 0.85
		}
		link := model.TopicChainLink{
			Query:           fmt.Sprintf("%s %s", query, rt.Topic),
			TopicFocus:      rt.Topic,
			RelatedTopics:   []string{rt.Topic},
			ChainPosition:   i + 1,
			RelevanceScore:  relevance,
			ExplorationType: explorationType(strategy, i),
			ParentQuery:     parent,
		}
		chain.Links = append(chain.Links, link)
		parent = link.Query
	}
	return chain
}

func orderByStrategy(related []RelatedTopic, strategy Strategy) []RelatedTopic {
	out := make([]RelatedTopic, len(related))
	copy(out, related)
	switch strategy {
	case RelevanceRanked:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	case DepthFirst:
		// already naturally depth-biased: strongest edge first, then its
		// neighbors in discovery order (the input order from FindRelatedTopics).
	case MixedExploration:
		sort.SliceStable(out, func(i, j int) bool {
			return (i%2 == 0 && out[i].Score > out[j].Score) || (i%2 == 1 && out[i].RelationshipType < out[j].RelationshipType)
		})
	case BreadthFirst:
		fallthrough
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].RelationshipType < out[j].RelationshipType })
	}
	return out
}

func explorationType(strategy Strategy, position int) string {
	switch strategy {
	case DepthFirst:
		return "deeper"
	case RelevanceRanked:
		return "related"
	case MixedExploration:
		if position%2 == 0 {
			return "related"
		}
		return "alternative"
	default:
		return "broader"
	}
}

// SearchFunc runs one query through the hybrid search engine; supplied by
// the RPC handler so this package stays decoupled from internal/search.
type SearchFunc func(ctx context.Context, query string) ([]model.SearchResult, error)

// ExecuteChain runs search for every link's query plus the original query,
// returning a mapping from query string to results. A failing link yields
// an empty result list rather than aborting the chain (spec §4.10).
func ExecuteChain(ctx context.Context, chain model.TopicSearchChain, search SearchFunc) map[string][]model.SearchResult {
	out := make(map[string][]model.SearchResult, len(chain.Links)+1)
	queries := []string{chain.OriginalQuery}
	for _, link := range chain.Links {
		queries = append(queries, link.Query)
	}
	for _, q := range queries {
		results, err := search(ctx, q)
		if err != nil {
			out[q] = nil
			continue
		}
		out[q] = results
	}
	return out
}

// ChainCoherence is the average Jaccard similarity of consecutive links'
// topic sets (spec §4.10).
func ChainCoherence(chain model.TopicSearchChain) float64 {
	if len(chain.Links) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(chain.Links); i++ {
		sum += jaccard(setOf(chain.Links[i-1].RelatedTopics), setOf(chain.Links[i].RelatedTopics))
	}
	return sum / float64(len(chain.Links)-1)
}

// DiscoveryPotential is the weighted sum spec §4.10 names: topic diversity
// (30%), average relevance (40%), exploration-type diversity (20%), length
// factor (10%).
func DiscoveryPotential(chain model.TopicSearchChain) float64 {
	if len(chain.Links) == 0 {
		return 0
	}
	topics := map[string]bool{}
	types := map[string]bool{}
	var relevanceSum float64
	for _, l := range chain.Links {
		topics[l.TopicFocus] = true
		types[l.ExplorationType] = true
		relevanceSum += l.RelevanceScore
	}
	topicDiversity := float64(len(topics)) / float64(len(chain.Links))
	avgRelevance := relevanceSum / float64(len(chain.Links))
	typeDiversity := float64(len(types)) / float64(len(chain.Links))
	lengthFactor := math.Min(1, float64(len(chain.Links))/5.0)

	return 0.30*topicDiversity + 0.40*avgRelevance + 0.20*typeDiversity + 0.10*lengthFactor
}

func tokenSet(s string) map[string]bool {
	return setOf(strings.Fields(strings.ToLower(s)))
}

func setOf(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[strings.ToLower(i)] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var intersection int
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
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

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

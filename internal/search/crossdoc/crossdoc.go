// Package crossdoc implements cross-document intelligence over a list of
// search results: relationship summaries, similarity ranking, conflict
// detection (with optional LLM deepening), complementary-content
// recommendations, and clustering (spec §4.11). Grounded on
// original_source's cross-document-intelligence module for the metric set,
// the conflict categories, and the adaptive clustering-strategy scoring
// table; the LLM deepening call follows internal/embedclient's openai-go/v2
// SDK construction pattern (teacher dep), generalized from embeddings to a
// single bounded chat-completion call.
package crossdoc

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"qdrantloader/internal/model"
)

// Metric names spec §4.11 enumerates for find_similar.
const (
	MetricEntityOverlap          = "entity_overlap"
	MetricTopicOverlap           = "topic_overlap"
	MetricSemanticEmbedding      = "semantic_embedding"
	MetricMetadataAffinity       = "metadata_affinity"
	MetricProjectSourceAffinity  = "project_and_source_affinity"
	MetricHierarchyAffinity      = "hierarchy_affinity"
)

// ClusterStrategy selects Cluster's grouping algorithm.
type ClusterStrategy string

const (
	MixedFeatures     ClusterStrategy = "mixed_features"
	SemanticEmbedding ClusterStrategy = "semantic_embedding"
	TopicBased        ClusterStrategy = "topic_based"
	EntityBased       ClusterStrategy = "entity_based"
	ProjectBased      ClusterStrategy = "project_based"
	Hierarchical      ClusterStrategy = "hierarchical"
)

// Conflict categories spec §4.11 names.
const (
	CategoryContradiction         = "contradiction"
	CategoryVersionMismatch       = "version_mismatch"
	CategoryPolicyDivergence      = "policy_divergence"
	CategoryTemporalInconsistency = "temporal_inconsistency"
)

// EmbeddingComparer optionally supplies a semantic_embedding metric score
// between two documents; nil means the metric is skipped.
type EmbeddingComparer interface {
	Similarity(ctx context.Context, a, b model.SearchResult) (float64, error)
}

// Deepener calls an LLM to classify a candidate conflict more precisely
// than the heuristic pass. internal/llmclient's openai-go/v2-backed
// implementation satisfies this.
type Deepener interface {
	ClassifyConflict(ctx context.Context, a, b model.SearchResult, window int) (category string, explanation string, err error)
}

// Engine runs cross-document analyses. Both collaborators are optional.
type Engine struct {
	Embeddings EmbeddingComparer
	LLM        Deepener
}

// New builds an Engine. Passing nil for either collaborator disables the
// semantic_embedding metric / LLM deepening respectively.
func New(embeddings EmbeddingComparer, llm Deepener) *Engine {
	return &Engine{Embeddings: embeddings, LLM: llm}
}

// RelationshipSummary is analyze_relationships' output (spec §4.11).
type RelationshipSummary struct {
	TotalDocuments int
	CountsByType   map[string]int
	NotablePairs   []model.DocumentConflict
}

// AnalyzeRelationships runs a heuristic (non-LLM) conflict pass over docs
// and summarizes counts by category plus the most notable pairs.
func (e *Engine) AnalyzeRelationships(docs []model.SearchResult) RelationshipSummary {
	report := e.DetectConflicts(context.Background(), docs, ConflictOptions{UseLLM: false})
	summary := RelationshipSummary{TotalDocuments: len(docs), CountsByType: map[string]int{}}
	for _, c := range report.Conflicts {
		summary.CountsByType[c.Category]++
	}
	notable := make([]model.DocumentConflict, len(report.Conflicts))
	copy(notable, report.Conflicts)
	sort.Slice(notable, func(i, j int) bool { return notable[i].Category < notable[j].Category })
	if len(notable) > 10 {
		notable = notable[:10]
	}
	summary.NotablePairs = notable
	return summary
}

// metricScore computes one named metric between a and b.
func (e *Engine) metricScore(ctx context.Context, metric string, a, b model.SearchResult) (float64, bool) {
	switch metric {
	case MetricEntityOverlap:
		return jaccard(setOf(a.Entities), setOf(b.Entities)), true
	case MetricTopicOverlap:
		return jaccard(setOf(a.Topics), setOf(b.Topics)), true
	case MetricSemanticEmbedding:
		if e.Embeddings == nil {
			return 0, false
		}
		score, err := e.Embeddings.Similarity(ctx, a, b)
		if err != nil {
			return 0, false
		}
		return score, true
	case MetricMetadataAffinity:
		return metadataAffinity(a, b), true
	case MetricProjectSourceAffinity:
		return projectSourceAffinity(a, b), true
	case MetricHierarchyAffinity:
		return hierarchyAffinity(a, b), true
	default:
		return 0, false
	}
}

// FindSimilar ranks candidates against target by the mean of the enabled
// metrics, returning the top max with a per-metric breakdown and a short
// explanation (spec §4.11).
func (e *Engine) FindSimilar(ctx context.Context, target model.SearchResult, candidates []model.SearchResult, metrics []string, max int) []model.DocumentSimilarity {
	if max <= 0 {
		max = 5
	}
	if len(metrics) == 0 {
		metrics = []string{MetricEntityOverlap, MetricTopicOverlap, MetricMetadataAffinity, MetricProjectSourceAffinity, MetricHierarchyAffinity}
	}

	var out []model.DocumentSimilarity
	for _, c := range candidates {
		if c.DocumentID == target.DocumentID {
			continue
		}
		breakdown := map[string]float64{}
		var sum float64
		var enabled int
		for _, m := range metrics {
			score, ok := e.metricScore(ctx, m, target, c)
			if !ok {
				continue
			}
			breakdown[m] = score
			sum += score
			enabled++
		}
		if enabled == 0 {
			continue
		}
		combined := sum / float64(enabled)
		out = append(out, model.DocumentSimilarity{
			DocumentIDA:  target.DocumentID,
			DocumentIDB:  c.DocumentID,
			Score:        combined,
			MetricScores: breakdown,
			Explanation:  explainSimilarity(breakdown),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentIDB < out[j].DocumentIDB
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func explainSimilarity(breakdown map[string]float64) string {
	var best string
	var bestScore float64
	for m, s := range breakdown {
		if s > bestScore {
			best, bestScore = m, s
		}
	}
	if best == "" {
		return "no strong signal"
	}
	return fmt.Sprintf("driven primarily by %s (%.2f)", best, bestScore)
}

// ConflictOptions bounds detect_conflicts' candidate-pair enumeration and
// optional LLM deepening (spec §4.11).
type ConflictOptions struct {
	UseLLM          bool
	MaxLLMPairs     int
	Timeout         time.Duration
	MaxPairsTotal   int
	TextWindowChars int
}

func (o ConflictOptions) withDefaults() ConflictOptions {
	if o.MaxLLMPairs <= 0 {
		o.MaxLLMPairs = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxPairsTotal <= 0 {
		o.MaxPairsTotal = 50
	}
	if o.TextWindowChars <= 0 {
		o.TextWindowChars = 500
	}
	return o
}

// DetectConflicts enumerates a bounded set of candidate pairs, classifies
// each heuristically, optionally deepens the top-K with an LLM call bounded
// by an overall timeout, and returns the conflicts plus resolution
// suggestions (spec §4.11).
func (e *Engine) DetectConflicts(ctx context.Context, docs []model.SearchResult, opts ConflictOptions) model.ConflictReport {
	if len(docs) < 2 {
		return model.ConflictReport{Message: "need at least 2 documents to detect conflicts"}
	}
	opts = opts.withDefaults()
	pairs := candidatePairs(docs, opts.MaxPairsTotal)

	var conflicts []model.DocumentConflict
	for _, p := range pairs {
		if category, explanation, ok := heuristicConflict(p.a, p.b); ok {
			conflicts = append(conflicts, model.DocumentConflict{
				DocumentIDA: p.a.DocumentID, DocumentIDB: p.b.DocumentID,
				Category: category, Explanation: explanation,
			})
		}
	}

	if opts.UseLLM && e.LLM != nil && len(conflicts) > 0 {
		cctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		limit := opts.MaxLLMPairs
		if limit > len(conflicts) {
			limit = len(conflicts)
		}
		for i := 0; i < limit; i++ {
			a, b := findResult(docs, conflicts[i].DocumentIDA), findResult(docs, conflicts[i].DocumentIDB)
			category, explanation, err := e.LLM.ClassifyConflict(cctx, a, b, opts.TextWindowChars)
			if err != nil {
				continue
			}
			conflicts[i].Category = category
			conflicts[i].Explanation = explanation
		}
	}

	return model.ConflictReport{Conflicts: conflicts, Suggestions: resolutionSuggestions(conflicts)}
}

type pair struct{ a, b model.SearchResult }

// candidatePairs enumerates up to maxPairs (target, candidate) tuples in
// input order, keeping only pairs that share a project or at least one
// topic (cheap pre-filter before the more expensive classification pass).
func candidatePairs(docs []model.SearchResult, maxPairs int) []pair {
	var out []pair
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if len(out) >= maxPairs {
				return out
			}
			if docs[i].ProjectID == docs[j].ProjectID || jaccard(setOf(docs[i].Topics), setOf(docs[j].Topics)) > 0 {
				out = append(out, pair{a: docs[i], b: docs[j]})
			}
		}
	}
	return out
}

func findResult(docs []model.SearchResult, id string) model.SearchResult {
	for _, d := range docs {
		if d.DocumentID == id {
			return d
		}
	}
	return model.SearchResult{}
}

// heuristicConflict classifies a candidate pair whose topic overlap is at
// least 0.2 by cheap structural signals, checked in order: differing
// version metadata (version_mismatch), differing source types where one is
// confluence (policy_divergence), differing last_updated_at metadata values
// (temporal_inconsistency), or a topic overlap of at least 0.6 with none of
// the above (contradiction proxy).
func heuristicConflict(a, b model.SearchResult) (category, explanation string, ok bool) {
	sharedTopics := jaccard(setOf(a.Topics), setOf(b.Topics))
	if sharedTopics < 0.2 {
		return "", "", false
	}
	if va, oka := a.Metadata["version"].(string); oka {
		if vb, okb := b.Metadata["version"].(string); okb && va != vb {
			return CategoryVersionMismatch, fmt.Sprintf("versions %q vs %q differ on overlapping content", va, vb), true
		}
	}
	if a.SourceType != b.SourceType && (a.SourceType == "confluence" || b.SourceType == "confluence") {
		return CategoryPolicyDivergence, fmt.Sprintf("%s and %s sources cover the same topics differently", a.SourceType, b.SourceType), true
	}
	ta, oka := a.Metadata["last_updated_at"].(string)
	tb, okb := b.Metadata["last_updated_at"].(string)
	if oka && okb && ta != tb {
		return CategoryTemporalInconsistency, "overlapping content last updated at different times", true
	}
	if sharedTopics >= 0.6 {
		return CategoryContradiction, "high topic overlap with potentially conflicting claims; needs manual review", true
	}
	return "", "", false
}

func resolutionSuggestions(conflicts []model.DocumentConflict) []string {
	if len(conflicts) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range conflicts {
		if seen[c.Category] {
			continue
		}
		seen[c.Category] = true
		switch c.Category {
		case CategoryVersionMismatch:
			out = append(out, "reconcile version-tagged documents and retire the superseded one")
		case CategoryPolicyDivergence:
			out = append(out, "designate one source as authoritative for this topic")
		case CategoryTemporalInconsistency:
			out = append(out, "re-ingest the stale document or flag it as historical")
		case CategoryContradiction:
			out = append(out, "route to a subject-matter owner for manual reconciliation")
		}
	}
	return out
}

// FindComplementary recommends documents that fill gaps relative to target:
// different sections, partially overlapping topics (candidates whose topic
// overlap is 0.8 or more are skipped as near-duplicates), or related
// entities (spec §4.11).
func (e *Engine) FindComplementary(target model.SearchResult, candidates []model.SearchResult, max int) []model.DocumentSimilarity {
	if max <= 0 {
		max = 5
	}
	targetTopics := setOf(target.Topics)
	targetEntities := setOf(target.Entities)

	var out []model.DocumentSimilarity
	for _, c := range candidates {
		if c.DocumentID == target.DocumentID {
			continue
		}
		sectionGap := 0.0
		if c.Section != "" && c.Section != target.Section {
			sectionGap = 1.0
		}
		topicAdjacency := jaccard(setOf(c.Topics), targetTopics)
		if topicAdjacency >= 0.8 {
			continue // near-duplicate, not complementary
		}
		entityOverlap := jaccard(setOf(c.Entities), targetEntities)
		score := 0.4*sectionGap + 0.3*topicAdjacency + 0.3*entityOverlap
		if score <= 0 {
			continue
		}
		out = append(out, model.DocumentSimilarity{
			DocumentIDA: target.DocumentID, DocumentIDB: c.DocumentID, Score: score,
			MetricScores: map[string]float64{"section_gap": sectionGap, "topic_adjacency": topicAdjacency, "entity_overlap": entityOverlap},
			Explanation:  "fills a gap via different section, adjacent topics, or related entities",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Cluster groups docs per strategy (or an adaptively-chosen one when
// strategy is empty) into up to maxClusters clusters of at least
// minClusterSize each (spec §4.11).
func (e *Engine) Cluster(docs []model.SearchResult, strategy ClusterStrategy, maxClusters, minClusterSize int) ([]model.DocumentCluster, ClusterStrategy) {
	if maxClusters <= 0 {
		maxClusters = 10
	}
	if minClusterSize <= 0 {
		minClusterSize = 2
	}
	if strategy == "" {
		strategy = adaptiveStrategy(docs)
	}

	groups := map[string][]model.SearchResult{}
	for _, d := range docs {
		key := clusterKey(d, strategy)
		groups[key] = append(groups[key], d)
	}

	var clusters []model.DocumentCluster
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		members := groups[k]
		if len(members) < minClusterSize {
			continue
		}
		ids := make([]string, len(members))
		topicFreq := map[string]int{}
		for i, m := range members {
			ids[i] = m.DocumentID
			for _, t := range m.Topics {
				topicFreq[t]++
			}
		}
		clusters = append(clusters, model.DocumentCluster{
			ID:             fmt.Sprintf("%s:%s", strategy, k),
			DocumentIDs:    ids,
			CentroidTopics: topTopics(topicFreq, 5),
			CoherenceScore: averageCoherence(members),
			Summary:        fmt.Sprintf("%d documents grouped by %s=%q", len(members), strategy, k),
		})
		if len(clusters) >= maxClusters {
			break
		}
	}
	return clusters, strategy
}

func clusterKey(d model.SearchResult, strategy ClusterStrategy) string {
	switch strategy {
	case TopicBased:
		if len(d.Topics) > 0 {
			return d.Topics[0]
		}
		return "untopiced"
	case EntityBased:
		if len(d.Entities) > 0 {
			return d.Entities[0]
		}
		return "unentitied"
	case ProjectBased:
		return d.ProjectID
	case Hierarchical:
		return strings.Join(d.Breadcrumb, "/")
	case SemanticEmbedding:
		// Without a real embedding index to cluster over, fall back to the
		// strongest available textual signal (dominant topic).
		if len(d.Topics) > 0 {
			return d.Topics[0]
		}
		return d.SourceType
	default: // MixedFeatures
		return fmt.Sprintf("%s|%s", d.SourceType, d.ProjectID)
	}
}

// adaptiveStrategy picks the best clustering dimension from observed
// document characteristics (spec §4.11): entity richness, topic clarity,
// project distribution, hierarchical structure, source diversity.
func adaptiveStrategy(docs []model.SearchResult) ClusterStrategy {
	if len(docs) == 0 {
		return MixedFeatures
	}
	var totalEntities int
	sourceTypes := map[string]int{}
	projects := map[string]bool{}
	var hierarchyDepthSum int
	for _, d := range docs {
		totalEntities += len(d.Entities)
		sourceTypes[d.SourceType]++
		projects[d.ProjectID] = true
		hierarchyDepthSum += len(d.Breadcrumb)
	}
	n := float64(len(docs))
	entityRichness := math.Min(1, (float64(totalEntities)/n)/5.0)

	var dominant int
	for _, c := range sourceTypes {
		if c > dominant {
			dominant = c
		}
	}
	topicClarity := float64(dominant) / n

	projectDistribution := float64(len(projects)) / n
	hierarchicalStructure := math.Min(1, (float64(hierarchyDepthSum)/n)/4.0)
	sourceDiversity := float64(len(sourceTypes)) / n

	scores := map[ClusterStrategy]float64{
		EntityBased:  entityRichness,
		TopicBased:   topicClarity,
		ProjectBased: projectDistribution,
		Hierarchical: hierarchicalStructure,
		MixedFeatures: sourceDiversity*0.5 + 0.25, // mild baseline favoring mixed when nothing stands out
	}
	best := MixedFeatures
	var bestScore float64
	for s, v := range scores {
		if v > bestScore {
			best, bestScore = s, v
		}
	}
	return best
}

func topTopics(freq map[string]int, n int) []string {
	type kv struct {
		k string
		v int
	}
	list := make([]kv, 0, len(freq))
	for k, v := range freq {
		list = append(list, kv{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].v != list[j].v {
			return list[i].v > list[j].v
		}
		return list[i].k < list[j].k
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, kv := range list {
		out[i] = kv.k
	}
	return out
}

func averageCoherence(members []model.SearchResult) float64 {
	if len(members) < 2 {
		return 1
	}
	var sum float64
	var count int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += jaccard(setOf(members[i].Topics), setOf(members[j].Topics))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func metadataAffinity(a, b model.SearchResult) float64 {
	var matches, total int
	check := func(av, bv string) {
		total++
		if av != "" && av == bv {
			matches++
		}
	}
	check(a.MimeType, b.MimeType)
	check(a.OriginalType, b.OriginalType)
	check(a.Section, b.Section)
	return float64(matches) / float64(total)
}

func projectSourceAffinity(a, b model.SearchResult) float64 {
	var score float64
	if a.ProjectID != "" && a.ProjectID == b.ProjectID {
		score += 0.6
	}
	if a.SourceType != "" && a.SourceType == b.SourceType {
		score += 0.4
	}
	return score
}

func hierarchyAffinity(a, b model.SearchResult) float64 {
	return jaccard(setOf(a.Breadcrumb), setOf(b.Breadcrumb))
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

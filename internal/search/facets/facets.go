// Package facets generates dynamic facets and suggested refinements over a
// search result set, and applies facet filters back onto it (spec §4.8).
// Grounded on original_source's faceted-search module for the dimension
// list and the "≥20% reduction" suggestion rule; implemented over
// model.SearchResult/Facet/FacetValue/FacetFilter with no third-party lib,
// since this is pure aggregation over already-typed in-process data.
package facets

import (
	"sort"
	"strings"
	"time"

	"qdrantloader/internal/model"
)

// DefaultTopN is the default number of values kept per facet dimension.
const DefaultTopN = 10

// Dimension names spec §4.8 enumerates.
const (
	DimContentType       = "content_type"
	DimSourceType        = "source_type"
	DimFileType          = "file_type"
	DimHasFeatures       = "has_features"
	DimHierarchyDepth    = "hierarchy_depth"
	DimReadTime          = "read_time"
	DimProject           = "project"
	DimRepository        = "repository"
	DimEntities          = "entities"
	DimEntityTypes       = "entity_types"
	DimTopics            = "topics"
	DimKeyPhrases        = "key_phrases"
	DimSectionType       = "section_type"
	DimAttachmentType    = "attachment_type"
	DimConversionMethod  = "conversion_method"
	DimChunkingStrategy  = "chunking_strategy"
)

var allDimensions = []string{
	DimContentType, DimSourceType, DimFileType, DimHasFeatures, DimHierarchyDepth,
	DimReadTime, DimProject, DimRepository, DimEntities, DimEntityTypes, DimTopics,
	DimKeyPhrases, DimSectionType, DimAttachmentType, DimConversionMethod, DimChunkingStrategy,
}

// Suggestion is one "applying this filter would shrink the result set"
// recommendation (spec §4.8).
type Suggestion struct {
	FacetType      string
	Value          string
	ReductionRatio float64
	ResultingCount int
}

// Output is the full result of GenerateFacets.
type Output struct {
	Facets           []model.Facet
	Suggestions      []Suggestion
	TotalResults     int
	FilteredCount    int
	GenerationTimeMs float64
}

// GenerateFacets computes every dimension's facet over results, keeping the
// top topN values per dimension by count, and up to five suggested
// refinements sorted by largest reduction (spec §4.8).
func GenerateFacets(results []model.SearchResult, topN int) Output {
	start := time.Now()
	if topN <= 0 {
		topN = DefaultTopN
	}

	counts := make(map[string]map[string]int, len(allDimensions))
	for _, dim := range allDimensions {
		counts[dim] = map[string]int{}
	}

	for _, r := range results {
		bump(counts[DimContentType], r.MimeType)
		bump(counts[DimSourceType], r.SourceType)
		bump(counts[DimFileType], fileType(r))
		for _, feature := range features(r) {
			bump(counts[DimHasFeatures], feature)
		}
		bump(counts[DimHierarchyDepth], depthBucket(r.Depth))
		bump(counts[DimReadTime], readTimeBucket(r.EstReadTimeMn))
		bump(counts[DimProject], r.ProjectID)
		bump(counts[DimRepository], r.SourceTitle)
		for _, e := range r.Entities {
			bump(counts[DimEntities], e)
		}
		for _, e := range entityTypesOf(r) {
			bump(counts[DimEntityTypes], e)
		}
		for _, t := range r.Topics {
			bump(counts[DimTopics], t)
		}
		for _, kp := range r.KeyPhrases {
			bump(counts[DimKeyPhrases], kp)
		}
		bump(counts[DimSectionType], r.Section)
		bump(counts[DimAttachmentType], attachmentType(r))
		bump(counts[DimConversionMethod], conversionMethod(r))
		bump(counts[DimChunkingStrategy], chunkingStrategy(r))
	}

	out := Output{TotalResults: len(results), FilteredCount: len(results)}
	for _, dim := range allDimensions {
		values := topValues(counts[dim], topN)
		if len(values) == 0 {
			continue
		}
		out.Facets = append(out.Facets, model.Facet{Type: dim, DisplayName: displayName(dim), Values: values})
	}

	out.Suggestions = suggestRefinements(results, out.Facets)
	out.GenerationTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	return out
}

func bump(m map[string]int, key string) {
	if key == "" {
		return
	}
	m[key]++
}

func topValues(counts map[string]int, topN int) []model.FacetValue {
	values := make([]model.FacetValue, 0, len(counts))
	for v, c := range counts {
		values = append(values, model.FacetValue{Value: v, Count: c, DisplayName: v})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if len(values) > topN {
		values = values[:topN]
	}
	return values
}

// suggestRefinements finds, across every facet value, those whose
// application would shrink the result set by >= 20%, keeping the top five
// by largest reduction (spec §4.8).
func suggestRefinements(results []model.SearchResult, facetsList []model.Facet) []Suggestion {
	total := len(results)
	if total == 0 {
		return nil
	}
	var candidates []Suggestion
	for _, f := range facetsList {
		for _, v := range f.Values {
			reduction := 1 - float64(v.Count)/float64(total)
			if reduction >= 0.20 {
				candidates = append(candidates, Suggestion{
					FacetType:      f.Type,
					Value:          v.Value,
					ReductionRatio: reduction,
					ResultingCount: v.Count,
				})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ReductionRatio != candidates[j].ReductionRatio {
			return candidates[i].ReductionRatio > candidates[j].ReductionRatio
		}
		if candidates[i].FacetType != candidates[j].FacetType {
			return candidates[i].FacetType < candidates[j].FacetType
		}
		return candidates[i].Value < candidates[j].Value
	})
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}
	return candidates
}

// ApplyFilters narrows results by every FacetFilter: AND across distinct
// filters, and OR/AND within a single filter's value set per its
// Combinator (spec §4.8).
func ApplyFilters(results []model.SearchResult, filters []model.FacetFilter) []model.SearchResult {
	if len(filters) == 0 {
		return results
	}
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r model.SearchResult, filters []model.FacetFilter) bool {
	for _, f := range filters {
		if !matchesOne(r, f) {
			return false
		}
	}
	return true
}

func matchesOne(r model.SearchResult, f model.FacetFilter) bool {
	candidateValues := valuesForDimension(r, f.FacetType)
	if len(f.Values) == 0 {
		return true
	}
	if strings.EqualFold(f.Combinator, "AND") {
		for want := range f.Values {
			if !containsStr(candidateValues, want) {
				return false
			}
		}
		return true
	}
	for want := range f.Values {
		if containsStr(candidateValues, want) {
			return true
		}
	}
	return false
}

func valuesForDimension(r model.SearchResult, dim string) []string {
	switch dim {
	case DimContentType:
		return []string{r.MimeType}
	case DimSourceType:
		return []string{r.SourceType}
	case DimFileType:
		return []string{fileType(r)}
	case DimHasFeatures:
		return features(r)
	case DimHierarchyDepth:
		return []string{depthBucket(r.Depth)}
	case DimReadTime:
		return []string{readTimeBucket(r.EstReadTimeMn)}
	case DimProject:
		return []string{r.ProjectID}
	case DimRepository:
		return []string{r.SourceTitle}
	case DimEntities:
		return r.Entities
	case DimEntityTypes:
		return entityTypesOf(r)
	case DimTopics:
		return r.Topics
	case DimKeyPhrases:
		return r.KeyPhrases
	case DimSectionType:
		return []string{r.Section}
	case DimAttachmentType:
		return []string{attachmentType(r)}
	case DimConversionMethod:
		return []string{conversionMethod(r)}
	case DimChunkingStrategy:
		return []string{chunkingStrategy(r)}
	default:
		return nil
	}
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func features(r model.SearchResult) []string {
	var out []string
	if r.HasCode {
		out = append(out, "code")
	}
	if r.HasTables {
		out = append(out, "tables")
	}
	if r.HasImages {
		out = append(out, "images")
	}
	if r.HasLinks {
		out = append(out, "links")
	}
	if r.IsAttachment {
		out = append(out, "attachment")
	}
	return out
}

func depthBucket(depth int) string {
	switch {
	case depth <= 2:
		return "shallow"
	case depth <= 4:
		return "medium"
	default:
		return "deep"
	}
}

func readTimeBucket(minutes float64) string {
	switch {
	case minutes <= 2:
		return "quick"
	case minutes <= 10:
		return "medium"
	default:
		return "long"
	}
}

func fileType(r model.SearchResult) string {
	if r.OriginalType != "" {
		return r.OriginalType
	}
	return r.MimeType
}

func attachmentType(r model.SearchResult) string {
	if !r.IsAttachment {
		return ""
	}
	return fileType(r)
}

func conversionMethod(r model.SearchResult) string {
	if m, ok := r.Metadata["conversion_method"].(string); ok {
		return m
	}
	return ""
}

func chunkingStrategy(r model.SearchResult) string {
	if s, ok := r.Metadata["chunking_strategy"].(string); ok {
		return s
	}
	return ""
}

func entityTypesOf(r model.SearchResult) []string {
	if types, ok := r.Metadata["entity_types"].([]string); ok {
		return types
	}
	return nil
}

func displayName(dim string) string {
	words := strings.Split(dim, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

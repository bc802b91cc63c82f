package facets

import (
	"testing"

	"qdrantloader/internal/model"
)

func sampleResults() []model.SearchResult {
	return []model.SearchResult{
		{DocumentID: "1", SourceType: "git", ProjectID: "p1", HasCode: true, Depth: 1, EstReadTimeMn: 1, Topics: []string{"auth"}},
		{DocumentID: "2", SourceType: "git", ProjectID: "p1", HasCode: true, Depth: 2, EstReadTimeMn: 5, Topics: []string{"auth"}},
		{DocumentID: "3", SourceType: "confluence", ProjectID: "p2", Depth: 5, EstReadTimeMn: 20, Topics: []string{"billing"}},
	}
}

func TestGenerateFacetsCountsSourceType(t *testing.T) {
	out := GenerateFacets(sampleResults(), 10)
	var sourceFacet *model.Facet
	for i := range out.Facets {
		if out.Facets[i].Type == DimSourceType {
			sourceFacet = &out.Facets[i]
		}
	}
	if sourceFacet == nil {
		t.Fatal("expected a source_type facet")
	}
	counts := map[string]int{}
	for _, v := range sourceFacet.Values {
		counts[v.Value] = v.Count
	}
	if counts["git"] != 2 || counts["confluence"] != 1 {
		t.Fatalf("unexpected source_type counts: %+v", counts)
	}
}

func TestGenerateFacetsSuggestsRefinements(t *testing.T) {
	out := GenerateFacets(sampleResults(), 10)
	if len(out.Suggestions) == 0 {
		t.Fatal("expected at least one suggestion given a 1/3-count facet value")
	}
	for _, s := range out.Suggestions {
		if s.ReductionRatio < 0.20 {
			t.Fatalf("suggestion below 20%% reduction floor: %+v", s)
		}
	}
}

func TestApplyFiltersORWithinDimension(t *testing.T) {
	results := sampleResults()
	filter := model.FacetFilter{
		FacetType:  DimSourceType,
		Values:     map[string]struct{}{"git": {}, "confluence": {}},
		Combinator: "OR",
	}
	filtered := ApplyFilters(results, []model.FacetFilter{filter})
	if len(filtered) != 3 {
		t.Fatalf("expected all 3 results to match OR filter, got %d", len(filtered))
	}
}

func TestApplyFiltersANDAcrossDimensions(t *testing.T) {
	results := sampleResults()
	filters := []model.FacetFilter{
		{FacetType: DimSourceType, Values: map[string]struct{}{"git": {}}, Combinator: "OR"},
		{FacetType: DimProject, Values: map[string]struct{}{"p1": {}}, Combinator: "OR"},
	}
	filtered := ApplyFilters(results, filters)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 results matching both filters, got %d", len(filtered))
	}
}

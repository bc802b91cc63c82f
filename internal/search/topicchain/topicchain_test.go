package topicchain

import (
	"context"
	"testing"

	"qdrantloader/internal/model"
)

func sampleSeed() []model.SearchResult {
	return []model.SearchResult{
		{DocumentID: "1", Topics: []string{"auth", "security"}},
		{DocumentID: "2", Topics: []string{"auth", "security"}},
		{DocumentID: "3", Topics: []string{"auth", "billing"}},
		{DocumentID: "4", Topics: []string{"auth", "billing"}},
	}
}

func TestFindRelatedTopicsReturnsCooccurringTopics(t *testing.T) {
	e := New(100)
	related := e.FindRelatedTopics(sampleSeed(), 5, false, true)
	if len(related) == 0 {
		t.Fatal("expected at least one co-occurring related topic")
	}
	for _, r := range related {
		if r.Topic == "auth" {
			t.Fatal("anchor topic should not relate to itself")
		}
	}
}

func TestGenerateSearchChainHasIncreasingPositionsAndDecayingRelevance(t *testing.T) {
	e := New(100)
	chain := e.GenerateSearchChain("authentication setup", sampleSeed(), RelevanceRanked, 3)
	if len(chain.Links) == 0 {
		t.Fatal("expected at least one chain link")
	}
	prevPos := 0
	prevRelevance := 2.0
	for _, link := range chain.Links {
		if link.ChainPosition <= prevPos {
			t.Fatalf("chain_position must strictly increase: %d after %d", link.ChainPosition, prevPos)
		}
		if link.RelevanceScore > prevRelevance {
			t.Fatalf("relevance_score must decay along the chain: %.3f after %.3f", link.RelevanceScore, prevRelevance)
		}
		prevPos = link.ChainPosition
		prevRelevance = link.RelevanceScore
	}
	if chain.Links[0].ParentQuery != "authentication setup" {
		t.Fatalf("expected first link's parent_query to be the original query, got %q", chain.Links[0].ParentQuery)
	}
}

func TestExecuteChainToleratesFailingLinks(t *testing.T) {
	chain := model.TopicSearchChain{
		OriginalQuery: "q0",
		Links: []model.TopicChainLink{
			{Query: "q1", ChainPosition: 1},
			{Query: "fail", ChainPosition: 2},
		},
	}
	search := func(ctx context.Context, query string) ([]model.SearchResult, error) {
		if query == "fail" {
			return nil, context.DeadlineExceeded
		}
		return []model.SearchResult{{DocumentID: query}}, nil
	}
	results := ExecuteChain(context.Background(), chain, search)
	if len(results["q0"]) != 1 {
		t.Fatalf("expected 1 result for q0, got %d", len(results["q0"]))
	}
	if results["fail"] != nil {
		t.Fatalf("expected nil results for failing link, got %+v", results["fail"])
	}
}

func TestChainCoherenceAndDiscoveryPotential(t *testing.T) {
	chain := model.TopicSearchChain{
		Links: []model.TopicChainLink{
			{TopicFocus: "auth", RelatedTopics: []string{"auth", "security"}, RelevanceScore: 0.8, ExplorationType: "related"},
			{TopicFocus: "billing", RelatedTopics: []string{"billing", "security"}, RelevanceScore: 0.6, ExplorationType: "broader"},
		},
	}
	coherence := ChainCoherence(chain)
	if coherence <= 0 || coherence > 1 {
		t.Fatalf("expected coherence in (0,1], got %.3f", coherence)
	}
	potential := DiscoveryPotential(chain)
	if potential <= 0 || potential > 1 {
		t.Fatalf("expected discovery potential in (0,1], got %.3f", potential)
	}
}

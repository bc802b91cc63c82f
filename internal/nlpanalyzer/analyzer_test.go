package nlpanalyzer

import "testing"

func TestAnalyzeTextExtractsURLAndDate(t *testing.T) {
	a := New()
	out := a.AnalyzeText("See https://example.com/docs updated on 2026-07-31 for details.")
	var hasURL, hasDate bool
	for _, e := range out.Entities {
		if e.Type == "URL" && e.Text == "https://example.com/docs" {
			hasURL = true
		}
		if e.Type == "DATE" && e.Text == "2026-07-31" {
			hasDate = true
		}
	}
	if !hasURL {
		t.Fatalf("expected URL entity, got %+v", out.Entities)
	}
	if !hasDate {
		t.Fatalf("expected DATE entity, got %+v", out.Entities)
	}
}

func TestAnalyzeTextKeyPhrasesRequireRepetition(t *testing.T) {
	a := New()
	text := "vector search engine vector search engine performs vector search"
	out := a.AnalyzeText(text)
	found := false
	for _, kp := range out.KeyPhrases {
		if kp == "vector search" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'vector search' key phrase, got %v", out.KeyPhrases)
	}
}

func TestAnalyzeTextTopicsExcludeStopwords(t *testing.T) {
	a := New()
	out := a.AnalyzeText("the quick brown fox jumps over the lazy dog repeatedly repeatedly")
	for _, topic := range out.Topics {
		if stopwords[topic] {
			t.Fatalf("expected no stopwords in topics, got %q", topic)
		}
	}
}

func TestAnalyzeTextBoundsResultCounts(t *testing.T) {
	a := &HeuristicAnalyzer{MaxKeywords: 2, MaxTopics: 1}
	out := a.AnalyzeText("alpha beta gamma delta alpha beta gamma delta alpha beta gamma delta")
	if len(out.Topics) > 1 {
		t.Fatalf("expected at most 1 topic, got %v", out.Topics)
	}
	if len(out.Keywords) > 2 {
		t.Fatalf("expected at most 2 keywords, got %v", out.Keywords)
	}
}

func TestAnalyzeTextPOSTagsAlignWithTokenCount(t *testing.T) {
	a := New()
	out := a.AnalyzeText("Acme Corp released version 2 today")
	tokens := tokenize("Acme Corp released version 2 today")
	if len(out.POSTags) != len(tokens) {
		t.Fatalf("expected %d pos tags, got %d", len(tokens), len(out.POSTags))
	}
}

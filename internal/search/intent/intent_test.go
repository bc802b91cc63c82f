package intent

import (
	"testing"

	"qdrantloader/internal/nlpanalyzer"
)

func TestClassifyTechnicalLookup(t *testing.T) {
	c := New(nlpanalyzer.New(), 100)
	result := c.Classify("how to fix the API endpoint error in the SDK", nil, nil)
	if result.Primary != TechnicalLookup && result.Primary != Troubleshooting {
		t.Fatalf("expected a technical intent, got %s (confidence %.2f)", result.Primary, result.Confidence)
	}
}

func TestClassifyFallsBackToGeneralOnLowConfidence(t *testing.T) {
	c := New(nlpanalyzer.New(), 100)
	result := c.Classify("xyz abc qqq", nil, nil)
	if result.Primary != General {
		t.Fatalf("expected fallback to general, got %s", result.Primary)
	}
}

func TestClassifyCachesResult(t *testing.T) {
	c := New(nlpanalyzer.New(), 100)
	first := c.Classify("how do I configure the deployment", nil, nil)
	second := c.Classify("how do I configure the deployment", nil, nil)
	if first.Primary != second.Primary || first.Confidence != second.Confidence {
		t.Fatalf("expected cached classification to match: %+v vs %+v", first, second)
	}
}

func TestStrategyForUnknownIntentFallsBackToGeneral(t *testing.T) {
	s := StrategyFor(Intent("unknown"))
	if s != strategies[General] {
		t.Fatalf("expected general strategy fallback, got %+v", s)
	}
}

func TestBehavioralBoostFavorsTransition(t *testing.T) {
	base := scoreProfile(profiles[0], "the api has an error", nlpanalyzer.Analysis{})
	boosted := applyBehavioralBoost(base, TechnicalLookup, Troubleshooting)
	if boosted <= base {
		t.Fatalf("expected behavioral boost to increase score: base=%.3f boosted=%.3f", base, boosted)
	}
}
